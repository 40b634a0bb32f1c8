package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/sftpbox/pkg/auth"
	"github.com/marmos91/sftpbox/pkg/config"
)

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage login tokens",
	Long: `Manage signed login tokens.

A token is an HS256 JWT signed with auth.token.secret. Clients send it as
their SSH password; the subject must match the SSH username.`,
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue <username>",
	Short: "Issue a login token",
	Long: `Issue a signed login token for a user.

The token is printed on stdout and is valid for --ttl. The server accepts
it only when auth.token.enabled is set.

Examples:
  sftpbox token issue alice
  sftpbox token issue alice --ttl 15m`,
	Args: cobra.ExactArgs(1),
	RunE: runTokenIssue,
}

func init() {
	tokenIssueCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "Token lifetime")
	tokenCmd.AddCommand(tokenIssueCmd)
}

func runTokenIssue(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}
	if cfg.Auth.Token.Secret == "" {
		return fmt.Errorf("auth.token.secret is not set")
	}

	verifier, err := auth.NewTokenVerifier(cfg.Auth.Token)
	if err != nil {
		return err
	}
	token, err := verifier.Issue(args[0], tokenTTL)
	if err != nil {
		return err
	}

	if !cfg.Auth.Token.Enabled {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Warning: auth.token.enabled is false; the server will not accept this token")
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
