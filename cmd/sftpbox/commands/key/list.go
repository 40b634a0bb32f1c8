package key

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/sftpbox/cmd/sftpbox/cmdutil"
	"github.com/marmos91/sftpbox/internal/cli/timeutil"
	"github.com/marmos91/sftpbox/pkg/controlplane/models"
)

var listOutput string

var listCmd = &cobra.Command{
	Use:     "list <username>",
	Aliases: []string{"ls"},
	Short:   "List a user's public keys",
	Args:    cobra.ExactArgs(1),
	RunE:    runList,
}

func init() {
	listCmd.Flags().StringVarP(&listOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// KeyList is a list of public keys for table rendering.
type KeyList []*models.PublicKey

// Headers implements output.TableRenderer.
func (kl KeyList) Headers() []string {
	return []string{"FINGERPRINT", "TYPE", "COMMENT", "ADDED"}
}

// Rows implements output.TableRenderer.
func (kl KeyList) Rows() [][]string {
	rows := make([][]string, 0, len(kl))
	for _, k := range kl {
		rows = append(rows, []string{
			k.Fingerprint,
			k.Type,
			cmdutil.EmptyOr(k.Comment, "-"),
			timeutil.FormatTime(k.CreatedAt),
		})
	}
	return rows
}

func runList(cmd *cobra.Command, args []string) error {
	username := args[0]

	s, _, err := cmdutil.OpenStore(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	keys, err := s.ListPublicKeys(cmd.Context(), username)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return fmt.Errorf("user %q not found", username)
		}
		return fmt.Errorf("failed to list keys: %w", err)
	}

	return cmdutil.PrintOutput(cmd.OutOrStdout(), listOutput, keys, len(keys) == 0,
		fmt.Sprintf("No keys registered for %q.", username), KeyList(keys))
}
