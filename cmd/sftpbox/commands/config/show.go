package config

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/sftpbox/cmd/sftpbox/cmdutil"
	"github.com/marmos91/sftpbox/internal/cli/output"
	"github.com/marmos91/sftpbox/pkg/config"
)

var (
	showOutput  string
	showSecrets bool
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective configuration",
	Long: `Display the configuration after defaults and environment overrides.

By default outputs YAML with secrets redacted. Use --output to change
format.

Examples:
  # Show config as YAML
  sftpbox config show

  # Show as JSON
  sftpbox config show --output json

  # Include the token secret and database password
  sftpbox config show --show-secrets`,
	RunE: runConfigShow,
}

func init() {
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "yaml", "Output format (yaml|json)")
	showCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "Do not redact secrets")
}

const redacted = "<redacted>"

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(cmdutil.ConfigPath(cmd))
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(showOutput)
	if err != nil {
		return err
	}

	if !showSecrets {
		redact(cfg)
	}

	if format == output.FormatJSON {
		return output.PrintJSON(cmd.OutOrStdout(), cfg)
	}
	return output.PrintYAML(cmd.OutOrStdout(), cfg)
}

func redact(cfg *config.Config) {
	if cfg.Auth.Token.Secret != "" {
		cfg.Auth.Token.Secret = redacted
	}
	if cfg.Database.Postgres.Password != "" {
		cfg.Database.Postgres.Password = redacted
	}
	for i := range cfg.Auth.Static {
		cfg.Auth.Static[i].PasswordHash = redacted
	}
}
