package config

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/sftpbox/cmd/sftpbox/cmdutil"
	"github.com/marmos91/sftpbox/pkg/auth"
	"github.com/marmos91/sftpbox/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the sftpbox configuration file.

Checks for syntax errors, missing required fields, and invalid values, then
warns about settings that load but are likely mistakes.

Examples:
  # Validate default config
  sftpbox config validate

  # Validate specific config file
  sftpbox config validate --config /etc/sftpbox/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath := cmdutil.ConfigPath(cmd)

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	warnings := configWarnings(cfg)

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file: %s\n", displayPath)
	_, _ = fmt.Fprintln(out, "Validation: OK")

	if len(warnings) > 0 {
		_, _ = fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			_, _ = fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	_, _ = fmt.Fprintf(out, "\nConfiguration summary:\n")
	_, _ = fmt.Fprintf(out, "  Listen address:  %s:%d\n", cfg.Server.BindAddress, cfg.Server.Port)
	_, _ = fmt.Fprintf(out, "  Sandbox root:    %s\n", cfg.Sandbox.Root)
	_, _ = fmt.Fprintf(out, "  Static users:    %d\n", len(cfg.Auth.Static))
	_, _ = fmt.Fprintf(out, "  Key files:       %d\n", len(cfg.Auth.PublicKeys))
	_, _ = fmt.Fprintf(out, "  Tokens:          %t\n", cfg.Auth.Token.Enabled)
	_, _ = fmt.Fprintf(out, "  Database:        %t (%s)\n", cfg.Auth.Database, cfg.Database.Type)
	_, _ = fmt.Fprintf(out, "  Log level:       %s\n", cfg.Logging.Level)

	return nil
}

func configWarnings(cfg *config.Config) []string {
	var warnings []string

	if _, err := auth.Build(cfg.Auth, nil); err != nil && !cfg.Auth.Database {
		warnings = append(warnings, "no credentials configured - every login will be rejected: "+err.Error())
	}
	if cfg.Server.HostKeyPath == "" {
		warnings = append(warnings, "server.host_key_path not set - an ephemeral host key is generated on every start")
	} else if _, err := os.Stat(cfg.Server.HostKeyPath); err != nil {
		warnings = append(warnings, fmt.Sprintf("host key %s is not readable (run 'sftpbox hostkey generate')", cfg.Server.HostKeyPath))
	}
	for _, f := range cfg.Auth.PublicKeys {
		if _, err := os.Stat(f.AuthorizedKeys); err != nil {
			warnings = append(warnings, fmt.Sprintf("authorized keys file %s for %s is not readable", f.AuthorizedKeys, f.Username))
		}
	}
	if cfg.Server.AuthRejectionDelay == 0 {
		warnings = append(warnings, "server.auth_rejection_delay is 0 - failed logins are answered immediately")
	}

	return warnings
}
