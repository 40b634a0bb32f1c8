package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/sftpbox/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample sftpbox configuration file.

Next to the file, init creates a persistent ed25519 host key and points the
sandbox and the credential database at the same directory. A random token
secret is generated as well.

By default, the configuration file is created at $XDG_CONFIG_HOME/sftpbox/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  sftpbox init

  # Initialize with custom path
  sftpbox init --config /etc/sftpbox/config.yaml

  # Force overwrite existing config (the host key is kept)
  sftpbox init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := GetConfigFile()

	var err error
	if configPath != "" {
		err = config.InitConfigToPath(configPath, initForce)
	} else {
		configPath, err = config.InitConfig(initForce)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file created at: %s\n", configPath)
	_, _ = fmt.Fprintln(out, "\nNext steps:")
	_, _ = fmt.Fprintln(out, "  1. Add a user:      sftpbox user add <username>")
	_, _ = fmt.Fprintln(out, "  2. Start serving:   sftpbox start")
	_, _ = fmt.Fprintf(out, "  3. Or with a custom config: sftpbox start --config %s\n", configPath)
	_, _ = fmt.Fprintln(out, "\nSecurity note:")
	_, _ = fmt.Fprintln(out, "  The generated token secret is stored in the file. To keep it out of the")
	_, _ = fmt.Fprintln(out, "  file, remove it and set it through the environment instead:")
	_, _ = fmt.Fprintf(out, "    export %s_AUTH_TOKEN_SECRET=$(openssl rand -hex 32)\n", config.EnvPrefix)
	return nil
}
