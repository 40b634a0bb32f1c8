// Package commands implements the sftpbox command line.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/sftpbox/cmd/sftpbox/commands/config"
	"github.com/marmos91/sftpbox/cmd/sftpbox/commands/key"
	"github.com/marmos91/sftpbox/cmd/sftpbox/commands/user"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "sftpbox",
	Short: "sftpbox - SFTP server for a single sandboxed directory",
	Long: `sftpbox serves one directory over SFTP (SSH File Transfer Protocol,
version 3). Every client path is resolved inside the sandbox root; symlinks
and ".." can never lead outside of it.

Credentials come from the configuration file (static users, authorized_keys
files, signed tokens) or from the credential database managed with the
'user' and 'key' commands.

Use "sftpbox [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/sftpbox/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(connectionsCmd)
	rootCmd.AddCommand(hostkeyCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(config.Cmd)
	rootCmd.AddCommand(user.Cmd)
	rootCmd.AddCommand(key.Cmd)
	rootCmd.AddCommand(completionCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}
