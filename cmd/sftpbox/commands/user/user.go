// Package user implements credential database user subcommands.
package user

import (
	"github.com/spf13/cobra"
)

// Cmd is the user subcommand.
var Cmd = &cobra.Command{
	Use:   "user",
	Short: "Manage SFTP users",
	Long: `Manage users in the credential database.

The server only consults these users when auth.database is enabled.

Examples:
  # Add a user, prompting for the password
  sftpbox user add alice

  # List users
  sftpbox user list

  # Change a password from a script
  echo "$PASSWORD" | sftpbox user passwd alice --password-stdin`,
}

func init() {
	Cmd.AddCommand(addCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(removeCmd)
	Cmd.AddCommand(passwdCmd)
	Cmd.AddCommand(enableCmd)
	Cmd.AddCommand(disableCmd)
}
