// Package key implements public key subcommands for database users.
package key

import (
	"github.com/spf13/cobra"
)

// Cmd is the key subcommand.
var Cmd = &cobra.Command{
	Use:   "key",
	Short: "Manage user public keys",
	Long: `Manage the SSH public keys registered for users in the credential
database.

Examples:
  # Register every key of an authorized_keys file
  sftpbox key add alice ~/.ssh/id_ed25519.pub

  # List a user's keys
  sftpbox key list alice

  # Remove a key by fingerprint
  sftpbox key remove alice SHA256:...`,
}

func init() {
	Cmd.AddCommand(addCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(removeCmd)
}
