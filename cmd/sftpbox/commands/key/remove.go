package key

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/sftpbox/cmd/sftpbox/cmdutil"
	"github.com/marmos91/sftpbox/pkg/controlplane/models"
)

var removeCmd = &cobra.Command{
	Use:     "remove <username> <fingerprint>",
	Aliases: []string{"rm", "delete"},
	Short:   "Remove a public key",
	Long: `Remove a registered public key by its SHA256 fingerprint, as shown by
'sftpbox key list'.`,
	Args: cobra.ExactArgs(2),
	RunE: runRemove,
}

func runRemove(cmd *cobra.Command, args []string) error {
	username, fingerprint := args[0], args[1]

	s, _, err := cmdutil.OpenStore(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	if err := s.DeletePublicKey(cmd.Context(), username, fingerprint); err != nil {
		if errors.Is(err, models.ErrKeyNotFound) {
			return fmt.Errorf("key %s not found for user %q", fingerprint, username)
		}
		return fmt.Errorf("failed to remove key: %w", err)
	}

	cmdutil.PrintSuccess(cmd, "Removed %s from %q", fingerprint, username)
	return nil
}
