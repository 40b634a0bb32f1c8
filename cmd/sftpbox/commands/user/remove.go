package user

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/sftpbox/cmd/sftpbox/cmdutil"
	"github.com/marmos91/sftpbox/internal/cli/prompt"
	"github.com/marmos91/sftpbox/pkg/controlplane/models"
)

var removeForce bool

var removeCmd = &cobra.Command{
	Use:     "remove <username>",
	Aliases: []string{"rm", "delete"},
	Short:   "Delete a user",
	Long: `Delete a user and all of its public keys.

Open sessions of the user are not interrupted.

Examples:
  # Delete with confirmation
  sftpbox user remove alice

  # Delete without confirmation
  sftpbox user remove alice --force`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func init() {
	removeCmd.Flags().BoolVarP(&removeForce, "force", "f", false, "Skip confirmation prompt")
}

func runRemove(cmd *cobra.Command, args []string) error {
	username := args[0]

	confirmed, err := prompt.ConfirmWithForce(fmt.Sprintf("Delete user %q and its keys", username), removeForce)
	if err != nil {
		return cmdutil.HandleAbort(cmd, err)
	}
	if !confirmed {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
		return nil
	}

	s, _, err := cmdutil.OpenStore(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	if err := s.DeleteUser(cmd.Context(), username); err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return fmt.Errorf("user %q not found", username)
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}

	cmdutil.PrintSuccess(cmd, "User %q deleted", username)
	return nil
}
