package user

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/sftpbox/cmd/sftpbox/cmdutil"
	"github.com/marmos91/sftpbox/pkg/controlplane/models"
)

var enableCmd = &cobra.Command{
	Use:   "enable <username>",
	Short: "Allow a user to log in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEnabled(cmd, args[0], true)
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable <username>",
	Short: "Reject every login of a user",
	Long: `Disable a user. Password and key logins are rejected until the user is
enabled again. Open sessions are not interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEnabled(cmd, args[0], false)
	},
}

func setEnabled(cmd *cobra.Command, username string, enabled bool) error {
	s, _, err := cmdutil.OpenStore(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	if err := s.SetUserEnabled(cmd.Context(), username, enabled); err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return fmt.Errorf("user %q not found", username)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	state := "disabled"
	if enabled {
		state = "enabled"
	}
	cmdutil.PrintSuccess(cmd, "User %q %s", username, state)
	return nil
}
