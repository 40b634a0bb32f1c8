package user

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/sftpbox/cmd/sftpbox/cmdutil"
	"github.com/marmos91/sftpbox/internal/cli/timeutil"
	"github.com/marmos91/sftpbox/pkg/controlplane/models"
)

var listOutput string

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List users",
	Long: `List users in the credential database.

Examples:
  # List users as a table
  sftpbox user list

  # List as JSON
  sftpbox user list -o json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// UserList is a list of users for table rendering.
type UserList []*models.User

// Headers implements output.TableRenderer.
func (ul UserList) Headers() []string {
	return []string{"USERNAME", "ENABLED", "KEYS", "CREATED", "LAST LOGIN"}
}

// Rows implements output.TableRenderer.
func (ul UserList) Rows() [][]string {
	rows := make([][]string, 0, len(ul))
	for _, u := range ul {
		lastLogin := "-"
		if u.LastLogin != nil {
			lastLogin = timeutil.FormatTime(*u.LastLogin)
		}
		rows = append(rows, []string{
			u.Username,
			strconv.FormatBool(u.Enabled),
			strconv.Itoa(len(u.PublicKeys)),
			timeutil.FormatTime(u.CreatedAt),
			lastLogin,
		})
	}
	return rows
}

func runList(cmd *cobra.Command, args []string) error {
	s, _, err := cmdutil.OpenStore(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	users, err := s.ListUsers(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	return cmdutil.PrintOutput(cmd.OutOrStdout(), listOutput, users, len(users) == 0, "No users found.", UserList(users))
}
