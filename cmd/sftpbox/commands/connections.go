package commands

import (
	"context"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/sftpbox/cmd/sftpbox/cmdutil"
	"github.com/marmos91/sftpbox/internal/cli/timeutil"
	"github.com/marmos91/sftpbox/pkg/adapter/sftp"
	"github.com/marmos91/sftpbox/pkg/apiclient"
)

var (
	connectionsOutput string
	connectionsAPIURL string
)

var connectionsCmd = &cobra.Command{
	Use:     "connections",
	Aliases: []string{"conns"},
	Short:   "List active SSH connections",
	Long: `List the authenticated SSH connections of a running server, as
reported by the control-plane API.

Examples:
  # List connections
  sftpbox connections

  # As JSON
  sftpbox connections -o json`,
	Args: cobra.NoArgs,
	RunE: runConnections,
}

func init() {
	connectionsCmd.Flags().StringVar(&connectionsAPIURL, "api-url", "", "Control-plane URL (default: from configuration)")
	connectionsCmd.Flags().StringVarP(&connectionsOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// ConnectionList renders connections as a table.
type ConnectionList []sftp.ConnectionInfo

func (cl ConnectionList) Headers() []string {
	return []string{"ID", "USER", "METHOD", "REMOTE", "CLIENT", "SESSIONS", "CONNECTED"}
}

func (cl ConnectionList) Rows() [][]string {
	rows := make([][]string, 0, len(cl))
	for _, c := range cl {
		id := c.ID
		if len(id) > 8 {
			id = id[:8]
		}
		rows = append(rows, []string{
			id,
			c.Username,
			cmdutil.EmptyOr(c.AuthMethod, "-"),
			c.RemoteAddr,
			cmdutil.EmptyOr(c.ClientVersion, "-"),
			strconv.Itoa(c.Sessions),
			timeutil.FormatDuration(time.Since(c.ConnectedAt)) + " ago",
		})
	}
	return rows
}

func runConnections(cmd *cobra.Command, args []string) error {
	apiURL, err := cmdutil.APIURL(cmd, connectionsAPIURL)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), apiclient.DefaultTimeout)
	defer cancel()

	conns, err := apiclient.New(apiURL).ListConnections(ctx)
	if err != nil {
		return err
	}
	return cmdutil.PrintOutput(cmd.OutOrStdout(), connectionsOutput, conns,
		len(conns) == 0, "No active connections.", ConnectionList(conns))
}
