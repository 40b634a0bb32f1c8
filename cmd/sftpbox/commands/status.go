package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/sftpbox/cmd/sftpbox/cmdutil"
	"github.com/marmos91/sftpbox/internal/cli/output"
	"github.com/marmos91/sftpbox/internal/cli/timeutil"
	"github.com/marmos91/sftpbox/pkg/apiclient"
)

var (
	statusOutput  string
	statusPidFile string
	statusAPIURL  string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	Long: `Display the status of the sftpbox server.

The PID file tells whether a server process is alive; the control-plane
health endpoints report uptime and credential database health.

Examples:
  # Check status (API address from the configuration)
  sftpbox status

  # Check a server on another address
  sftpbox status --api-url http://10.0.0.5:8080

  # Output as JSON
  sftpbox status --output json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusPidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/sftpbox/sftpbox.pid)")
	statusCmd.Flags().StringVar(&statusAPIURL, "api-url", "", "Control-plane URL (default: from configuration)")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// ServerStatus is the result of the status command.
type ServerStatus struct {
	Running   bool   `json:"running" yaml:"running"`
	PID       int    `json:"pid,omitempty" yaml:"pid,omitempty"`
	Healthy   bool   `json:"healthy" yaml:"healthy"`
	Database  string `json:"database,omitempty" yaml:"database,omitempty"`
	StartedAt string `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	Uptime    string `json:"uptime,omitempty" yaml:"uptime,omitempty"`
	Message   string `json:"message" yaml:"message"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	pidPath := statusPidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}

	status := ServerStatus{Message: "Server is not running"}
	if pid, err := readPidFile(pidPath); err == nil && processAlive(pid) {
		status.Running = true
		status.PID = pid
	}

	apiURL, err := cmdutil.APIURL(cmd, statusAPIURL)
	if err != nil {
		if status.Running {
			status.Message = "Server process exists; " + err.Error()
		}
		return printStatus(cmd.OutOrStdout(), format, status)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Second)
	defer cancel()
	checkHealth(ctx, apiclient.New(apiURL), &status)

	return printStatus(cmd.OutOrStdout(), format, status)
}

// checkHealth fills status from the health endpoints.
func checkHealth(ctx context.Context, client *apiclient.Client, status *ServerStatus) {
	live, err := client.Health(ctx)
	if err != nil {
		if status.Running {
			status.Message = "Server process exists but health check failed: " + err.Error()
		}
		return
	}

	status.Running = true
	status.StartedAt = live.Data.StartedAt
	status.Uptime = live.Data.Uptime

	ready, err := client.Ready(ctx)
	switch {
	case err != nil:
		status.Message = "Server is running but readiness check failed: " + err.Error()
	case ready.Healthy():
		status.Healthy = true
		status.Database = ready.Data.Database
		status.Message = "Server is running and healthy"
	default:
		status.Message = "Server is running but unhealthy: " + ready.Error
	}
}

func processAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// FindProcess always succeeds on Unix; signal 0 probes the process.
	return process.Signal(syscall.Signal(0)) == nil
}

func printStatus(w io.Writer, format output.Format, status ServerStatus) error {
	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, status)
	case output.FormatYAML:
		return output.PrintYAML(w, status)
	}

	state := "Stopped"
	if status.Running {
		state = "Running"
		if !status.Healthy {
			state = "Running (unhealthy)"
		}
	}
	pairs := [][2]string{{"Status", state}}
	if status.PID > 0 {
		pairs = append(pairs, [2]string{"PID", strconv.Itoa(status.PID)})
	}
	if status.StartedAt != "" {
		started := status.StartedAt
		if t, err := time.Parse(time.RFC3339, status.StartedAt); err == nil {
			started = timeutil.FormatTime(t)
		}
		pairs = append(pairs, [2]string{"Started", started})
	}
	if status.Uptime != "" {
		pairs = append(pairs, [2]string{"Uptime", timeutil.FormatUptime(status.Uptime)})
	}
	if status.Database != "" {
		pairs = append(pairs, [2]string{"Database", status.Database})
	}

	_, _ = fmt.Fprintln(w, "sftpbox server status")
	_, _ = fmt.Fprintln(w)
	if err := output.KeyValue(w, pairs); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "\n%s\n", status.Message)
	return nil
}
