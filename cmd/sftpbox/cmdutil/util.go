// Package cmdutil provides shared utilities for sftpbox commands.
package cmdutil

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/sftpbox/internal/cli/output"
	"github.com/marmos91/sftpbox/internal/cli/prompt"
	"github.com/marmos91/sftpbox/pkg/config"
	"github.com/marmos91/sftpbox/pkg/controlplane/store"
)

// ConfigPath returns the --config flag inherited from the root command.
func ConfigPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}

// OpenStore loads the configuration and opens its credential database.
// The caller closes the store.
func OpenStore(cmd *cobra.Command) (*store.GORMStore, *config.Config, error) {
	cfg, err := config.MustLoad(ConfigPath(cmd))
	if err != nil {
		return nil, nil, err
	}
	s, err := store.New(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open credential database: %w", err)
	}
	if !cfg.Auth.Database {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(),
			"Warning: auth.database is disabled; the server ignores users stored in the database")
	}
	return s, cfg, nil
}

// APIURL returns override when set, otherwise the control-plane address
// from the configuration (defaults apply when no file exists).
func APIURL(cmd *cobra.Command, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	cfg, err := config.Load(ConfigPath(cmd))
	if err != nil {
		return "", err
	}
	if !cfg.ControlPlane.Enabled {
		return "", errors.New("the control-plane API is disabled in the configuration (controlplane.enabled)")
	}
	host := cfg.ControlPlane.BindAddress
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(cfg.ControlPlane.Port)), nil
}

// PrintOutput prints data as JSON or YAML, or as a table. An empty table
// prints emptyMsg instead.
func PrintOutput(w io.Writer, formatFlag string, data any, isEmpty bool, emptyMsg string, table output.TableRenderer) error {
	format, err := output.ParseFormat(formatFlag)
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, data)
	case output.FormatYAML:
		return output.PrintYAML(w, data)
	default:
		if isEmpty {
			_, _ = fmt.Fprintln(w, emptyMsg)
			return nil
		}
		return output.PrintTable(w, table)
	}
}

// PrintSuccess prints a status line on the command's output.
func PrintSuccess(cmd *cobra.Command, format string, args ...any) {
	output.NewPrinter(cmd.OutOrStdout(), output.FormatTable).Success(format, args...)
}

// HandleAbort turns a Ctrl+C at a prompt into a quiet exit.
func HandleAbort(cmd *cobra.Command, err error) error {
	if errors.Is(err, prompt.ErrAborted) {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Aborted.")
		return nil
	}
	return err
}

// ReadSecret reads the first line of r, without the line ending.
func ReadSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read from stdin: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("no input on stdin")
	}
	return line, nil
}

// NewPassword reads a password from stdin when fromStdin is set and
// prompts for one with confirmation otherwise.
func NewPassword(cmd *cobra.Command, fromStdin bool) (string, error) {
	if fromStdin {
		return ReadSecret(cmd.InOrStdin())
	}
	return prompt.NewPassword(prompt.MinPasswordLength)
}

// EmptyOr returns fallback when s is empty.
func EmptyOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
