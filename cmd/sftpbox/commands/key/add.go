package key

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/sftpbox/cmd/sftpbox/cmdutil"
	"github.com/marmos91/sftpbox/pkg/controlplane/models"
)

var addComment string

var addCmd = &cobra.Command{
	Use:   "add <username> <file|->",
	Short: "Register public keys for a user",
	Long: `Register the public keys of an authorized_keys style file for a user.

Blank lines and lines starting with # are skipped. Use - to read the keys
from stdin. Keys already registered for the user are reported and skipped.

Examples:
  # Add a key file
  sftpbox key add alice ~/.ssh/id_ed25519.pub

  # Add from stdin with a comment
  cat id_rsa.pub | sftpbox key add alice - --comment laptop`,
	Args: cobra.ExactArgs(2),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addComment, "comment", "", "Comment stored with the keys (default: the key's own comment)")
}

func runAdd(cmd *cobra.Command, args []string) error {
	username, source := args[0], args[1]

	keys, err := readKeys(cmd, source)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return fmt.Errorf("no public keys found in %s", source)
	}

	s, _, err := cmdutil.OpenStore(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	added := 0
	for _, k := range keys {
		if _, err := s.AddPublicKey(cmd.Context(), username, k); err != nil {
			switch {
			case errors.Is(err, models.ErrUserNotFound):
				return fmt.Errorf("user %q not found", username)
			case errors.Is(err, models.ErrDuplicateKey):
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Skipping %s: already registered\n", k.Fingerprint)
				continue
			default:
				return fmt.Errorf("failed to add key %s: %w", k.Fingerprint, err)
			}
		}
		added++
		cmdutil.PrintSuccess(cmd, "Added %s %s", k.Type, k.Fingerprint)
	}

	if added == 0 {
		return errors.New("no new keys were added")
	}
	return nil
}

// readKeys parses every key line of source, a file path or - for stdin.
func readKeys(cmd *cobra.Command, source string) ([]*models.PublicKey, error) {
	var r io.Reader
	if source == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("failed to open key file: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	var keys []*models.PublicKey
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, err := models.ParsePublicKey(line, addComment)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", source, lineNo, err)
		}
		keys = append(keys, k)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read keys: %w", err)
	}
	return keys, nil
}
