package commands

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh"

	"github.com/marmos91/sftpbox/pkg/adapter/sftp"
	"github.com/marmos91/sftpbox/pkg/config"
)

var (
	hostkeyPath  string
	hostkeyForce bool
)

var hostkeyCmd = &cobra.Command{
	Use:   "hostkey",
	Short: "Manage the SSH host key",
	Long: `Manage the ed25519 host key the server identifies itself with.

Subcommands:
  generate  Create a new host key file
  show      Print the host key fingerprint`,
}

var hostkeyGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new host key",
	Long: `Generate an ed25519 host key in OpenSSH PEM format.

The key is written to --path, or to server.host_key_path of the
configuration, or next to the configuration file.

Replacing the key of a running deployment makes clients report a changed
host key. Use --force to overwrite an existing file.

Examples:
  sftpbox hostkey generate
  sftpbox hostkey generate --path /etc/sftpbox/ssh_host_ed25519_key --force`,
	Args: cobra.NoArgs,
	RunE: runHostkeyGenerate,
}

var hostkeyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the host key fingerprint",
	Args:  cobra.NoArgs,
	RunE:  runHostkeyShow,
}

func init() {
	for _, c := range []*cobra.Command{hostkeyGenerateCmd, hostkeyShowCmd} {
		c.Flags().StringVar(&hostkeyPath, "path", "", "Host key file (default: server.host_key_path)")
	}
	hostkeyGenerateCmd.Flags().BoolVar(&hostkeyForce, "force", false, "Overwrite an existing key")

	hostkeyCmd.AddCommand(hostkeyGenerateCmd)
	hostkeyCmd.AddCommand(hostkeyShowCmd)
}

// resolveHostKeyPath picks --path, then the configured path, then the file
// next to the configuration.
func resolveHostKeyPath() (string, error) {
	if hostkeyPath != "" {
		return hostkeyPath, nil
	}
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return "", err
	}
	if cfg.Server.HostKeyPath != "" {
		return cfg.Server.HostKeyPath, nil
	}
	dir := config.GetConfigDir()
	if GetConfigFile() != "" {
		dir = filepath.Dir(GetConfigFile())
	}
	return filepath.Join(dir, config.HostKeyFileName), nil
}

func runHostkeyGenerate(cmd *cobra.Command, args []string) error {
	path, err := resolveHostKeyPath()
	if err != nil {
		return err
	}

	pub, err := sftp.GenerateHostKey(path, hostkeyForce)
	if errors.Is(err, sftp.ErrHostKeyExists) {
		return fmt.Errorf("host key already exists: %s (use --force to replace it)", path)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Host key written to %s\n", path)
	_, _ = fmt.Fprintf(out, "Fingerprint: %s\n", ssh.FingerprintSHA256(pub))
	return nil
}

func runHostkeyShow(cmd *cobra.Command, args []string) error {
	path, err := resolveHostKeyPath()
	if err != nil {
		return err
	}
	signer, err := sftp.LoadHostKey(path)
	if err != nil {
		return err
	}
	pub := signer.PublicKey()
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", pub.Type(), ssh.FingerprintSHA256(pub), path)
	return nil
}
