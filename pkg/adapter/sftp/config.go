package sftp

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/marmos91/sftpbox/internal/adapter/sftp/handlers"
	"github.com/marmos91/sftpbox/internal/bytesize"
	sftpproto "github.com/marmos91/sftpbox/internal/protocol/sftp"
)

// Server defaults.
const (
	DefaultPort                      = 2002
	DefaultServerVersion             = "SSH-2.0-sftpbox"
	DefaultHandshakeTimeout          = 30 * time.Second
	DefaultAuthRejectionDelay        = 3 * time.Second
	DefaultAuthRejectionDelayInitial = time.Duration(0)
	DefaultMaxAuthTries              = 6
	DefaultMaxPacketSize             = bytesize.ByteSize(sftpproto.DefaultMaxPacketSize)
	MaxPacketSizeLimit               = bytesize.ByteSize(sftpproto.MaxPacketSizeLimit)
	DefaultMaxReadSize               = bytesize.ByteSize(handlers.DefaultMaxReadSize)
	DefaultMaxHandles                = handlers.DefaultMaxHandles
	DefaultMetricsLogInterval        = 5 * time.Minute
	DefaultShutdownTimeout           = 30 * time.Second
	DefaultSandboxRoot               = "."
	DefaultRootMode                  = FileMode(handlers.DefaultRootMode)
)

// ServerConfig configures the SSH listener and handshake.
type ServerConfig struct {
	// BindAddress is the IP address to listen on. Empty binds all interfaces.
	BindAddress string `mapstructure:"bind_address" yaml:"bind_address" validate:"omitempty,ip"`

	// Port is the TCP port. 0 picks a free port.
	Port int `mapstructure:"port" yaml:"port" validate:"min=0,max=65535"`

	// MaxConnections limits concurrent SSH connections. 0 means unlimited.
	MaxConnections int `mapstructure:"max_connections" yaml:"max_connections" validate:"min=0"`

	// HostKeyPath is a PEM private key file. Empty generates an ephemeral
	// ed25519 key at start; clients will see a new host key every run.
	HostKeyPath string `mapstructure:"host_key_path" yaml:"host_key_path"`

	// ServerVersion is the SSH identification string.
	ServerVersion string `mapstructure:"server_version" yaml:"server_version" validate:"omitempty,startswith=SSH-2.0-"`

	// HandshakeTimeout bounds key exchange plus authentication.
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout" yaml:"handshake_timeout" validate:"min=0"`

	// AuthRejectionDelay is slept before every rejected password or key.
	AuthRejectionDelay time.Duration `mapstructure:"auth_rejection_delay" yaml:"auth_rejection_delay" validate:"min=0"`

	// AuthRejectionDelayInitial is slept before rejecting the initial
	// "none" method most clients probe with.
	AuthRejectionDelayInitial time.Duration `mapstructure:"auth_rejection_delay_initial" yaml:"auth_rejection_delay_initial" validate:"min=0"`

	// MaxAuthTries is the number of failed attempts before disconnecting.
	MaxAuthTries int `mapstructure:"max_auth_tries" yaml:"max_auth_tries" validate:"min=0"`

	// MaxPacketSize bounds a single SFTP packet.
	MaxPacketSize bytesize.ByteSize `mapstructure:"max_packet_size" yaml:"max_packet_size"`

	// MaxReadSize clamps the length a single READ may ask for.
	MaxReadSize bytesize.ByteSize `mapstructure:"max_read_size" yaml:"max_read_size"`

	// MaxHandles bounds the open file and directory handles of one SFTP
	// session.
	MaxHandles int `mapstructure:"max_handles" yaml:"max_handles" validate:"min=0"`

	// MetricsLogInterval is the period of the connection count log line.
	// 0 disables it.
	MetricsLogInterval time.Duration `mapstructure:"metrics_log_interval" yaml:"metrics_log_interval" validate:"min=0"`
}

// ApplyDefaults fills zero values that have no meaning of their own. Port,
// the rejection delays and MaxAuthTries keep their zero values: the
// configuration layer supplies the defaults and 0 is a valid choice (free
// port, no delay, the SSH library's own limit).
func (c *ServerConfig) ApplyDefaults() {
	if c.ServerVersion == "" {
		c.ServerVersion = DefaultServerVersion
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.MaxPacketSize == 0 {
		c.MaxPacketSize = DefaultMaxPacketSize
	}
	if c.MaxReadSize == 0 {
		c.MaxReadSize = DefaultMaxReadSize
	}
	if c.MaxHandles == 0 {
		c.MaxHandles = DefaultMaxHandles
	}
}

// Validate checks values the struct tags cannot express.
func (c *ServerConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.MaxPacketSize != 0 && c.MaxPacketSize < 1024 {
		return fmt.Errorf("max_packet_size %s is below 1KiB", c.MaxPacketSize)
	}
	if c.MaxPacketSize > MaxPacketSizeLimit {
		return fmt.Errorf("max_packet_size %s exceeds %s", c.MaxPacketSize, MaxPacketSizeLimit)
	}
	if c.MaxReadSize > MaxPacketSizeLimit {
		return fmt.Errorf("max_read_size %s exceeds %s", c.MaxReadSize, MaxPacketSizeLimit)
	}
	if c.MaxHandles < 0 {
		return fmt.Errorf("max_handles must not be negative")
	}
	if c.ServerVersion != "" && !strings.HasPrefix(c.ServerVersion, "SSH-2.0-") {
		return fmt.Errorf("server_version must start with SSH-2.0-")
	}
	return nil
}

// SandboxConfig configures the directory exposed to clients.
type SandboxConfig struct {
	// Root is the sandbox root. Relative paths resolve against the working
	// directory of the server.
	Root string `mapstructure:"root" yaml:"root" validate:"required"`

	// RootMode is applied only when Root has to be created.
	RootMode FileMode `mapstructure:"root_mode" yaml:"root_mode"`
}

// ApplyDefaults fills zero values.
func (c *SandboxConfig) ApplyDefaults() {
	if c.Root == "" {
		c.Root = DefaultSandboxRoot
	}
	if c.RootMode == 0 {
		c.RootMode = DefaultRootMode
	}
}

// Config is everything the adapter needs.
type Config struct {
	Server          ServerConfig
	Sandbox         SandboxConfig
	ShutdownTimeout time.Duration
}

func (c *Config) applyDefaults() {
	c.Server.ApplyDefaults()
	c.Sandbox.ApplyDefaults()
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
}

func (c *Config) validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if c.Sandbox.Root == "" {
		return errors.New("sandbox root is required")
	}
	if c.ShutdownTimeout < 0 {
		return errors.New("shutdown timeout must not be negative")
	}
	return nil
}

// FileMode is a permission mode written in octal ("0775").
type FileMode fs.FileMode

// ParseFileMode parses an octal permission string. Only permission, setuid,
// setgid and sticky bits are accepted.
func ParseFileMode(s string) (FileMode, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0o"), "0O")
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid file mode %q: %w", s, err)
	}
	if v > 0o7777 {
		return 0, fmt.Errorf("invalid file mode %q: out of range", s)
	}
	return FileMode(unixToFileMode(uint32(v))), nil
}

// FileModeFromBits converts numeric unix mode bits, as produced by YAML for
// an unquoted 0775.
func FileModeFromBits(v uint64) (FileMode, error) {
	if v > 0o7777 {
		return 0, fmt.Errorf("invalid file mode %o: out of range", v)
	}
	return FileMode(unixToFileMode(uint32(v))), nil
}

func unixToFileMode(v uint32) fs.FileMode {
	m := fs.FileMode(v & 0o777)
	if v&0o4000 != 0 {
		m |= fs.ModeSetuid
	}
	if v&0o2000 != 0 {
		m |= fs.ModeSetgid
	}
	if v&0o1000 != 0 {
		m |= fs.ModeSticky
	}
	return m
}

// FileMode returns the mode as fs.FileMode.
func (m FileMode) FileMode() fs.FileMode { return fs.FileMode(m) }

// String returns the octal form, e.g. "0775".
func (m FileMode) String() string {
	fm := fs.FileMode(m)
	v := uint32(fm.Perm())
	if fm&fs.ModeSetuid != 0 {
		v |= 0o4000
	}
	if fm&fs.ModeSetgid != 0 {
		v |= 0o2000
	}
	if fm&fs.ModeSticky != 0 {
		v |= 0o1000
	}
	return fmt.Sprintf("%04o", v)
}

// MarshalText implements encoding.TextMarshaler.
func (m FileMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *FileMode) UnmarshalText(text []byte) error {
	v, err := ParseFileMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
