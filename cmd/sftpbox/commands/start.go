package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh"

	"github.com/marmos91/sftpbox/internal/logger"
	"github.com/marmos91/sftpbox/internal/telemetry"
	"github.com/marmos91/sftpbox/pkg/adapter/sftp"
	"github.com/marmos91/sftpbox/pkg/auth"
	"github.com/marmos91/sftpbox/pkg/config"
	"github.com/marmos91/sftpbox/pkg/controlplane/api"
	"github.com/marmos91/sftpbox/pkg/controlplane/store"
)

var (
	pidFile   string
	noPidFile bool
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the SFTP server",
	Long: `Start the sftpbox server in the foreground.

The server runs until it receives SIGINT or SIGTERM, then stops accepting
connections and waits up to shutdown_timeout for open sessions to end.
Run it under a process supervisor (systemd, Docker, launchd) to keep it
in the background.

Examples:
  # Start with the default configuration file
  sftpbox start

  # Start with a custom configuration file
  sftpbox start --config /etc/sftpbox/config.yaml

  # Override settings through the environment
  SFTPBOX_LOGGING_LEVEL=DEBUG SFTPBOX_SERVER_PORT=2222 sftpbox start`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/sftpbox/sftpbox.pid)")
	startCmd.Flags().BoolVar(&noPidFile, "no-pid-file", false, "Do not write a PID file")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "sftpbox",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("Telemetry shutdown error", logger.Err(err))
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "sftpbox",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("Profiling shutdown error", logger.Err(err))
		}
	}()

	logger.Info("Starting sftpbox", "version", Version, "commit", Commit)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint)
	}

	metricsResult := config.InitializeMetrics(cfg)

	// cpStore stays a nil interface without a database.
	var cpStore store.Store
	if cfg.NeedsDatabase() {
		s, err := store.New(&cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to open credential database: %w", err)
		}
		defer func() { _ = s.Close() }()
		cpStore = s
		logger.Info("Credential database opened", "type", cfg.Database.Type)
	}

	verifiers, err := auth.Build(cfg.Auth, cpStore)
	if err != nil {
		if errors.Is(err, auth.ErrNoVerifier) {
			return fmt.Errorf("no credentials configured: set auth.static, auth.public_keys, auth.token or auth.database")
		}
		return fmt.Errorf("failed to build credential verifiers: %w", err)
	}
	logger.Info("Credential verifiers ready", logger.KeyVerifier, verifiers.Chain.Name())

	adapter, err := sftp.New(cfg.AdapterConfig(), verifiers.Chain, metricsResult.SFTP)
	if err != nil {
		return fmt.Errorf("failed to create SFTP server: %w", err)
	}
	if cfg.Server.HostKeyPath == "" {
		logger.Warn("No host_key_path configured, using an ephemeral host key; clients will see a new key on every start")
	}
	logger.Info("Host key", logger.KeyFingerprint, ssh.FingerprintSHA256(adapter.HostKey()))

	var aux sync.WaitGroup

	if verifiers.TrustStore != nil && cfg.Auth.WatchAuthorizedKeys {
		aux.Add(1)
		go func() {
			defer aux.Done()
			if err := verifiers.TrustStore.Watch(ctx); err != nil {
				logger.Error("Authorized keys watcher stopped", logger.Err(err))
			}
		}()
	}

	if metricsResult.Server != nil {
		aux.Add(1)
		go func() {
			defer aux.Done()
			if err := metricsResult.Server.Start(ctx); err != nil {
				logger.Error("Metrics server error", logger.Err(err))
			}
		}()
	}

	if cfg.ControlPlane.Enabled {
		apiServer := api.NewServer(cfg.ControlPlane, adapter, cpStore)
		aux.Add(1)
		go func() {
			defer aux.Done()
			if err := apiServer.Start(ctx); err != nil {
				logger.Error("API server error", logger.Err(err))
			}
		}()
	}

	if !noPidFile {
		pidPath := pidFile
		if pidPath == "" {
			pidPath = GetDefaultPidFile()
		}
		if err := writePidFile(pidPath); err != nil {
			return err
		}
		defer func() { _ = os.Remove(pidPath) }()
	}

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- adapter.Serve(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	var serveErr error
	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown", "signal", sig.String())
		cancel()
		serveErr = <-serverDone
	case serveErr = <-serverDone:
		cancel()
	}

	aux.Wait()

	if serveErr != nil {
		logger.Error("Server error", logger.Err(serveErr))
		return serveErr
	}
	logger.Info("Server stopped gracefully")
	return nil
}

func writePidFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create PID file directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}
