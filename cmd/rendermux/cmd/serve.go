package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/rendermux/rendermux/internal/config"
	internalhttp "github.com/rendermux/rendermux/internal/http"
	"github.com/rendermux/rendermux/internal/http/handlers"
	"github.com/rendermux/rendermux/internal/observability"
	"github.com/rendermux/rendermux/internal/process"
	"github.com/rendermux/rendermux/internal/renderer"
	"github.com/rendermux/rendermux/internal/startup"
	"github.com/rendermux/rendermux/internal/transcode"
	"github.com/rendermux/rendermux/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the rendermux server",
	Long: `Start the rendermux HTTP server and API.

The server provides:
- REST API for renderer registration, player state ingest, and control
- Push transports (polling, SSE, websocket) carrying player commands
- Health check endpoint and Prometheus metrics`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().Int("port", 9002, "Port to listen on")
	serveCmd.Flags().String("temp-dir", "", "Root directory for transcode session folders")

	mustBindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	mustBindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	mustBindPFlag("transcode.temp_dir", serveCmd.Flags().Lookup("temp-dir"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	applyServeFlagOverrides(cmd.Flags(), cfg)

	logger := slog.Default()
	metrics := observability.NewMetrics()

	// Sweep session folders orphaned by a previous run.
	removed, err := startup.CleanupOrphanedSessionDirs(logger, metrics, cfg.Transcode.TempDir, cfg.Transcode.CleanupMaxAge)
	if err != nil {
		logger.Warn("failed to clean orphaned session directories",
			slog.String("error", err.Error()),
		)
	} else if removed > 0 {
		logger.Info("cleaned orphaned session directories on startup",
			slog.Int("removed_count", removed),
		)
	}

	// The same sweep runs on a schedule to catch folders that outlive their
	// renderer without a clean stop.
	scheduler := cron.New(cron.WithSeconds())
	_, err = scheduler.AddFunc(cfg.Transcode.CleanupCron, func() {
		if _, err := startup.CleanupOrphanedSessionDirs(logger, metrics, cfg.Transcode.TempDir, cfg.Transcode.CleanupMaxAge); err != nil {
			logger.Warn("scheduled session directory sweep failed",
				slog.String("error", err.Error()),
			)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling cleanup sweep: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	builder := transcode.NewBuilder(
		cfg.Transcode.TempDir,
		cfg.Transcode.SegmentURLPrefix,
		cfg.Transcode.SegmentSeconds,
		cfg.Transcode.GOPSize,
		logger,
	)
	proc := process.NewController(logger)

	manager := renderer.NewManager(renderer.Options{
		Builder:      builder,
		Proc:         proc,
		Bitrate:      &transcode.BitrateLimiter{MaxKbps: cfg.Transcode.LowSpeedKbps},
		RenderWidth:  cfg.Transcode.RenderWidth,
		RenderHeight: cfg.Transcode.RenderHeight,
		Logger:       logger,
		Metrics:      metrics,
	}, logger)

	serverConfig := internalhttp.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
	server := internalhttp.NewServer(serverConfig, logger, version.Version)

	handlers.NewHealthHandler(version.Version).Register(server.API())
	handlers.NewRendererHandler(manager, cfg.Transcode.LowSpeedKbps, logger).Register(server.API())
	handlers.NewPlaybackHandler(manager, logger).Register(server.API())
	handlers.NewPushHandler(manager, cfg.Push.SendTimeout, logger).RegisterRoutes(server.Router())
	server.Router().Handle("/metrics", metrics.Handler())

	logger.Info("starting rendermux server",
		slog.String("host", serverConfig.Host),
		slog.Int("port", serverConfig.Port),
		slog.String("version", version.Version),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigChan:
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
	}

	return server.Shutdown(context.Background())
}

// applyServeFlagOverrides copies bound flag values onto the loaded config.
// Config is loaded through its own viper instance, so the bound keys on the
// global instance only apply here, and only when the flag was set on the
// command line; otherwise file and environment values stand.
func applyServeFlagOverrides(flags *pflag.FlagSet, cfg *config.Config) {
	if flags.Changed("host") {
		cfg.Server.Host = viper.GetString("server.host")
	}
	if flags.Changed("port") {
		cfg.Server.Port = viper.GetInt("server.port")
	}
	if flags.Changed("temp-dir") {
		cfg.Transcode.TempDir = viper.GetString("transcode.temp_dir")
	}
}

// mustBindPFlag binds a viper key to a cobra flag and panics if binding fails.
func mustBindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("failed to bind flag %q to key %q: %v", flag.Name, key, err))
	}
}
