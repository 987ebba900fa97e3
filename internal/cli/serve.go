package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/entgraph/internal/config"
	"github.com/roach88/entgraph/internal/engine"
	"github.com/roach88/entgraph/internal/server"
)

const shutdownTimeout = 10 * time.Second

// ServeOptions holds flags for the serve command. Flags left unset keep
// the config file's values.
type ServeOptions struct {
	*RootOptions
	Listen         string
	DataDir        string
	Namespace      string
	FieldPolicy    string
	RateLimit      float64
	Burst          int
	RequestTimeout time.Duration
	Watch          bool
}

// listenHook, when set, receives the bound address once the listener is up.
var listenHook func(addr string)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the entgraph HTTP server.

Each namespace is a SQLite file under the data directory, created on first
use. Unprefixed routes serve the default namespace; /ns/{namespace}/...
serves any other.

Example:
  entgraph serve --listen :8080 --data-dir ./data
  entgraph serve --config entgraph.yaml --watch`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Listen, "listen", "", "listen address (overrides config)")
	f.StringVar(&opts.DataDir, "data-dir", "", "directory for namespace databases (overrides config)")
	f.StringVar(&opts.Namespace, "namespace", "", "default namespace (overrides config)")
	f.StringVar(&opts.FieldPolicy, "field-policy", "", "invalid field handling: drop|reject (overrides config)")
	f.Float64Var(&opts.RateLimit, "rate-limit", 0, "requests per second, 0 disables (overrides config)")
	f.IntVar(&opts.Burst, "burst", 0, "rate limit burst (overrides config)")
	f.DurationVar(&opts.RequestTimeout, "request-timeout", 30*time.Second, "per-request timeout, 0 disables")
	f.BoolVar(&opts.Watch, "watch", false, "reload log level when the config file changes")

	return cmd
}

// resolveConfig loads the config file and applies flags the user set.
func resolveConfig(cmd *cobra.Command, opts *ServeOptions) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("listen") {
		cfg.Listen = opts.Listen
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = opts.DataDir
	}
	if flags.Changed("namespace") {
		cfg.DefaultNamespace = opts.Namespace
	}
	if flags.Changed("field-policy") {
		cfg.Query.FieldPolicy = opts.FieldPolicy
	}
	if flags.Changed("rate-limit") {
		cfg.RateLimit.RPS = opts.RateLimit
	}
	if flags.Changed("burst") {
		cfg.RateLimit.Burst = opts.Burst
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cfg, err := resolveConfig(cmd, opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	logger, level := config.NewLogger(cmd.ErrOrStderr(), cfg.Log)
	slog.SetDefault(logger)

	policy, err := cfg.FieldPolicy()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid field policy", err)
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if opts.Watch && opts.ConfigPath != "" {
		watcher, err := config.NewWatcher(opts.ConfigPath, cfg, logger)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to watch config", err)
		}
		watcher.OnChange(func(next config.Config) {
			if opts.Verbose {
				return
			}
			level.Set(next.SlogLevel())
			logger.Info("log level updated", "level", next.Log.Level)
		})
		go watcher.Run(ctx)
	}

	registry := engine.NewRegistry(engine.RegistryConfig{
		DataDir:          cfg.DataDir,
		DefaultNamespace: cfg.DefaultNamespace,
		FieldPolicy:      policy,
		ExactBonus:       &cfg.Search.ExactBonus,
		MaxHops:          cfg.Traverse.MaxHops,
		Logger:           logger,
	})
	defer func() {
		if err := registry.Close(); err != nil {
			logger.Error("error closing namespaces", "error", err)
		}
	}()

	// Open the default namespace up front so a bad data dir fails fast.
	if _, err := registry.Default(); err != nil {
		return WrapExitError(ExitCommandError, "failed to open default namespace", err)
	}

	srv := server.New(registry, logger, server.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RateLimit:      cfg.RateLimit.RPS,
		Burst:          cfg.RateLimit.Burst,
		RequestTimeout: opts.RequestTimeout,
	})

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}

	httpServer := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	logger.Info("server starting",
		"addr", ln.Addr().String(),
		"data_dir", cfg.DataDir,
		"namespace", cfg.DefaultNamespace,
		"field_policy", policy.String(),
	)
	printBanner(cmd.OutOrStdout(), ln.Addr().String())
	if listenHook != nil {
		listenHook(ln.Addr().String())
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitFailure, "server error", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return WrapExitError(ExitFailure, "shutdown failed", err)
		}
	}

	logger.Info("server stopped gracefully")
	return nil
}

func printBanner(w io.Writer, addr string) {
	fmt.Fprintf(w, "Listening on http://%s\n", addr)
	fmt.Fprintln(w, "Press Ctrl-C to stop.")
}
