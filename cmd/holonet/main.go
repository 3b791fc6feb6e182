package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/holonetio/holonet"
	"github.com/holonetio/holonet/telemetry"
	"github.com/holonetio/holonet/upstream"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type serveConfig struct {
	addr            string
	upstreamURL     string
	upstreamTimeout time.Duration
	maxConcurrency  int
	pollInterval    time.Duration
	playground      bool
	otelEndpoint    string
	otelService     string
}

func main() {
	cfg := &serveConfig{}

	rootCmd := &cobra.Command{
		Use:           "holonet",
		Short:         "graphql gateway over the planets and people REST API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "run the gateway HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cfg)
		},
	}

	flags := serveCmd.Flags()
	flags.StringVar(&cfg.addr, "addr", envOr("HOLONET_ADDR", ":8080"), "HTTP listen address")
	flags.StringVar(&cfg.upstreamURL, "upstream-url", envOr("HOLONET_UPSTREAM_URL", ""), "base URL of the upstream REST API (required)")
	flags.DurationVar(&cfg.upstreamTimeout, "upstream-timeout", 10*time.Second, "per-request timeout for upstream fetches")
	flags.IntVar(&cfg.maxConcurrency, "max-concurrency", 0, "cap on concurrent relation fetches, 0 for the default")
	flags.DurationVar(&cfg.pollInterval, "poll-interval", holonet.DefaultPollInterval, "subscription poll interval")
	flags.BoolVar(&cfg.playground, "playground", true, "serve the interactive query explorer on GET")
	flags.StringVar(&cfg.otelEndpoint, "otel-endpoint", envOr("HOLONET_OTEL_ENDPOINT", ""), "OTLP collector endpoint, empty disables tracing")
	flags.StringVar(&cfg.otelService, "otel-service", "holonet", "service name reported to the collector")

	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func serve(cfg *serveConfig) error {
	if cfg.upstreamURL == "" {
		return errors.New("--upstream-url is required")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	shutdownTracing, err := telemetry.Setup(cfg.otelEndpoint, cfg.otelService)
	if err != nil {
		return err
	}

	client := upstream.NewRESTClient(cfg.upstreamURL).
		WithTimeout(cfg.upstreamTimeout).
		WithLogger(logger)

	options := []holonet.GatewayOption{
		holonet.WithUpstreamClient(client),
		holonet.WithLogger(logger),
		holonet.WithMaxConcurrency(cfg.maxConcurrency),
		holonet.WithPollInterval(cfg.pollInterval),
	}
	if cfg.playground {
		options = append(options, holonet.WithDefaultPlayground())
	}

	gw, err := holonet.NewGateway(cfg.upstreamURL, options...)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/graphql", gw.Handler)

	srv := &http.Server{
		Addr:    cfg.addr,
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", cfg.addr),
			zap.String("upstream", cfg.upstreamURL),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	return shutdownTracing(shutdownCtx)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
