package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/abhisek/probgen/internal/metrics"
	"github.com/abhisek/probgen/internal/server"
	"github.com/abhisek/probgen/internal/service"
	"github.com/abhisek/probgen/internal/tracing"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			appConfig.Server.Addr = addr
		}

		shutdownTracing, err := tracing.Init(appConfig.Tracing)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer func() { _ = shutdownTracing(context.Background()) }()

		m := metrics.New()
		svc, closeFn, err := openService(cmd,
			service.WithMetrics(m),
			service.WithTracer(otel.Tracer("github.com/abhisek/probgen/internal/problemgen")),
		)
		if err != nil {
			return err
		}
		defer closeFn()

		logger := newLogger(cmd)
		srv := server.New(svc, appConfig.Server,
			server.WithLogger(logger),
			server.WithMetrics(m),
			server.WithRateLimit(appConfig.RateLimit),
		)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logger.Info("starting probgen api",
			zap.String("addr", appConfig.Server.Addr),
			zap.Bool("tracing", appConfig.Tracing.Enabled),
		)
		return srv.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
}
