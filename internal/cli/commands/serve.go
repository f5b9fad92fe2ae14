package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cqlkit/cqlmap/internal/core"
	"github.com/cqlkit/cqlmap/internal/mapping"
	"github.com/cqlkit/cqlmap/internal/metrics"
	"github.com/cqlkit/cqlmap/internal/server"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	var (
		address string
		offline bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP diagnostics server",
		Long: `Serve health, Prometheus metrics, user type lookups and query derivation
over HTTP until interrupted.

Routes:
  GET /healthz
  GET /metrics
  GET /entities
  GET /types/{name}
  GET /entities/{entity}/queries/{method}?arg=...&allow_filtering=true`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if address != "" {
				cfg.Server.Address = address
			}

			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			registry := prometheus.NewRegistry()
			registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			m, err := metrics.New(registry)
			if err != nil {
				return err
			}

			mc, err := cfg.MappingContext(logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var resolver mapping.UserTypeResolver
			if !offline && cfg.Cassandra.Keyspace != "" {
				r, release, err := newResolver(ctx, cfg, logger, mapping.WithResolverMetrics(m))
				if err != nil {
					logger.Warn("serving without cluster metadata", zap.Error(err))
				} else {
					defer release()
					resolver = r
				}
			}

			router, err := server.NewRouter(server.Options{
				Template: core.NewDryRunTemplate(mc, core.WithLogger(logger), core.WithMetrics(m)),
				Resolver: resolver,
				Gatherer: registry,
				Logger:   logger,
			})
			if err != nil {
				return err
			}

			srv, err := server.New(server.DefaultConfig(cfg.Server.Address), router, logger)
			if err != nil {
				return err
			}
			return runServer(ctx, srv)
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "listen address (overrides server.address)")
	cmd.Flags().BoolVar(&offline, "offline", false, "do not connect to the cluster")

	return cmd
}

// runServer is replaced in tests
var runServer = func(ctx context.Context, srv *server.Server) error {
	return srv.Run(ctx)
}
