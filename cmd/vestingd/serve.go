package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/xraph/vesting"
	"github.com/xraph/vesting/api"
	audithook "github.com/xraph/vesting/audit_hook"
	"github.com/xraph/vesting/observability"
)

var cmdServe = &cobra.Command{
	Use:   "serve",
	Short: "Serve the vesting HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var flagServe struct {
	Addr            string
	BasePath        string
	Database        string
	ShutdownTimeout time.Duration
}

func init() {
	cmdMain.AddCommand(cmdServe)
	cmdServe.Flags().StringVar(&flagServe.Addr, "addr", envOr("VESTING_ADDR", ":8080"), "Listen address")
	cmdServe.Flags().StringVar(&flagServe.Database, "database", os.Getenv("VESTING_DATABASE"), "Ledger store: memory, sqlite:<path> or postgres://... (in-memory when empty)")
	cmdServe.Flags().StringVar(&flagServe.BasePath, "base-path", api.DefaultBasePath, "Route prefix for the API")
	cmdServe.Flags().DurationVar(&flagServe.ShutdownTimeout, "shutdown-timeout", 10*time.Second, "Grace period for in-flight requests")
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, closeBank, err := openBank(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = closeBank() }()

	st, err := openStore(ctx, flagServe.Database)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	audit := audithook.New(audithook.RecorderFunc(func(_ context.Context, evt *audithook.AuditEvent) error {
		logger.Info("audit",
			"action", evt.Action,
			"resource", evt.Resource,
			"resource_id", evt.ResourceID,
			"outcome", evt.Outcome,
			"reason", evt.Reason,
		)
		return nil
	}), audithook.WithLogger(logger))

	engine := vesting.New(st,
		vesting.WithLogger(logger),
		vesting.WithGateway(b),
		vesting.WithNamespace(flagMain.Namespace),
		vesting.WithPlugin(audit),
		vesting.WithPlugin(observability.NewMetricsExtension(observability.NewPrometheusFactory(reg))),
	)
	// Stop closes the store.
	if err := engine.Start(ctx); err != nil {
		_ = st.Close()
		return err
	}
	defer func() { _ = engine.Stop() }()

	app := api.New(engine, api.WithLogger(logger), api.WithBasePath(flagServe.BasePath)).App()
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	app.Get("/healthz", func(c *fiber.Ctx) error {
		if err := engine.Store().Ping(c.UserContext()); err != nil {
			return err
		}
		return c.SendString("ok")
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("vestingd listening",
			"addr", flagServe.Addr,
			"namespace", flagMain.Namespace,
			"database", redactDSN(flagServe.Database),
		)
		errCh <- app.Listen(flagServe.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("vestingd shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), flagServe.ShutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
