package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"elevadorpro/internal/adapters/httpapi"
	"elevadorpro/internal/auth"
	"elevadorpro/internal/config"
	"elevadorpro/internal/core"
	"elevadorpro/internal/i18n"
	"elevadorpro/internal/metrics"
)

const (
	shutdownTimeout = 10 * time.Second
	traceRetention  = 256
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cmd)
		},
	}
	cmd.Flags().String("addr", "", "listen address (default :8080)")
	cmd.Flags().String("trace-file", "", "append engine spans as JSON lines to this file")
	return cmd
}

func serve(ctx context.Context, cmd *cobra.Command) error {
	recorder := metrics.NewRecorder(true)
	opts := []core.Option{core.WithMetrics(recorder)}

	cfg, err := config.Load(cmd)
	if err != nil {
		return err
	}
	traceFile, err := openTraceFile(cfg.Log.TraceFile)
	if err != nil {
		return err
	}
	if traceFile != nil {
		defer traceFile.Close()
		opts = append(opts, core.WithTracer(core.NewJSONTracer(traceFile, traceRetention)))
	}

	a, err := newApp(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	defer a.Close()

	catalog, err := i18n.Load()
	if err != nil {
		return err
	}
	authn := auth.New(a.svc, auth.WithTTL(a.cfg.Session.TTL), auth.WithLogger(a.log))
	handler := httpapi.NewHandler(a.svc, authn, catalog,
		httpapi.WithMetrics(recorder),
		httpapi.WithLogger(a.log),
		httpapi.WithLocale(a.cfg.Locale),
	)

	srv := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		a.log.Info("listening", "addr", srv.Addr, "seed_driver", a.cfg.Seed.Driver, "overlay_driver", a.cfg.Overlay.Driver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}
	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func openTraceFile(path string) (*os.File, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	return f, nil
}
