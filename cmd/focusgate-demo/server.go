package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"focusgate/internal/focus"
	"focusgate/internal/health"
	"focusgate/internal/host"
)

// diagServer serves metrics and health for a running demo.
type diagServer struct {
	srv     *http.Server
	checker *health.Checker
	logger  *slog.Logger
}

func newDiagServer(addr string, rt *host.Runtime, configPath string, logger *slog.Logger) *diagServer {
	checker := health.NewChecker()
	checker.RegisterFunc("focus_backend", true,
		health.FocusBackendCheck(focus.NewSource(host.SourceConfig(rt.Config())), os.Getpid()))
	checker.RegisterFunc("config", false, health.ConfigCheck(configPath))
	if j := rt.Journal(); j != nil {
		checker.RegisterFunc("journal", false, health.JournalCheck(j.Ping))
	}

	mux := http.NewServeMux()
	if m := rt.Metrics(); m != nil {
		mux.Handle("/metrics", m.Registry().HTTPHandler())
	}
	mux.Handle("/healthz", checker.HealthHandler())
	mux.Handle("/readyz", checker.ReadinessHandler())

	return &diagServer{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		checker: checker,
		logger:  logger,
	}
}

// Start serves in the background.
func (d *diagServer) Start() {
	go func() {
		d.logger.Info("diagnostics listening", "addr", d.srv.Addr)
		if err := d.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Error("diagnostics server failed", "error", err)
		}
	}()
}

// SetReady flips the readiness probe.
func (d *diagServer) SetReady(ready bool) { d.checker.SetReady(ready) }

// Shutdown stops the server, waiting briefly for in-flight requests.
func (d *diagServer) Shutdown() {
	d.checker.SetReady(false)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.srv.Shutdown(ctx); err != nil {
		d.logger.Warn("diagnostics shutdown", "error", err)
	}
}
