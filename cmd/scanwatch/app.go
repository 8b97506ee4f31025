package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/sentrixio/scanwatch/pkg/client"
	"github.com/sentrixio/scanwatch/pkg/core"
	"github.com/sentrixio/scanwatch/pkg/metrics"
	"github.com/sentrixio/scanwatch/pkg/render"
	"github.com/sentrixio/scanwatch/pkg/router"
	"github.com/sentrixio/scanwatch/pkg/state"
	"github.com/sentrixio/scanwatch/pkg/verify"
)

// app holds the components shared by every command.
type app struct {
	cfg      *Config
	logger   *core.DefaultLogger
	metrics  metrics.Collector
	client   *client.Client
	store    *state.Store
	renderer *render.Renderer
	verifier *verify.Verifier
	router   *router.Router

	metricsServer *http.Server
}

func newApp(ctx context.Context, cfg *Config, out io.Writer, confirmer router.Confirmer) (*app, error) {
	a := &app{cfg: cfg}
	a.logger = core.NewDefaultLogger(appName, core.ParseLogLevel(cfg.Log.Level))

	a.metrics = &metrics.NopCollector{}
	if cfg.Metrics.Addr != "" {
		pc, err := metrics.NewPrometheusCollector(&metrics.PrometheusConfig{Definitions: metrics.Definitions})
		if err != nil {
			return nil, fmt.Errorf("create metrics collector: %w", err)
		}
		a.metrics = pc
		a.serveMetrics(cfg.Metrics.Addr)
	}

	c, err := client.New(&cfg.API,
		client.WithLogger(a.logger.With("client")),
		client.WithMetrics(a.metrics),
	)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("create client: %w", err)
	}
	a.client = c

	a.store, err = state.Open(&cfg.State)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("open state: %w", err)
	}

	theme, err := a.store.Theme(ctx)
	if err != nil {
		a.logger.Warn("reading theme: %v", err)
	}
	a.renderer = render.New(out, theme)

	if cfg.GitHub.Token != "" || cfg.GitHub.BaseURL != "" {
		a.verifier, err = verify.New(ctx, cfg.GitHub, a.logger.With("github"))
		if err != nil {
			a.close()
			return nil, fmt.Errorf("create GitHub verifier: %w", err)
		}
	}

	a.router, err = router.New(&router.Config{
		Client:       a.client,
		Store:        a.store,
		Renderer:     a.renderer,
		Confirmer:    confirmer,
		Verifier:     a.verifier,
		PollInterval: cfg.Poll.Interval,
		Logger:       a.logger.With("router"),
		Metrics:      a.metrics,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	a.metricsServer = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		a.logger.Info("serving metrics on %s/metrics", addr)
		if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server: %v", err)
		}
	}()
}

func (a *app) close() {
	if a.router != nil {
		a.router.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("closing state: %v", err)
		}
	}
	if a.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		a.metricsServer.Shutdown(ctx)
	}
}

// stdinConfirmer asks on stderr and reads the answer from stdin.
type stdinConfirmer struct {
	assume bool
}

func (c *stdinConfirmer) Confirm(prompt string) bool {
	if c.assume {
		return true
	}
	fmt.Fprintf(os.Stderr, "%s [y/N] ", prompt)
	line, ok := <-stdinLines()
	if !ok {
		return false
	}
	return isYes(line)
}
