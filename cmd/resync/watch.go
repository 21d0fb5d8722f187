package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	resync "github.com/goliatone/go-resync"
	"github.com/goliatone/go-resync/pkg/state"
)

func (c *cli) watchCommand() *cobra.Command {
	var (
		interval    time.Duration
		count       int
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Refresh the collection periodically and report changes",
		Long: `Load the collection and check health, then refresh every --interval until
interrupted (or --count refreshes ran). Failed refreshes keep the last good
records. With --metrics-addr, Prometheus metrics are served at /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if interval <= 0 {
				return newConfigError("watch", "interval must be positive")
			}
			ctx := cmd.Context()
			reg := prometheus.NewRegistry()
			ctrl, err := c.controller(reg, resync.WithStaleResponseGuard(true))
			if err != nil {
				return err
			}
			if metricsAddr != "" {
				stop, err := c.serveMetrics(reg, metricsAddr)
				if err != nil {
					return err
				}
				defer stop()
			}

			cancel := ctrl.Store().Subscribe(c.statusPrinter())
			defer cancel()

			_ = ctrl.Start(ctx)
			c.printHealth(ctrl.Snapshot().Health)

			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for n := 0; count <= 0 || n < count; n++ {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
				if err := ctrl.Refresh(ctx); err != nil && !errors.Is(err, resync.ErrSuperseded) {
					c.logger.Debug("refresh failed", slog.Any("error", err))
				}
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "Refresh interval")
	cmd.Flags().IntVar(&count, "count", 0, "Stop after this many refreshes (0 runs until interrupted)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	return cmd
}

// statusPrinter reports each transition into loaded or error.
func (c *cli) statusPrinter() func(state.State) {
	var (
		mu   sync.Mutex
		last state.Phase
	)
	return func(s state.State) {
		mu.Lock()
		defer mu.Unlock()
		phase := s.Phase()
		if phase == last || phase == state.PhaseLoading || phase == state.PhaseIdle {
			last = phase
			return
		}
		last = phase
		stamp := time.Now().Format(time.TimeOnly)
		switch phase {
		case state.PhaseLoaded:
			fmt.Fprintf(c.out, "%s loaded %d records\n", stamp, len(s.Records))
		case state.PhaseError:
			fmt.Fprintf(c.out, "%s error: %s (showing %d records)\n", stamp, s.Error, len(s.Records))
		}
	}
}

func (c *cli) printHealth(h state.Health) {
	if !h.Known {
		return
	}
	line := "health: OK"
	if !h.OK {
		line = "health: DOWN " + h.Detail
	} else if h.ServerTime != "" {
		line += " · " + h.ServerTime
	}
	fmt.Fprintln(c.out, line)
}

func (c *cli) serveMetrics(reg *prometheus.Registry, addr string) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, &cliError{Operation: "serve metrics", Cause: err.Error(), Underlying: err}
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Warn("metrics server stopped", slog.Any("error", err))
		}
	}()
	c.logger.Info("serving metrics", slog.String("addr", ln.Addr().String()))
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
