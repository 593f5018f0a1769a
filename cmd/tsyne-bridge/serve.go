package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/paul-hammant/tsyne-sub013/pkg/bridge"
	"github.com/paul-hammant/tsyne-sub013/pkg/middleware"
)

func serveCmd() *cobra.Command {
	var (
		socketDir   string
		batch       bool
		batchWindow time.Duration
		httpAddr    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the bridge server",
		Long: `Start the bridge server on a local unix domain socket.

The socket path is <dir>/tsyne-<pid>.sock, where <dir> comes from
--socket-dir, then $TSYNE_SOCKET_DIR, then the system temp directory.

With --http-addr set, an HTTP endpoint also serves Prometheus metrics at
/metrics, a liveness probe at /healthz, and a WebSocket transport binding
at /ws for clients that cannot open a local socket.

Examples:
  tsyne-bridge serve
  tsyne-bridge serve --batch --batch-window=2ms
  tsyne-bridge serve --http-addr=127.0.0.1:9190`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(socketDir, batch, batchWindow, httpAddr)
		},
	}

	cmd.Flags().StringVarP(&socketDir, "socket-dir", "d", "", "Directory for the unix socket (default $TSYNE_SOCKET_DIR or temp dir)")
	cmd.Flags().BoolVarP(&batch, "batch", "b", false, "Enable event batching")
	cmd.Flags().DurationVarP(&batchWindow, "batch-window", "w", 2*time.Millisecond, "Batch accumulation window")
	cmd.Flags().StringVarP(&httpAddr, "http-addr", "a", "", "Address for the metrics/WebSocket HTTP endpoint (disabled when empty)")

	return cmd
}

func runServe(socketDir string, batch bool, batchWindow time.Duration, httpAddr string) error {
	registry := prometheus.NewRegistry()

	srv := bridge.New(&bridge.Config{
		SocketDir:       socketDir,
		BatchEnabled:    batch,
		BatchWindow:     batchWindow,
		MetricsRegistry: registry,
	})
	srv.Use(middleware.Prometheus(middleware.WithRegistry(registry)))
	srv.Use(middleware.OTel())

	if err := srv.Start(); err != nil {
		return err
	}
	defer srv.Close()

	fmt.Printf("Bridge listening on %s\n", srv.SocketPath())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	var httpServer *http.Server
	if httpAddr != "" {
		r := chi.NewRouter()
		r.Use(chimiddleware.Recoverer)
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		})
		r.Handle("/ws", srv.WebSocketHandler())

		httpServer = &http.Server{
			Addr:              httpAddr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		g.Go(func() error {
			fmt.Printf("HTTP endpoint on http://%s\n", httpAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		if httpServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			httpServer.Shutdown(shutdownCtx)
		}
		return srv.Close()
	})

	return g.Wait()
}
