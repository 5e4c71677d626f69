package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const (
	metricsPath       = "/metrics"
	readHeaderTimeout = 5 * time.Second
	serverStopTimeout = 5 * time.Second
)

// MetricsServer serves a Prometheus scrape endpoint in the background.
type MetricsServer struct {
	srv  *http.Server
	ln   net.Listener
	done chan error
}

// StartMetricsServer listens on addr and serves handler at /metrics.
func StartMetricsServer(addr string, handler http.Handler, logger *slog.Logger) (*MetricsServer, error) {
	if handler == nil {
		return nil, errors.New("metrics handler is nil")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle(metricsPath, handler)

	ms := &MetricsServer{
		srv:  &http.Server{Handler: mux, ReadHeaderTimeout: readHeaderTimeout},
		ln:   ln,
		done: make(chan error, 1),
	}

	go func() {
		serveErr := ms.srv.Serve(ln)
		if errors.Is(serveErr, http.ErrServerClosed) {
			serveErr = nil
		}

		ms.done <- serveErr
	}()

	if logger != nil {
		logger.Debug("metrics endpoint listening", "addr", ln.Addr().String())
	}

	return ms, nil
}

// Addr returns the bound listen address.
func (ms *MetricsServer) Addr() string {
	return ms.ln.Addr().String()
}

// Close stops the server.
func (ms *MetricsServer) Close(ctx context.Context) error {
	stopCtx, cancel := context.WithTimeout(ctx, serverStopTimeout)
	defer cancel()

	shutdownErr := ms.srv.Shutdown(stopCtx)
	if shutdownErr != nil {
		return fmt.Errorf("stop metrics server: %w", shutdownErr)
	}

	return <-ms.done
}
