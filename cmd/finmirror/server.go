package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"finmirror/internal/shared/config"
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Handler         http.Handler
	Addr            string
	TLSEnabled      bool
	CertPath        string
	KeyPath         string
	ShutdownTimeout time.Duration
}

// NewServerConfigFromConfig creates ServerConfig from application config.
func NewServerConfigFromConfig(handler http.Handler, cfg *config.Config) ServerConfig {
	return ServerConfig{
		Handler:         handler,
		Addr:            net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		TLSEnabled:      cfg.TLS.Enabled,
		CertPath:        cfg.TLS.CertPath,
		KeyPath:         cfg.TLS.KeyPath,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
}

func newHTTPServer(scfg ServerConfig) *http.Server {
	return &http.Server{
		Addr:         scfg.Addr,
		Handler:      scfg.Handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// RunServer serves until ctx is done, then shuts the server down gracefully
// within scfg.ShutdownTimeout.
func RunServer(ctx context.Context, scfg ServerConfig, logger *slog.Logger) error {
	srv := newHTTPServer(scfg)

	errCh := make(chan error, 1)
	go func() {
		var err error
		if scfg.TLSEnabled {
			logger.Info("HTTPS server starting", "addr", scfg.Addr)
			err = srv.ListenAndServeTLS(scfg.CertPath, scfg.KeyPath)
		} else {
			logger.Info("HTTP server starting", "addr", scfg.Addr)
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), scfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down server", "error", err)
		return err
	}
	logger.Info("server stopped")
	return <-errCh
}
