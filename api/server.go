package api

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/angelmondragon/threadmart-backend/pkg/config"
	"github.com/angelmondragon/threadmart-backend/pkg/logger"
)

// Server wraps the API http.Server with the configured timeouts.
type Server struct {
	srv      *http.Server
	logg     *logger.Logger
	timeouts config.HTTPConfig
}

// NewServer binds handler to addr.
func NewServer(cfg config.HTTPConfig, addr string, handler http.Handler, logg *logger.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
		},
		logg:     logg,
		timeouts: cfg,
	}
}

// Serve blocks until ctx is cancelled or the listener fails, then drains in-flight requests.
func (s *Server) Serve(ctx context.Context) error {
	s.srv.BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeouts.ShutdownTimeout)
	defer cancel()
	if s.logg != nil {
		s.logg.Info(shutdownCtx, "draining api server")
	}
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
