package uptime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 5 * time.Second

// StateFunc reports the current connection state of the bot.
type StateFunc func() string

type health struct {
	State  string `json:"state"`
	Uptime string `json:"uptime"`
}

// NewRouter serves the liveness endpoints polled by uptime monitors.
func NewRouter(state StateFunc, started time.Time) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Uptime!"))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		current := state()

		w.Header().Set("Content-Type", "application/json")
		if current != "open" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		_ = json.NewEncoder(w).Encode(health{
			State:  current,
			Uptime: time.Since(started).Round(time.Second).String(),
		})
	})

	return r
}

// Serve listens on addr until ctx is done.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("uptime server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Debug().Msg("shutting down uptime server")
		return server.Shutdown(shutdownCtx)
	}
}
