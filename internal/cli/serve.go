package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tOgg1/runviewer/internal/models"
)

const (
	defaultServeAddr = "127.0.0.1:8000"
	shutdownTimeout  = 5 * time.Second
)

func newServeCmd(a *app) *cobra.Command {
	addr := defaultServeAddr
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a site root over HTTP",
		Long:  "Serve <dir> under --base-path so the viewer can fetch runs with --origin.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", addr, "listen address")
	return cmd
}

func (a *app) runServe(ctx context.Context, addr string) error {
	dir := a.cfg.Source.Dir
	if dir == "" {
		return &PreflightError{
			Message: "serve needs a site root",
			Hint:    "pass --dir or set RUNVIEWER_SOURCE_DIR",
		}
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	logger := a.componentLogger("serve")
	server := &http.Server{
		Handler:           newStaticHandler(dir, a.cfg.Source.BasePath, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	base := models.NormalizeBasePath(a.cfg.Source.BasePath)
	logger.Info().Str("dir", dir).Msg("serving")
	fmt.Fprintf(os.Stderr, "serving %s on http://%s%s/\n", dir, listener.Addr(), base)

	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// newStaticHandler serves root under basePath and logs each request.
func newStaticHandler(root, basePath string, logger zerolog.Logger) http.Handler {
	var handler http.Handler = http.FileServer(http.Dir(root))
	if base := models.NormalizeBasePath(basePath); base != "" {
		handler = http.StripPrefix(base, handler)
	}
	return accessLog(handler, logger)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func accessLog(next http.Handler, logger zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		event := logger.Debug()
		if rec.status >= http.StatusBadRequest {
			event = logger.Warn()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", time.Since(started)).
			Msg("request")
	})
}
