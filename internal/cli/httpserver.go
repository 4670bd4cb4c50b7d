package cli

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"voicekeep/pkg/logger"
)

// newHTTPServer builds the operator API's http.Server (teacher's
// cmd/server/main.go shape, generalized to accept ctx-driven shutdown).
func newHTTPServer(addr string, router *gin.Engine) *http.Server {
	return &http.Server{Addr: addr, Handler: router}
}

// runHTTPServer serves until ctx is canceled, then shuts down gracefully.
func runHTTPServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("api: forced shutdown", "error", err)
			return err
		}
		return ctx.Err()
	}
}
