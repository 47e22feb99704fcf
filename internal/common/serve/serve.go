package serve

import (
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/armadaproject/proxgrad/internal/common/armadacontext"
)

const shutdownTimeout = 5 * time.Second

// ListenAndServe runs server until ctx is cancelled or the server fails.
// Cancellation shuts the server down gracefully and returns nil.
func ListenAndServe(ctx *armadacontext.Context, server *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		ctx.Log.Infof("Listening on %s", server.Addr)
		errCh <- server.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.WithStack(err)
	case <-ctx.Done():
		shutdownCtx, cancel := armadacontext.WithTimeout(armadacontext.Background(), shutdownTimeout)
		defer cancel()
		ctx.Log.Infof("Shutting down server on %s", server.Addr)
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.WithStack(err)
		}
		return nil
	}
}
