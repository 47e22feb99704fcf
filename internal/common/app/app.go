package app

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/armadaproject/proxgrad/internal/common/armadacontext"
)

// CreateContextWithShutdown returns a context that will report done when a SIGINT or SIGTERM is received
func CreateContextWithShutdown() *armadacontext.Context {
	return withShutdown(armadacontext.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func withShutdown(parent *armadacontext.Context, signals ...os.Signal) *armadacontext.Context {
	ctx, cancel := armadacontext.WithCancel(parent)
	c := make(chan os.Signal, 1)
	signal.Notify(c, signals...)
	go func() {
		defer signal.Stop(c)
		select {
		case sig := <-c:
			ctx.Log.Infof("Received %s, shutting down", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx
}
