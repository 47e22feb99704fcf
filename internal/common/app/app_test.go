package app

import (
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armadaproject/proxgrad/internal/common/armadacontext"
)

func TestWithShutdown_Signal(t *testing.T) {
	ctx := withShutdown(armadacontext.Background(), syscall.SIGUSR1)
	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGUSR1))
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context was not cancelled by signal")
	}
}

func TestWithShutdown_ParentCancelled(t *testing.T) {
	parent, cancel := armadacontext.WithCancel(armadacontext.Background())
	ctx := withShutdown(parent, syscall.SIGUSR2)
	cancel()
	select {
	case <-ctx.Done():
		assert.Error(t, ctx.Err())
	case <-time.After(5 * time.Second):
		t.Fatal("context was not cancelled with its parent")
	}
}
