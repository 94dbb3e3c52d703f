package main

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/birchwood-irc/ircd"
	"github.com/birchwood-irc/ircd/internal/config"
)

func writeConfig(t *testing.T, addr string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "ircd.yaml")
	body := "server:\n  name: ctltest\n  listeners:\n  - name: plain\n    address: " + addr + "\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestControlReloadsListenersOnSIGHUP(t *testing.T) {
	path := writeConfig(t, "127.0.0.1:0")
	cfg, err := config.Load(path)
	require.NoError(t, err)

	srv, err := ircd.New(cfg, nil)
	require.NoError(t, err)

	control := NewControl(path, srv, zerolog.Nop())

	done := make(chan error, 1)
	go func() { done <- control.Run(context.Background()) }()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGHUP))

	// the control loop should still be running, having rebuilt the
	// listener set rather than exiting
	time.Sleep(100 * time.Millisecond)
	select {
	case err := <-done:
		t.Fatalf("control exited after SIGHUP, wanted it to keep running: %v", err)
	default:
	}

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGTERM))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("control did not shut down after SIGTERM")
	}
}
