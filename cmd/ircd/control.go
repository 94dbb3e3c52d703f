package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/birchwood-irc/ircd"
	"github.com/birchwood-irc/ircd/internal/config"
)

// Control owns the process's signal handling and drives the reload loop:
// SIGHUP re-reads configuration and restarts only the listener set, while
// SIGINT and SIGTERM bring the whole process down. Grounded on
// abligh-goms/smtpd/control.go's RunConfig, which cancels a
// listener-scoped context on SIGHUP and loops to rebind against freshly
// parsed config while a separate, longer-lived context keeps in-flight
// sessions alive; this core achieves the same separation more directly,
// since Driver.Handle goroutines are never handed the listener's context
// in the first place, so cancelling it can never reach a registered
// session.
type Control struct {
	configPath string
	srv        *ircd.Server
	log        zerolog.Logger
}

// NewControl builds a Control for srv, reloading from configPath on
// SIGHUP. configPath may be empty, matching config.Load's own handling of
// an unset path.
func NewControl(configPath string, srv *ircd.Server, log zerolog.Logger) *Control {
	return &Control{configPath: configPath, srv: srv, log: log}
}

// Run blocks until ctx is cancelled or a SIGINT/SIGTERM is received,
// restarting the server's listener set on every SIGHUP in between. It
// returns the error the last Server.Run call reported, if that error
// wasn't simply the listener context being cancelled for a reload.
func (c *Control) Run(ctx context.Context) error {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sig)

	for {
		listenCtx, cancelListen := context.WithCancel(ctx)
		runErr := make(chan error, 1)
		go func() { runErr <- c.srv.Run(listenCtx) }()

		select {
		case <-ctx.Done():
			cancelListen()
			<-runErr
			return nil

		case s := <-sig:
			switch s {
			case syscall.SIGHUP:
				c.log.Info().Msg("SIGHUP received, reloading configuration")
				cancelListen()
				<-runErr
				if err := c.reload(); err != nil {
					c.log.Error().Err(err).Msg("reload failed, keeping previous listener set")
				}
				continue
			default:
				c.log.Info().Str("signal", s.String()).Msg("shutting down")
				cancelListen()
				<-runErr
				return nil
			}

		case err := <-runErr:
			cancelListen()
			return err
		}
	}
}

// reload re-reads configuration from c.configPath and swaps the server's
// listener set. It never touches ServerState, so sessions registered
// before the reload are unaffected; the next loop iteration's Run call
// binds the new listeners.
func (c *Control) reload() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	lns, err := ircd.BuildListeners(cfg)
	if err != nil {
		return err
	}
	c.srv.SetListeners(lns)
	c.log.Info().Int("listeners", len(lns)).Msg("listener set reloaded")
	return nil
}
