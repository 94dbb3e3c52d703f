package ircd

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/birchwood-irc/ircd/internal/config"
	"github.com/birchwood-irc/ircd/listener"
	"github.com/birchwood-irc/ircd/session"
	"github.com/birchwood-irc/ircd/transport"
)

// Server owns the ServerState registry, the bound listeners, and the
// Driver that processes every accepted connection. Grounded on
// emiago-sipgo's Server (server.go), which holds a transport layer plus
// request handlers; here the "transport layer" is the listener.Set and
// the "handler" is the Driver's registration state machine.
type Server struct {
	state     *ServerState
	driver    *Driver
	trCfg     transport.Config
	listeners []*listener.Listener
	set       *listener.Set
	log       zerolog.Logger
}

// New builds a Server from cfg. Listener bind points are bound (net.Listen)
// here via BuildListeners; Run starts accepting on them by way of
// listener.Set.
func New(cfg *config.Config, resolver ReverseLookupFunc) (*Server, error) {
	state := NewServerState(cfg.Server.Name)

	lns, err := BuildListeners(cfg)
	if err != nil {
		return nil, err
	}

	return &Server{
		state:     state,
		driver:    NewDriver(state, resolver),
		trCfg:     transport.Config{ServerName: cfg.Server.Name},
		listeners: lns,
		log:       log.Logger.With().Str("caller", "server").Logger(),
	}, nil
}

// BuildListeners binds the listen points described by cfg; accepting on
// them starts only when Run is called. It is exported so cmd/ircd's Control can rebuild a
// listener set from freshly reloaded configuration and hand it to
// SetListeners.
func BuildListeners(cfg *config.Config) ([]*listener.Listener, error) {
	var lns []*listener.Listener
	for _, lc := range cfg.Server.Listeners {
		ln, err := buildListener(lc)
		if err != nil {
			return nil, fmt.Errorf("ircd: bind listener %q: %w", lc.Name, err)
		}
		lns = append(lns, ln)
	}
	return lns, nil
}

func buildListener(lc config.ListenerConfig) (*listener.Listener, error) {
	if lc.TLS == nil {
		return listener.Plain(lc.Name, lc.Address)
	}
	cert, err := tls.LoadX509KeyPair(lc.TLS.Cert, lc.TLS.Key)
	if err != nil {
		return nil, fmt.Errorf("load TLS material: %w", err)
	}
	return listener.TLS(lc.Name, lc.Address, &tls.Config{Certificates: []tls.Certificate{cert}})
}

// State returns the server's registry, primarily for diagnostics and
// tests.
func (s *Server) State() *ServerState { return s.state }

// AddListener registers an additional bind point. It fails with
// ErrListenerModification once the server has left PhaseStartup.
func (s *Server) AddListener(ln *listener.Listener) error {
	if s.state.Phase() != PhaseStartup {
		return ErrListenerModification
	}
	s.listeners = append(s.listeners, ln)
	return nil
}

// SetListeners replaces the listener topology Run binds on its next
// invocation. Unlike AddListener it is meant to be called after the
// server has left PhaseStartup, as the listener half of a config reload:
// it never touches ServerState, so any already-registered session keeps
// running against the old Driver/ServerState pairing across the swap.
func (s *Server) SetListeners(lns []*listener.Listener) {
	s.listeners = lns
}

// Run starts every configured listener and drives accepted connections
// until ctx is cancelled or a listener reports a fatal error. Each call
// builds a new listener.Set from the server's current listener list and
// closes those listeners when it returns, so calling Run again only works
// after SetListeners has supplied freshly bound listeners; that is how a
// config reload (see cmd/ircd's Control) restarts the listeners in
// isolation from already-running sessions.
func (s *Server) Run(ctx context.Context) error {
	if len(s.listeners) == 0 {
		return fmt.Errorf("ircd: no listeners configured")
	}

	s.set = listener.NewSet(s.listeners...)
	defer s.set.Close()
	s.state.Start()

	for _, ln := range s.listeners {
		s.log.Info().Str("listener", ln.Name).Str("addr", ln.Addr().String()).Msg("listening")
	}

	errCh := make(chan error, 1)
	go func() {
		for {
			accepted, err := s.set.Accept()
			if err != nil {
				errCh <- err
				return
			}
			go s.handleConnection(accepted)
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleConnection(a listener.Accepted) {
	sess, err := session.New(a.Socket, s.trCfg)
	if err != nil {
		s.log.Error().Err(err).Str("listener", a.Listener).Msg("failed to start session")
		a.Socket.Close()
		return
	}
	s.driver.Handle(sess)
}
