// Package listener provides an accept-loop abstraction over one or more
// plain or TLS bind points, yielding transport.Sockets as connections
// arrive.
package listener

import (
	"crypto/tls"
	"net"

	"github.com/birchwood-irc/ircd/transport"
)

// Listener is a single bound plain or TLS listen point, named for
// logging and config correlation the way original_source/src/config.rs's
// Listener struct names each entry in server.listeners.
type Listener struct {
	Name string
	net.Listener
	isTLS bool
}

// Plain binds a plain-TCP Listener at addr.
func Plain(name, addr string) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Listener{Name: name, Listener: ln}, nil
}

// TLS binds a TLS Listener at addr using cfg, grounded on
// original_source/src/main.rs's tokio_native_tls acceptor wrapping a
// TcpListener; Go's crypto/tls.NewListener plays the same role without
// a separate accept-then-handshake step.
func TLS(name, addr string, cfg *tls.Config) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Listener{Name: name, Listener: tls.NewListener(ln, cfg), isTLS: true}, nil
}

func (l *Listener) accept() (transport.Socket, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	if l.isTLS {
		return transport.NewTLSSocket(conn.(*tls.Conn)), nil
	}
	return transport.NewPlainSocket(conn), nil
}

// Accepted pairs a freshly accepted Socket with the name of the listener
// it arrived on.
type Accepted struct {
	Socket   transport.Socket
	Listener string
}

// Set runs one accept loop per Listener and multiplexes their results:
// the first listener with a ready connection wins, matching "the server
// maintains a vector of listeners polled concurrently — the first ready
// yields a socket."
type Set struct {
	listeners []*Listener
	accepted  chan Accepted
	errs      chan error
	done      chan struct{}
}

// NewSet starts an accept loop goroutine per listener and returns a Set
// ready to be drained with Accept.
func NewSet(listeners ...*Listener) *Set {
	s := &Set{
		listeners: listeners,
		accepted:  make(chan Accepted),
		errs:      make(chan error, len(listeners)),
		done:      make(chan struct{}),
	}
	for _, l := range listeners {
		go s.acceptLoop(l)
	}
	return s
}

func (s *Set) acceptLoop(l *Listener) {
	for {
		sock, err := l.accept()
		if err != nil {
			select {
			case s.errs <- err:
			case <-s.done:
			}
			return
		}
		select {
		case s.accepted <- Accepted{Socket: sock, Listener: l.Name}:
		case <-s.done:
			sock.Close()
			return
		}
	}
}

// Accept blocks until a connection arrives on any listener, one of the
// accept loops reports a fatal error, or Close is called (net.ErrClosed).
func (s *Set) Accept() (Accepted, error) {
	select {
	case a := <-s.accepted:
		return a, nil
	case err := <-s.errs:
		return Accepted{}, err
	case <-s.done:
		return Accepted{}, net.ErrClosed
	}
}

// Close stops every listener and unblocks their accept loops.
func (s *Set) Close() error {
	close(s.done)
	var firstErr error
	for _, l := range s.listeners {
		if err := l.Listener.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
