// Package session implements the per-client session: a Transport
// plus the mutable identity a connection accumulates on its way through
// registration.
package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/birchwood-irc/ircd/ircmsg"
	"github.com/birchwood-irc/ircd/transport"
)

// Session wraps a Transport with the registration identity RFC 2812's
// handshake accumulates. Grounded on original_source's src/client.rs
// Client/ClientState pair, collapsed into one type since Go has no
// separate ownership-moved "stream()" hand-off to model: the Transport
// already drives its own read/write/pinger goroutines independently, so
// Session only needs to expose Send/Recv and the mutable identity.
type Session struct {
	id     uuid.UUID
	addr   string
	tr     *transport.Transport
	log    zerolog.Logger

	mu         sync.RWMutex
	registered bool
	password   string
	nick       string
	user       string
	realname   string
	hostname   string
}

// New creates a Session over sock, starting its Transport.
func New(sock transport.Socket, cfg transport.Config) (*Session, error) {
	tr, err := transport.New(sock, cfg)
	if err != nil {
		return nil, err
	}
	id := uuid.New()
	return &Session{
		id:   id,
		addr: sock.RemoteAddr().String(),
		tr:   tr,
		log:  log.Logger.With().Str("caller", "session").Str("session_id", id.String()).Logger(),
	}, nil
}

// Sender is a cheap, clonable handle that enqueues messages for a
// session. Copying a Sender is safe from any goroutine; the zero value is
// unusable.
type Sender struct {
	tr *transport.Transport
}

// Send enqueues msg for delivery to the client. It fails only once the
// session has closed.
func (s Sender) Send(msg *ircmsg.Message) error { return s.tr.Send(msg) }

// Sender returns a handle for enqueueing outbound messages to this
// session.
func (s *Session) Sender() Sender { return Sender{tr: s.tr} }

// Recv blocks for the next inbound Message, or returns the terminal error
// once the transport has closed.
func (s *Session) Recv() (*ircmsg.Message, error) { return s.tr.Recv() }

// Address returns the peer address captured at construction.
func (s *Session) Address() string { return s.addr }

// ID returns the session's correlation identifier, used in log lines so a
// connection's lifecycle can be traced across goroutines.
func (s *Session) ID() uuid.UUID { return s.id }

// Log returns the session's caller-tagged logger.
func (s *Session) Log() *zerolog.Logger { return &s.log }

// Close tears down the underlying transport.
func (s *Session) Close() error { return s.tr.Close() }

// Registered reports whether Register has been called.
func (s *Session) Registered() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registered
}

// Nick returns the session's current nickname, or "" before NICK.
func (s *Session) Nick() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nick
}

// SetNick records a pending nickname. It does not mark the session
// registered; that only happens in Register, mirroring the registration
// state machine where NICK and USER are separate steps.
func (s *Session) SetNick(nick string) {
	s.mu.Lock()
	s.nick = nick
	s.mu.Unlock()
}

// Password returns the password stored by a prior PASS, or "".
func (s *Session) Password() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.password
}

// SetPassword records the password sent via PASS.
func (s *Session) SetPassword(password string) {
	s.mu.Lock()
	s.password = password
	s.mu.Unlock()
}

// Hostname returns the resolved hostname recorded for this connection, or
// "" if lookup failed or has not completed.
func (s *Session) Hostname() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hostname
}

// SetHostname records the result of the reverse DNS lookup performed
// during connection setup.
func (s *Session) SetHostname(hostname string) {
	s.mu.Lock()
	s.hostname = hostname
	s.mu.Unlock()
}

// Register completes the registration handshake: nick, user and realname
// must all be non-empty, matching the invariant that a registered session
// always carries all three. Callers (the driver) are responsible for the
// nickname-uniqueness check before calling Register.
func (s *Session) Register(nick, user, realname string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nick = nick
	s.user = user
	s.realname = realname
	s.registered = true
}

// Identity returns the session's registered nick, user and realname. The
// caller must check Registered() first if it needs the invariant that all
// three are non-empty.
func (s *Session) Identity() (nick, user, realname string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nick, s.user, s.realname
}
