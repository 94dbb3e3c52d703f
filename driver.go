package ircd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/birchwood-irc/ircd/ircmsg"
	"github.com/birchwood-irc/ircd/session"
)

// hostnameLookupTimeout bounds the reverse DNS lookup performed before
// registration so a slow or hanging resolver can't stall the connection
// handshake indefinitely.
const hostnameLookupTimeout = 5 * time.Second

// maxUnrecognisedLines bounds how many malformed lines a connection may
// send before the driver gives up on it and disconnects, the same
// soft-disconnect guard abligh-goms's SMTP driver applies
// (maxUnrecognisedCommands in goms/inboundconnection.go) against a client
// that's out of sync with the protocol rather than just sending one bad
// line.
const maxUnrecognisedLines = 20

// Driver is the connection driver: one instance is shared across all
// connections, running the registration state machine documented at
// the registration event table for each session in its own goroutine.
//
// Grounded on original_source/src/main.rs's per-connection tokio::spawn
// block and src/client.rs's ClientState, generalized from a single
// inline closure into a reusable type that Server.handleConnection
// invokes per accepted socket.
type Driver struct {
	state    *ServerState
	resolver ReverseLookupFunc
	log      zerolog.Logger
}

// NewDriver builds a Driver bound to state, using resolver for the
// hostname lookup performed before registration.
func NewDriver(state *ServerState, resolver ReverseLookupFunc) *Driver {
	if resolver == nil {
		resolver = DefaultReverseLookup
	}
	return &Driver{
		state:    state,
		resolver: resolver,
		log:      log.Logger.With().Str("caller", "driver").Logger(),
	}
}

// Handle drives sess from connection to termination: the hostname lookup
// notices, then the registration state machine, then an idle drain until
// the peer disconnects or a fatal error occurs. On return the session is
// removed from the registry (if it had been inserted) and closed.
func (d *Driver) Handle(sess *session.Session) {
	logger := sess.Log()
	logger.Debug().Str("addr", sess.Address()).Msg("connection accepted")

	defer func() {
		if sess.Registered() {
			nick, _, _ := sess.Identity()
			d.state.Remove(nick)
			logger.Debug().Str("nick", nick).Msg("session removed from registry")
		}
		sess.Close()
	}()

	d.sendLookupNotices(sess)

	unrecognised := 0
	for {
		msg, err := sess.Recv()
		if err != nil {
			if ircmsg.IsRecoverable(err) {
				d.handleMalformed(sess, err)
				unrecognised++
				if unrecognised > maxUnrecognisedLines {
					logger.Debug().Int("count", unrecognised).Msg("too many malformed lines, disconnecting")
					return
				}
				continue
			}
			logger.Debug().Err(err).Msg("session terminated")
			return
		}
		if sess.Registered() {
			// The registered-state command set (channels, etc.) is out of
			// scope for this core; keep draining so disconnect is observed.
			continue
		}
		d.handleUnregistered(sess, msg)
	}
}

// handleMalformed replies to a single Parse-class decode failure and lets
// the caller continue draining the connection. Arity mismatches carry the
// offending verb and get ErrNeedMoreParams; an unparseable line (empty,
// or with no identifiable verb) is discarded silently, the same as most
// IRC servers treat a garbled line they can't attribute to a command.
func (d *Driver) handleMalformed(sess *session.Session, err error) {
	sess.Log().Debug().Err(err).Msg("discarding malformed line")
	var argErr *ircmsg.ArgumentCountError
	if errors.As(err, &argErr) {
		d.reply(sess, &ircmsg.ErrNeedMoreParams{Verb: argErr.Verb})
	}
}

func (d *Driver) serverPrefix() *ircmsg.Prefix {
	return &ircmsg.Prefix{Server: d.state.Name()}
}

func (d *Driver) reply(sess *session.Session, r ircmsg.Response) {
	msg := ircmsg.NewResponseMessage(d.serverPrefix(), r)
	if err := sess.Sender().Send(msg); err != nil {
		sess.Log().Debug().Err(err).Msg("failed to send reply")
	}
}

func (d *Driver) notice(sess *session.Session, text string) {
	msg := ircmsg.NewCommandMessage(d.serverPrefix(), &ircmsg.NoticeCommand{Recipient: "*", Text: text})
	if err := sess.Sender().Send(msg); err != nil {
		sess.Log().Debug().Err(err).Msg("failed to send notice")
	}
}

// sendLookupNotices sends the two hostname-lookup notices described in
// resolving the peer's reverse DNS name non-fatally.
func (d *Driver) sendLookupNotices(sess *session.Session) {
	d.notice(sess, "Attempting lookup of your hostname...")

	ctx, cancel := context.WithTimeout(context.Background(), hostnameLookupTimeout)
	defer cancel()

	name, err := d.resolver(ctx, sess.Address())
	if err != nil || name == "" {
		d.notice(sess, "Lookup of hostname failed, using your ip address instead")
		return
	}
	sess.SetHostname(name)
	d.notice(sess, fmt.Sprintf("Found hostname using %s", name))
}

// handleUnregistered advances sess through the registration state
// machine for one inbound message.
func (d *Driver) handleUnregistered(sess *session.Session, msg *ircmsg.Message) {
	switch cmd := msg.Contents.(type) {
	case *ircmsg.PassCommand:
		sess.SetPassword(cmd.Password)

	case *ircmsg.NickCommand:
		if d.state.HasNick(cmd.Nickname) {
			d.reply(sess, &ircmsg.ErrNickCollision{Nick: cmd.Nickname})
			return
		}
		sess.SetNick(cmd.Nickname)

	case *ircmsg.UserCommand:
		nick := sess.Nick()
		if nick == "" {
			d.reply(sess, &ircmsg.ErrNeedMoreParams{Verb: "USER"})
			return
		}
		if !d.state.TryRegister(nick, sess) {
			d.reply(sess, &ircmsg.ErrNickCollision{Nick: nick})
			return
		}
		sess.Register(nick, cmd.User, cmd.Realname)
		sess.Log().Debug().Str("nick", nick).Msg("session registered")

	case *ircmsg.PingCommand, *ircmsg.PongCommand:
		// The transport has already answered PING and recorded PONG
		// before surfacing either; ignore both here.

	case *ircmsg.RawCommand:
		d.reply(sess, &ircmsg.ErrNoSuchCommand{Verb: cmd.RawVerb})

	default:
		d.reply(sess, &ircmsg.ErrNotRegistered{})
	}
}
