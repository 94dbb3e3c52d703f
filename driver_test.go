package ircd

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/birchwood-irc/ircd/ircmsg"
	"github.com/birchwood-irc/ircd/session"
	"github.com/birchwood-irc/ircd/transport"
)

func stubResolver(name string, err error) ReverseLookupFunc {
	return func(ctx context.Context, addr string) (string, error) {
		return name, err
	}
}

func newDriverSession(t *testing.T, resolver ReverseLookupFunc) (*ServerState, *Driver, *session.Session, net.Conn) {
	t.Helper()
	state := NewServerState("srv")
	driver := NewDriver(state, resolver)

	a, b := net.Pipe()
	sess, err := session.New(transport.NewPlainSocket(a), transport.Config{
		ServerName:   "srv",
		PingInterval: time.Hour,
		PongDeadline: time.Hour,
	})
	require.NoError(t, err)
	return state, driver, sess, b
}

// readMessages drains n decoded messages from peer with a timeout.
func readMessages(t *testing.T, peer net.Conn, n int) []*ircmsg.Message {
	t.Helper()
	lc, err := ircmsg.NewLineCodec("utf-8", 0)
	require.NoError(t, err)
	mc := ircmsg.NewMessageCodec(lc)

	acc := &bytes.Buffer{}
	out := make([]*ircmsg.Message, 0, n)
	readBuf := make([]byte, 512)
	deadline := time.Now().Add(3 * time.Second)
	peer.SetReadDeadline(deadline)
	for len(out) < n {
		nn, err := peer.Read(readBuf)
		require.NoError(t, err)
		acc.Write(readBuf[:nn])
		for len(out) < n {
			msg, ok, decErr := mc.Decode(acc)
			require.NoError(t, decErr)
			if !ok {
				break
			}
			out = append(out, msg)
		}
	}
	return out
}

func TestDriverHostnameLookupNoticesSuccess(t *testing.T) {
	_, driver, sess, peer := newDriverSession(t, stubResolver("client.example.org", nil))
	defer peer.Close()
	defer sess.Close()

	go driver.sendLookupNotices(sess)

	msgs := readMessages(t, peer, 2)
	n1 := msgs[0].Contents.(*ircmsg.NoticeCommand)
	n2 := msgs[1].Contents.(*ircmsg.NoticeCommand)
	assert.Equal(t, "Attempting lookup of your hostname...", n1.Text)
	assert.Contains(t, n2.Text, "client.example.org")
	assert.Equal(t, "client.example.org", sess.Hostname())
}

func TestDriverRegistrationHappyPath(t *testing.T) {
	state, driver, sess, peer := newDriverSession(t, stubResolver("", assertErr))
	defer peer.Close()

	go driver.Handle(sess)

	// drain the two lookup notices
	readMessages(t, peer, 2)

	_, err := peer.Write([]byte("NICK alice\r\n"))
	require.NoError(t, err)
	_, err = peer.Write([]byte("USER alice 0 * :Alice Example\r\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return state.HasNick("alice")
	}, 2*time.Second, 10*time.Millisecond)

	assert.True(t, sess.Registered())
	nick, user, real := sess.Identity()
	assert.Equal(t, "alice", nick)
	assert.Equal(t, "alice", user)
	assert.Equal(t, "Alice Example", real)
}

func TestDriverNickCollision(t *testing.T) {
	state, driver, sess, peer := newDriverSession(t, stubResolver("", assertErr))
	defer peer.Close()

	state.TryRegister("alice", nil)

	go driver.Handle(sess)
	readMessages(t, peer, 2) // lookup notices

	_, err := peer.Write([]byte("NICK alice\r\n"))
	require.NoError(t, err)

	msgs := readMessages(t, peer, 1)
	// numerics are emit-only, so the peer-side parser sees a RawCommand
	raw, ok := msgs[0].Contents.(*ircmsg.RawCommand)
	require.True(t, ok)
	assert.Equal(t, strconv.Itoa(ircmsg.RplCodeNickCollision), raw.RawVerb)
}

func TestDriverNotRegisteredBeforeHandshake(t *testing.T) {
	_, driver, sess, peer := newDriverSession(t, stubResolver("", assertErr))
	defer peer.Close()

	go driver.Handle(sess)
	readMessages(t, peer, 2) // lookup notices

	_, err := peer.Write([]byte("PRIVMSG #foo :hi\r\n"))
	require.NoError(t, err)

	msgs := readMessages(t, peer, 1)
	raw, ok := msgs[0].Contents.(*ircmsg.RawCommand)
	require.True(t, ok)
	assert.Equal(t, strconv.Itoa(ircmsg.RplCodeNotRegistered), raw.RawVerb)
}

func TestDriverUnknownVerbDuringRegistration(t *testing.T) {
	_, driver, sess, peer := newDriverSession(t, stubResolver("", assertErr))
	defer peer.Close()

	go driver.Handle(sess)
	readMessages(t, peer, 2) // lookup notices

	_, err := peer.Write([]byte("JOIN #foo\r\n"))
	require.NoError(t, err)

	msgs := readMessages(t, peer, 1)
	raw, ok := msgs[0].Contents.(*ircmsg.RawCommand)
	require.True(t, ok)
	assert.Equal(t, strconv.Itoa(ircmsg.RplCodeNoSuchCommand), raw.RawVerb)
}

func TestDriverUserBeforeNickNeedsMoreParams(t *testing.T) {
	_, driver, sess, peer := newDriverSession(t, stubResolver("", assertErr))
	defer peer.Close()

	go driver.Handle(sess)
	readMessages(t, peer, 2) // lookup notices

	_, err := peer.Write([]byte("USER alice 0 * :Alice Example\r\n"))
	require.NoError(t, err)

	msgs := readMessages(t, peer, 1)
	raw, ok := msgs[0].Contents.(*ircmsg.RawCommand)
	require.True(t, ok)
	assert.Equal(t, strconv.Itoa(ircmsg.RplCodeNeedMoreParams), raw.RawVerb)
}

func TestDriverMalformedLineDiscardedAndRepliedTo(t *testing.T) {
	_, driver, sess, peer := newDriverSession(t, stubResolver("", assertErr))
	defer peer.Close()

	go driver.Handle(sess)
	readMessages(t, peer, 2) // lookup notices

	_, err := peer.Write([]byte("NICK\r\n"))
	require.NoError(t, err)

	msgs := readMessages(t, peer, 1)
	raw, ok := msgs[0].Contents.(*ircmsg.RawCommand)
	require.True(t, ok)
	assert.Equal(t, strconv.Itoa(ircmsg.RplCodeNeedMoreParams), raw.RawVerb)

	// the connection survives the malformed line and keeps processing
	_, err = peer.Write([]byte("NICK alice\r\n"))
	require.NoError(t, err)
	_, err = peer.Write([]byte("USER alice 0 * :Alice Example\r\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return sess.Registered()
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDriverRemovesNickOnDisconnect(t *testing.T) {
	state, driver, sess, peer := newDriverSession(t, stubResolver("", assertErr))

	go driver.Handle(sess)
	readMessages(t, peer, 2)

	peer.Write([]byte("NICK alice\r\n"))
	peer.Write([]byte("USER alice 0 * :Alice Example\r\n"))

	require.Eventually(t, func() bool {
		return state.HasNick("alice")
	}, 2*time.Second, 10*time.Millisecond)

	peer.Close()

	require.Eventually(t, func() bool {
		return !state.HasNick("alice")
	}, 2*time.Second, 10*time.Millisecond)
}

var assertErr = errors.New("lookup disabled in test")
