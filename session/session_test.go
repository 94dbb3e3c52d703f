package session

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/birchwood-irc/ircd/ircmsg"
	"github.com/birchwood-irc/ircd/transport"
)

func newTestSession(t *testing.T) (*Session, net.Conn) {
	t.Helper()
	a, b := net.Pipe()
	sess, err := New(transport.NewPlainSocket(a), transport.Config{
		ServerName:   "srv",
		PingInterval: time.Hour,
		PongDeadline: time.Hour,
	})
	require.NoError(t, err)
	t.Cleanup(func() { sess.Close() })
	return sess, b
}

func TestSessionRegistrationIdentity(t *testing.T) {
	sess, peer := newTestSession(t)
	defer peer.Close()

	assert.False(t, sess.Registered())
	sess.SetNick("alice")
	assert.Equal(t, "alice", sess.Nick())

	sess.Register("alice", "alice", "Alice Example")
	assert.True(t, sess.Registered())

	nick, user, real := sess.Identity()
	assert.Equal(t, "alice", nick)
	assert.Equal(t, "alice", user)
	assert.Equal(t, "Alice Example", real)
}

func TestSessionSenderDeliversToSocket(t *testing.T) {
	sess, peer := newTestSession(t)
	defer peer.Close()

	done := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 256)
		n, _ := peer.Read(buf)
		done <- buf[:n]
	}()

	require.NoError(t, sess.Sender().Send(ircmsg.NewCommandMessage(nil, &ircmsg.NoticeCommand{
		Recipient: "*",
		Text:      "Attempting lookup of your hostname...",
	})))

	select {
	case got := <-done:
		assert.Equal(t, "NOTICE * :Attempting lookup of your hostname...\r\n", string(got))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for outbound notice")
	}
}

func TestSessionRecvSurfacesInboundCommand(t *testing.T) {
	sess, peer := newTestSession(t)
	defer peer.Close()

	go peer.Write([]byte("NICK alice\r\n"))

	msg, err := sess.Recv()
	require.NoError(t, err)
	nick, ok := msg.Contents.(*ircmsg.NickCommand)
	require.True(t, ok)
	assert.Equal(t, "alice", nick.Nickname)
}
