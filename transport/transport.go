package transport

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/birchwood-irc/ircd/ircmsg"
)

const readBufferSize = 4096

// Config configures a Transport's codec and pinger. Zero values fall back
// to the line codec's and pinger's own defaults.
type Config struct {
	Encoding      string
	MaxLineLength int
	ServerName    string
	PingInterval  time.Duration
	PongDeadline  time.Duration
}

type inboundItem struct {
	msg *ircmsg.Message
	err error
}

// Transport fuses a framed byte stream, an unbounded outbound queue, and
// a liveness pinger into one duplex. It is the Go realization of
// original_source's proto::transport::Transport plus client.rs's
// Sender/Outgoing pair: where the Rust code models outbound draining and
// the pinger as poll-inline state advanced by a single task's Future,
// Go's goroutines let each concern run on its own stack, communicating
// only through the shared outbound queue and a done channel for
// cancellation.
type Transport struct {
	socket Socket
	codec  *ircmsg.MessageCodec
	out    *outboundQueue
	pinger *pinger
	inbox  chan inboundItem

	done      chan struct{}
	closeOnce sync.Once
	mu        sync.Mutex
	closeErr  error
}

// New wraps socket in a Transport and starts its read loop, write loop,
// and pinger goroutines.
func New(socket Socket, cfg Config) (*Transport, error) {
	label := cfg.Encoding
	if label == "" {
		label = "utf-8"
	}
	lc, err := ircmsg.NewLineCodec(label, cfg.MaxLineLength)
	if err != nil {
		return nil, err
	}

	t := &Transport{
		socket: socket,
		codec:  ircmsg.NewMessageCodec(lc),
		out:    newOutboundQueue(),
		inbox:  make(chan inboundItem),
		done:   make(chan struct{}),
	}
	t.pinger = newPinger(cfg.ServerName, cfg.PingInterval, cfg.PongDeadline, t.out)

	go t.pinger.run()
	go t.watchPingTimeout()
	go t.writeLoop()
	go t.readLoop()

	return t, nil
}

// Send enqueues msg for delivery. The queue is unbounded: Send only fails
// once the transport has closed.
func (t *Transport) Send(msg *ircmsg.Message) error {
	return t.out.push(msg)
}

// Recv blocks for the next inbound Message. It returns the terminal error
// (ErrPingTimeout, an *ircmsg.InvalidMessageError, or a socket error) once
// the transport has closed and no further messages remain, and
// ErrTransportClosed when it closed cleanly (peer end of stream or Close).
func (t *Transport) Recv() (*ircmsg.Message, error) {
	item, ok := <-t.inbox
	if !ok {
		if err := t.Err(); err != nil {
			return nil, err
		}
		return nil, ErrTransportClosed
	}
	if item.err != nil {
		return nil, item.err
	}
	return item.msg, nil
}

// Addr returns the peer address captured from the underlying socket.
func (t *Transport) Addr() string { return t.socket.RemoteAddr().String() }

// Close tears the transport down, cancelling the pinger and closing the
// socket. It is safe to call more than once.
func (t *Transport) Close() error {
	t.fail(nil)
	return nil
}

// Err returns the error the transport closed with, or nil after a clean
// close (Close(), or the peer ending the stream).
func (t *Transport) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeErr
}

func (t *Transport) fail(err error) {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.closeErr = err
		t.mu.Unlock()
		close(t.done)
		t.pinger.stop()
		t.out.close()
		t.socket.Close()
	})
}

func (t *Transport) watchPingTimeout() {
	select {
	case <-t.pinger.timeout:
		t.fail(ErrPingTimeout)
	case <-t.done:
	}
}

func (t *Transport) writeLoop() {
	dst := &bytes.Buffer{}
	for {
		for {
			msg, ok := t.out.pop()
			if !ok {
				break
			}
			dst.Reset()
			if err := t.codec.Encode(msg, dst); err != nil {
				t.fail(err)
				return
			}
			if _, err := t.socket.Write(dst.Bytes()); err != nil {
				t.fail(err)
				return
			}
		}
		select {
		case <-t.out.notify:
		case <-t.done:
			return
		}
	}
}

func (t *Transport) readLoop() {
	defer close(t.inbox)

	buf := &bytes.Buffer{}
	rbuf := make([]byte, readBufferSize)
	for {
		n, readErr := t.socket.Read(rbuf)
		if n > 0 {
			buf.Write(rbuf[:n])
			if !t.drainBuffered(buf) {
				return
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				t.fail(nil)
			} else {
				t.fail(readErr)
			}
			return
		}
	}
}

// drainBuffered decodes every complete line currently in buf, inspecting
// each message for the pinger before delivering it to the consumer. It
// returns false once the transport has closed.
//
// A Decode error falls into one of two classes. Codec-class errors
// (oversized line, undecodable framing) mean the byte stream itself can
// no longer be trusted, so they tear the transport down via fail, the
// same as a socket error. Parse-class errors (ircmsg.IsRecoverable) mean
// one line was malformed but the line codec has already consumed it from
// buf; the connection stays open and draining resumes at the next line,
// leaving the reply policy to the consumer reading the error off Recv.
func (t *Transport) drainBuffered(buf *bytes.Buffer) bool {
	for {
		msg, ok, err := t.codec.Decode(buf)
		if err != nil {
			select {
			case t.inbox <- inboundItem{err: err}:
			case <-t.done:
				return false
			}
			if ircmsg.IsRecoverable(err) {
				continue
			}
			t.fail(err)
			return false
		}
		if !ok {
			return true
		}

		switch cmd := msg.Contents.(type) {
		case *ircmsg.PingCommand:
			pong := ircmsg.NewCommandMessage(nil, &ircmsg.PongCommand{Source: cmd.Target})
			if err := t.out.push(pong); err != nil {
				return false
			}
		case *ircmsg.PongCommand:
			t.pinger.observePong()
		}

		select {
		case t.inbox <- inboundItem{msg: msg}:
		case <-t.done:
			return false
		}
	}
}
