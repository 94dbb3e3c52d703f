package transport

import (
	"sync"

	"github.com/birchwood-irc/ircd/ircmsg"
)

// outboundQueue is an unbounded single-consumer FIFO of messages awaiting
// the wire, the Go analogue of the Rust transport's
// tokio::sync::mpsc::unbounded_channel: producers never block, the
// consumer drains in enqueue order. Grounded on original_source's
// client.rs Sender/Outgoing pair, which plays the same role around an
// UnboundedSender/UnboundedReceiver.
type outboundQueue struct {
	mu     sync.Mutex
	items  []*ircmsg.Message
	notify chan struct{}
	closed bool
}

func newOutboundQueue() *outboundQueue {
	return &outboundQueue{notify: make(chan struct{}, 1)}
}

func (q *outboundQueue) push(msg *ircmsg.Message) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrTransportClosed
	}
	q.items = append(q.items, msg)
	q.mu.Unlock()
	q.wake()
	return nil
}

// pop returns the next queued message in FIFO order, or ok == false if
// the queue is currently empty.
func (q *outboundQueue) pop() (msg *ircmsg.Message, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	msg, q.items = q.items[0], q.items[1:]
	return msg, true
}

func (q *outboundQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wake()
}

func (q *outboundQueue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
