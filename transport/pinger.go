package transport

import (
	"time"

	"github.com/birchwood-irc/ircd/ircmsg"
)

// DefaultPingInterval and DefaultPongDeadline are the liveness timings
// from the base protocol: a PING is injected every 120s, and a missing
// PONG within 30s of that injection is a fatal timeout.
const (
	DefaultPingInterval = 120 * time.Second
	DefaultPongDeadline = 30 * time.Second
)

// pinger is the liveness sub-component fused into Transport. It is a
// sub-goroutine of the transport rather than a free-standing task, the Go
// analogue of the design note that the pinger must be a poll-inline state
// machine of the transport and not a cross-task channel consumer: its
// only externally observable effects are messages pushed onto the same
// outbound queue the transport's public Sender uses, so pinger traffic is
// never reordered relative to application traffic.
type pinger struct {
	interval   time.Duration
	deadline   time.Duration
	serverName string
	outbound   *outboundQueue

	pong    chan struct{}
	timeout chan struct{}
	done    chan struct{}
}

func newPinger(serverName string, interval, deadline time.Duration, outbound *outboundQueue) *pinger {
	if interval <= 0 {
		interval = DefaultPingInterval
	}
	if deadline <= 0 {
		deadline = DefaultPongDeadline
	}
	return &pinger{
		interval:   interval,
		deadline:   deadline,
		serverName: serverName,
		outbound:   outbound,
		pong:       make(chan struct{}, 1),
		timeout:    make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// observePong clears any armed deadline. Called synchronously from the
// transport's read loop for every inbound PONG, matching "receipt of any
// PONG clears the deadline."
func (p *pinger) observePong() {
	select {
	case p.pong <- struct{}{}:
	default:
	}
}

// stop cancels the pinger's timers without declaring a timeout.
func (p *pinger) stop() {
	select {
	case <-p.done:
	default:
		close(p.done)
	}
}

func (p *pinger) run() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	deadlineTimer := time.NewTimer(p.interval)
	if !deadlineTimer.Stop() {
		<-deadlineTimer.C
	}
	armed := false

	for {
		select {
		case <-p.done:
			return

		case <-ticker.C:
			ping := ircmsg.NewCommandMessage(nil, &ircmsg.PingCommand{Target: p.serverName})
			if err := p.outbound.push(ping); err != nil {
				return
			}
			deadlineTimer.Reset(p.deadline)
			armed = true

		case <-deadlineTimer.C:
			if armed {
				close(p.timeout)
				return
			}

		case <-p.pong:
			if armed && !deadlineTimer.Stop() {
				select {
				case <-deadlineTimer.C:
				default:
				}
			}
			armed = false
		}
	}
}
