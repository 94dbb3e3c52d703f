package transport

import "errors"

var (
	// ErrTransportClosed is returned by Send once the transport has been
	// torn down, whether by peer close, a fatal codec error, or a ping
	// timeout, and by Recv once it has closed cleanly (peer close or
	// Close) with no terminal error recorded.
	ErrTransportClosed = errors.New("transport: closed")
	// ErrPingTimeout is the terminal error recorded when no PONG arrives
	// within the pinger's deadline after an injected PING.
	ErrPingTimeout = errors.New("transport: ping timeout")
)
