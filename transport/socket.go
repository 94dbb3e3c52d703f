// Package transport layers a bidirectional IRC message duplex over a
// plain or TLS byte stream: framed read/write plus a fused liveness
// pinger.
package transport

import (
	"crypto/tls"
	"net"
)

// Network name constants, mirroring the transport-tag strings
// emiago-sipgo's transport package exposes per concrete transport.
const (
	NetworkPlain = "tcp"
	NetworkTLS   = "tls"
)

// Socket is a uniform byte stream abstraction over a plain TCP connection
// or a TLS connection atop one. net.Conn and *tls.Conn already satisfy a
// common interface, so unlike a tagged Plain/Tls union this only needs to
// add a Network discriminator, grounded on TCPTransport/TLSTransport's
// Network() method in transport/tcp.go and transport/tls.go.
type Socket interface {
	net.Conn
	Network() string
}

// plainSocket wraps a bare net.Conn.
type plainSocket struct {
	net.Conn
}

func (s *plainSocket) Network() string { return NetworkPlain }

// NewPlainSocket wraps conn as a plain Socket.
func NewPlainSocket(conn net.Conn) Socket {
	return &plainSocket{Conn: conn}
}

// tlsSocket wraps a *tls.Conn.
type tlsSocket struct {
	*tls.Conn
}

func (s *tlsSocket) Network() string { return NetworkTLS }

// NewTLSSocket wraps conn as a TLS Socket.
func NewTLSSocket(conn *tls.Conn) Socket {
	return &tlsSocket{Conn: conn}
}
