// Package transport defines the segmented, connection-oriented transport
// that SNEP runs on, together with two implementations.
//
// A transport carries frames: opaque byte slices no larger than the
// receiving peer's MIU (maximum information unit). Each side advertises its
// MIU when the connection is established, and a Conn reports the value its
// peer advertised through RemoteMIU.
//
// Implementations:
//   - Memory: process-local endpoints backed by channels, used by tests and
//     by snepctl selftest.
//   - WebSocket: each binary WebSocket message is one frame; the MIU and the
//     service access point are exchanged in HTTP headers during the upgrade.
//
// # Cancellation
//
// Listener.Accept blocks until a peer connects. Closing the listener is the
// only way to cancel it: a blocked Accept returns ErrClosed promptly, and so
// does every later call.
package transport

import (
	"context"
	"errors"
	"fmt"
)

// DefaultMIU is the MIU assumed for a peer that does not advertise one
const DefaultMIU = 128

var (
	// ErrClosed is returned by operations on a closed listener or connection
	ErrClosed = errors.New("transport: closed")
	// ErrFrameTooLarge is returned when a frame exceeds the peer MIU
	ErrFrameTooLarge = errors.New("transport: frame larger than peer MIU")
	// ErrAddrInUse is returned when a service is already registered
	ErrAddrInUse = errors.New("transport: service address already in use")
	// ErrNoService is returned when dialing an address nobody listens on
	ErrNoService = errors.New("transport: no service at address")
)

// ServiceInfo describes the endpoint a server registers.
type ServiceInfo struct {
	Name    string // Service name, e.g. "urn:nfc:sn:snep"
	SAP     int    // Service access point
	MIU     int    // Local MIU advertised to peers
	Backlog int    // Connections queued before Accept picks them up
	Address string // Network address for transports that need one (host:port)
}

// String returns a short description used in logs
func (s ServiceInfo) String() string {
	return fmt.Sprintf("%s (sap=%d, miu=%d)", s.Name, s.SAP, s.MIU)
}

// Transport creates listening endpoints and outgoing connections
type Transport interface {
	Listen(info ServiceInfo) (Listener, error)
	Dial(ctx context.Context, addr string, localMIU int) (Conn, error)
}

// Listener is a registered service endpoint
type Listener interface {
	// Accept blocks until a peer connects or the listener is closed
	Accept() (Conn, error)
	Close() error
	// Addr is the address peers pass to Dial
	Addr() string
}

// Conn is one established connection. A Conn supports one concurrent reader
// and one concurrent writer.
type Conn interface {
	// ReadFrame returns the next frame, or io.EOF once the peer has closed
	ReadFrame() ([]byte, error)
	// WriteFrame sends one frame of at most RemoteMIU bytes
	WriteFrame(frame []byte) error
	RemoteMIU() int
	RemoteAddr() string
	Close() error
}
