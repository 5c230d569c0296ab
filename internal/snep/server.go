package snep

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/snepd/internal/logging"
	"github.com/muurk/snepd/internal/transport"
)

// Defaults for a SNEP default server
const (
	DefaultServiceName = "urn:nfc:sn:snep"
	DefaultSAP         = 4
	DefaultMIU         = 248
	DefaultBacklog     = 1
)

const (
	// Delay before re-creating a listener that failed to accept
	relistenDelay = 100 * time.Millisecond

	// Time allowed for advertising or withdrawing the service
	advertiseTimeout = 5 * time.Second
)

// Config holds the server configuration
type Config struct {
	ServiceName    string
	SAP            int
	MIU            int    // Local MIU announced to peers
	Backlog        int    // Pending connections the listener may queue
	Address        string // Transport address, e.g. "127.0.0.1:9424" for WebSocket
	FragmentLength int    // Cap on outgoing frames; 0 means the peer MIU
	MaxMessageSize int    // Largest request payload accepted; 0 means unlimited
	Handshake      bool   // Continue handshake for fragmented messages
	MaxConnections int    // Concurrent connections served; 0 means unlimited
}

// DefaultConfig returns the configuration of a standard SNEP default server
func DefaultConfig() Config {
	return Config{
		ServiceName:    DefaultServiceName,
		SAP:            DefaultSAP,
		MIU:            DefaultMIU,
		Backlog:        DefaultBacklog,
		MaxMessageSize: DefaultMaxMessageSize,
		Handshake:      true,
	}
}

// Advertiser publishes a running service so clients can find it
type Advertiser interface {
	Advertise(ctx context.Context, info transport.ServiceInfo, addr string) error
	Withdraw(ctx context.Context) error
}

// Option configures a Server
type Option func(*Server)

// WithAdvertiser publishes the service while the server runs
func WithAdvertiser(a Advertiser) Option {
	return func(s *Server) { s.advertiser = a }
}

// WithMiddleware wraps the server's handler
func WithMiddleware(mw ...Middleware) Option {
	return func(s *Server) { s.handler = Chain(s.handler, mw...) }
}

// Server accepts connections on a transport and serves SNEP requests on
// each of them with its own goroutine.
type Server struct {
	config     Config
	transport  transport.Transport
	handler    Handler
	advertiser Advertiser

	// mu guards listener, running and loopDone
	mu       sync.Mutex
	listener transport.Listener
	running  bool
	loopDone chan struct{}

	// advMu orders advertiser calls; it is never taken with mu held
	advMu sync.Mutex

	slots  chan struct{} // nil when connections are unbounded
	active atomic.Int64
}

// New creates a stopped server
func New(config Config, t transport.Transport, h Handler, opts ...Option) *Server {
	s := &Server{
		config:    config,
		transport: t,
		handler:   h,
	}
	if config.MaxConnections > 0 {
		s.slots = make(chan struct{}, config.MaxConnections)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) serviceInfo() transport.ServiceInfo {
	return transport.ServiceInfo{
		Name:    s.config.ServiceName,
		SAP:     s.config.SAP,
		MIU:     s.config.MIU,
		Backlog: s.config.Backlog,
		Address: s.config.Address,
	}
}

// Start creates the listening endpoint and begins accepting connections.
// Connections are served while the service is being advertised; Start
// returns once the advertiser answers. Calling it on a running server does
// nothing.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}

	info := s.serviceInfo()
	ln, err := s.transport.Listen(info)
	if err != nil {
		s.mu.Unlock()
		logging.Error("Failed to create listener",
			zap.String("service", info.String()),
			zap.Error(err),
		)
		return startupError(err)
	}

	s.listener = ln
	s.running = true
	done := make(chan struct{})
	s.loopDone = done
	addr := ln.Addr()
	go s.acceptLoop(ln, done)
	s.mu.Unlock()

	logging.Info("SNEP server started",
		zap.String("service_name", info.Name),
		zap.Int("sap", info.SAP),
		zap.Int("miu", info.MIU),
		zap.String("addr", addr),
	)

	s.advertise(info, addr)
	return nil
}

// Stop closes the listener and waits for the accept loop to exit.
// Connections already being served are left to finish on their own.
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	ln := s.listener
	s.listener = nil
	done := s.loopDone
	s.mu.Unlock()

	// ln is nil while a failed listener is being replaced
	if ln != nil {
		if err := ln.Close(); err != nil {
			logging.Debug("Listener close failed", zap.Error(err))
		}
	}
	s.withdraw()

	<-done
	logging.Info("SNEP server stopped", zap.String("service_name", s.config.ServiceName))
}

// Running reports whether the server is accepting connections
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Addr returns the listener address, or "" when stopped
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr()
}

// ActiveConnections returns the number of connections being served
func (s *Server) ActiveConnections() int {
	return int(s.active.Load())
}

// current reports whether ln is still the server's live listener
func (s *Server) current(ln transport.Listener) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running && s.listener == ln
}

func (s *Server) acceptLoop(ln transport.Listener, done chan struct{}) {
	defer close(done)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if !s.current(ln) {
				return
			}
			logging.Error("Failed to accept connection", zap.Error(err))

			next, ok := s.relisten(ln)
			if !ok {
				return
			}
			ln = next
			continue
		}
		s.dispatch(conn)
	}
}

// relisten replaces a listener that failed while the server is running.
// On failure the server is left stopped.
func (s *Server) relisten(failed transport.Listener) (transport.Listener, bool) {
	s.mu.Lock()
	if !s.running || s.listener != failed {
		s.mu.Unlock()
		return nil, false
	}
	_ = failed.Close()
	s.listener = nil
	s.mu.Unlock()

	time.Sleep(relistenDelay)

	s.mu.Lock()
	if !s.running || s.listener != nil {
		s.mu.Unlock()
		return nil, false
	}
	ln, err := s.transport.Listen(s.serviceInfo())
	if err != nil {
		s.running = false
		s.mu.Unlock()
		logging.Error("Failed to re-create listener", zap.Error(startupError(err)))
		s.withdraw()
		return nil, false
	}
	s.listener = ln
	s.mu.Unlock()

	logging.Info("Listener re-created", zap.String("addr", ln.Addr()))
	return ln, true
}

func (s *Server) dispatch(conn transport.Conn) {
	if s.slots != nil {
		select {
		case s.slots <- struct{}{}:
		default:
			logging.Warn("Connection limit reached, closing connection",
				zap.String("remote_addr", conn.RemoteAddr()),
				zap.Int("max_connections", s.config.MaxConnections),
			)
			_ = conn.Close()
			return
		}
	}
	go s.serveConn(conn, FragmentLength(s.config.FragmentLength, conn.RemoteMIU()))
}

// serveConn runs request/response exchanges until the connection ends
func (s *Server) serveConn(conn transport.Conn, fragmentLength int) {
	remoteAddr := conn.RemoteAddr()

	defer func() {
		if r := recover(); r != nil {
			logging.Error("Connection worker panicked",
				zap.String("remote_addr", remoteAddr),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()

	s.active.Add(1)
	defer func() {
		_ = conn.Close()
		if s.slots != nil {
			<-s.slots
		}
		s.active.Add(-1)
		logging.LogConnection(remoteAddr, "connection_closed")
	}()

	logging.LogConnection(remoteAddr, "connection_accepted")
	logging.Debug("Connection parameters",
		zap.String("remote_addr", remoteAddr),
		zap.Int("remote_miu", conn.RemoteMIU()),
		zap.Int("fragment_length", fragmentLength),
	)

	m := NewMessenger(conn, fragmentLength, RoleServer,
		WithHandshake(s.config.Handshake),
		WithMaxMessageSize(s.config.MaxMessageSize),
	)
	ctx := WithPeer(context.Background(), remoteAddr)

	for {
		keep, err := HandleRequest(ctx, m, s.handler)
		if err != nil {
			logConnError(remoteAddr, err)
			return
		}
		if !keep {
			return
		}
	}
}

func logConnError(remoteAddr string, err error) {
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, transport.ErrClosed):
		logging.Debug("Peer closed connection", zap.String("remote_addr", remoteAddr))
	case IsTransport(err):
		logging.Warn("Connection failed", zap.String("remote_addr", remoteAddr), zap.Error(err))
	default:
		logging.Info("Closing connection", zap.String("remote_addr", remoteAddr), zap.Error(err))
	}
}

// advertise publishes addr unless the server stopped in the meantime
func (s *Server) advertise(info transport.ServiceInfo, addr string) {
	if s.advertiser == nil {
		return
	}
	s.advMu.Lock()
	defer s.advMu.Unlock()
	if !s.Running() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), advertiseTimeout)
	defer cancel()
	if err := s.advertiser.Advertise(ctx, info, addr); err != nil {
		logging.Warn("Failed to advertise service", zap.String("addr", addr), zap.Error(err))
	}
}

func (s *Server) withdraw() {
	if s.advertiser == nil {
		return
	}
	s.advMu.Lock()
	defer s.advMu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), advertiseTimeout)
	defer cancel()
	if err := s.advertiser.Withdraw(ctx); err != nil {
		logging.Warn("Failed to withdraw service", zap.Error(err))
	}
}
