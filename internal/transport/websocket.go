package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/snepd/internal/logging"
)

// HTTP headers exchanged during the WebSocket upgrade
const (
	HeaderMIU = "X-Snep-Miu"
	HeaderSAP = "X-Snep-Sap"
)

const (
	// Time allowed to write a frame to the peer
	writeWait = 10 * time.Second

	// Time allowed to complete the close handshake
	closeWait = time.Second

	// Time allowed for the client to send the upgrade request headers
	readHeaderTimeout = 10 * time.Second
)

// WebSocket carries frames as binary WebSocket messages
type WebSocket struct {
	Dialer   *websocket.Dialer
	Upgrader websocket.Upgrader
}

// NewWebSocket creates a WebSocket transport with default dialer settings
func NewWebSocket() *WebSocket {
	return &WebSocket{
		Dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		Upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServicePath returns the HTTP path a service is reachable at
func ServicePath(serviceName string) string {
	return "/" + serviceName
}

// Listen starts an HTTP server on info.Address that upgrades requests for
// the service path and hands the connections to Accept.
func (w *WebSocket) Listen(info ServiceInfo) (Listener, error) {
	ln, err := net.Listen("tcp", info.Address)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", info.Address, err)
	}

	backlog := info.Backlog
	if backlog < 0 {
		backlog = 0
	}
	l := &wsListener{
		ws:     w,
		info:   info,
		ln:     ln,
		conns:  make(chan *wsConn, backlog),
		closed: make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(ServicePath(info.Name), l.handleUpgrade)
	l.srv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		if err := l.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("WebSocket listener stopped",
				zap.String("addr", ln.Addr().String()),
				zap.Error(err),
			)
		}
	}()

	return l, nil
}

// Dial connects to a ws:// URL and advertises localMIU
func (w *WebSocket) Dial(ctx context.Context, addr string, localMIU int) (Conn, error) {
	localMIU = orDefaultMIU(localMIU)

	header := http.Header{}
	header.Set(HeaderMIU, strconv.Itoa(localMIU))

	conn, resp, err := w.Dialer.DialContext(ctx, addr, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("dial %s: %w", addr, ErrNoService)
		}
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	conn.SetReadLimit(int64(localMIU))

	return newWSConn(conn, parseMIU(resp.Header.Get(HeaderMIU))), nil
}

func parseMIU(value string) int {
	miu, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || miu <= 0 {
		return DefaultMIU
	}
	return miu
}

type wsListener struct {
	ws        *WebSocket
	info      ServiceInfo
	ln        net.Listener
	srv       *http.Server
	conns     chan *wsConn
	closed    chan struct{}
	closeOnce sync.Once
}

func (l *wsListener) handleUpgrade(rw http.ResponseWriter, r *http.Request) {
	select {
	case <-l.closed:
		http.Error(rw, "service closed", http.StatusServiceUnavailable)
		return
	default:
	}

	localMIU := orDefaultMIU(l.info.MIU)
	header := http.Header{}
	header.Set(HeaderMIU, strconv.Itoa(localMIU))
	header.Set(HeaderSAP, strconv.Itoa(l.info.SAP))

	conn, err := l.ws.Upgrader.Upgrade(rw, r, header)
	if err != nil {
		logging.Warn("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}
	conn.SetReadLimit(int64(localMIU))

	c := newWSConn(conn, parseMIU(r.Header.Get(HeaderMIU)))
	select {
	case l.conns <- c:
	case <-l.closed:
		_ = c.Close()
	}
}

func (l *wsListener) Accept() (Conn, error) {
	select {
	case c := <-l.conns:
		return c, nil
	case <-l.closed:
		return nil, ErrClosed
	}
}

// Close stops the HTTP server. Connections already accepted stay open.
func (l *wsListener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.closed)
		err = l.srv.Close()
	drain:
		for {
			select {
			case c := <-l.conns:
				_ = c.Close()
			default:
				break drain
			}
		}
	})
	return err
}

func (l *wsListener) Addr() string {
	return "ws://" + l.ln.Addr().String() + ServicePath(l.info.Name)
}

type wsConn struct {
	conn      *websocket.Conn
	remoteMIU int
	closed    atomic.Bool
	closeOnce sync.Once
}

func newWSConn(conn *websocket.Conn, remoteMIU int) *wsConn {
	return &wsConn{conn: conn, remoteMIU: remoteMIU}
}

func (c *wsConn) ReadFrame() ([]byte, error) {
	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return nil, ErrClosed
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
				errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, io.EOF
			}
			return nil, err
		}
		if mt == websocket.BinaryMessage {
			return data, nil
		}
		logging.Debug("Ignoring non-binary WebSocket message",
			zap.String("remote_addr", c.RemoteAddr()),
			zap.Int("message_type", mt),
		)
	}
}

func (c *wsConn) WriteFrame(frame []byte) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if len(frame) > c.remoteMIU {
		return fmt.Errorf("%d > %d: %w", len(frame), c.remoteMIU, ErrFrameTooLarge)
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.BinaryMessage, frame)
}

func (c *wsConn) RemoteMIU() int {
	return c.remoteMIU
}

func (c *wsConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// Close sends a close frame on a best-effort basis and closes the socket
func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWait))
		err = c.conn.Close()
	})
	return err
}
