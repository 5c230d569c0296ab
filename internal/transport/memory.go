package transport

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"
	"sync/atomic"
)

// frameQueueSize is the number of frames a memory connection buffers per
// direction before WriteFrame blocks.
const frameQueueSize = 64

// Memory is an in-process transport. Listeners are addressed by service
// name or by "sap:<n>".
type Memory struct {
	mu        sync.Mutex
	listeners map[string]*memoryListener
	nextID    atomic.Uint64
}

// NewMemory creates an empty in-process transport
func NewMemory() *Memory {
	return &Memory{listeners: make(map[string]*memoryListener)}
}

func sapKey(sap int) string {
	return "sap:" + strconv.Itoa(sap)
}

// Listen registers info.Name and info.SAP
func (m *Memory) Listen(info ServiceInfo) (Listener, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.listeners[info.Name]; ok {
		return nil, fmt.Errorf("listen %s: %w", info.Name, ErrAddrInUse)
	}
	if _, ok := m.listeners[sapKey(info.SAP)]; ok {
		return nil, fmt.Errorf("listen %s: %w", sapKey(info.SAP), ErrAddrInUse)
	}

	backlog := info.Backlog
	if backlog < 0 {
		backlog = 0
	}
	l := &memoryListener{
		owner:  m,
		info:   info,
		conns:  make(chan *memoryConn, backlog),
		closed: make(chan struct{}),
	}
	m.listeners[info.Name] = l
	m.listeners[sapKey(info.SAP)] = l
	return l, nil
}

// Dial connects to a listener registered under addr
func (m *Memory) Dial(ctx context.Context, addr string, localMIU int) (Conn, error) {
	m.mu.Lock()
	l, ok := m.listeners[addr]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("dial %s: %w", addr, ErrNoService)
	}

	select {
	case <-l.closed:
		return nil, fmt.Errorf("dial %s: %w", addr, ErrNoService)
	default:
	}

	id := m.nextID.Add(1)
	client, server := newMemoryPipe(
		fmt.Sprintf("memory-client-%d", id), localMIU,
		l.info.Name, l.info.MIU,
	)

	select {
	case l.conns <- server:
		select {
		case <-l.closed:
			// Close may have drained the backlog before server landed in it
			_ = client.Close()
			return nil, fmt.Errorf("dial %s: %w", addr, ErrNoService)
		default:
		}
		return client, nil
	case <-l.closed:
		return nil, fmt.Errorf("dial %s: %w", addr, ErrNoService)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Memory) remove(l *memoryListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listeners[l.info.Name] == l {
		delete(m.listeners, l.info.Name)
	}
	if m.listeners[sapKey(l.info.SAP)] == l {
		delete(m.listeners, sapKey(l.info.SAP))
	}
}

type memoryListener struct {
	owner     *Memory
	info      ServiceInfo
	conns     chan *memoryConn
	closed    chan struct{}
	closeOnce sync.Once
}

func (l *memoryListener) Accept() (Conn, error) {
	select {
	case c := <-l.conns:
		return c, nil
	case <-l.closed:
		return nil, ErrClosed
	}
}

// Close unregisters the listener and closes queued connections nobody
// accepted, so their dialers see EOF.
func (l *memoryListener) Close() error {
	l.closeOnce.Do(func() {
		close(l.closed)
		l.owner.remove(l)
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
	return nil
}

func (l *memoryListener) Addr() string {
	return l.info.Name
}

// memoryPipe is the state shared by both ends of a memory connection
type memoryPipe struct {
	done     chan struct{}
	doneOnce sync.Once
}

func (p *memoryPipe) close() {
	p.doneOnce.Do(func() { close(p.done) })
}

type memoryConn struct {
	pipe      *memoryPipe
	rx        <-chan []byte
	tx        chan<- []byte
	remoteMIU int
	remote    string
	closed    atomic.Bool
}

// newMemoryPipe returns two connected ends. Each end's RemoteMIU is the
// MIU the other end advertised.
func newMemoryPipe(clientAddr string, clientMIU int, serverAddr string, serverMIU int) (client, server *memoryConn) {
	pipe := &memoryPipe{done: make(chan struct{})}
	toServer := make(chan []byte, frameQueueSize)
	toClient := make(chan []byte, frameQueueSize)

	client = &memoryConn{pipe: pipe, rx: toClient, tx: toServer, remoteMIU: orDefaultMIU(serverMIU), remote: serverAddr}
	server = &memoryConn{pipe: pipe, rx: toServer, tx: toClient, remoteMIU: orDefaultMIU(clientMIU), remote: clientAddr}
	return client, server
}

func orDefaultMIU(miu int) int {
	if miu <= 0 {
		return DefaultMIU
	}
	return miu
}

// ReadFrame delivers frames queued before the peer closed, then io.EOF
func (c *memoryConn) ReadFrame() ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	select {
	case f := <-c.rx:
		return f, nil
	default:
	}
	select {
	case f := <-c.rx:
		return f, nil
	case <-c.pipe.done:
		select {
		case f := <-c.rx:
			return f, nil
		default:
		}
		if c.closed.Load() {
			return nil, ErrClosed
		}
		return nil, io.EOF
	}
}

func (c *memoryConn) WriteFrame(frame []byte) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if len(frame) > c.remoteMIU {
		return fmt.Errorf("%d > %d: %w", len(frame), c.remoteMIU, ErrFrameTooLarge)
	}
	f := make([]byte, len(frame))
	copy(f, frame)

	select {
	case <-c.pipe.done:
		return ErrClosed
	default:
	}
	select {
	case c.tx <- f:
		return nil
	case <-c.pipe.done:
		return ErrClosed
	}
}

func (c *memoryConn) RemoteMIU() int {
	return c.remoteMIU
}

func (c *memoryConn) RemoteAddr() string {
	return c.remote
}

func (c *memoryConn) Close() error {
	c.closed.Store(true)
	c.pipe.close()
	return nil
}
