package snep

import (
	"context"
	"fmt"
	"sync"

	"github.com/muurk/snepd/internal/ndef"
	"github.com/muurk/snepd/internal/transport"
)

// ClientOptions configures Dial
type ClientOptions struct {
	MIU            int  // Local MIU announced to the server; 0 means transport.DefaultMIU
	FragmentLength int  // Cap on outgoing frames; 0 means the server MIU
	NoHandshake    bool // Send fragments without waiting for Continue
	MaxMessageSize int  // Largest response payload accepted; 0 means DefaultMaxMessageSize
}

// Client sends requests to a SNEP server over one connection. Requests are
// serialized; a Client is safe for concurrent use.
type Client struct {
	mu   sync.Mutex
	conn transport.Conn
	m    *Messenger
}

// Dial connects to a server at addr and returns a client for it
func Dial(ctx context.Context, t transport.Transport, addr string, opts ClientOptions) (*Client, error) {
	conn, err := t.Dial(ctx, addr, opts.MIU)
	if err != nil {
		return nil, transportError("dial", err)
	}

	msgOpts := []MessengerOption{WithHandshake(!opts.NoHandshake)}
	if opts.MaxMessageSize > 0 {
		msgOpts = append(msgOpts, WithMaxMessageSize(opts.MaxMessageSize))
	}
	return NewClient(conn, FragmentLength(opts.FragmentLength, conn.RemoteMIU()), msgOpts...), nil
}

// NewClient wraps an established connection
func NewClient(conn transport.Conn, fragmentLength int, opts ...MessengerOption) *Client {
	return &Client{
		conn: conn,
		m:    NewMessenger(conn, fragmentLength, RoleClient, opts...),
	}
}

// Put pushes msg to the server and returns its response
func (c *Client) Put(ctx context.Context, msg ndef.Message) (*Message, error) {
	return c.Do(ctx, NewPutRequest(msg.Marshal()))
}

// Get asks the server for data matching msg. The server must not answer
// with more than acceptableLength payload bytes.
func (c *Client) Get(ctx context.Context, acceptableLength uint32, msg ndef.Message) (*Message, error) {
	return c.Do(ctx, NewGetRequest(acceptableLength, msg.Marshal()))
}

// Do sends req and waits for the response. Cancelling ctx closes the
// connection, which fails the exchange and leaves the client unusable.
func (c *Client) Do(ctx context.Context, req *Message) (*Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() { _ = c.conn.Close() })
	defer stop()

	if err := c.m.SendMessage(req); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ctx.Err(), err)
		}
		return nil, err
	}

	resp, err := c.m.GetMessage()
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ctx.Err(), err)
		}
		return nil, err
	}
	if resp.Type.IsRequest() {
		return nil, protocolError("receive", fmt.Errorf("expected a response, got %s", resp.Type))
	}
	return resp, nil
}

// Close closes the connection
func (c *Client) Close() error {
	return c.conn.Close()
}
