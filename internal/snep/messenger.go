package snep

import (
	"bytes"
	"fmt"

	"github.com/muurk/snepd/internal/logging"
	"github.com/muurk/snepd/internal/transport"
)

// DefaultMaxMessageSize bounds the payload a Messenger will reassemble
const DefaultMaxMessageSize = 1 << 20

// Role selects which Continue code a Messenger sends and expects
type Role int

const (
	RoleServer Role = iota
	RoleClient
)

// String returns the role name
func (r Role) String() string {
	if r == RoleClient {
		return "client"
	}
	return "server"
}

// FragmentLength returns the per-frame cap for a connection: the peer MIU,
// lowered to the configured value when one is set.
func FragmentLength(configured, peerMIU int) int {
	if configured > 0 && configured < peerMIU {
		return configured
	}
	return peerMIU
}

// Messenger turns a frame-oriented connection into a send/receive interface
// for whole SNEP messages. It is owned by a single goroutine.
type Messenger struct {
	conn           transport.Conn
	role           Role
	fragmentLength int
	handshake      bool
	maxMessageSize int

	// frame buffer for the message being received
	buf bytes.Buffer
}

// MessengerOption configures a Messenger
type MessengerOption func(*Messenger)

// WithHandshake enables or disables the Continue handshake for messages
// spanning more than one frame. It is enabled by default.
func WithHandshake(enabled bool) MessengerOption {
	return func(m *Messenger) { m.handshake = enabled }
}

// WithMaxMessageSize limits the size of received messages; 0 disables the limit
func WithMaxMessageSize(n int) MessengerOption {
	return func(m *Messenger) { m.maxMessageSize = n }
}

// NewMessenger wraps conn. A fragmentLength of 0 or less means the peer MIU.
func NewMessenger(conn transport.Conn, fragmentLength int, role Role, opts ...MessengerOption) *Messenger {
	if fragmentLength <= 0 {
		fragmentLength = conn.RemoteMIU()
	}
	m := &Messenger{
		conn:           conn,
		role:           role,
		fragmentLength: fragmentLength,
		handshake:      true,
		maxMessageSize: DefaultMaxMessageSize,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// FragmentLength returns the frame size cap used for sending
func (m *Messenger) FragmentLength() int {
	return m.fragmentLength
}

// continueToSend is the code this side sends to ask for more fragments
func (m *Messenger) continueToSend() Code {
	if m.role == RoleClient {
		return RequestContinue
	}
	return ResponseContinue
}

// continueToExpect is the code the peer sends to ask for more fragments
func (m *Messenger) continueToExpect() Code {
	if m.role == RoleClient {
		return ResponseContinue
	}
	return RequestContinue
}

// SendMessage encodes msg and writes it as consecutive frames of at most
// FragmentLength bytes. A failed write fails the whole message.
func (m *Messenger) SendMessage(msg *Message) error {
	raw := msg.Encode()
	logging.LogMessage(m.conn.RemoteAddr(), "sent", msg.Type.String(), raw)
	return m.sendEncoded(raw, m.handshake)
}

func (m *Messenger) sendEncoded(raw []byte, handshake bool) error {
	first := min(len(raw), m.fragmentLength)
	if err := m.writeFrame(0, raw[:first]); err != nil {
		return err
	}
	if first == len(raw) {
		return nil
	}

	if handshake {
		reply, err := m.receive(false)
		if err != nil {
			return err
		}
		if reply.Type != m.continueToExpect() {
			return protocolError("send", fmt.Errorf("peer answered %s instead of %s", reply.Type, m.continueToExpect()))
		}
	}

	index := 1
	for offset := first; offset < len(raw); offset += m.fragmentLength {
		end := min(offset+m.fragmentLength, len(raw))
		if err := m.writeFrame(index, raw[offset:end]); err != nil {
			return err
		}
		index++
	}
	return nil
}

func (m *Messenger) writeFrame(index int, frame []byte) error {
	logging.LogFragment(m.conn.RemoteAddr(), "sent", index, frame)
	if err := m.conn.WriteFrame(frame); err != nil {
		return transportError("send", err)
	}
	return nil
}

// GetMessage reads frames until one complete message is buffered and
// returns it decoded. It blocks while waiting for frames.
func (m *Messenger) GetMessage() (*Message, error) {
	msg, err := m.receive(m.handshake)
	if err != nil {
		return nil, err
	}
	logging.LogMessage(m.conn.RemoteAddr(), "received", msg.Type.String(), msg.Encode())
	return msg, nil
}

func (m *Messenger) receive(handshake bool) (*Message, error) {
	m.buf.Reset()
	defer m.buf.Reset()

	total := -1
	continued := false
	for index := 0; ; index++ {
		frame, err := m.conn.ReadFrame()
		if err != nil {
			return nil, transportError("receive", fmt.Errorf("after %d bytes: %w", m.buf.Len(), err))
		}
		logging.LogFragment(m.conn.RemoteAddr(), "received", index, frame)
		m.buf.Write(frame)

		if total < 0 && m.buf.Len() >= HeaderLength {
			header := m.buf.Bytes()[:HeaderLength]
			if (header[0]&0xF0)>>4 != VersionMajor {
				// Unsupported version: the header is all we look at
				if handshake {
					return Decode(header)
				}
				return m.discard(header, index+1)
			}
			total, _ = MessageLength(header)
			if m.maxMessageSize > 0 && total-HeaderLength > m.maxMessageSize {
				return nil, decodeError("message of %d bytes exceeds limit of %d", total-HeaderLength, m.maxMessageSize)
			}
		}

		if total >= 0 && m.buf.Len() >= total {
			return Decode(m.buf.Bytes())
		}

		if handshake && !continued {
			continued = true
			logging.LogRawBytes("Requesting continuation", m.buf.Bytes())
			if err := m.sendEncoded(NewResponse(m.continueToSend()).Encode(), false); err != nil {
				return nil, err
			}
		}
	}
}

// discard drops the rest of a message the peer sends without waiting for
// Continue, so its remaining frames are not read as new messages.
func (m *Messenger) discard(header []byte, index int) (*Message, error) {
	hdr := append([]byte(nil), header...)
	total, _ := MessageLength(hdr)
	got := m.buf.Len()
	for ; got < total; index++ {
		frame, err := m.conn.ReadFrame()
		if err != nil {
			return nil, transportError("receive", fmt.Errorf("after %d bytes: %w", got, err))
		}
		logging.LogFragment(m.conn.RemoteAddr(), "discarded", index, frame)
		got += len(frame)
	}
	return Decode(hdr)
}
