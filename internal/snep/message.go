package snep

import (
	"encoding/binary"
	"fmt"
)

// Protocol constants
const (
	VersionMajor byte = 0x1
	VersionMinor byte = 0x0
	Version      byte = VersionMajor<<4 | VersionMinor // 0x10

	HeaderLength           = 6 // version (1) + code (1) + length (4)
	acceptableLengthLength = 4
)

// Code is the request or response field of a SNEP header
type Code byte

// Request codes
const (
	RequestContinue Code = 0x00
	RequestGet      Code = 0x01
	RequestPut      Code = 0x02
	RequestReject   Code = 0x7F
)

// Response codes
const (
	ResponseContinue           Code = 0x80
	ResponseSuccess            Code = 0x81
	ResponseNotFound           Code = 0xC0
	ResponseExcessData         Code = 0xC1
	ResponseBadRequest         Code = 0xC2
	ResponseNotImplemented     Code = 0xE0
	ResponseUnsupportedVersion Code = 0xE1
	ResponseReject             Code = 0xFF
)

var codeNames = map[Code]string{
	RequestContinue:            "Continue(req)",
	RequestGet:                 "Get",
	RequestPut:                 "Put",
	RequestReject:              "Reject(req)",
	ResponseContinue:           "Continue(resp)",
	ResponseSuccess:            "Success",
	ResponseNotFound:           "NotFound",
	ResponseExcessData:         "ExcessData",
	ResponseBadRequest:         "BadRequest",
	ResponseNotImplemented:     "NotImplemented",
	ResponseUnsupportedVersion: "UnsupportedVersion",
	ResponseReject:             "Reject(resp)",
}

// Valid reports whether c is one of the defined request or response codes
func (c Code) Valid() bool {
	_, ok := codeNames[c]
	return ok
}

// IsRequest reports whether c is in the request range
func (c Code) IsRequest() bool {
	return c < 0x80
}

// String returns the code name
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Code(0x%02X)", byte(c))
}

// Message is one logical SNEP request or response.
type Message struct {
	Version          byte   // High nibble major, low nibble minor
	Type             Code   // Request or response code
	AcceptableLength uint32 // Only meaningful for Get requests
	Payload          []byte // NDEF message bytes, may be empty
}

// NewRequest creates a request with the current protocol version
func NewRequest(code Code, payload []byte) *Message {
	return &Message{Version: Version, Type: code, Payload: payload}
}

// NewGetRequest creates a Get request
func NewGetRequest(acceptableLength uint32, payload []byte) *Message {
	return &Message{Version: Version, Type: RequestGet, AcceptableLength: acceptableLength, Payload: payload}
}

// NewPutRequest creates a Put request
func NewPutRequest(payload []byte) *Message {
	return NewRequest(RequestPut, payload)
}

// NewResponse creates a response without payload
func NewResponse(code Code) *Message {
	return &Message{Version: Version, Type: code}
}

// NewSuccess creates a Success response carrying payload
func NewSuccess(payload []byte) *Message {
	return &Message{Version: Version, Type: ResponseSuccess, Payload: payload}
}

// Major returns the major protocol version of the message
func (m *Message) Major() byte {
	return (m.Version & 0xF0) >> 4
}

// Minor returns the minor protocol version of the message
func (m *Message) Minor() byte {
	return m.Version & 0x0F
}

// Length returns the value of the header length field
func (m *Message) Length() uint32 {
	n := uint32(len(m.Payload))
	if m.Type == RequestGet {
		n += acceptableLengthLength
	}
	return n
}

// Encode serializes the message. The output only depends on the message
// fields, so encoding the same message twice yields identical bytes.
func (m *Message) Encode() []byte {
	length := m.Length()
	buf := make([]byte, HeaderLength+int(length))

	buf[0] = m.Version
	buf[1] = byte(m.Type)
	binary.BigEndian.PutUint32(buf[2:6], length)

	offset := HeaderLength
	if m.Type == RequestGet {
		binary.BigEndian.PutUint32(buf[offset:offset+4], m.AcceptableLength)
		offset += acceptableLengthLength
	}
	copy(buf[offset:], m.Payload)
	return buf
}

// String returns a debug representation of the message
func (m *Message) String() string {
	if m.Type == RequestGet {
		return fmt.Sprintf("Message{version=%d.%d, type=%s, acceptable=%d, payload=%d bytes}",
			m.Major(), m.Minor(), m.Type, m.AcceptableLength, len(m.Payload))
	}
	return fmt.Sprintf("Message{version=%d.%d, type=%s, payload=%d bytes}",
		m.Major(), m.Minor(), m.Type, len(m.Payload))
}

// MessageLength returns the total encoded size announced by a header. header
// must hold at least HeaderLength bytes.
func MessageLength(header []byte) (int, error) {
	if len(header) < HeaderLength {
		return 0, decodeError("header truncated: %d of %d bytes", len(header), HeaderLength)
	}
	return HeaderLength + int(binary.BigEndian.Uint32(header[2:6])), nil
}

// Decode parses one complete encoded message.
//
// If the major version is not supported, only the header fields are
// returned and the rest of the bytes are ignored: the caller answers with
// Unsupported Version without looking at the payload.
func Decode(data []byte) (*Message, error) {
	if len(data) < HeaderLength {
		return nil, decodeError("header truncated: %d of %d bytes", len(data), HeaderLength)
	}

	msg := &Message{
		Version: data[0],
		Type:    Code(data[1]),
	}
	if msg.Major() != VersionMajor {
		return msg, nil
	}

	if !msg.Type.Valid() {
		return nil, decodeError("unknown code 0x%02x", data[1])
	}

	length := uint64(binary.BigEndian.Uint32(data[2:6]))
	available := uint64(len(data) - HeaderLength)
	if length > available {
		return nil, decodeError("declared length %d exceeds %d available bytes", length, available)
	}
	if length < available {
		return nil, decodeError("%d bytes after declared length %d", available-length, length)
	}

	body := data[HeaderLength:]
	if msg.Type == RequestGet {
		if length < acceptableLengthLength {
			return nil, decodeError("get request too short for acceptable length: %d bytes", length)
		}
		msg.AcceptableLength = binary.BigEndian.Uint32(body[:4])
		body = body[acceptableLengthLength:]
	}

	if len(body) > 0 {
		msg.Payload = make([]byte, len(body))
		copy(msg.Payload, body)
	}
	return msg, nil
}
