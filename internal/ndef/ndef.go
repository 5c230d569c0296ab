package ndef

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// TNF is the 3-bit Type Name Format of a record.
type TNF byte

const (
	TNFEmpty       TNF = 0x00
	TNFWellKnown   TNF = 0x01
	TNFMIMEMedia   TNF = 0x02
	TNFAbsoluteURI TNF = 0x03
	TNFExternal    TNF = 0x04
	TNFUnknown     TNF = 0x05
	TNFUnchanged   TNF = 0x06
	TNFReserved    TNF = 0x07
)

// Record header flags
const (
	flagMB  byte = 0x80
	flagME  byte = 0x40
	flagCF  byte = 0x20
	flagSR  byte = 0x10
	flagIL  byte = 0x08
	tnfMask byte = 0x07
)

var (
	ErrShortRecord   = errors.New("ndef: record truncated")
	ErrMissingBegin  = errors.New("ndef: first record does not have MB set")
	ErrUnexpectedMB  = errors.New("ndef: MB set on a record that is not the first")
	ErrMissingEnd    = errors.New("ndef: last record does not have ME set")
	ErrTrailingBytes = errors.New("ndef: bytes after the record with ME set")
	ErrChunked       = errors.New("ndef: chunked records are not supported")
	ErrInvalidEmpty  = errors.New("ndef: empty record with type, id or payload")
	ErrReservedTNF   = errors.New("ndef: reserved or unchanged TNF outside a chunk")
)

// Record is a single NDEF record.
type Record struct {
	TNF     TNF
	Type    []byte
	ID      []byte
	Payload []byte
}

// Message is an ordered list of records.
type Message []Record

// String returns a short description of the TNF
func (t TNF) String() string {
	switch t {
	case TNFEmpty:
		return "empty"
	case TNFWellKnown:
		return "well-known"
	case TNFMIMEMedia:
		return "mime"
	case TNFAbsoluteURI:
		return "absolute-uri"
	case TNFExternal:
		return "external"
	case TNFUnknown:
		return "unknown"
	case TNFUnchanged:
		return "unchanged"
	default:
		return fmt.Sprintf("reserved(0x%X)", byte(t))
	}
}

// Parse decodes a complete NDEF message. An empty input yields a nil Message.
func Parse(data []byte) (Message, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var msg Message
	offset := 0
	for offset < len(data) {
		rec, flags, n, err := parseRecord(data[offset:])
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", len(msg), err)
		}

		first := len(msg) == 0
		if first && flags&flagMB == 0 {
			return nil, ErrMissingBegin
		}
		if !first && flags&flagMB != 0 {
			return nil, ErrUnexpectedMB
		}

		msg = append(msg, rec)
		offset += n

		if flags&flagME != 0 {
			if offset != len(data) {
				return nil, ErrTrailingBytes
			}
			return msg, nil
		}
	}

	return nil, ErrMissingEnd
}

// parseRecord decodes one record and returns it together with its header
// flags and the number of bytes consumed.
func parseRecord(data []byte) (Record, byte, int, error) {
	if len(data) < 3 {
		return Record{}, 0, 0, ErrShortRecord
	}

	flags := data[0]
	if flags&flagCF != 0 {
		return Record{}, 0, 0, ErrChunked
	}

	tnf := TNF(flags & tnfMask)
	if tnf == TNFUnchanged || tnf == TNFReserved {
		return Record{}, 0, 0, ErrReservedTNF
	}

	offset := 1
	typeLen := int(data[offset])
	offset++

	var payloadLen uint64
	if flags&flagSR != 0 {
		payloadLen = uint64(data[offset])
		offset++
	} else {
		if len(data) < offset+4 {
			return Record{}, 0, 0, ErrShortRecord
		}
		payloadLen = uint64(binary.BigEndian.Uint32(data[offset : offset+4]))
		offset += 4
	}

	idLen := 0
	if flags&flagIL != 0 {
		if len(data) < offset+1 {
			return Record{}, 0, 0, ErrShortRecord
		}
		idLen = int(data[offset])
		offset++
	}

	need := uint64(offset) + uint64(typeLen) + uint64(idLen) + payloadLen
	if uint64(len(data)) < need {
		return Record{}, 0, 0, ErrShortRecord
	}

	if tnf == TNFEmpty && (typeLen != 0 || idLen != 0 || payloadLen != 0) {
		return Record{}, 0, 0, ErrInvalidEmpty
	}

	rec := Record{TNF: tnf}
	rec.Type = clone(data[offset : offset+typeLen])
	offset += typeLen
	rec.ID = clone(data[offset : offset+idLen])
	offset += idLen
	rec.Payload = clone(data[offset : offset+int(payloadLen)])
	offset += int(payloadLen)

	return rec, flags, offset, nil
}

func clone(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Marshal encodes the message. Short records are used whenever the payload
// fits in one length byte. A nil or empty Message encodes to nil.
func (m Message) Marshal() []byte {
	if len(m) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for i, rec := range m {
		flags := byte(rec.TNF) & tnfMask
		if i == 0 {
			flags |= flagMB
		}
		if i == len(m)-1 {
			flags |= flagME
		}
		short := len(rec.Payload) < 256
		if short {
			flags |= flagSR
		}
		if len(rec.ID) > 0 {
			flags |= flagIL
		}

		buf.WriteByte(flags)
		buf.WriteByte(byte(len(rec.Type)))
		if short {
			buf.WriteByte(byte(len(rec.Payload)))
		} else {
			var l [4]byte
			binary.BigEndian.PutUint32(l[:], uint32(len(rec.Payload)))
			buf.Write(l[:])
		}
		if len(rec.ID) > 0 {
			buf.WriteByte(byte(len(rec.ID)))
		}
		buf.Write(rec.Type)
		buf.Write(rec.ID)
		buf.Write(rec.Payload)
	}
	return buf.Bytes()
}

// ByteLength returns the encoded size of the message
func (m Message) ByteLength() int {
	return len(m.Marshal())
}

// String returns a compact description of the records, for logs
func (m Message) String() string {
	if len(m) == 0 {
		return "NdefMessage{}"
	}
	var b bytes.Buffer
	b.WriteString("NdefMessage{")
	for i, rec := range m {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(rec.String())
	}
	b.WriteString("}")
	return b.String()
}

// String returns a compact description of the record
func (r Record) String() string {
	return fmt.Sprintf("Record{tnf=%s, type=%q, id=%q, payload=%d bytes}",
		r.TNF, r.Type, r.ID, len(r.Payload))
}

// Equal reports whether both records have identical fields
func (r Record) Equal(o Record) bool {
	return r.TNF == o.TNF &&
		bytes.Equal(r.Type, o.Type) &&
		bytes.Equal(r.ID, o.ID) &&
		bytes.Equal(r.Payload, o.Payload)
}
