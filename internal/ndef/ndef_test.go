package ndef

import (
	"bytes"
	"errors"
	"testing"
)

func TestParseEmpty(t *testing.T) {
	msg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil) error = %v", err)
	}
	if msg != nil {
		t.Errorf("Parse(nil) = %v, want nil", msg)
	}
}

func TestMarshalParseRoundTrip(t *testing.T) {
	long := bytes.Repeat([]byte{0xAB}, 300)

	tests := []struct {
		name string
		msg  Message
	}{
		{
			name: "single text record",
			msg:  Message{NewTextRecord("en", "hello")},
		},
		{
			name: "uri and mime records",
			msg: Message{
				NewURIRecord("https://www.example.com/x"),
				NewMIMERecord("application/octet-stream", []byte{1, 2, 3}),
			},
		},
		{
			name: "long payload uses four byte length",
			msg:  Message{NewMIMERecord("application/x-blob", long)},
		},
		{
			name: "record with id",
			msg: Message{
				{TNF: TNFExternal, Type: []byte("android.com:pkg"), ID: []byte("id1"), Payload: []byte("com.example")},
			},
		},
		{
			name: "empty record",
			msg:  Message{{TNF: TNFEmpty}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := tt.msg.Marshal()
			got, err := Parse(raw)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if len(got) != len(tt.msg) {
				t.Fatalf("Parse() returned %d records, want %d", len(got), len(tt.msg))
			}
			for i := range got {
				if !got[i].Equal(tt.msg[i]) {
					t.Errorf("record %d = %s, want %s", i, got[i], tt.msg[i])
				}
			}
			if !bytes.Equal(got.Marshal(), raw) {
				t.Errorf("re-marshal differs from original encoding")
			}
		})
	}
}

func TestMarshalFlags(t *testing.T) {
	raw := Message{NewTextRecord("en", "a"), NewTextRecord("en", "b")}.Marshal()

	// first record: MB + SR + well-known
	if raw[0] != 0x91 {
		t.Errorf("first header = 0x%02x, want 0x91", raw[0])
	}
	// second record: ME + SR + well-known, starts after 3 header bytes + type + 4 payload bytes
	second := 3 + 1 + 4
	if raw[second] != 0x51 {
		t.Errorf("second header = 0x%02x, want 0x51", raw[second])
	}
}

func TestParseErrors(t *testing.T) {
	valid := Message{NewTextRecord("en", "hi")}.Marshal()

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{
			name:    "too short",
			data:    []byte{0xD1, 0x01},
			wantErr: ErrShortRecord,
		},
		{
			name:    "truncated payload",
			data:    valid[:len(valid)-1],
			wantErr: ErrShortRecord,
		},
		{
			name:    "missing MB",
			data:    []byte{0x51, 0x01, 0x00, 'T'},
			wantErr: ErrMissingBegin,
		},
		{
			name:    "missing ME",
			data:    []byte{0x91, 0x01, 0x00, 'T'},
			wantErr: ErrMissingEnd,
		},
		{
			name:    "MB on second record",
			data:    []byte{0x91, 0x01, 0x00, 'T', 0xD1, 0x01, 0x00, 'T'},
			wantErr: ErrUnexpectedMB,
		},
		{
			name:    "trailing bytes",
			data:    append(append([]byte{}, valid...), 0x00),
			wantErr: ErrTrailingBytes,
		},
		{
			name:    "chunked",
			data:    []byte{0xB1, 0x01, 0x00, 'T'},
			wantErr: ErrChunked,
		},
		{
			name:    "empty tnf with type",
			data:    []byte{0xD0, 0x01, 0x00, 'T'},
			wantErr: ErrInvalidEmpty,
		},
		{
			name:    "reserved tnf",
			data:    []byte{0xD7, 0x00, 0x00},
			wantErr: ErrReservedTNF,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Parse() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
