package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/muurk/snepd/internal/ndef"
	"github.com/muurk/snepd/internal/snep"
)

func TestBuildMessage(t *testing.T) {
	file := filepath.Join(t.TempDir(), "note.txt")
	if err := os.WriteFile(file, []byte("plain text"), 0600); err != nil {
		t.Fatal(err)
	}

	msg, err := buildMessage(putContent{Text: "hi", URI: "https://example.com", File: file})
	if err != nil {
		t.Fatalf("buildMessage() error = %v", err)
	}
	if len(msg) != 3 {
		t.Fatalf("len(msg) = %d, want 3", len(msg))
	}
	if lang, text, err := msg[0].Text(); err != nil || lang != "en" || text != "hi" {
		t.Errorf("text record = (%q, %q, %v)", lang, text, err)
	}
	if uri, err := msg[1].URI(); err != nil || uri != "https://example.com" {
		t.Errorf("uri record = (%q, %v)", uri, err)
	}
	if string(msg[2].Type) != "text/plain" || string(msg[2].Payload) != "plain text" {
		t.Errorf("file record = %s", msg[2])
	}
}

func TestBuildMessageErrors(t *testing.T) {
	if _, err := buildMessage(putContent{}); !errors.Is(err, errNoContent) {
		t.Errorf("empty content error = %v, want errNoContent", err)
	}
	if _, err := buildMessage(putContent{File: filepath.Join(t.TempDir(), "missing")}); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v, want os.ErrNotExist", err)
	}
}

func TestBuildMessageExplicitMIME(t *testing.T) {
	file := filepath.Join(t.TempDir(), "card.vcf")
	if err := os.WriteFile(file, []byte("BEGIN:VCARD"), 0600); err != nil {
		t.Fatal(err)
	}
	msg, err := buildMessage(putContent{File: file, MIMEType: "text/vcard"})
	if err != nil {
		t.Fatal(err)
	}
	if string(msg[0].Type) != "text/vcard" {
		t.Errorf("type = %q, want text/vcard", msg[0].Type)
	}
}

func TestGetRequest(t *testing.T) {
	tests := []struct {
		kind     string
		wantTNF  ndef.TNF
		wantType string
		empty    bool
	}{
		{kind: "", empty: true},
		{kind: "text", wantTNF: ndef.TNFWellKnown, wantType: "T"},
		{kind: "URI", wantTNF: ndef.TNFWellKnown, wantType: "U"},
		{kind: "text/vcard", wantTNF: ndef.TNFMIMEMedia, wantType: "text/vcard"},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			msg := getRequest(tt.kind)
			if tt.empty {
				if len(msg) != 0 {
					t.Errorf("getRequest(%q) = %s, want empty", tt.kind, msg)
				}
				return
			}
			if len(msg) != 1 || msg[0].TNF != tt.wantTNF || string(msg[0].Type) != tt.wantType {
				t.Errorf("getRequest(%q) = %s", tt.kind, msg)
			}
			// The request must survive the wire
			if _, err := ndef.Parse(msg.Marshal()); err != nil {
				t.Errorf("request does not parse: %v", err)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		size      int
		serverMIU int
		opts      snep.ClientOptions
		handshake bool
	}{
		{"single fragment", 16, 248, snep.ClientOptions{MIU: 248}, true},
		{"fragmented", 1024, 32, snep.ClientOptions{MIU: 32}, true},
		{"fragment length", 300, 248, snep.ClientOptions{MIU: 248, FragmentLength: 7}, true},
		{"no handshake", 500, 64, snep.ClientOptions{MIU: 64, NoHandshake: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			payload := selftestPayload(tt.size)
			msg := ndef.Message{ndef.NewMIMERecord("application/octet-stream", payload)}

			got, err := roundTrip(ctx, msg, tt.serverMIU, tt.opts, tt.handshake)
			if err != nil {
				t.Fatalf("roundTrip() error = %v", err)
			}
			if len(got) != 1 || !bytes.Equal(got[0].Payload, payload) {
				t.Errorf("roundTrip() returned a different message")
			}
		})
	}
}
