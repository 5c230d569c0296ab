package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/muurk/snepd/internal/ndef"
	"github.com/muurk/snepd/internal/snep"
)

func TestHeaderRendersParamsInOrder(t *testing.T) {
	out := NewHeader("snep put", "snepctl put", map[string]string{
		"Server":  "ws://127.0.0.1:9424",
		"Records": "1",
	}).SetWidth(80).Render()

	if !strings.Contains(out, "SNEP PUT") {
		t.Errorf("header should upper-case the title:\n%s", out)
	}
	r, s := strings.Index(out, "Records:"), strings.Index(out, "Server:")
	if r < 0 || s < 0 || r > s {
		t.Errorf("params should be sorted by key:\n%s", out)
	}
}

func TestResultDetailsSorted(t *testing.T) {
	out := NewSuccessResult("Message delivered", map[string]string{
		"b": "2",
		"a": "1",
	}).SetWidth(80).Render()

	if !strings.Contains(out, "Message delivered") {
		t.Errorf("missing title:\n%s", out)
	}
	if strings.Index(out, "a:") > strings.Index(out, "b:") {
		t.Errorf("details should be sorted by key:\n%s", out)
	}
}

func TestFailureResult(t *testing.T) {
	out := NewFailureResult("Request failed", errors.New("connection refused"), []string{"Is snepd running?"}).
		SetWidth(80).Render()
	for _, want := range []string{"Request failed", "connection refused", "Is snepd running?"} {
		if !strings.Contains(out, want) {
			t.Errorf("failure box missing %q:\n%s", want, out)
		}
	}
}

func TestResponseResult(t *testing.T) {
	tests := []struct {
		code     snep.Code
		wantType ResultType
		want     string
	}{
		{snep.ResponseSuccess, ResultSuccess, "Success (0x81)"},
		{snep.ResponseNotFound, ResultWarning, "NotFound (0xC0)"},
		{snep.ResponseExcessData, ResultWarning, "(0xC1)"},
	}

	for _, tt := range tests {
		r := NewResponseResult("Message received", tt.code, map[string]string{"Bytes": "12"}).SetWidth(80)
		if r.Type != tt.wantType {
			t.Errorf("NewResponseResult(%s).Type = %v, want %v", tt.code, r.Type, tt.wantType)
		}
		out := r.Render()
		if !strings.Contains(out, tt.want) {
			t.Errorf("result for %s missing %q:\n%s", tt.code, tt.want, out)
		}
		if strings.Index(out, "Response:") > strings.Index(out, "Bytes:") {
			t.Errorf("response line should come before details:\n%s", out)
		}
	}
}

func TestPrinterResponse(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).SetWidth(80).PrintResponse("Server refused the message", snep.ResponseReject, nil)
	for _, want := range []string{WarningMarker, "WARNING", "Server refused the message", "(0xFF)"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("response box missing %q:\n%s", want, buf.String())
		}
	}
}

func TestDescribeRecord(t *testing.T) {
	tests := []struct {
		name string
		rec  ndef.Record
		want string
	}{
		{"text", ndef.NewTextRecord("en", "hello"), `"hello" (en)`},
		{"uri", ndef.NewURIRecord("https://example.com"), "https://example.com"},
		{"mime", ndef.NewMIMERecord("application/octet-stream", []byte{0xde, 0xad}), "2 bytes: dead"},
		{"long", ndef.NewMIMERecord("application/octet-stream", make([]byte, 40)), "40 bytes: " + strings.Repeat("00", maxPayloadPreview) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DescribeRecord(tt.rec); got != tt.want {
				t.Errorf("DescribeRecord() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrinterRecords(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf).SetWidth(80)

	p.PrintRecords(ndef.Message{ndef.NewTextRecord("en", "hi"), ndef.NewURIRecord("urn:x")})
	out := buf.String()
	for _, want := range []string{"Record 1", "Record 2", `"hi" (en)`, "urn:x"} {
		if !strings.Contains(out, want) {
			t.Errorf("records box missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	p.PrintRecords(nil)
	if !strings.Contains(buf.String(), "(empty)") {
		t.Errorf("empty message should say so:\n%s", buf.String())
	}
}

func TestConfirmOverwrite(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"yes\n", true},
		{"  YES \n", true},
		{"no\n", false},
		{"", false},
		{"yes", true},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		got := ConfirmOverwrite(strings.NewReader(tt.input), &out, "/tmp/config.yaml")
		if got != tt.want {
			t.Errorf("ConfirmOverwrite(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if !strings.Contains(out.String(), "/tmp/config.yaml") {
			t.Errorf("prompt should name the file:\n%s", out.String())
		}
	}
}

func TestSpinnerModelFinishes(t *testing.T) {
	wantErr := errors.New("boom")
	m := NewSpinnerModel("working", func() error { return wantErr })

	next, cmd := m.Update(taskDoneMsg{err: wantErr})
	if cmd == nil {
		t.Fatal("finished task should quit the program")
	}
	sm := next.(SpinnerModel)
	if !errors.Is(sm.Err(), wantErr) {
		t.Errorf("Err() = %v, want %v", sm.Err(), wantErr)
	}
	if sm.View() != "" {
		t.Errorf("finished spinner should render nothing, got %q", sm.View())
	}

	if !strings.Contains(m.View(), "working") {
		t.Errorf("running spinner should show its label, got %q", m.View())
	}
}

func TestRunWithSpinnerNoTerminal(t *testing.T) {
	// go test does not attach stdout to a terminal
	called := false
	err := RunWithSpinner("working", func() error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Errorf("RunWithSpinner() err = %v, called = %v", err, called)
	}
}
