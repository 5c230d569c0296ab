package ui

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/muurk/snepd/internal/ndef"
)

// maxPayloadPreview caps the hex preview of opaque record payloads
const maxPayloadPreview = 32

// RecordsBox renders the records of an NDEF message, decoding Text and URI
// records and showing a hex preview of anything else.
type RecordsBox struct {
	Message ndef.Message
	Title   string
	Width   int
}

// NewRecordsBox creates a records box for msg
func NewRecordsBox(msg ndef.Message) *RecordsBox {
	return &RecordsBox{
		Message: msg,
		Title:   "NDEF Message",
		Width:   GetTerminalWidth(),
	}
}

// SetWidth sets the terminal width for responsive rendering
func (b *RecordsBox) SetWidth(width int) *RecordsBox {
	b.Width = width
	return b
}

// Render returns the styled box
func (b *RecordsBox) Render() string {
	width := b.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	lines := []string{TroubleshootingTitleStyle.Render(b.Title)}
	if len(b.Message) == 0 {
		lines = append(lines, RecordContentStyle.Render("(empty)"))
	}
	for i, rec := range b.Message {
		lines = append(lines, RecordTitleStyle.Render(fmt.Sprintf("Record %d  %s", i+1, recordKind(rec))))
		lines = append(lines, RecordContentStyle.Render("  "+DescribeRecord(rec)))
	}

	return RecordsBoxStyle(width).Render(strings.Join(lines, "\n"))
}

// String implements fmt.Stringer
func (b *RecordsBox) String() string {
	return b.Render()
}

func recordKind(rec ndef.Record) string {
	if len(rec.Type) == 0 {
		return rec.TNF.String()
	}
	return rec.TNF.String() + " " + string(rec.Type)
}

// DescribeRecord returns a one-line human readable form of rec
func DescribeRecord(rec ndef.Record) string {
	switch {
	case rec.IsText():
		lang, text, err := rec.Text()
		if err == nil {
			return fmt.Sprintf("%q (%s)", text, lang)
		}
	case rec.IsURI():
		uri, err := rec.URI()
		if err == nil {
			return uri
		}
	}

	preview := rec.Payload
	suffix := ""
	if len(preview) > maxPayloadPreview {
		preview = preview[:maxPayloadPreview]
		suffix = "..."
	}
	return fmt.Sprintf("%d bytes: %s%s", len(rec.Payload), hex.EncodeToString(preview), suffix)
}
