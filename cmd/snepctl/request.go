package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/muurk/snepd/internal/ndef"
)

var errNoContent = errors.New("one of --text, --uri or --file is required")

// putContent holds the record sources of a put command
type putContent struct {
	Text     string
	Lang     string
	URI      string
	File     string
	MIMEType string
}

// buildMessage assembles the NDEF message to push. Sources are added in the
// order text, uri, file.
func buildMessage(c putContent) (ndef.Message, error) {
	var msg ndef.Message
	if c.Text != "" {
		lang := c.Lang
		if lang == "" {
			lang = "en"
		}
		msg = append(msg, ndef.NewTextRecord(lang, c.Text))
	}
	if c.URI != "" {
		msg = append(msg, ndef.NewURIRecord(c.URI))
	}
	if c.File != "" {
		data, err := os.ReadFile(c.File)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", c.File, err)
		}
		mimeType := c.MIMEType
		if mimeType == "" {
			mimeType = detectMIMEType(data)
		}
		msg = append(msg, ndef.NewMIMERecord(mimeType, data))
	}
	if len(msg) == 0 {
		return nil, errNoContent
	}
	return msg, nil
}

func detectMIMEType(data []byte) string {
	mimeType := http.DetectContentType(data)
	// Drop parameters such as "; charset=utf-8"
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return mimeType
}

// getRequest builds the NDEF message sent with a GET request. The first
// record's type selects which stored message the server returns.
func getRequest(kind string) ndef.Message {
	switch strings.ToLower(kind) {
	case "":
		return nil
	case "text":
		return ndef.Message{{TNF: ndef.TNFWellKnown, Type: ndef.RTDText}}
	case "uri":
		return ndef.Message{{TNF: ndef.TNFWellKnown, Type: ndef.RTDURI}}
	default:
		return ndef.Message{ndef.NewMIMERecord(kind, nil)}
	}
}
