package ndef

import (
	"fmt"
	"strings"
	"unicode/utf16"
)

// Well-known record type names
var (
	RTDText = []byte("T")
	RTDURI  = []byte("U")
)

// uriPrefixes is the abbreviation table of the URI record type. The index is
// the identifier code stored in the first payload byte.
var uriPrefixes = []string{
	"",
	"http://www.",
	"https://www.",
	"http://",
	"https://",
	"tel:",
	"mailto:",
	"ftp://anonymous:anonymous@",
	"ftp://ftp.",
	"ftps://",
	"sftp://",
	"smb://",
	"nfs://",
	"ftp://",
	"dav://",
	"news:",
	"telnet://",
	"imap:",
	"rtsp://",
	"urn:",
	"pop:",
	"sip:",
	"sips:",
	"tftp:",
	"btspp://",
	"btl2cap://",
	"btgoep://",
	"tcpobex://",
	"irdaobex://",
	"file://",
	"urn:epc:id:",
	"urn:epc:tag:",
	"urn:epc:pat:",
	"urn:epc:raw:",
	"urn:epc:",
	"urn:nfc:",
}

// NewTextRecord builds a well-known Text record with UTF-8 encoding
func NewTextRecord(lang, text string) Record {
	payload := make([]byte, 0, 1+len(lang)+len(text))
	payload = append(payload, byte(len(lang)&0x3F))
	payload = append(payload, lang...)
	payload = append(payload, text...)
	return Record{TNF: TNFWellKnown, Type: RTDText, Payload: payload}
}

// NewURIRecord builds a well-known URI record, abbreviating the longest
// matching prefix.
func NewURIRecord(uri string) Record {
	code := 0
	for i := 1; i < len(uriPrefixes); i++ {
		if strings.HasPrefix(uri, uriPrefixes[i]) && len(uriPrefixes[i]) > len(uriPrefixes[code]) {
			code = i
		}
	}
	rest := uri[len(uriPrefixes[code]):]
	payload := make([]byte, 0, 1+len(rest))
	payload = append(payload, byte(code))
	payload = append(payload, rest...)
	return Record{TNF: TNFWellKnown, Type: RTDURI, Payload: payload}
}

// NewMIMERecord builds a MIME media record
func NewMIMERecord(mimeType string, data []byte) Record {
	return Record{TNF: TNFMIMEMedia, Type: []byte(mimeType), Payload: data}
}

// IsText reports whether the record is a well-known Text record
func (r Record) IsText() bool {
	return r.TNF == TNFWellKnown && string(r.Type) == string(RTDText)
}

// IsURI reports whether the record is a well-known URI record
func (r Record) IsURI() bool {
	return r.TNF == TNFWellKnown && string(r.Type) == string(RTDURI)
}

// Text decodes a Text record into its language code and text
func (r Record) Text() (lang, text string, err error) {
	if !r.IsText() {
		return "", "", fmt.Errorf("ndef: not a text record (%s)", r)
	}
	if len(r.Payload) < 1 {
		return "", "", ErrShortRecord
	}
	status := r.Payload[0]
	langLen := int(status & 0x3F)
	if len(r.Payload) < 1+langLen {
		return "", "", ErrShortRecord
	}
	lang = string(r.Payload[1 : 1+langLen])
	body := r.Payload[1+langLen:]

	if status&0x80 == 0 {
		return lang, string(body), nil
	}

	// UTF-16, big-endian unless a BOM says otherwise
	if len(body)%2 != 0 {
		return "", "", fmt.Errorf("ndef: odd-length UTF-16 text")
	}
	littleEndian := false
	if len(body) >= 2 {
		switch {
		case body[0] == 0xFE && body[1] == 0xFF:
			body = body[2:]
		case body[0] == 0xFF && body[1] == 0xFE:
			body = body[2:]
			littleEndian = true
		}
	}
	units := make([]uint16, len(body)/2)
	for i := range units {
		if littleEndian {
			units[i] = uint16(body[2*i+1])<<8 | uint16(body[2*i])
		} else {
			units[i] = uint16(body[2*i])<<8 | uint16(body[2*i+1])
		}
	}
	return lang, string(utf16.Decode(units)), nil
}

// URI decodes a URI record, expanding the abbreviated prefix
func (r Record) URI() (string, error) {
	switch {
	case r.IsURI():
		if len(r.Payload) < 1 {
			return "", ErrShortRecord
		}
		code := int(r.Payload[0])
		if code >= len(uriPrefixes) {
			return "", fmt.Errorf("ndef: unknown URI identifier code 0x%02x", code)
		}
		return uriPrefixes[code] + string(r.Payload[1:]), nil
	case r.TNF == TNFAbsoluteURI:
		return string(r.Type), nil
	default:
		return "", fmt.Errorf("ndef: not a URI record (%s)", r)
	}
}
