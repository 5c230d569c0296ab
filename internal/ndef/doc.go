// Package ndef implements the NFC Data Exchange Format records carried as the
// payload of SNEP messages.
//
// An NDEF message is a sequence of records. Each record starts with a flags
// byte followed by the type length, the payload length (one byte for short
// records, four bytes big-endian otherwise) and an optional ID length:
//
//	  7    6    5    4    3    2..0
//	┌────┬────┬────┬────┬────┬──────┐
//	│ MB │ ME │ CF │ SR │ IL │ TNF  │
//	└────┴────┴────┴────┴────┴──────┘
//	type length | payload length (1 or 4) | [id length] | type | [id] | payload
//
// MB marks the first record of a message and ME the last one. Chunked records
// (CF) are not supported and are rejected by Parse.
//
// # Usage Example
//
//	msg := ndef.Message{ndef.NewTextRecord("en", "hello")}
//	raw := msg.Marshal()
//
//	parsed, err := ndef.Parse(raw)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(parsed[0].Text())
//
// An empty byte slice parses to a nil Message: SNEP requests may legitimately
// carry no NDEF data.
package ndef
