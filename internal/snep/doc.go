// Package snep implements the Simple NDEF Exchange Protocol: the message
// codec, fragmentation over a frame transport, request dispatch, and a
// server with one goroutine per connection.
//
// # Wire Format
//
// Every message starts with a six byte header:
//
//	+---------+------+------------------+
//	| version | code | length (uint32)  |
//	+---------+------+------------------+
//
// A Get request carries a four byte acceptable length in front of its
// payload. Payloads are NDEF messages (see package ndef).
//
// # Fragmentation
//
// A Messenger writes an encoded message as frames of at most the
// fragment length, which is the peer MIU unless a smaller value is
// configured. Receivers reassemble frames until the length announced by
// the header is reached. With the handshake enabled the sender waits for
// the peer's Continue after the first frame of a fragmented message.
//
// # Server
//
//	srv := snep.New(snep.DefaultConfig(), transport.NewMemory(), handler,
//	    snep.WithMiddleware(snep.Recover(), snep.Logging()),
//	)
//	if err := srv.Start(); err != nil {
//	    return err
//	}
//	defer srv.Stop()
//
// Handlers must always produce a response; a nil response is sent as
// Not Implemented.
package snep
