package snep

import (
	"context"

	"github.com/muurk/snepd/internal/ndef"
)

// Handler is the application callback behind a server. Both methods return
// the complete response to send back. A nil response is answered with
// Not Implemented.
//
// Handlers are called concurrently from one goroutine per connection.
type Handler interface {
	// Put receives the NDEF message pushed by the peer
	Put(ctx context.Context, msg ndef.Message) *Message
	// Get answers a request for data matching msg. acceptableLength is the
	// largest response payload the peer is willing to take.
	Get(ctx context.Context, acceptableLength uint32, msg ndef.Message) *Message
}

// HandlerFuncs adapts plain functions to a Handler. A nil field answers
// Not Implemented.
type HandlerFuncs struct {
	PutFunc func(ctx context.Context, msg ndef.Message) *Message
	GetFunc func(ctx context.Context, acceptableLength uint32, msg ndef.Message) *Message
}

// Put calls PutFunc
func (h HandlerFuncs) Put(ctx context.Context, msg ndef.Message) *Message {
	if h.PutFunc == nil {
		return NewResponse(ResponseNotImplemented)
	}
	return h.PutFunc(ctx, msg)
}

// Get calls GetFunc
func (h HandlerFuncs) Get(ctx context.Context, acceptableLength uint32, msg ndef.Message) *Message {
	if h.GetFunc == nil {
		return NewResponse(ResponseNotImplemented)
	}
	return h.GetFunc(ctx, acceptableLength, msg)
}

type peerKey struct{}

// WithPeer returns a context carrying the remote address of a connection
func WithPeer(ctx context.Context, remoteAddr string) context.Context {
	return context.WithValue(ctx, peerKey{}, remoteAddr)
}

// PeerFromContext returns the remote address stored by WithPeer, or ""
func PeerFromContext(ctx context.Context) string {
	addr, _ := ctx.Value(peerKey{}).(string)
	return addr
}
