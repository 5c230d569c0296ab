// Package inbox provides the default SNEP application handler: a bounded,
// in-memory list of the NDEF messages pushed to the server.
package inbox

import (
	"bytes"
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/snepd/internal/logging"
	"github.com/muurk/snepd/internal/ndef"
	"github.com/muurk/snepd/internal/snep"
)

// DefaultSize is the number of messages kept when no size is configured
const DefaultSize = 64

// Entry is one stored message
type Entry struct {
	Message  ndef.Message
	From     string
	Received time.Time
}

// Inbox stores pushed messages and serves them back to Get requests.
// The oldest message is dropped once the inbox is full.
type Inbox struct {
	mu      sync.Mutex
	size    int
	entries []Entry
	notify  func(Entry)
}

// New creates an inbox holding at most size messages
func New(size int) *Inbox {
	if size <= 0 {
		size = DefaultSize
	}
	return &Inbox{size: size}
}

// OnPut registers fn to be called with every stored message
func (in *Inbox) OnPut(fn func(Entry)) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.notify = fn
}

// Put stores msg and answers Success
func (in *Inbox) Put(ctx context.Context, msg ndef.Message) *snep.Message {
	entry := Entry{
		Message:  msg,
		From:     snep.PeerFromContext(ctx),
		Received: time.Now(),
	}

	in.mu.Lock()
	if len(in.entries) == in.size {
		in.entries = in.entries[1:]
	}
	in.entries = append(in.entries, entry)
	notify := in.notify
	count := len(in.entries)
	in.mu.Unlock()

	logging.Info("Stored NDEF message",
		zap.String("remote_addr", entry.From),
		zap.Int("records", len(msg)),
		zap.Int("stored", count),
	)
	if notify != nil {
		notify(entry)
	}
	return snep.NewSuccess(nil)
}

// Get answers with the newest stored message whose first record has the
// same TNF and type as the first record of msg. An empty request matches
// any message.
func (in *Inbox) Get(ctx context.Context, acceptableLength uint32, msg ndef.Message) *snep.Message {
	in.mu.Lock()
	found, ok := in.find(msg)
	in.mu.Unlock()

	if !ok {
		return snep.NewResponse(snep.ResponseNotFound)
	}

	payload := found.Marshal()
	if uint64(len(payload)) > uint64(acceptableLength) {
		logging.Info("Stored message exceeds acceptable length",
			zap.String("remote_addr", snep.PeerFromContext(ctx)),
			zap.Int("length", len(payload)),
			zap.Uint32("acceptable_length", acceptableLength),
		)
		return snep.NewResponse(snep.ResponseExcessData)
	}
	return snep.NewSuccess(payload)
}

func (in *Inbox) find(req ndef.Message) (ndef.Message, bool) {
	for i := len(in.entries) - 1; i >= 0; i-- {
		stored := in.entries[i].Message
		if matches(req, stored) {
			return stored, true
		}
	}
	return nil, false
}

func matches(req, stored ndef.Message) bool {
	if len(req) == 0 {
		return true
	}
	if len(stored) == 0 {
		return false
	}
	return req[0].TNF == stored[0].TNF && bytes.Equal(req[0].Type, stored[0].Type)
}

// Entries returns a copy of the stored messages, oldest first
func (in *Inbox) Entries() []Entry {
	in.mu.Lock()
	defer in.mu.Unlock()
	return append([]Entry(nil), in.entries...)
}

// Len returns the number of stored messages
func (in *Inbox) Len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.entries)
}
