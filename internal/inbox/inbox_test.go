package inbox

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/snepd/internal/ndef"
	"github.com/muurk/snepd/internal/snep"
	"github.com/muurk/snepd/internal/transport"
)

func TestPutAndGet(t *testing.T) {
	in := New(4)
	ctx := context.Background()

	text := ndef.Message{ndef.NewTextRecord("en", "hello")}
	uri := ndef.Message{ndef.NewURIRecord("https://example.com/")}

	assert.Equal(t, snep.ResponseSuccess, in.Put(ctx, text).Type)
	assert.Equal(t, snep.ResponseSuccess, in.Put(ctx, uri).Type)

	tests := []struct {
		name string
		req  ndef.Message
		want ndef.Message
	}{
		{"empty request returns newest", nil, uri},
		{"match text type", ndef.Message{ndef.NewTextRecord("", "")}, text},
		{"match uri type", ndef.Message{ndef.NewURIRecord("")}, uri},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := in.Get(ctx, 1024, tt.req)
			require.Equal(t, snep.ResponseSuccess, resp.Type)
			assert.Equal(t, tt.want.Marshal(), resp.Payload)
		})
	}
}

func TestGetNotFound(t *testing.T) {
	in := New(4)
	ctx := context.Background()

	assert.Equal(t, snep.ResponseNotFound, in.Get(ctx, 1024, nil).Type)

	in.Put(ctx, ndef.Message{ndef.NewTextRecord("en", "hello")})
	req := ndef.Message{ndef.NewMIMERecord("application/json", nil)}
	assert.Equal(t, snep.ResponseNotFound, in.Get(ctx, 1024, req).Type)
}

func TestGetExcessData(t *testing.T) {
	in := New(4)
	ctx := context.Background()
	msg := ndef.Message{ndef.NewTextRecord("en", "a fairly long piece of text")}
	in.Put(ctx, msg)

	n := uint32(len(msg.Marshal()))
	assert.Equal(t, snep.ResponseExcessData, in.Get(ctx, n-1, nil).Type)
	assert.Equal(t, snep.ResponseSuccess, in.Get(ctx, n, nil).Type)
}

func TestBounded(t *testing.T) {
	in := New(2)
	ctx := context.Background()
	for _, s := range []string{"one", "two", "three"} {
		in.Put(ctx, ndef.Message{ndef.NewTextRecord("en", s)})
	}

	entries := in.Entries()
	require.Len(t, entries, 2)
	_, first, err := entries[0].Message[0].Text()
	require.NoError(t, err)
	assert.Equal(t, "two", first)
	assert.Equal(t, 2, in.Len())
}

func TestOnPut(t *testing.T) {
	in := New(0)
	var got []Entry
	in.OnPut(func(e Entry) { got = append(got, e) })

	ctx := snep.WithPeer(context.Background(), "peer-7")
	in.Put(ctx, ndef.Message{ndef.NewURIRecord("tel:123")})

	require.Len(t, got, 1)
	assert.Equal(t, "peer-7", got[0].From)
}

func TestInboxBehindServer(t *testing.T) {
	mem := transport.NewMemory()
	in := New(8)
	cfg := snep.DefaultConfig()
	cfg.FragmentLength = 16
	srv := snep.New(cfg, mem, in)
	require.NoError(t, srv.Start())
	defer srv.Stop()

	c, err := snep.Dial(context.Background(), mem, cfg.ServiceName, snep.ClientOptions{FragmentLength: 16})
	require.NoError(t, err)
	defer c.Close()

	msg := ndef.Message{ndef.NewTextRecord("en", "pushed over a fragmented link")}
	resp, err := c.Put(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, snep.ResponseSuccess, resp.Type)

	resp, err = c.Get(context.Background(), 1024, ndef.Message{ndef.NewTextRecord("", "")})
	require.NoError(t, err)
	require.Equal(t, snep.ResponseSuccess, resp.Type)

	got, err := ndef.Parse(resp.Payload)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Equal(msg[0]))
}
