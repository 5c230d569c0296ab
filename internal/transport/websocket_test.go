package transport

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listenWS(t *testing.T, info ServiceInfo) (*WebSocket, Listener) {
	t.Helper()
	ws := NewWebSocket()
	info.Address = "127.0.0.1:0"
	ln, err := ws.Listen(info)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	return ws, ln
}

func TestWebSocketExchange(t *testing.T) {
	ws, ln := listenWS(t, ServiceInfo{Name: "urn:nfc:sn:snep", SAP: 4, MIU: 248, Backlog: 1})
	assert.True(t, strings.HasPrefix(ln.Addr(), "ws://127.0.0.1:"))
	assert.True(t, strings.HasSuffix(ln.Addr(), "/urn:nfc:sn:snep"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := ws.Dial(ctx, ln.Addr(), 64)
	require.NoError(t, err)
	defer client.Close()

	server, err := ln.Accept()
	require.NoError(t, err)
	defer server.Close()

	assert.Equal(t, 248, client.RemoteMIU())
	assert.Equal(t, 64, server.RemoteMIU())

	require.NoError(t, client.WriteFrame([]byte{0x10, 0x02, 0, 0, 0, 0}))
	frame, err := server.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x10, 0x02, 0, 0, 0, 0}, frame)

	require.NoError(t, server.WriteFrame([]byte{0x10, 0x81, 0, 0, 0, 0}))
	frame, err = client.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x10, 0x81, 0, 0, 0, 0}, frame)

	assert.ErrorIs(t, server.WriteFrame(make([]byte, 65)), ErrFrameTooLarge)
}

func TestWebSocketPeerClose(t *testing.T) {
	ws, ln := listenWS(t, ServiceInfo{Name: "svc", SAP: 4, MIU: 128, Backlog: 1})

	client, err := ws.Dial(context.Background(), ln.Addr(), 0)
	require.NoError(t, err)
	server, err := ln.Accept()
	require.NoError(t, err)
	defer server.Close()

	require.NoError(t, client.Close())
	_, err = server.ReadFrame()
	assert.ErrorIs(t, err, io.EOF)
}

func TestWebSocketUnknownService(t *testing.T) {
	ws, ln := listenWS(t, ServiceInfo{Name: "svc", SAP: 4, Backlog: 1})
	addr := strings.TrimSuffix(ln.Addr(), "svc") + "other"

	_, err := ws.Dial(context.Background(), addr, 0)
	assert.ErrorIs(t, err, ErrNoService)
}

func TestWebSocketCloseUnblocksAccept(t *testing.T) {
	_, ln := listenWS(t, ServiceInfo{Name: "svc", SAP: 4, Backlog: 1})

	errc := make(chan error, 1)
	go func() {
		_, err := ln.Accept()
		errc <- err
	}()

	require.NoError(t, ln.Close())
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Accept did not return after Close")
	}
}

func TestParseMIU(t *testing.T) {
	assert.Equal(t, 248, parseMIU("248"))
	assert.Equal(t, DefaultMIU, parseMIU(""))
	assert.Equal(t, DefaultMIU, parseMIU("-3"))
}
