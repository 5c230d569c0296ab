package transport

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDialAccept(t *testing.T) {
	mem := NewMemory()
	ln, err := mem.Listen(ServiceInfo{Name: "urn:nfc:sn:snep", SAP: 4, MIU: 248, Backlog: 1})
	require.NoError(t, err)
	defer ln.Close()

	for _, addr := range []string{"urn:nfc:sn:snep", "sap:4"} {
		client, err := mem.Dial(context.Background(), addr, 128)
		require.NoError(t, err)
		server, err := ln.Accept()
		require.NoError(t, err)

		assert.Equal(t, 248, client.RemoteMIU())
		assert.Equal(t, 128, server.RemoteMIU())

		require.NoError(t, client.WriteFrame([]byte("ping")))
		frame, err := server.ReadFrame()
		require.NoError(t, err)
		assert.Equal(t, []byte("ping"), frame)

		_ = client.Close()
		_ = server.Close()
	}
}

func TestMemoryListenConflicts(t *testing.T) {
	mem := NewMemory()
	ln, err := mem.Listen(ServiceInfo{Name: "a", SAP: 4})
	require.NoError(t, err)

	_, err = mem.Listen(ServiceInfo{Name: "a", SAP: 5})
	assert.ErrorIs(t, err, ErrAddrInUse)
	_, err = mem.Listen(ServiceInfo{Name: "b", SAP: 4})
	assert.ErrorIs(t, err, ErrAddrInUse)

	require.NoError(t, ln.Close())
	ln, err = mem.Listen(ServiceInfo{Name: "a", SAP: 4})
	require.NoError(t, err)
	_ = ln.Close()
}

func TestMemoryCloseUnblocksAccept(t *testing.T) {
	mem := NewMemory()
	ln, err := mem.Listen(ServiceInfo{Name: "a", SAP: 4})
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() {
		_, err := ln.Accept()
		errc <- err
	}()

	require.NoError(t, ln.Close())
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("Accept did not return after Close")
	}

	_, err = mem.Dial(context.Background(), "a", 0)
	assert.ErrorIs(t, err, ErrNoService)
}

func TestMemoryCloseReleasesQueuedDialers(t *testing.T) {
	mem := NewMemory()
	ln, err := mem.Listen(ServiceInfo{Name: "a", SAP: 4, Backlog: 1})
	require.NoError(t, err)

	client, err := mem.Dial(context.Background(), "a", 0)
	require.NoError(t, err)
	defer client.Close()

	// Never accepted
	require.NoError(t, ln.Close())

	errc := make(chan error, 1)
	go func() {
		_, err := client.ReadFrame()
		errc <- err
	}()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, io.EOF)
	case <-time.After(time.Second):
		t.Fatal("queued dialer still blocked after listener Close")
	}
	assert.ErrorIs(t, client.WriteFrame([]byte{1}), ErrClosed)
}

func TestMemoryFrameTooLarge(t *testing.T) {
	client, _ := memoryPair(t, 0, 4)
	assert.ErrorIs(t, client.WriteFrame([]byte("12345")), ErrFrameTooLarge)
	assert.NoError(t, client.WriteFrame([]byte("1234")))
}

func TestMemoryEOFAfterQueuedFrames(t *testing.T) {
	client, server := memoryPair(t, 0, 0)
	require.NoError(t, client.WriteFrame([]byte{1}))
	require.NoError(t, client.WriteFrame([]byte{2}))
	require.NoError(t, client.Close())

	for _, want := range []byte{1, 2} {
		frame, err := server.ReadFrame()
		require.NoError(t, err)
		assert.Equal(t, []byte{want}, frame)
	}
	_, err := server.ReadFrame()
	assert.ErrorIs(t, err, io.EOF)

	assert.ErrorIs(t, server.WriteFrame([]byte{3}), ErrClosed)
	_, err = client.ReadFrame()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMemoryDialContextCancelled(t *testing.T) {
	mem := NewMemory()
	ln, err := mem.Listen(ServiceInfo{Name: "a", SAP: 4, Backlog: 0})
	require.NoError(t, err)
	defer ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = mem.Dial(ctx, "a", 0)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func memoryPair(t *testing.T, clientMIU, serverMIU int) (client, server Conn) {
	t.Helper()
	mem := NewMemory()
	ln, err := mem.Listen(ServiceInfo{Name: "pair", SAP: 1, MIU: serverMIU, Backlog: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	client, err = mem.Dial(context.Background(), "pair", clientMIU)
	require.NoError(t, err)
	server, err = ln.Accept()
	require.NoError(t, err)
	return client, server
}
