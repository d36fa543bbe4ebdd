package quicstack

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var _ Stack = (*QuicGoStack)(nil)

func TestFakeDialAcceptRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	stack := NewFakeStack()
	ln, err := stack.Listen(ctx, ListenConfig{Address: "svc.local:443"})
	require.NoError(t, err)
	defer ln.Close()

	serverConnCh := make(chan Connection, 1)
	go func() {
		c, err := ln.Accept(ctx)
		require.NoError(t, err)
		serverConnCh <- c
	}()

	clientConn, err := stack.Dial(ctx, DialConfig{Address: "svc.local:443"})
	require.NoError(t, err)
	serverConn := <-serverConnCh

	serverStreamCh := make(chan Stream, 1)
	go func() {
		st, err := serverConn.AcceptStream(ctx)
		require.NoError(t, err)
		serverStreamCh <- st
	}()

	clientStream, err := clientConn.OpenStream(ctx)
	require.NoError(t, err)
	serverStream := <-serverStreamCh

	msg := []byte("hello over fake quic")
	go func() {
		_, werr := clientStream.Write(msg)
		require.NoError(t, werr)
	}()

	buf := make([]byte, len(msg))
	n, err := serverStream.Read(buf)
	require.NoError(t, err)
	require.Equal(t, msg, buf[:n])
	require.Equal(t, clientStream.StreamID(), serverStream.StreamID())
}

func TestFakeDialUnknownAddressFails(t *testing.T) {
	stack := NewFakeStack()
	_, err := stack.Dial(context.Background(), DialConfig{Address: "nowhere:1"})
	require.Error(t, err)
}
