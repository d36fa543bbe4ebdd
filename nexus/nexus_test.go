package nexus_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/momentics/nexus-quic/handlemap"
	"github.com/momentics/nexus-quic/nexus"
	"github.com/momentics/nexus-quic/quicstack"
	"github.com/momentics/nexus-quic/sendbuf"
)

// writeEphemeralCert generates a throwaway self-signed ECDSA certificate
// and writes it (plus its key) to PEM files under t.TempDir, returning
// their paths. FakeStack never inspects the TLS config it's handed, but
// nexus.Server.Listen builds one regardless,
// so tests need real-looking files on disk.
func writeEphemeralCert(t *testing.T) (certPath, keyPath string) {
	t.Helper()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "nexus-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	require.NoError(t, err)

	dir := t.TempDir()
	certPath = filepath.Join(dir, "cert.pem")
	keyPath = filepath.Join(dir, "key.pem")

	certOut, err := os.Create(certPath)
	require.NoError(t, err)
	require.NoError(t, pem.Encode(certOut, &pem.Block{Type: "CERTIFICATE", Bytes: der}))
	require.NoError(t, certOut.Close())

	keyBytes, err := x509.MarshalECPrivateKey(priv)
	require.NoError(t, err)
	keyOut, err := os.Create(keyPath)
	require.NoError(t, err)
	require.NoError(t, pem.Encode(keyOut, &pem.Block{Type: "EC PRIVATE KEY", Bytes: keyBytes}))
	require.NoError(t, keyOut.Close())

	return certPath, keyPath
}

func newTestServerApp(t *testing.T, stack quicstack.Stack) *nexus.Application {
	t.Helper()
	certPath, keyPath := writeEphemeralCert(t)
	app, err := nexus.NewApplication(stack, nexus.QuicConfiguration{
		Role: nexus.RoleServer,
		ALPN: "nexus-test",
		Credentials: nexus.Credentials{
			CertificatePath: certPath,
			PrivateKeyPath:  keyPath,
		},
		StreamReceiveWindow: 1 << 16,
		StreamReceiveBuffer: 1 << 14,
	}, nil)
	require.NoError(t, err)
	return app
}

func newTestClientApp(t *testing.T, stack quicstack.Stack) *nexus.Application {
	t.Helper()
	app, err := nexus.NewApplication(stack, nexus.QuicConfiguration{
		Role:                nexus.RoleClient,
		ALPN:                "nexus-test",
		Credentials:         nexus.Credentials{SkipVerification: true},
		StreamReceiveWindow: 1 << 16,
		StreamReceiveBuffer: 1 << 14,
	}, nil)
	require.NoError(t, err)
	return app
}

// TestServerOpenedStreamReachesClientWithOnStartBeforeData checks that a
// server-opened stream fires the client's OnStart callback before any
// OnDataReceived callback for that stream.
func TestServerOpenedStreamReachesClientWithOnStartBeforeData(t *testing.T) {
	stack := quicstack.NewFakeStack()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connectedCh := make(chan *nexus.Connection, 1)
	serverApp := newTestServerApp(t, stack)
	server := nexus.NewServer(serverApp,
		nexus.WithServerCallbacks(nexus.ServerCallbacks{
			OnConnected: func(conn *nexus.Connection) { connectedCh <- conn },
		}),
	)
	require.Nil(t, server.Listen(ctx, 4433))
	defer server.Close()

	eventsCh := make(chan string, 8)
	clientApp := newTestClientApp(t, stack)
	client := nexus.NewClient(clientApp,
		nexus.WithPeerStreamCallbacks(nexus.StreamCallbacks{
			OnStart:        func(*nexus.Stream) { eventsCh <- "start" },
			OnDataReceived: func(payload []byte) int { eventsCh <- "data:" + string(payload); return len(payload) },
		}),
	)
	require.Nil(t, client.Connect(ctx, "[::]", 4433))
	defer client.Disconnect()

	var conn *nexus.Connection
	select {
	case conn = <-connectedCh:
	case <-ctx.Done():
		t.Fatal("server never observed the connection")
	}

	stream, openErr := server.OpenStream(ctx, conn, nexus.StreamCallbacks{})
	require.Nil(t, openErr)

	_, sendErr := server.Send(conn, stream, sendbuf.Build([]byte("hello"), 0))
	require.Nil(t, sendErr)

	var events []string
	for i := 0; i < 2; i++ {
		select {
		case ev := <-eventsCh:
			events = append(events, ev)
		case <-ctx.Done():
			t.Fatal("timed out waiting for stream events")
		}
	}
	require.Equal(t, []string{"start", "data:hello"}, events)
}

// TestClientSendIsObservedOnServerSide exercises Send end-to-end and
// checks the in-flight bookkeeping: once Send returns, the buffer it
// was handed is no longer tracked as in-flight.
func TestClientSendIsObservedOnServerSide(t *testing.T) {
	stack := quicstack.NewFakeStack()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connectedCh := make(chan *nexus.Connection, 1)
	serverApp := newTestServerApp(t, stack)
	server := nexus.NewServer(serverApp,
		nexus.WithServerCallbacks(nexus.ServerCallbacks{
			OnConnected: func(conn *nexus.Connection) { connectedCh <- conn },
		}),
	)
	require.Nil(t, server.Listen(ctx, 4434))
	defer server.Close()

	clientApp := newTestClientApp(t, stack)
	client := nexus.NewClient(clientApp)
	require.Nil(t, client.Connect(ctx, "[::]", 4434))
	defer client.Disconnect()

	var conn *nexus.Connection
	select {
	case conn = <-connectedCh:
	case <-ctx.Done():
		t.Fatal("server never observed the connection")
	}

	received := make(chan string, 1)
	stream, openErr := server.OpenStream(ctx, conn, nexus.StreamCallbacks{
		OnDataReceived: func(payload []byte) int {
			received <- string(payload)
			return len(payload)
		},
	})
	require.Nil(t, openErr)

	clientStream := waitForPeerStream(t, client)
	n, sendErr := client.Send(clientStream, sendbuf.Build([]byte("ping"), 0))
	require.Nil(t, sendErr)
	require.Equal(t, 8, n)
	require.Equal(t, 0, clientStream.InflightCount())

	select {
	case payload := <-received:
		require.Equal(t, "ping", payload)
	case <-ctx.Done():
		t.Fatal("server never observed the sent frame")
	}
	_ = stream
}

func waitForPeerStream(t *testing.T, client *nexus.Client) *nexus.Stream {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn := client.Connection()
		if conn != nil {
			var found *nexus.Stream
			conn.Streams.Range(func(_ handlemap.Handle, s *nexus.Stream) bool {
				found = s
				return false
			})
			if found != nil {
				return found
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no peer-initiated stream observed")
	return nil
}
