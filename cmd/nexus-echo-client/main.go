// Command nexus-echo-client dials a nexus-echo-server, waits for the
// server-opened stream, sends a
// handful of messages on it, and prints whatever comes back.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/momentics/nexus-quic/handlemap"
	"github.com/momentics/nexus-quic/logging"
	"github.com/momentics/nexus-quic/nexus"
	"github.com/momentics/nexus-quic/quicstack"
	"github.com/momentics/nexus-quic/sendbuf"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		host       string
		port       uint16
		alpn       string
		insecure   bool
		message    string
		count      int
		connectFor time.Duration
	)

	cmd := &cobra.Command{
		Use:   "nexus-echo-client",
		Short: "Dial a Nexus QUIC echo server and print the replies",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(cmd.Context(), clientOptions{
				host:       host,
				port:       port,
				alpn:       alpn,
				insecure:   insecure,
				message:    message,
				count:      count,
				connectFor: connectFor,
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&host, "host", "127.0.0.1", "server host")
	flags.Uint16Var(&port, "port", 4433, "server UDP port")
	flags.StringVar(&alpn, "alpn", "nexus-echo", "ALPN protocol identifier")
	flags.BoolVar(&insecure, "insecure", true, "skip TLS certificate verification")
	flags.StringVar(&message, "message", "hello nexus", "message body to echo")
	flags.IntVar(&count, "count", 3, "number of times to send the message")
	flags.DurationVar(&connectFor, "connect-timeout", 10*time.Second, "dial + backoff deadline")

	return cmd
}

type clientOptions struct {
	host       string
	port       uint16
	alpn       string
	insecure   bool
	message    string
	count      int
	connectFor time.Duration
}

func runClient(ctx context.Context, opts clientOptions) error {
	log, err := logging.NewProduction(logging.LevelInfo)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	app, err := nexus.NewApplication(quicstack.NewQuicGoStack(), nexus.QuicConfiguration{
		Role: nexus.RoleClient,
		ALPN: opts.alpn,
		Credentials: nexus.Credentials{
			SkipVerification: opts.insecure,
		},
		IdleTimeout:         60 * time.Second,
		KeepAliveInterval:   15 * time.Second,
		StreamReceiveWindow: 1 << 20,
		StreamReceiveBuffer: 1 << 16,
	}, log)
	if err != nil {
		return fmt.Errorf("build application: %w", err)
	}

	replies := make(chan string, opts.count)
	client := nexus.NewClient(app,
		nexus.WithClientCallbacks(nexus.ClientCallbacks{
			OnConnected: func(conn *nexus.Connection) {
				log.Log(logging.LevelInfo, "echo-client", fmt.Sprintf("connected: handle=%v", conn.Handle))
			},
			OnDisconnected: func(conn *nexus.Connection) {
				log.Log(logging.LevelInfo, "echo-client", fmt.Sprintf("disconnected: handle=%v", conn.Handle))
			},
		}),
		nexus.WithPeerStreamCallbacks(nexus.StreamCallbacks{
			OnDataReceived: func(payload []byte) int {
				replies <- string(payload)
				return len(payload)
			},
		}),
	)

	if cerr := client.ConnectWithRetry(ctx, opts.host, opts.port, opts.connectFor); cerr != nil {
		return cerr
	}
	defer client.Disconnect()

	stream, err := waitForPeerStream(client, opts.connectFor)
	if err != nil {
		return err
	}

	// Every send in this loop recycles the previous iteration's backing
	// array through sendbuf.Pool rather than allocating one per message.
	sendPool := sendbuf.NewPool()
	for i := 0; i < opts.count; i++ {
		body := fmt.Sprintf("%s #%d", opts.message, i+1)
		buf := sendPool.BuildPooled([]byte(body), 0)
		_, serr := client.Send(stream, buf)
		sendPool.Release(buf)
		if serr != nil {
			return serr
		}
		select {
		case reply := <-replies:
			fmt.Println("received:", reply)
		case <-time.After(opts.connectFor):
			return fmt.Errorf("timed out waiting for echo reply #%d", i+1)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// waitForPeerStream polls Connection.Streams until the server's echo
// stream (opened right after OnConnected fires, asynchronously on the
// server side) shows up, or deadline elapses.
func waitForPeerStream(client *nexus.Client, deadline time.Duration) (*nexus.Stream, error) {
	const pollInterval = 20 * time.Millisecond
	end := time.Now().Add(deadline)
	for time.Now().Before(end) {
		conn := client.Connection()
		if conn != nil {
			if s := firstStream(conn); s != nil {
				return s, nil
			}
		}
		time.Sleep(pollInterval)
	}
	return nil, fmt.Errorf("no peer-initiated stream opened within %s", deadline)
}

func firstStream(conn *nexus.Connection) *nexus.Stream {
	var found *nexus.Stream
	conn.Streams.Range(func(_ handlemap.Handle, s *nexus.Stream) bool {
		found = s
		return false
	})
	return found
}
