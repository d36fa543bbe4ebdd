// Command nexus-echo-server runs a Nexus QUIC server that echoes every
// frame it receives back on the same stream. It exists to give the
// library's ambient CLI stack (spf13/cobra) and control surface
// (adapters.ControlAdapter via Application.Control) a real entry point,
// and to double as a manual smoke target for the quic-go binding.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

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
		port        uint16
		certPath    string
		keyPath     string
		alpn        string
		logLevel    string
		statsPeriod time.Duration
	)

	cmd := &cobra.Command{
		Use:   "nexus-echo-server",
		Short: "Run a Nexus QUIC echo server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), serverOptions{
				port:        port,
				certPath:    certPath,
				keyPath:     keyPath,
				alpn:        alpn,
				logLevel:    logLevel,
				statsPeriod: statsPeriod,
			})
		},
	}

	flags := cmd.Flags()
	flags.Uint16Var(&port, "port", 4433, "UDP port to listen on")
	flags.StringVar(&certPath, "cert", "", "TLS certificate path (required)")
	flags.StringVar(&keyPath, "key", "", "TLS private key path (required)")
	flags.StringVar(&alpn, "alpn", "nexus-echo", "ALPN protocol identifier")
	flags.StringVar(&logLevel, "log-level", "info", "trace|debug|info|warn|error|critical")
	flags.DurationVar(&statsPeriod, "stats-period", 30*time.Second, "interval for logging Application.Control().Stats()")
	_ = cmd.MarkFlagRequired("cert")
	_ = cmd.MarkFlagRequired("key")

	return cmd
}

type serverOptions struct {
	port        uint16
	certPath    string
	keyPath     string
	alpn        string
	logLevel    string
	statsPeriod time.Duration
}

func runServer(ctx context.Context, opts serverOptions) error {
	log, err := logging.NewProduction(parseLevel(opts.logLevel))
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	app, err := nexus.NewApplication(quicstack.NewQuicGoStack(), nexus.QuicConfiguration{
		Role: nexus.RoleServer,
		ALPN: opts.alpn,
		Credentials: nexus.Credentials{
			CertificatePath: opts.certPath,
			PrivateKeyPath:  opts.keyPath,
		},
		IdleTimeout:         60 * time.Second,
		KeepAliveInterval:   15 * time.Second,
		StreamReceiveWindow: 1 << 20,
		StreamReceiveBuffer: 1 << 16,
		UDPPortNumber:       opts.port,
	}, log)
	if err != nil {
		return fmt.Errorf("build application: %w", err)
	}

	// Echo replies are built from a fixed size class: sendbuf.NUMAPool
	// suits this narrow, server-side-only size range better than Pool's
	// unbounded sync.Pool, and surfaces allocation stats per NUMA node.
	echoPool := sendbuf.NewNUMAPool(4096, 64, -1)

	var server *nexus.Server
	server = nexus.NewServer(app,
		nexus.WithServerAsyncCallbacks(4, -1),
		nexus.WithServerCallbacks(nexus.ServerCallbacks{
			OnConnected: func(conn *nexus.Connection) {
				log.Log(logging.LevelInfo, "echo-server", fmt.Sprintf("connection accepted: handle=%v", conn.Handle))
				openEchoStream(ctx, server, conn, echoPool, log)
			},
			OnDisconnected: func(conn *nexus.Connection) {
				log.Log(logging.LevelInfo, "echo-server", fmt.Sprintf("connection closed: handle=%v", conn.Handle))
			},
		}),
	)

	stopStats := logStatsPeriodically(ctx, app, echoPool, log, opts.statsPeriod)
	defer stopStats()

	if lerr := server.Listen(ctx, opts.port); lerr != nil {
		return lerr
	}
	log.Log(logging.LevelInfo, "echo-server", fmt.Sprintf("listening on:%d", opts.port))

	sigCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	<-sigCtx.Done()

	log.Log(logging.LevelInfo, "echo-server", "shutting down")
	return server.Close()
}

// openEchoStream opens one server-initiated stream per connection and echoes every frame it receives
// back on that same stream. OnDataReceived hands payloads to msgCh
// rather than calling server.Send directly from inside readLoop's
// goroutine, since the *nexus.Stream returned by OpenStream doesn't
// exist yet at the point OnDataReceived is constructed.
func openEchoStream(ctx context.Context, server *nexus.Server, conn *nexus.Connection, pool *sendbuf.NUMAPool, log logging.Logger) {
	msgCh := make(chan []byte, 64)
	cb := nexus.StreamCallbacks{
		OnDataReceived: func(payload []byte) int {
			buf := append([]byte(nil), payload...)
			select {
			case msgCh <- buf:
			default:
				log.Log(logging.LevelWarn, "echo-server", "dropped frame: echo backlog full")
			}
			return len(payload)
		},
		OnClose: func(*nexus.Stream) { close(msgCh) },
	}

	stream, serr := server.OpenStream(ctx, conn, cb)
	if serr != nil {
		log.Log(logging.LevelError, "echo-server", serr.Error())
		return
	}

	go func() {
		for payload := range msgCh {
			buf, release := pool.Build(payload, 0)
			_, err := server.Send(conn, stream, buf)
			release()
			if err != nil {
				log.Log(logging.LevelWarn, "echo-server", err.Error())
			}
		}
	}()
}

// logStatsPeriodically logs Application.Control().Stats() and the echo
// reply pool's allocation stats every period until ctx is cancelled,
// giving the "metrics.*" counters nexus/config.go records somewhere to
// surface without wiring a separate metrics server.
func logStatsPeriodically(ctx context.Context, app *nexus.Application, pool *sendbuf.NUMAPool, log logging.Logger, period time.Duration) func() {
	done := make(chan struct{})
	var closeOnce sync.Once
	stop := func() { closeOnce.Do(func() { close(done) }) }

	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				log.Log(logging.LevelInfo, "echo-server.stats", fmt.Sprintf("%v", app.Control().Stats()))
				log.Log(logging.LevelInfo, "echo-server.stats", fmt.Sprintf("reply pool: %+v", pool.Stats()))
			}
		}
	}()
	return stop
}

func parseLevel(s string) logging.Level {
	switch s {
	case "trace":
		return logging.LevelTrace
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	case "critical":
		return logging.LevelCritical
	default:
		return logging.LevelInfo
	}
}
