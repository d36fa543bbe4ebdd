package nexus

import (
	"sync/atomic"
	"time"

	"github.com/momentics/nexus-quic/adapters"
	"github.com/momentics/nexus-quic/api"
	"github.com/momentics/nexus-quic/logging"
	"github.com/momentics/nexus-quic/quicstack"
)

// Role distinguishes a client-role from a server-role Application.
type Role int

const (
	RoleClient Role = iota
	RoleServer
)

// ImplType enumerates which underlying stack an Application binds to.
// This tree's one production binding is quic-go, reached through
// quicstack.Stack rather than switched on at runtime, so ImplType exists
// only for diagnostics (e.g. log lines, error context) rather than
// dispatch.
type ImplType int

const (
	ImplQuicGo ImplType = iota
	ImplNoSuchImplementation
)

func (t ImplType) String() string {
	if t == ImplQuicGo {
		return "quic-go"
	}
	return "no_such_implementation"
}

// Credentials names the certificate/key pair a server role loads; a
// client role may leave both empty, in which case it must enable
// certificate-validation skipping.
type Credentials struct {
	CertificatePath  string
	PrivateKeyPath   string
	SkipVerification bool
}

// QuicConfiguration is the immutable configuration Application holds.
type QuicConfiguration struct {
	ImplType            ImplType
	Role                Role
	ALPN                string
	AppName             string
	IdleTimeout         time.Duration
	KeepAliveInterval   time.Duration
	Credentials         Credentials
	StreamReceiveWindow uint32
	StreamReceiveBuffer uint32
	UDPPortNumber       uint16
}

// quicStackConfig projects QuicConfiguration onto quicstack.QUICConfig,
// the subset the Stack boundary actually consumes.
func (c QuicConfiguration) quicStackConfig() quicstack.QUICConfig {
	return quicstack.QUICConfig{
		IdleTimeout:         c.IdleTimeout,
		KeepAliveInterval:   c.KeepAliveInterval,
		StreamReceiveWindow: c.StreamReceiveWindow,
		StreamReceiveBuffer: c.StreamReceiveBuffer,
	}
}

// validate enforces the "server role requires a certificate" rule and
// returns the corresponding error if violated.
func (c QuicConfiguration) validate() *Error {
	if c.Role == RoleServer {
		if c.Credentials.CertificatePath == "" {
			return newErr(ErrMissingCertificate, nil)
		}
		if c.Credentials.PrivateKeyPath == "" {
			return newErr(ErrMissingPrivateKey, nil)
		}
	}
	return nil
}

// Application is the long-lived configuration anchor. It owns
// the Stack binding and configuration that any number of Servers and
// Clients constructed from it will share.
type Application struct {
	cfg     QuicConfiguration
	stack   quicstack.Stack
	logger  logging.Logger
	control *adapters.ControlAdapter

	connectionsAccepted atomic.Int64
	streamsOpened       atomic.Int64
	bytesSent           atomic.Int64
}

// NewApplication validates cfg and constructs an Application bound to
// stack. Pass quicstack.NewQuicGoStack() in production,
// quicstack.NewFakeStack() in tests. A nil logger defaults to
// logging.Noop{}.
func NewApplication(stack quicstack.Stack, cfg QuicConfiguration, logger logging.Logger) (*Application, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Noop{}
	}
	return &Application{
		cfg:     cfg,
		stack:   stack,
		logger:  logger.Named("nexus"),
		control: adapters.NewControlAdapter(),
	}, nil
}

// Config returns the Application's immutable configuration.
func (a *Application) Config() QuicConfiguration { return a.cfg }

// Control exposes runtime configuration snapshots, live metrics, and
// debug probes for this Application. Every Server and Client built from
// this Application shares the one ControlAdapter instance.
func (a *Application) Control() api.Control { return a.control }

// noteConnectionAccepted records one more accepted connection under
// "metrics.connections_accepted".
func (a *Application) noteConnectionAccepted() {
	n := a.connectionsAccepted.Add(1)
	a.control.RecordMetric("connections_accepted", n)
}

// noteStreamOpened records one more opened stream (locally- or
// peer-initiated) under "metrics.streams_opened".
func (a *Application) noteStreamOpened() {
	n := a.streamsOpened.Add(1)
	a.control.RecordMetric("streams_opened", n)
}

// noteBytesSent adds n to the running total under "metrics.bytes_sent".
func (a *Application) noteBytesSent(n int) {
	total := a.bytesSent.Add(int64(n))
	a.control.RecordMetric("bytes_sent", total)
}
