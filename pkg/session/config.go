package session

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/gtv-remote/gtv-go/pkg/cert"
	"github.com/gtv-remote/gtv-go/pkg/log"
	"github.com/gtv-remote/gtv-go/pkg/protocol"
	"github.com/gtv-remote/gtv-go/pkg/transport"
)

// Session errors.
var (
	ErrInvalidConfig   = errors.New("invalid session config")
	ErrSessionDisposed = errors.New("session disposed")
	ErrNotConnected    = errors.New("not connected")
	ErrQueueFull       = errors.New("command queue full")
	ErrUnknownChannel  = errors.New("unknown channel")
	ErrInvalidCommand  = errors.New("invalid command")
	ErrVolumeUnknown   = errors.New("volume range not reported by device")
	ErrNoPairing       = errors.New("no pairing in progress")
)

// Mode selects what a session does with its connection.
type Mode uint8

const (
	// ModeNormal controls the device over the remote port.
	ModeNormal Mode = iota

	// ModePin runs the pairing handshake over the pairing port.
	ModePin
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "NORMAL"
	case ModePin:
		return "PIN"
	default:
		return "UNKNOWN"
	}
}

// DialFunc opens a framed TLS connection. The default uses transport.Dialer.
type DialFunc func(ctx context.Context, address string, tlsConfig *tls.Config) (transport.Connection, error)

// ProbeFunc checks TCP reachability. The default is transport.Probe.
type ProbeFunc func(ctx context.Context, address string, timeout time.Duration) error

// Default session settings.
const (
	DefaultReconnectDelay      = 5 * time.Second
	DefaultReconnectMaxDelay   = 2 * time.Minute
	DefaultKeepaliveTimeout    = 15 * time.Second
	DefaultHealthCheckInterval = time.Minute
	DefaultHealthCheckTimeout  = 2 * time.Second
	DefaultQueueSize           = 64
	DefaultStopTimeout         = 2 * time.Second
)

// Config configures a Session.
type Config struct {
	// Host and Port of the device remote service. A PIN session uses
	// Port+1 of its parent.
	Host string
	Port int

	// Mode is immutable for the session's lifetime.
	Mode Mode

	// Shim makes the session accept a controller on ListenAddr and relay
	// it to a target session instead of dialing.
	Shim       bool
	ListenAddr string

	// KeystoreDir and KeystorePassword locate the PKCS#12 keystore.
	// Ignored when Store is set.
	KeystoreDir      string
	KeystorePassword string

	// Store overrides the file keystore.
	Store cert.Store

	// KeyBits is the RSA size for a generated identity.
	KeyBits int

	// ConnectTimeout bounds connect plus TLS handshake.
	ConnectTimeout time.Duration

	// ReconnectDelay and ReconnectMaxDelay bound the backoff after
	// transient failures.
	ReconnectDelay    time.Duration
	ReconnectMaxDelay time.Duration

	// KeepaliveTimeout is how long to wait for any frame after answering
	// a keepalive before reconnecting.
	KeepaliveTimeout time.Duration

	// HealthCheckInterval and HealthCheckTimeout drive the reachability
	// probe while not logged in. A zero interval disables it.
	HealthCheckInterval time.Duration
	HealthCheckTimeout  time.Duration

	// QueueSize bounds the outbound command queue.
	QueueSize int

	// AutoRequestPIN makes a PIN session ask the device to display the
	// PIN as soon as the options are acknowledged.
	AutoRequestPIN bool

	// Identity describes this controller to the device.
	Identity protocol.Identity

	// Dial and Probe override the network operations (tests).
	Dial  DialFunc
	Probe ProbeFunc

	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger

	// ProtocolLogger receives protocol events. If nil, nothing is captured.
	ProtocolLogger log.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Port:                transport.DefaultPort,
		Mode:                ModeNormal,
		KeyBits:             cert.DefaultKeyBits,
		ConnectTimeout:      transport.DefaultConnectTimeout,
		ReconnectDelay:      DefaultReconnectDelay,
		ReconnectMaxDelay:   DefaultReconnectMaxDelay,
		KeepaliveTimeout:    DefaultKeepaliveTimeout,
		HealthCheckInterval: DefaultHealthCheckInterval,
		HealthCheckTimeout:  DefaultHealthCheckTimeout,
		QueueSize:           DefaultQueueSize,
		AutoRequestPIN:      true,
		Identity:            protocol.DefaultIdentity,
	}
}

// withDefaults fills zero values from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Port == 0 {
		c.Port = d.Port
	}
	if c.KeyBits == 0 {
		c.KeyBits = d.KeyBits
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = d.ConnectTimeout
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = d.ReconnectDelay
	}
	if c.ReconnectMaxDelay <= 0 {
		c.ReconnectMaxDelay = d.ReconnectMaxDelay
	}
	if c.KeepaliveTimeout <= 0 {
		c.KeepaliveTimeout = d.KeepaliveTimeout
	}
	if c.HealthCheckTimeout <= 0 {
		c.HealthCheckTimeout = d.HealthCheckTimeout
	}
	if c.QueueSize <= 0 {
		c.QueueSize = d.QueueSize
	}
	if c.Identity == (protocol.Identity{}) {
		c.Identity = d.Identity
	}
	if c.Probe == nil {
		c.Probe = transport.Probe
	}
	return c
}

// Validate checks if the config is valid.
func (c *Config) Validate() error {
	if c.Host == "" && !c.Shim {
		return fmt.Errorf("%w: host is required", ErrInvalidConfig)
	}
	if c.Port < 0 || c.Port > 65534 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	if c.Mode != ModeNormal && c.Mode != ModePin {
		return fmt.Errorf("%w: mode %d", ErrInvalidConfig, c.Mode)
	}
	if c.Shim && c.ListenAddr == "" {
		return fmt.Errorf("%w: shim requires a listen address", ErrInvalidConfig)
	}
	if c.Store == nil && c.KeystoreDir == "" {
		return fmt.Errorf("%w: keystore directory is required", ErrInvalidConfig)
	}
	return nil
}

// Address returns host:port of the device.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func logMode(m Mode, shim bool) log.Mode {
	switch {
	case shim:
		return log.ModeShim
	case m == ModePin:
		return log.ModePin
	default:
		return log.ModeNormal
	}
}
