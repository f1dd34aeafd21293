package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gtv-remote/gtv-go/pkg/cert"
	"github.com/gtv-remote/gtv-go/pkg/protocol"
	"github.com/gtv-remote/gtv-go/pkg/session"
	"github.com/gtv-remote/gtv-go/pkg/transport"
)

// Config is the gtv-remote configuration file. Command-line flags
// override file values.
//
// Example:
//
//	thing: living-room
//	host: 192.168.1.20
//	keystore:
//	  dir: ~/.config/gtv-remote
//	  password: secret
//	reconnect_delay: 5s
//	log:
//	  level: debug
//	  protocol: /tmp/living-room.glog
type Config struct {
	// Thing names the device. It also names the keystore file.
	Thing string `yaml:"thing"`

	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	Keystore KeystoreConfig `yaml:"keystore"`

	ConnectTimeout      time.Duration `yaml:"connect_timeout"`
	ReconnectDelay      time.Duration `yaml:"reconnect_delay"`
	ReconnectMaxDelay   time.Duration `yaml:"reconnect_max_delay"`
	KeepaliveTimeout    time.Duration `yaml:"keepalive_timeout"`
	HealthCheckInterval time.Duration `yaml:"health_check_interval"`
	QueueSize           int           `yaml:"queue_size"`
	AutoRequestPIN      bool          `yaml:"auto_request_pin"`

	Identity IdentityConfig `yaml:"identity"`
	Shim     ShimConfig     `yaml:"shim"`
	Log      LogConfig      `yaml:"log"`
}

// KeystoreConfig locates the PKCS#12 keystore.
type KeystoreConfig struct {
	Dir      string `yaml:"dir"`
	Password string `yaml:"password"`
	KeyBits  int    `yaml:"key_bits"`
}

// IdentityConfig overrides what the controller announces to the device.
type IdentityConfig struct {
	ClientName  string `yaml:"client_name"`
	ServiceName string `yaml:"service_name"`
}

// ShimConfig configures the relay listener.
type ShimConfig struct {
	Listen string `yaml:"listen"`
}

// LogConfig configures console and protocol logging.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`

	// Protocol is the path of a protocol capture file. Empty disables
	// capture.
	Protocol string `yaml:"protocol"`
}

// DefaultConfig returns the configuration used without a file.
func DefaultConfig() Config {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	d := session.DefaultConfig()
	return Config{
		Thing: "default",
		Port:  transport.DefaultPort,
		Keystore: KeystoreConfig{
			Dir:     filepath.Join(dir, "gtv-remote"),
			KeyBits: cert.DefaultKeyBits,
		},
		ConnectTimeout:      d.ConnectTimeout,
		ReconnectDelay:      d.ReconnectDelay,
		ReconnectMaxDelay:   d.ReconnectMaxDelay,
		KeepaliveTimeout:    d.KeepaliveTimeout,
		HealthCheckInterval: d.HealthCheckInterval,
		QueueSize:           d.QueueSize,
		AutoRequestPIN:      d.AutoRequestPIN,
		Shim:                ShimConfig{Listen: ":6466"},
		Log:                 LogConfig{Level: "info"},
	}
}

// LoadConfig reads a YAML file over the defaults. Unknown keys are errors.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := cfg.decode(bytes.NewReader(data)); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	c.Keystore.Dir = expandHome(c.Keystore.Dir)
	c.Log.Protocol = expandHome(c.Log.Protocol)
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// Validate checks the fields every command needs.
func (c *Config) Validate() error {
	if c.Thing == "" {
		return errors.New("thing is required")
	}
	if strings.ContainsAny(c.Thing, `/\`) {
		return fmt.Errorf("thing %q must not contain path separators", c.Thing)
	}
	if c.Keystore.Dir == "" {
		return errors.New("keystore.dir is required")
	}
	if c.Keystore.KeyBits != 0 && c.Keystore.KeyBits < 1024 {
		return fmt.Errorf("keystore.key_bits %d is too small", c.Keystore.KeyBits)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

func parseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return l, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}

// KeystorePath returns the keystore file of the configured device.
func (c *Config) KeystorePath(shim bool) string {
	return cert.KeystorePath(c.Keystore.Dir, c.Thing, shim)
}

// SessionConfig converts the file configuration for session.New.
func (c *Config) SessionConfig() session.Config {
	cfg := session.DefaultConfig()
	cfg.Host = c.Host
	cfg.Port = c.Port
	cfg.KeystoreDir = c.Keystore.Dir
	cfg.KeystorePassword = c.Keystore.Password
	cfg.KeyBits = c.Keystore.KeyBits
	cfg.ConnectTimeout = c.ConnectTimeout
	cfg.ReconnectDelay = c.ReconnectDelay
	cfg.ReconnectMaxDelay = c.ReconnectMaxDelay
	cfg.KeepaliveTimeout = c.KeepaliveTimeout
	cfg.HealthCheckInterval = c.HealthCheckInterval
	cfg.QueueSize = c.QueueSize
	cfg.AutoRequestPIN = c.AutoRequestPIN

	id := protocol.DefaultIdentity
	if c.Identity.ClientName != "" {
		id.ClientName = c.Identity.ClientName
	}
	if c.Identity.ServiceName != "" {
		id.ServiceName = c.Identity.ServiceName
	}
	cfg.Identity = id
	return cfg
}
