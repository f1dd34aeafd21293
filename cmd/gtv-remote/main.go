// Command gtv-remote controls Android TV devices over the remote protocol.
//
// Usage:
//
//	gtv-remote <command> [flags]
//
// Commands:
//
//	connect    Open an interactive remote console
//	pair       Pair with a device using the PIN it displays
//	shim       Relay another controller to the device
//	keystore   Manage the controller identity
//	log        View and analyze protocol capture files
//
// Examples:
//
//	# Pair, then control the device
//	gtv-remote pair --host 192.168.1.20 --thing living-room
//	gtv-remote connect --host 192.168.1.20 --thing living-room
//
//	# Use a config file and capture the protocol
//	gtv-remote connect --config living-room.yaml --protocol-log capture.glog
//
//	# Inspect a capture
//	gtv-remote log view --opcode 42 capture.glog
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gtv-remote/gtv-go/pkg/log"
)

var (
	configFile  string
	host        string
	port        int
	thing       string
	keystoreDir string
	logLevel    string
	protocolLog string
)

var rootCmd = &cobra.Command{
	Use:   "gtv-remote",
	Short: "Android TV remote control client",
	Long: `gtv-remote - Android TV remote protocol client.

Connects to the remote service of an Android TV device over mutually
authenticated TLS, pairs using the PIN shown on screen, sends key presses
and mirrors power, volume and the foreground app.

Settings come from an optional YAML file (--config); flags override it.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&host, "host", "", "Device host name or address")
	rootCmd.PersistentFlags().IntVarP(&port, "port", "p", 0, "Device remote port (default 6466)")
	rootCmd.PersistentFlags().StringVarP(&thing, "thing", "t", "", "Device name, also names the keystore file")
	rootCmd.PersistentFlags().StringVar(&keystoreDir, "keystore", "", "Keystore directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&protocolLog, "protocol-log", "", "Write a protocol capture to this file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file, if any, applies flags and validates.
func loadConfig(cmd *cobra.Command) (Config, error) {
	cfg := DefaultConfig()
	if configFile != "" {
		var err error
		if cfg, err = LoadConfig(configFile); err != nil {
			return cfg, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = host
	}
	if flags.Changed("port") {
		cfg.Port = port
	}
	if flags.Changed("thing") {
		cfg.Thing = thing
	}
	if flags.Changed("keystore") {
		cfg.Keystore.Dir = expandHome(keystoreDir)
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("protocol-log") {
		cfg.Log.Protocol = protocolLog
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// runtime holds the loggers shared by the session commands.
type runtime struct {
	cfg     Config
	logger  *slog.Logger
	capture *log.FileLogger
}

func newRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	level, _ := parseLevel(cfg.Log.Level)

	rt := &runtime{
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})),
	}
	if cfg.Log.Protocol != "" {
		rt.capture, err = log.NewFileLogger(cfg.Log.Protocol)
		if err != nil {
			return nil, fmt.Errorf("open protocol log: %w", err)
		}
		rt.logger.Info("capturing protocol", "file", cfg.Log.Protocol)
	}
	return rt, nil
}

// protocolLogger returns the capture file, mirrored to the console at
// debug level.
func (rt *runtime) protocolLogger() log.Logger {
	var loggers []log.Logger
	if rt.capture != nil {
		loggers = append(loggers, rt.capture)
	}
	if rt.logger.Enabled(context.Background(), slog.LevelDebug) {
		loggers = append(loggers, log.NewSlogAdapter(rt.logger))
	}
	if len(loggers) == 0 {
		return nil
	}
	return log.NewMultiLogger(loggers...)
}

func (rt *runtime) close() {
	if rt.capture == nil {
		return
	}
	if n := rt.capture.Dropped(); n > 0 {
		rt.logger.Warn("protocol events dropped", "count", n)
	}
	if err := rt.capture.Close(); err != nil {
		rt.logger.Warn("close protocol log", "error", err)
	}
}
