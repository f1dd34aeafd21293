package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gtv-remote/gtv-go/cmd/gtv-remote/interactive"
	"github.com/gtv-remote/gtv-go/pkg/session"
)

var (
	pairTimeout time.Duration
	pairForce   bool
	shimListen  string
	shimPin     bool
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Open an interactive remote console",
	Long: `Connect to the device and read remote commands from the terminal.

A device that rejects the controller certificate starts pairing on its own;
enter the PIN it shows with "PINCODE <pin>". Type "help" for all commands.`,
	RunE: runConnect,
}

var pairCmd = &cobra.Command{
	Use:   "pair",
	Short: "Pair with a device using the PIN it displays",
	RunE:  runPair,
}

var shimCmd = &cobra.Command{
	Use:   "shim",
	Short: "Relay another controller to the device",
	Long: `Accept one controller on the listen address and relay its traffic to the
device. Pairing digests are rewritten so the controller pairs with the relay
while the device pairs with this host.

Use --pin to relay the pairing port (remote port + 1).`,
	RunE: runShim,
}

func init() {
	pairCmd.Flags().DurationVar(&pairTimeout, "timeout", 2*time.Minute, "How long to wait for each pairing step")
	pairCmd.Flags().BoolVar(&pairForce, "force", false, "Pair again even if the device accepts the current identity")

	shimCmd.Flags().StringVarP(&shimListen, "listen", "l", "", "Listen address (default from config, :6466)")
	shimCmd.Flags().BoolVar(&shimPin, "pin", false, "Relay the pairing port instead of the remote port")

	rootCmd.AddCommand(connectCmd, pairCmd, shimCmd)
}

func requireHost(cfg Config) error {
	if cfg.Host == "" {
		return errors.New("device host required (--host or host: in config)")
	}
	return nil
}

// newSession creates a session reporting to a printer on stdout.
func (rt *runtime) newSession(mode session.Mode, reg *session.Registry) (*session.Session, *interactive.Printer, error) {
	if err := requireHost(rt.cfg); err != nil {
		return nil, nil, err
	}
	printer := interactive.NewPrinter(rt.cfg.Thing, os.Stdout)
	cfg := rt.cfg.SessionConfig()
	cfg.Mode = mode
	cfg.Logger = rt.logger
	if plog := rt.protocolLogger(); plog != nil {
		cfg.ProtocolLogger = plog
	}
	s, err := session.New(cfg, printer, reg)
	if err != nil {
		return nil, nil, err
	}
	return s, printer, nil
}

func runConnect(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	s, printer, err := rt.newSession(session.ModeNormal, nil)
	if err != nil {
		return err
	}
	defer s.Dispose()

	console, err := interactive.New(s, "gtv> ")
	if err != nil {
		return err
	}
	printer.SetOutput(console.Stdout())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	go func() {
		<-ctx.Done()
		console.Close()
	}()

	fmt.Fprintf(console.Stdout(), "Connecting to %s (%s)...\n", rt.cfg.Host, rt.cfg.Thing)
	if err := s.Connect(); err != nil {
		rt.logger.Debug("connect", "error", err)
	}

	console.Run(ctx, cancel)
	return nil
}

func runPair(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()
	rt.cfg.AutoRequestPIN = true

	s, printer, err := rt.newSession(session.ModeNormal, nil)
	if err != nil {
		return err
	}
	defer s.Dispose()

	console, err := interactive.New(s, "")
	if err != nil {
		return err
	}
	defer console.Close()
	printer.SetOutput(console.Stdout())

	if err := s.Connect(); err != nil {
		rt.logger.Debug("connect", "error", err)
	}

	// The device either accepts the identity or rejects it and a PIN
	// session starts.
	u, err := waitStatus(printer, pairTimeout, func(u interactive.StatusUpdate) bool {
		return u.Status == session.StatusOnline || u.Detail == session.DetailConfigurationPending ||
			u.Detail == session.DetailConfigurationError
	})
	if err != nil {
		return err
	}
	switch {
	case u.Detail == session.DetailConfigurationError:
		return fmt.Errorf("pairing failed: %s", u.Description)
	case u.Status == session.StatusOnline && !pairForce:
		fmt.Fprintln(console.Stdout(), "Already paired.")
		return nil
	case u.Status == session.StatusOnline:
		if err := s.HandleCommand(session.ChannelPinCode, "REQUEST"); err != nil {
			return err
		}
		if _, err := waitStatus(printer, pairTimeout, func(u interactive.StatusUpdate) bool {
			return u.Detail == session.DetailConfigurationPending
		}); err != nil {
			return err
		}
	}

	for {
		pin, err := console.ReadLine("PIN shown on the device: ")
		if err != nil {
			return errors.New("pairing cancelled")
		}
		if err := s.HandleCommand(session.ChannelPinCode, pin); err != nil {
			fmt.Fprintf(console.Stdout(), "Error: %v\n", err)
			continue
		}
		break
	}

	u, err = waitStatus(printer, pairTimeout, func(u interactive.StatusUpdate) bool {
		return u.Status == session.StatusOnline || u.Detail == session.DetailConfigurationError
	})
	if err != nil {
		return err
	}
	if u.Status != session.StatusOnline {
		return fmt.Errorf("pairing failed: %s", u.Description)
	}
	fmt.Fprintf(console.Stdout(), "Paired. Keystore: %s\n", rt.cfg.KeystorePath(false))
	return nil
}

func waitStatus(p *interactive.Printer, timeout time.Duration, done func(interactive.StatusUpdate) bool) (interactive.StatusUpdate, error) {
	deadline := time.After(timeout)
	for {
		select {
		case u := <-p.Statuses():
			if done(u) {
				return u, nil
			}
		case <-deadline:
			return interactive.StatusUpdate{}, fmt.Errorf("no answer from device within %s", timeout)
		}
	}
}

func runShim(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()
	mode := session.ModeNormal
	if shimPin {
		mode = session.ModePin
		rt.cfg.Port++
	}

	reg := session.NewRegistry()
	target, _, err := rt.newSession(mode, reg)
	if err != nil {
		return err
	}
	defer target.Dispose()

	listen := rt.cfg.Shim.Listen
	if cmd.Flags().Changed("listen") {
		listen = shimListen
	}
	shim, err := session.NewShim(target, listen)
	if err != nil {
		return err
	}
	defer shim.Dispose()

	if err := shim.Connect(); err != nil {
		return err
	}
	rt.logger.Info("relay listening", "addr", shim.ListenAddr(), "device", rt.cfg.SessionConfig().Address())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()
	rt.logger.Info("shutting down")
	return nil
}
