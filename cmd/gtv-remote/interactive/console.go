// Package interactive provides the interactive remote console for
// gtv-remote.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/gtv-remote/gtv-go/pkg/session"
)

// Remote is the part of a session the console drives.
type Remote interface {
	HandleCommand(channel, value string) error
	State() session.State
	Device() session.DeviceState
	IsPairing() bool
	Pending() int
	Reconnect()
	Disconnect(interruptAll bool)
}

var _ Remote = (*session.Session)(nil)

// Console reads remote commands from a terminal.
type Console struct {
	remote Remote
	rl     *readline.Instance
	out    io.Writer
}

// New creates a console for remote with its own readline instance.
func New(remote Remote, prompt string) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Console{remote: remote, rl: rl, out: rl.Stdout()}, nil
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (c *Console) Stdout() io.Writer {
	return c.out
}

// ReadLine prompts once with prompt and returns the trimmed input.
func (c *Console) ReadLine(prompt string) (string, error) {
	c.rl.SetPrompt(prompt)
	line, err := c.rl.Readline()
	return strings.TrimSpace(line), err
}

// Close releases the terminal.
func (c *Console) Close() error {
	return c.rl.Close()
}

// Run starts the interactive command loop. It returns when the user quits
// or ctx is done.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}

		if c.Execute(line) {
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}
	}
}

// Execute runs one console line and reports whether the user asked to quit.
func (c *Console) Execute(line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}

	switch strings.ToLower(input) {
	case "help", "?":
		c.printHelp()
	case "status", "st":
		c.cmdStatus()
	case "reconnect":
		c.remote.Reconnect()
		fmt.Fprintln(c.out, "Reconnecting...")
	case "disconnect":
		c.remote.Disconnect(true)
		fmt.Fprintln(c.out, "Disconnected")
	case "quit", "exit", "q":
		return true
	default:
		c.cmdRemote(input)
	}
	return false
}

func (c *Console) cmdRemote(input string) {
	channel, value, err := session.ParseCommand(input)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v (type 'help' for commands)\n", err)
		return
	}
	if err := c.remote.HandleCommand(channel, value); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
	}
}

func (c *Console) cmdStatus() {
	d := c.remote.Device()
	fmt.Fprintf(c.out, "State:    %s\n", c.remote.State())
	if c.remote.IsPairing() {
		fmt.Fprintln(c.out, "Pairing:  in progress (enter PINCODE <pin>)")
	}
	fmt.Fprintf(c.out, "Pending:  %d\n", c.remote.Pending())
	if d.Manufacturer != "" || d.Model != "" {
		fmt.Fprintf(c.out, "Device:   %s %s (Android %s)\n", d.Manufacturer, d.Model, d.AndroidVersion)
	}
	if d.PowerKnown {
		fmt.Fprintf(c.out, "Power:    %s\n", onOff(d.Power))
	}
	if d.VolumeMax > 0 {
		fmt.Fprintf(c.out, "Volume:   %d%% (%d/%d) muted=%s\n", d.VolumePercent(), d.VolumeLevel, d.VolumeMax, onOff(d.Muted))
	}
	if d.App != "" {
		fmt.Fprintf(c.out, "App:      %s\n", d.App)
	}
}

func onOff(b bool) string {
	if b {
		return session.ValueOn
	}
	return session.ValueOff
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
Remote Commands:
  Keys:
    KEY_HOME, KEY_BACK, ...           - Short press
    KEY_HOME_PRESS / KEY_HOME_RELEASE - Long press start / end
    POWER ON|OFF                      - Set power
    MUTE ON|OFF                       - Set mute
    VOLUME UP|DOWN|<0-100>            - Step or set volume
    KEYBOARD <text>                   - Type text

  Pairing:
    PINCODE REQUEST                   - Show a PIN on the device
    PINCODE <hex>                     - Submit the PIN

  Debug:
    DEBUG RAW:<frame hex>             - Send a raw frame
    DEBUG MSG:<payload hex>           - Handle a payload as if received

  Session:
    status                            - Show session and device state
    reconnect                         - Reconnect now
    disconnect                        - Close the connection
    help                              - Show this help
    quit                              - Exit`)
}
