package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"

	"i4.energy/across/ltem/action"
	"i4.energy/across/ltem/geo"
	"i4.energy/across/ltem/info"
)

// consoleTimeout is the budget of raw AT commands typed at the console.
const consoleTimeout = 5 * time.Second

// Console is the interactive AT console.
type Console struct {
	Modem Modem
	Lock  sync.Locker

	rl  *readline.Instance
	out io.Writer
}

// NewConsole creates the console on the terminal. Modem and Lock must be
// set before Run.
func NewConsole() (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "ltem> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Console{rl: rl, out: rl.Stdout()}, nil
}

// Stderr returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (c *Console) Stderr() io.Writer {
	return c.rl.Stderr()
}

// Run reads commands until EOF, quit or ctx is done, then calls cancel.
func (c *Console) Run(ctx context.Context, cancel func()) {
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
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}

		if quit := c.exec(ctx, line); quit {
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}
	}
}

// exec runs one console line. It reports true when the console should
// exit.
func (c *Console) exec(ctx context.Context, line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}

	if len(input) >= 2 && strings.EqualFold(input[:2], "AT") {
		c.cmdAT(ctx, input)
		return false
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()
	case "status", "s":
		c.cmdStatus()
	case "info", "i":
		c.cmdInfo(ctx)
	case "geo":
		c.cmdGeo(ctx, args)
	case "reset":
		c.cmdReset(ctx, args)
	case "quit", "exit", "q":
		return true
	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
LTE modem console:
  AT...              - Send a raw AT command
  status             - Show device state
  info               - Show modem identity and signal
  geo <id>           - Query position relative to a geofence
  reset [restart]    - Pulse the reset line, optionally restart the stack
  quit               - Exit`)
}

func (c *Console) withInvoker(fn func(inv action.Invoker)) {
	c.Lock.Lock()
	defer c.Lock.Unlock()
	inv, err := c.Modem.Invoker()
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fn(inv)
}

func (c *Console) cmdAT(ctx context.Context, cmd string) {
	c.withInvoker(func(inv action.Invoker) {
		res := inv.Dispatch(ctx, cmd, action.WithTimeout(consoleTimeout))
		for _, line := range res.Lines {
			fmt.Fprintln(c.out, line)
		}
		if res.Final != "" {
			fmt.Fprintln(c.out, res.Final)
		}
		if err := res.Err(); err != nil {
			fmt.Fprintf(c.out, "[%s] %v\n", res.Code, err)
			return
		}
		fmt.Fprintf(c.out, "[%s in %v]\n", res.Code, res.Duration.Round(time.Millisecond))
	})
}

func (c *Console) cmdStatus() {
	c.Lock.Lock()
	defer c.Lock.Unlock()
	fmt.Fprintf(c.out, "state: %s\nready: %s\nlevel: %s\n",
		c.Modem.State(), c.Modem.ReadyState(), c.Modem.Level())
}

func (c *Console) cmdInfo(ctx context.Context) {
	c.withInvoker(func(inv action.Invoker) {
		m, err := info.Cached(ctx, inv, c.Modem)
		if err != nil {
			fmt.Fprintf(c.out, "Error: %v\n", err)
			return
		}
		fmt.Fprintf(c.out, "model:    %s\nfirmware: %s\nimei:     %s\niccid:    %s\n",
			m.Model, m.FirmwareVersion, m.IMEI, m.ICCID)
		rssi, err := info.RSSI(ctx, inv)
		if err != nil {
			fmt.Fprintf(c.out, "Error: %v\n", err)
			return
		}
		if rssi == info.RSSIUnknown {
			fmt.Fprintln(c.out, "rssi:     unknown")
			return
		}
		fmt.Fprintf(c.out, "rssi:     %d dBm (%d/5)\n", rssi, info.Bars(rssi, 5))
	})
}

func (c *Console) cmdGeo(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: geo <id>")
		return
	}
	var id uint8
	if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
		fmt.Fprintf(c.out, "Invalid geofence id: %s\n", args[0])
		return
	}
	c.withInvoker(func(inv action.Invoker) {
		pos, err := geo.Query(ctx, inv, id)
		if err != nil {
			fmt.Fprintf(c.out, "Error: %v\n", err)
			return
		}
		fmt.Fprintf(c.out, "geofence %d: %s\n", id, pos)
	})
}

func (c *Console) cmdReset(ctx context.Context, args []string) {
	restart := len(args) > 0 && args[0] == "restart"
	c.Lock.Lock()
	defer c.Lock.Unlock()
	if err := c.Modem.Reset(ctx, restart); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(c.out, "Modem reset")
}
