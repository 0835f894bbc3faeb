package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"wbtcp/internal/client"
	"wbtcp/internal/errors"
	"wbtcp/internal/protocol"
	"wbtcp/internal/retry"
	"wbtcp/internal/transport"
	"wbtcp/util"
)

const consolePrompt = "wb> "

// ConnectMode dials a running server and either sends one command or
// runs an interactive console that forwards every line typed.
type ConnectMode struct {
	Dialer  transport.Dialer
	Address string
	Timeout time.Duration  // per-reply wait; 0 waits forever
	Command string         // one command to send; empty for a console
	Retry   *retry.Backoff // nil dials once
	Logger  *util.Logger

	// Stdin/Stdout default to os.Stdin/os.Stdout when nil.
	// Override in tests for deterministic I/O.
	Stdin  io.Reader
	Stdout io.Writer
}

func (m *ConnectMode) stdin() io.Reader {
	if m.Stdin != nil {
		return m.Stdin
	}
	return os.Stdin
}

func (m *ConnectMode) stdout() io.Writer {
	if m.Stdout != nil {
		return m.Stdout
	}
	return os.Stdout
}

// Run dials the server and talks to it.  The transport is closed when
// Run returns.
func (m *ConnectMode) Run(ctx context.Context) error {
	defer m.Dialer.Close()

	m.Logger.Verbose("connecting to %s", m.Address)

	c, err := m.dial(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	m.Logger.Verbose("connected to %s", c.RemoteAddr())

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-done:
		}
	}()

	if m.Command != "" {
		_, err := m.do(c, m.Command)
		return err
	}
	return m.console(ctx, c)
}

// dial connects, retrying while the server refuses if Retry is set.
func (m *ConnectMode) dial(ctx context.Context) (*client.Client, error) {
	if m.Retry == nil {
		return client.Dial(ctx, m.Dialer, m.Address, m.Timeout)
	}

	var c *client.Client
	err := m.Retry.Do(ctx, func(attempt int) error {
		var err error
		c, err = client.Dial(ctx, m.Dialer, m.Address, m.Timeout)
		if err != nil && attempt > 1 {
			m.Logger.Verbose("attempt %d: %v", attempt, err)
		}
		return err
	})
	return c, err
}

// console forwards lines until end of input, exit or disconnect.
// Malformed lines typed at a terminal are reported and skipped; in
// piped input they end the run with ErrInvalidCommand.
func (m *ConnectMode) console(ctx context.Context, c *client.Client) error {
	le := util.NewLineEditor(m.stdin())
	defer le.Close()

	for {
		line, err := le.ReadLine(consolePrompt)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		last, err := m.do(c, line)
		switch {
		case errors.Is(err, errors.ErrInvalidCommand) && le.Interactive():
			m.Logger.Warn("%v", err)
			continue
		case err != nil:
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if last {
			return nil
		}
	}
}

// do sends one line and prints its reply.  last reports whether the
// line ended the session.
func (m *ConnectMode) do(c *client.Client, line string) (last bool, err error) {
	reply, hasReply, err := c.Do(line)
	if err != nil {
		return false, err
	}
	if hasReply {
		fmt.Fprintln(m.stdout(), reply)
	}
	switch protocol.Parse(line).Type {
	case protocol.Disconnected, protocol.Exit:
		return true, nil
	}
	return false, nil
}
