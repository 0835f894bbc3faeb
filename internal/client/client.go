// Package client speaks the wishbone TCP protocol from the test side.
//
// Every command is checked with the same parser the server uses before
// it is sent.  The server never answers a line it cannot parse, so
// sending one would leave the client waiting forever; such lines are
// refused locally with ErrInvalidCommand instead.
package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"wbtcp/internal/errors"
	"wbtcp/internal/protocol"
	"wbtcp/internal/transport"
)

// Client is a connection to a wishbone TCP server.  It is not safe for
// concurrent use; the protocol is strictly request/response.
type Client struct {
	conn    net.Conn
	r       *bufio.Reader
	addr    string
	timeout time.Duration
}

// Dial connects to addr.  A non-zero timeout bounds the wait for each
// reply.
func Dial(ctx context.Context, d transport.Dialer, addr string, timeout time.Duration) (*Client, error) {
	conn, err := d.Dial(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Fatal("dial", addr, err)
	}
	return &Client{
		conn:    conn,
		r:       bufio.NewReader(conn),
		addr:    addr,
		timeout: timeout,
	}, nil
}

// RemoteAddr returns the server address.
func (c *Client) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// Write stores data at addr.  The server does not acknowledge writes.
func (c *Client) Write(addr, data uint32) error {
	return c.send(protocol.Command{Type: protocol.WriteData, Addr: addr, Data: data})
}

// Read returns the word at addr.
func (c *Client) Read(addr uint32) (uint32, error) {
	if err := c.send(protocol.Command{Type: protocol.ReadData, Addr: addr}); err != nil {
		return 0, err
	}
	line, err := c.recv()
	if err != nil {
		return 0, err
	}
	word, err := protocol.ParseReadResponse(line)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrUnexpectedReply, err)
	}
	return word, nil
}

// WaitEvent blocks until the simulation raises an event.
func (c *Client) WaitEvent() (string, error) {
	if err := c.send(protocol.Command{Type: protocol.WaitEvent}); err != nil {
		return "", err
	}
	line, err := c.recv()
	if err != nil {
		return "", err
	}
	name, err := protocol.ParseEvent(line)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrUnexpectedReply, err)
	}
	return name, nil
}

// Debug asks the server to dump its registers on its own console.
func (c *Client) Debug() error {
	return c.send(protocol.Command{Type: protocol.Debug})
}

// Disconnect ends the session politely and closes the socket.
func (c *Client) Disconnect() error {
	err := c.send(protocol.Command{Type: protocol.Disconnected})
	return errors.Join(err, c.Close())
}

// Exit ends the simulation and closes the socket.
func (c *Client) Exit() error {
	err := c.send(protocol.Command{Type: protocol.Exit})
	return errors.Join(err, c.Close())
}

// Do sends one raw command line and returns the reply, if the command
// has one: the hex word for read, the event name for wait_event.
func (c *Client) Do(line string) (reply string, hasReply bool, err error) {
	cmd := protocol.Parse(line)
	switch cmd.Type {
	case protocol.ParsingErr:
		return "", false, fmt.Errorf("%w: %q", errors.ErrInvalidCommand, line)
	case protocol.ReadData:
		word, err := c.Read(cmd.Addr)
		if err != nil {
			return "", true, err
		}
		return fmt.Sprintf("%08x", word), true, nil
	case protocol.WaitEvent:
		name, err := c.WaitEvent()
		return name, true, err
	case protocol.Disconnected:
		return "", false, c.Disconnect()
	case protocol.Exit:
		return "", false, c.Exit()
	default:
		return "", false, c.send(cmd)
	}
}

// Close closes the socket without telling the server.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) send(cmd protocol.Command) error {
	if _, err := io.WriteString(c.conn, cmd.Line()+"\n"); err != nil {
		return errors.Fatal("write", c.addr, err)
	}
	return nil
}

func (c *Client) recv() (string, error) {
	if c.timeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.timeout)) //nolint:errcheck
	}
	line, err := c.r.ReadString('\n')
	if err != nil {
		if errors.IsDisconnect(err) {
			return "", fmt.Errorf("%s: %w", c.addr, errors.ErrNotConnected)
		}
		return "", errors.Fatal("read", c.addr, err)
	}
	return line, nil
}
