// Package session owns the listening socket and the single client
// connection of a wishbone TCP server, and turns received lines into
// message kinds for the simulation that drives it.
//
// The driver calls into a Session from one goroutine only:
//
//	sess, err := session.New("127.0.0.1:10022")
//	for {
//		sess.Accept()
//		for {
//			msg, err := sess.WaitForLine()
//			switch msg {
//			case protocol.ReadData:
//				addr, _ := sess.Pending()
//				sess.WriteReadResponse(memory[addr])
//			...
//			}
//		}
//	}
//
// Close is the one exception; it may be called from elsewhere to
// unblock a pending Accept or WaitForLine.
package session

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"

	"wbtcp/internal/errors"
	"wbtcp/internal/logic"
	"wbtcp/internal/metrics"
	"wbtcp/internal/protocol"
	"wbtcp/util"
)

// State is the connection state of a Session.
type State int

const (
	// Idle means no client is connected.
	Idle State = iota
	// Connected means a client is attached and lines can be read.
	Connected
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// Session is one server instance: a bound listener, at most one client
// connection, and the address/data registers filled by the last read or
// write command.
type Session struct {
	endpoint string
	listener *net.TCPListener
	logger   *util.Logger
	metrics  *metrics.Collector
	debugOut io.Writer

	mu     sync.Mutex // guards conn and closed against Close
	conn   net.Conn
	closed bool

	reader *bufio.Reader
	addr   uint32
	data   uint32
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the diagnostic logger.  The default logs errors only.
func WithLogger(l *util.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Session) { s.metrics = m }
}

// WithDebugOutput sets where the debug command dumps the registers.
// The default is os.Stdout.
func WithDebugOutput(w io.Writer) Option {
	return func(s *Session) { s.debugOut = w }
}

// New resolves endpoint ("host:port") and binds a listener to the first
// address it names.  Resolution and bind failures are fatal.
func New(endpoint string, opts ...Option) (*Session, error) {
	s := &Session{
		endpoint: endpoint,
		logger:   util.NewLogger(0),
		debugOut: os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}

	addr, err := util.ResolveEndpoint(endpoint)
	if err != nil {
		return nil, s.fatal("resolve", endpoint, err)
	}
	ln, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return nil, s.fatal("listen", endpoint, err)
	}
	s.listener = ln

	s.logger.Verbose("listening on %s", ln.Addr())
	return s, nil
}

// Addr returns the bound listener address.
func (s *Session) Addr() net.Addr { return s.listener.Addr() }

// State reports whether a client is attached.
func (s *Session) State() State {
	if s.Connected() {
		return Connected
	}
	return Idle
}

// Connected reports whether a client is attached.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Pending returns the address and data registers.  They are only fresh
// right after WaitForLine returned ReadData (address) or WriteData
// (address and data).
func (s *Session) Pending() (addr, data uint32) {
	return s.addr, s.data
}

// AddrData returns the pending registers as logic vectors.
func (s *Session) AddrData() (addr, data logic.Vector) {
	return logic.Encode(s.addr), logic.Encode(s.data)
}

// Accept blocks until a client connects.  A connection that is still
// attached is closed and replaced by the new one.
func (s *Session) Accept() error {
	conn, err := s.listener.Accept()
	if err != nil {
		if s.isClosed() {
			return errors.ErrSessionClosed
		}
		return s.fatal("accept", s.endpoint, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return errors.ErrSessionClosed
	}
	prev := s.conn
	s.conn = conn
	s.mu.Unlock()

	if prev != nil {
		s.logger.Verbose("dropping %s for new client", prev.RemoteAddr())
		prev.Close()
		s.metrics.ConnectionClosed()
	}

	s.reader = bufio.NewReader(conn)
	s.metrics.ConnectionOpened()
	s.logger.Info("connected: %s", conn.RemoteAddr())
	return nil
}

// WaitForLine blocks for the next line from the client and classifies
// it.  Without a client, or once the client has closed its side, it
// returns Disconnected without reading.  Only a broken socket produces
// an error.
func (s *Session) WaitForLine() (protocol.MsgType, error) {
	if s.reader == nil {
		return s.count(protocol.Disconnected), nil
	}

	line, err := s.reader.ReadString('\n')
	s.metrics.BytesReceived(int64(len(line)))
	if err != nil && err != io.EOF {
		if errors.IsDisconnect(err) {
			s.logger.Verbose("read: %v", err)
			s.drop()
			return s.count(protocol.Disconnected), nil
		}
		return protocol.Disconnected, s.fatal("read", s.peer(), err)
	}
	if len(line) == 0 {
		s.drop()
		return s.count(protocol.Disconnected), nil
	}

	return s.count(s.apply(line)), nil
}

// apply parses line and performs the command's effect on the session.
func (s *Session) apply(line string) protocol.MsgType {
	cmd := protocol.Parse(line)

	switch cmd.Type {
	case protocol.WriteData:
		s.addr, s.data = cmd.Addr, cmd.Data
	case protocol.ReadData:
		s.addr = cmd.Addr
	case protocol.Debug:
		s.dump()
	case protocol.Disconnected:
		s.drop()
	case protocol.ParsingErr:
		s.logger.Verbose("parsing error: %q", strings.TrimRight(line, "\r\n"))
	}

	s.logger.Debug("%s: %q", cmd.Type, strings.TrimRight(line, "\r\n"))
	return cmd.Type
}

// dump prints the registers to the debug output.
func (s *Session) dump() {
	fmt.Fprintf(s.debugOut, "Address: 0x%08x\n", s.addr)
	fmt.Fprintf(s.debugOut, "Data: 0x%08x\n", s.data)
}

// WriteReadResponse answers a read command with word.  Without a client
// the response is dropped.
func (s *Session) WriteReadResponse(word uint32) error {
	return s.send(protocol.FormatReadResponse(word))
}

// WriteReadVector answers a read command with a logic vector.  Elements
// that are neither high nor low are sent as '0' and logged.
func (s *Session) WriteReadVector(v logic.Vector) error {
	word, undefined := logic.Decode(v)
	if undefined > 0 {
		s.logger.Warn("std_logic_vector %s has %d undefined/unknown/high-z/don't-care bits, treating them as '0'",
			v, undefined)
		s.metrics.UndefinedBits(undefined)
	}
	return s.WriteReadResponse(word)
}

// WriteEvent sends an event notification.  Without a client it is
// dropped.
func (s *Session) WriteEvent(name string) error {
	return s.send(protocol.FormatEvent(name))
}

func (s *Session) send(msg string) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		s.logger.Debug("no client, dropping %q", strings.TrimRight(msg, "\n"))
		return nil
	}

	n, err := io.WriteString(conn, msg)
	s.metrics.BytesSent(int64(n))
	if err != nil {
		return s.fatal("write", s.peer(), err)
	}
	return nil
}

// drop closes the client connection in both directions and returns the
// session to Idle.
func (s *Session) drop() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	s.reader = nil
	if conn == nil {
		return
	}
	if err := conn.Close(); err != nil {
		s.logger.Debug("close %s: %v", conn.RemoteAddr(), err)
	}
	s.metrics.ConnectionClosed()
	s.logger.Info("disconnected: %s", conn.RemoteAddr())
}

// Close shuts the listener and any client connection.  Pending Accept
// and WaitForLine calls return, and the session reports Idle from then
// on.  Close is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	conn := s.conn
	s.conn = nil
	if conn != nil {
		s.metrics.ConnectionClosed()
	}
	s.mu.Unlock()

	var errs []error
	if conn != nil {
		errs = append(errs, conn.Close())
	}
	errs = append(errs, s.listener.Close())
	return errors.Join(errs...)
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) peer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ""
	}
	return s.conn.RemoteAddr().String()
}

func (s *Session) count(t protocol.MsgType) protocol.MsgType {
	s.metrics.CommandReceived(t)
	return t
}

func (s *Session) fatal(op, addr string, err error) error {
	fe := errors.Fatal(op, addr, err)
	s.metrics.RecordError(fe.Error())
	return fe
}
