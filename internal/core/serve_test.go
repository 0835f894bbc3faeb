package core

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"wbtcp/internal/errors"
	"wbtcp/internal/logic"
	"wbtcp/internal/metrics"
	"wbtcp/internal/peripheral"
	"wbtcp/util"
)

// startServe runs m in the background and returns the bound address
// and a channel carrying Run's result.
func startServe(t *testing.T, ctx context.Context, m *ServeMode) (string, <-chan error) {
	t.Helper()

	bound := make(chan net.Addr, 1)
	m.Address = "127.0.0.1:0"
	m.Bound = func(a net.Addr) { bound <- a }
	if m.Logger == nil {
		m.Logger = util.NewLogger(0)
		m.Logger.SetReportOutput(io.Discard)
	}
	if m.DebugOutput == nil {
		m.DebugOutput = io.Discard
	}

	errc := make(chan error, 1)
	go func() { errc <- m.Run(ctx) }()

	select {
	case a := <-bound:
		return a.String(), errc
	case err := <-errc:
		t.Fatalf("Run: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not bind in time")
	}
	return "", nil
}

func waitRun(t *testing.T, errc <-chan error) error {
	t.Helper()
	select {
	case err := <-errc:
		return err
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down in time")
		return nil
	}
}

type wire struct {
	conn net.Conn
	r    *bufio.Reader
}

func dialWire(t *testing.T, addr string) *wire {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &wire{conn: conn, r: bufio.NewReader(conn)}
}

func (w *wire) send(t *testing.T, s string) {
	t.Helper()
	if _, err := w.conn.Write([]byte(s)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func (w *wire) recv(t *testing.T) string {
	t.Helper()
	w.conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
	line, err := w.r.ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return line
}

func TestServeMode_Session(t *testing.T) {
	undef, _ := logic.ParseVector("XXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXX")
	regs := peripheral.NewRegisterFile(logic.Encode(0), "evt1", "evt2")
	regs.Preset(0x20, undef)

	var dump, report bytes.Buffer
	logger := util.NewLogger(0)
	logger.SetReportOutput(&report)
	m := metrics.New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	addr, errc := startServe(t, ctx, &ServeMode{
		KeepOpen:    true,
		Peripheral:  regs,
		Logger:      logger,
		Metrics:     m,
		DebugOutput: &dump,
	})

	w := dialWire(t, addr)
	w.send(t, "write 1000 deadbeef\n")
	w.send(t, "read 1000\n")
	if got := w.recv(t); got != "deadbeef\n" {
		t.Errorf("read 1000 = %q, want %q", got, "deadbeef\n")
	}
	w.send(t, "read 20\r\n")
	if got := w.recv(t); got != "00000000\n" {
		t.Errorf("read 20 = %q, want %q", got, "00000000\n")
	}
	w.send(t, "read 44\n")
	if got := w.recv(t); got != "00000000\n" {
		t.Errorf("read 44 = %q, want default", got)
	}
	w.send(t, "wait_event\n")
	if got := w.recv(t); got != "event evt1\n" {
		t.Errorf("wait_event = %q", got)
	}
	w.send(t, "bogus line\nwait_event\n")
	if got := w.recv(t); got != "event evt2\n" {
		t.Errorf("wait_event after malformed line = %q", got)
	}
	w.send(t, "debug\nexit\n")

	if err := waitRun(t, errc); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if want := "Address: 0x00000044\nData: 0xdeadbeef\n"; dump.String() != want {
		t.Errorf("dump = %q, want %q", dump.String(), want)
	}
	if !strings.Contains(report.String(), "2 mapped register(s)") ||
		!strings.Contains(report.String(), "0x00001000: "+logic.Encode(0xdeadbeef).String()) {
		t.Errorf("report = %q", report.String())
	}
	if got := m.TotalUndefinedBits(); got != logic.Width {
		t.Errorf("undefined bits = %d, want %d", got, logic.Width)
	}
	if v, ok := regs.Lookup(0x1000); !ok || v != logic.Encode(0xdeadbeef) {
		t.Errorf("register 0x1000 = %s, %v", v, ok)
	}
}

func TestServeMode_Once(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	addr, errc := startServe(t, ctx, &ServeMode{
		Peripheral: peripheral.NewRegisterFile(logic.Encode(0), "evt1"),
	})

	w := dialWire(t, addr)
	w.send(t, "write 0 1\n")
	w.conn.Close()

	if err := waitRun(t, errc); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestServeMode_DisconnectCommand(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	addr, errc := startServe(t, ctx, &ServeMode{
		Peripheral: peripheral.NewRegisterFile(logic.Encode(0), "evt1"),
	})

	w := dialWire(t, addr)
	w.send(t, "disconnect\n")

	w.conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
	if _, err := w.r.ReadString('\n'); err == nil {
		t.Error("expected the server to close the socket without a reply")
	}
	if err := waitRun(t, errc); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestServeMode_KeepOpen(t *testing.T) {
	regs := peripheral.NewRegisterFile(logic.Encode(0), "evt1")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	addr, errc := startServe(t, ctx, &ServeMode{KeepOpen: true, Peripheral: regs})

	first := dialWire(t, addr)
	first.send(t, "write 8 cafef00d\n")
	first.send(t, "disconnect\n")

	// Registers outlive the connection.
	second := dialWire(t, addr)
	second.send(t, "read 8\n")
	if got := second.recv(t); got != "cafef00d\n" {
		t.Errorf("read 8 = %q, want %q", got, "cafef00d\n")
	}

	cancel()
	if err := waitRun(t, errc); err != nil {
		t.Fatalf("Run after cancel: %v", err)
	}
}

func TestServeMode_CancelWhileIdle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	_, errc := startServe(t, ctx, &ServeMode{
		KeepOpen:   true,
		Peripheral: peripheral.NewRegisterFile(logic.Encode(0), "evt1"),
	})

	cancel()
	if err := waitRun(t, errc); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestServeMode_CancelWhileConnected(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	addr, errc := startServe(t, ctx, &ServeMode{
		KeepOpen:   true,
		Peripheral: peripheral.NewRegisterFile(logic.Encode(0), "evt1"),
	})

	w := dialWire(t, addr)
	w.send(t, "read 0\n")
	w.recv(t)

	cancel()
	if err := waitRun(t, errc); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestServeMode_BindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	m := &ServeMode{
		Address:    ln.Addr().String(),
		Peripheral: peripheral.NewRegisterFile(logic.Encode(0), "evt1"),
		Logger:     util.NewLogger(0),
	}
	err = m.Run(context.Background())
	if err == nil {
		t.Fatal("expected bind error")
	}
	if !errors.IsFatal(err) {
		t.Errorf("error %v is not fatal", err)
	}
	if !strings.Contains(err.Error(), "listen") {
		t.Errorf("error %q does not name the operation", err)
	}
}
