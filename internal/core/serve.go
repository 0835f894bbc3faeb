package core

import (
	"context"
	"io"
	"net"

	"wbtcp/internal/errors"
	"wbtcp/internal/logic"
	"wbtcp/internal/metrics"
	"wbtcp/internal/peripheral"
	"wbtcp/internal/protocol"
	"wbtcp/internal/session"
	"wbtcp/util"
)

// ServeMode binds a Session and drives it with a Peripheral, the way an
// HDL testbench drives the server: every read, write and wait_event is
// forwarded to the peripheral and answered from it.
//
// With KeepOpen=false it returns once the first client disconnects.
// An exit command always ends the run.
type ServeMode struct {
	Address    string // "host:port"
	KeepOpen   bool
	Peripheral peripheral.Peripheral
	Logger     *util.Logger
	Metrics    *metrics.Collector

	// DebugOutput receives the debug register dump.  Defaults to the
	// logger's report output.
	DebugOutput io.Writer

	// Bound, when set, is called with the listening address once the
	// socket is bound.
	Bound func(net.Addr)
}

// Run binds the listener and serves clients until exit, cancellation,
// or (without KeepOpen) the first disconnect.
func (m *ServeMode) Run(ctx context.Context) error {
	debugOut := m.DebugOutput
	if debugOut == nil {
		debugOut = m.Logger.ReportOutput()
	}

	sess, err := session.New(m.Address,
		session.WithLogger(m.Logger),
		session.WithMetrics(m.Metrics),
		session.WithDebugOutput(debugOut),
	)
	if err != nil {
		return err
	}
	defer sess.Close()

	m.Logger.Info("listening on %s", sess.Addr())
	if m.Bound != nil {
		m.Bound(sess.Addr())
	}

	// Close the session when the context expires so a blocked Accept or
	// WaitForLine returns.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			sess.Close()
		case <-done:
		}
	}()

	for {
		if err := sess.Accept(); err != nil {
			if ctx.Err() != nil || errors.Is(err, errors.ErrSessionClosed) {
				return nil
			}
			return err
		}

		exit, err := m.serve(sess)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if exit {
			m.Logger.Info("exit requested, shutting down")
			return nil
		}
		if !m.KeepOpen {
			return nil
		}
		m.Logger.Verbose("waiting for next client")
	}
}

// serve handles one client until it disconnects or asks to exit.
func (m *ServeMode) serve(sess *session.Session) (exit bool, err error) {
	for {
		msg, err := sess.WaitForLine()
		if err != nil {
			return false, err
		}

		switch msg {
		case protocol.ReadData:
			addr, _ := sess.AddrData()
			err = sess.WriteReadVector(m.Peripheral.Read(addr))

		case protocol.WriteData:
			addr, data := sess.AddrData()
			m.Peripheral.Write(addr, data)

		case protocol.WaitEvent:
			err = sess.WriteEvent(m.Peripheral.WaitEvent())

		case protocol.Debug:
			m.report()

		case protocol.ParsingErr:
			m.Logger.Warn("ignoring malformed command")

		case protocol.Disconnected:
			return false, nil

		case protocol.Exit:
			return true, nil
		}

		if err != nil {
			// A peer that vanished mid-reply shows up as Disconnected
			// on the next read.
			if errors.IsDisconnect(err) {
				m.Logger.Verbose("reply not delivered: %v", err)
				continue
			}
			return false, err
		}
	}
}

// registerLister is implemented by peripherals that can enumerate their
// registers.
type registerLister interface {
	Addresses() []uint32
	Lookup(addr uint32) (logic.Vector, bool)
}

// report prints every mapped register of the peripheral, if it can
// list them.
func (m *ServeMode) report() {
	rl, ok := m.Peripheral.(registerLister)
	if !ok {
		return
	}
	addrs := rl.Addresses()
	m.Logger.Report("%d mapped register(s)", len(addrs))
	for _, a := range addrs {
		v, _ := rl.Lookup(a)
		m.Logger.Report("0x%08x: %s", a, v)
	}
}
