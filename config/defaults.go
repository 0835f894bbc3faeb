package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, config file parsing, and environment variable
// loading.

const (
	// DefaultListenAddress is where testbenches conventionally expect
	// the wishbone server.
	DefaultListenAddress = "127.0.0.1:10022"

	// DefaultEventName answers wait_event when no events are configured.
	DefaultEventName = "evt1"

	// DefaultRegisterValue is what unmapped registers read as.
	DefaultRegisterValue = "00000000"

	// DefaultClientTimeout bounds the wait for a reply in client mode.
	// wait_event can legitimately take long, so it is generous.
	DefaultClientTimeout = 60 * time.Second

	// DefaultVerbosity shows connects, disconnects and warnings.
	DefaultVerbosity = 1
)
