// Package config defines the runtime configuration for wbtcp and the
// helpers that parse endpoints, words and register values.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"wbtcp/internal/errors"
	"wbtcp/internal/logic"
	"wbtcp/internal/protocol"
)

// Config holds every tuneable for a wbtcp run.
type Config struct {
	// ── Server ───────────────────────────────────────────────────────
	Listen string // host:port to bind
	Once   bool   // stop after the first client disconnects

	// ── Simulated peripheral ─────────────────────────────────────────
	Events       []string          // wait_event replies, round-robin
	DefaultValue string            // value of unmapped registers
	Registers    map[string]string // hex address → hex word or std_logic string

	// ── Client console ───────────────────────────────────────────────
	Connect string        // host:port of a running server
	Command string        // one command to send instead of a console
	Timeout time.Duration // per-reply wait in client mode
	Retries int           // dial attempts while the server is starting

	// SourcePort binds the client socket to a fixed local port; 0 lets
	// the kernel pick one.
	SourcePort int

	// ── Output ───────────────────────────────────────────────────────
	ConfigFile string
	Verbose    int
	Stats      bool
	DryRun     bool
}

// New returns a Config populated with the defaults.
func New() *Config {
	return &Config{
		Listen:       DefaultListenAddress,
		Events:       []string{DefaultEventName},
		DefaultValue: DefaultRegisterValue,
		Timeout:      DefaultClientTimeout,
		Verbose:      DefaultVerbosity,
	}
}

// ClientMode reports whether the run is a client console.
func (c *Config) ClientMode() bool { return c.Connect != "" }

// ── Endpoint and value helpers ───────────────────────────────────────

// ParseEndpoint splits "host:port" and checks the port number.  An
// empty host means all interfaces; port 0 picks a free port.
func ParseEndpoint(s string) (host string, port int, err error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return "", 0, fmt.Errorf("invalid endpoint %q: %w", s, err)
	}
	port, err = strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q", portStr)
	}
	if port < 0 || port > 65535 {
		return "", 0, fmt.Errorf("port %d out of range 0-65535", port)
	}
	return host, port, nil
}

// ParseWord parses a 32-bit hex number in protocol syntax.
func ParseWord(s string) (uint32, error) {
	return protocol.ParseHex(strings.TrimSpace(s))
}

// ParseValue reads a register value written either as a hex word
// ("deadbeef") or as 32 std_logic characters ("XXXX_0000_...").
func ParseValue(s string) (logic.Vector, error) {
	s = strings.TrimSpace(s)
	if w, err := protocol.ParseHex(s); err == nil {
		return logic.Encode(w), nil
	}
	v, err := logic.ParseVector(s)
	if err != nil {
		return logic.Vector{}, fmt.Errorf("%q is neither a hex word nor a std_logic_vector(31 downto 0)", s)
	}
	return v, nil
}

// RegisterMap parses Registers.
func (c *Config) RegisterMap() (map[uint32]logic.Vector, error) {
	out := make(map[uint32]logic.Vector, len(c.Registers))
	for k, v := range c.Registers {
		addr, err := ParseWord(k)
		if err != nil {
			return nil, &errors.ConfigError{
				Field:   "registers",
				Value:   k,
				Message: "address is not a 32-bit hex number",
			}
		}
		vec, err := ParseValue(v)
		if err != nil {
			return nil, &errors.ConfigError{
				Field:   "registers",
				Value:   k + "=" + v,
				Message: err.Error(),
			}
		}
		out[addr] = vec
	}
	return out, nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.ClientMode() {
		if _, _, err := ParseEndpoint(c.Connect); err != nil {
			return &errors.ConfigError{
				Field: "connect", Value: c.Connect, Message: err.Error(),
				Hint: "use host:port, e.g. " + DefaultListenAddress,
			}
		}
		if c.Retries < 0 {
			return &errors.ConfigError{Field: "retry", Value: c.Retries, Message: "must not be negative"}
		}
		if c.Timeout < 0 {
			return &errors.ConfigError{Field: "timeout", Value: c.Timeout, Message: "must not be negative"}
		}
		if c.SourcePort < 0 || c.SourcePort > 65535 {
			return &errors.ConfigError{Field: "source-port", Value: c.SourcePort, Message: "out of range 0-65535"}
		}
		if c.Once {
			return &errors.ConfigError{Field: "once", Message: "only applies to server mode"}
		}
		return nil
	}

	if c.Command != "" {
		return &errors.ConfigError{
			Field: "connect", Message: "a command argument requires client mode",
			Hint: "wbtcp -c host:port read 20",
		}
	}
	if _, _, err := ParseEndpoint(c.Listen); err != nil {
		return &errors.ConfigError{
			Field: "listen", Value: c.Listen, Message: err.Error(),
			Hint: "use host:port, e.g. " + DefaultListenAddress,
		}
	}

	if len(c.Events) == 0 {
		return &errors.ConfigError{Field: "event", Message: "at least one event name is required"}
	}
	for _, e := range c.Events {
		if e == "" || strings.ContainsAny(e, "\r\n") {
			return &errors.ConfigError{
				Field: "event", Value: fmt.Sprintf("%q", e),
				Message: "event names must be non-empty single-line strings",
			}
		}
	}

	if _, err := ParseValue(c.DefaultValue); err != nil {
		return &errors.ConfigError{Field: "default", Value: c.DefaultValue, Message: err.Error()}
	}
	if _, err := c.RegisterMap(); err != nil {
		return err
	}
	return nil
}
