package config

import (
	"testing"

	"wbtcp/internal/errors"
	"wbtcp/internal/logic"
)

// ── ParseEndpoint ────────────────────────────────────────────────────

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		input    string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{"127.0.0.1:10022", "127.0.0.1", 10022, false},
		{"localhost:0", "localhost", 0, false},
		{":8080", "", 8080, false},
		{"[::1]:10022", "::1", 10022, false},
		{"127.0.0.1", "", 0, true},
		{"host:abc", "", 0, true},
		{"host:70000", "", 0, true},
		{"", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			host, port, err := ParseEndpoint(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr = %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if host != tt.wantHost || port != tt.wantPort {
				t.Errorf("got (%q, %d), want (%q, %d)", host, port, tt.wantHost, tt.wantPort)
			}
		})
	}
}

// ── ParseValue ───────────────────────────────────────────────────────

func TestParseValue(t *testing.T) {
	undef, _ := logic.ParseVector("XXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXX")

	tests := []struct {
		input   string
		want    logic.Vector
		wantErr bool
	}{
		{"deadbeef", logic.Encode(0xdeadbeef), false},
		{" 0 ", logic.Encode(0), false},
		{"XXXXXXXX_XXXXXXXX_XXXXXXXX_XXXXXXXX", undef, false},
		{"11111111111111111111111111111111", logic.Encode(0xffffffff), false},
		{"123456789", logic.Vector{}, true},
		{"XX", logic.Vector{}, true},
		{"", logic.Vector{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseValue(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr = %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

// ── RegisterMap ──────────────────────────────────────────────────────

func TestRegisterMap(t *testing.T) {
	cfg := New()
	cfg.Registers = map[string]string{
		"1000": "cafef00d",
		"4":    "UUUUUUUUUUUUUUUUUUUUUUUUUUUUUUUU",
	}
	regs, err := cfg.RegisterMap()
	if err != nil {
		t.Fatalf("RegisterMap: %v", err)
	}
	if len(regs) != 2 {
		t.Fatalf("len = %d, want 2", len(regs))
	}
	if w, _ := logic.Decode(regs[0x1000]); w != 0xcafef00d {
		t.Errorf("0x1000 = %08x, want cafef00d", w)
	}
	if _, undef := logic.Decode(regs[4]); undef != logic.Width {
		t.Errorf("0x4 undefined bits = %d, want %d", undef, logic.Width)
	}

	cfg.Registers = map[string]string{"0x10": "0"}
	if _, err := cfg.RegisterMap(); err == nil {
		t.Error("expected error for 0x-prefixed address")
	}
}

// ── Validate ─────────────────────────────────────────────────────────

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"ephemeral port", func(c *Config) { c.Listen = "127.0.0.1:0" }, false},
		{"bad listen", func(c *Config) { c.Listen = "nope" }, true},
		{"no events", func(c *Config) { c.Events = nil }, true},
		{"empty event", func(c *Config) { c.Events = []string{"evt1", ""} }, true},
		{"multiline event", func(c *Config) { c.Events = []string{"a\nb"} }, true},
		{"bad default", func(c *Config) { c.DefaultValue = "zz" }, true},
		{"bad register", func(c *Config) { c.Registers = map[string]string{"g": "0"} }, true},
		{"command without connect", func(c *Config) { c.Command = "read 0" }, true},
		{"client", func(c *Config) { c.Connect = "127.0.0.1:10022" }, false},
		{"client with command", func(c *Config) {
			c.Connect = "127.0.0.1:10022"
			c.Command = "read 0"
		}, false},
		{"client bad endpoint", func(c *Config) { c.Connect = "10022" }, true},
		{"client negative timeout", func(c *Config) {
			c.Connect = "127.0.0.1:10022"
			c.Timeout = -1
		}, true},
		{"client negative retry", func(c *Config) {
			c.Connect = "127.0.0.1:10022"
			c.Retries = -1
		}, true},
		{"client source port", func(c *Config) {
			c.Connect = "127.0.0.1:10022"
			c.SourcePort = 40000
		}, false},
		{"client bad source port", func(c *Config) {
			c.Connect = "127.0.0.1:10022"
			c.SourcePort = 70000
		}, true},
		{"client once", func(c *Config) {
			c.Connect = "127.0.0.1:10022"
			c.Once = true
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr = %v", err, tt.wantErr)
			}
			if err != nil {
				var ce *errors.ConfigError
				if !errors.As(err, &ce) {
					t.Errorf("error type = %T, want *ConfigError", err)
				}
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	cfg := New()
	if cfg.Listen != DefaultListenAddress {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if len(cfg.Events) != 1 || cfg.Events[0] != DefaultEventName {
		t.Errorf("Events = %v", cfg.Events)
	}
	if cfg.Timeout != DefaultClientTimeout {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}
	if cfg.ClientMode() {
		t.Error("default config should be server mode")
	}
}
