package config

// loader.go - configuration loading from a YAML file and environment
// variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables
//   3. Config file (-f / WBTCP_CONFIG)
//   4. Defaults   (defaults.go)

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"wbtcp/internal/errors"
)

// File is the on-disk YAML layout.  Omitted keys leave the current
// value alone.
//
//	listen: 127.0.0.1:10022
//	verbose: 2
//	events: [evt1, irq_dma]
//	default: UUUUUUUUUUUUUUUUUUUUUUUUUUUUUUUU
//	registers:
//	  "1000": deadbeef
//	  "1004": XXXXXXXX_XXXXXXXX_00000000_11111111
type File struct {
	Listen    string            `yaml:"listen,omitempty"`
	Once      *bool             `yaml:"once,omitempty"`
	Verbose   *int              `yaml:"verbose,omitempty"`
	Events    []string          `yaml:"events,omitempty"`
	Default   string            `yaml:"default,omitempty"`
	Registers map[string]string `yaml:"registers,omitempty"`
}

// LoadFile overlays the YAML file at path onto cfg.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if f.Listen != "" {
		cfg.Listen = f.Listen
	}
	if f.Once != nil {
		cfg.Once = *f.Once
	}
	if f.Verbose != nil {
		cfg.Verbose = *f.Verbose
	}
	if len(f.Events) > 0 {
		cfg.Events = f.Events
	}
	if f.Default != "" {
		cfg.DefaultValue = f.Default
	}
	if len(f.Registers) > 0 {
		if cfg.Registers == nil {
			cfg.Registers = make(map[string]string, len(f.Registers))
		}
		for k, v := range f.Registers {
			cfg.Registers[k] = v
		}
	}
	cfg.ConfigFile = path
	return nil
}

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the WBTCP_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("WBTCP_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("WBTCP_CONNECT"); v != "" {
		cfg.Connect = v
	}
	if envBool("WBTCP_ONCE") {
		cfg.Once = true
	}
	if v := os.Getenv("WBTCP_EVENTS"); v != "" {
		cfg.Events = splitList(v)
	}
	if v := os.Getenv("WBTCP_DEFAULT"); v != "" {
		cfg.DefaultValue = v
	}
	if v := envInt("WBTCP_TIMEOUT"); v > 0 {
		cfg.Timeout = secondsDuration(v)
	}
	if v := envInt("WBTCP_RETRY"); v > 0 {
		cfg.Retries = v
	}
	if v, ok := lookupInt("WBTCP_SOURCE_PORT"); ok {
		cfg.SourcePort = v
	}
	if v, ok := lookupInt("WBTCP_VERBOSE"); ok && v >= 0 {
		cfg.Verbose = v
	}
	if envBool("WBTCP_STATS") {
		cfg.Stats = true
	}
}

// ConfigFileFromEnv returns the config file named by WBTCP_CONFIG.
func ConfigFileFromEnv() string {
	return os.Getenv("WBTCP_CONFIG")
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	n, _ := lookupInt(key)
	return n
}

// lookupInt reports whether key is set to a valid integer, so that an
// explicit 0 can be told apart from an unset variable.
func lookupInt(key string) (int, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func secondsDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}
