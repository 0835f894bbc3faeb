// Package cmd wires up the CLI flags and dispatches to the core modes.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"wbtcp/config"
	"wbtcp/internal/core"
	"wbtcp/internal/metrics"
	"wbtcp/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X wbtcp/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// stdout and stderr are swapped out by tests.
var (
	stdout io.Writer = os.Stdout //nolint:gochecknoglobals
	stderr io.Writer = os.Stderr //nolint:gochecknoglobals
)

// flags holds the raw command-line values before they are merged into
// a Config.  Only flags the user actually set override the file and
// environment.
type flags struct {
	listen    string
	connect   string
	file      string
	once      bool
	timeout   int
	retries   int
	srcPort   int
	events    []string
	def       string
	registers []string
	verbose   int
	stats     bool
	dryRun    bool
}

// Execute parses args and runs the appropriate wbtcp mode.
func Execute(ctx context.Context, args []string) error {
	var f flags
	fs := flag.NewFlagSet("wbtcp", flag.ContinueOnError)
	fs.SetOutput(stderr)

	// ── server ───────────────────────────────────────────────────
	fs.StringVarP(&f.listen, "listen", "l", config.DefaultListenAddress, "Listen address (host:port)")
	fs.BoolVar(&f.once, "once", false, "Exit after the first client disconnects")
	fs.StringArrayVarP(&f.events, "event", "e", nil, "Event name for wait_event (repeatable, round-robin)")
	fs.StringVar(&f.def, "default", config.DefaultRegisterValue, "Value of unmapped registers (hex or std_logic)")
	fs.StringArrayVarP(&f.registers, "register", "r", nil, "Preset register ADDR=VALUE (repeatable)")

	// ── client ───────────────────────────────────────────────────
	fs.StringVarP(&f.connect, "connect", "c", "", "Connect to a server instead of serving")
	fs.IntVarP(&f.timeout, "timeout", "w", int(config.DefaultClientTimeout/time.Second), "Reply timeout in seconds (client)")
	fs.IntVar(&f.retries, "retry", 0, "Dial attempts while the server is not up yet (client)")
	fs.IntVarP(&f.srcPort, "source-port", "p", 0, "Local source port to dial from (client)")

	// ── config / output ──────────────────────────────────────────
	fs.StringVarP(&f.file, "config", "f", "", "YAML config file")
	fs.CountVarP(&f.verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVar(&f.stats, "stats", false, "Print session statistics as JSON on exit")
	fs.BoolVar(&f.dryRun, "dry-run", false, "Validate the configuration and exit")

	var showVersion, showHelp bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Fprintf(stdout, "wbtcp %s\n", version)
		return nil
	}

	// ── merge: defaults < file < env < flags ─────────────────────
	cfg, err := loadConfig(fs, &f)
	if err != nil {
		return err
	}
	cfg.Command = strings.Join(fs.Args(), " ")

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}

	// ── build components ─────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)
	logger.SetOutput(stderr)
	logger.SetReportOutput(stdout)
	if tty, ok := stderr.(*os.File); !ok || !util.IsTerminal(tty) {
		logger.SetTimestamps(true)
	}

	collector := metrics.New()
	mode, err := core.Build(cfg, logger, collector)
	if err != nil {
		return err
	}

	if cfg.DryRun {
		describe(cfg)
		return nil
	}

	err = mode.Run(ctx)
	if cfg.Stats {
		fmt.Fprintln(stderr, collector.JSON())
	}
	return err
}

// ── helpers ──────────────────────────────────────────────────────────

// loadConfig builds the effective configuration.
func loadConfig(fs *flag.FlagSet, f *flags) (*config.Config, error) {
	cfg := config.New()

	path := config.ConfigFileFromEnv()
	if fs.Changed("config") {
		path = f.file
	}
	if path != "" {
		if err := config.LoadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	config.LoadFromEnv(cfg)

	if fs.Changed("listen") {
		cfg.Listen = f.listen
	}
	if fs.Changed("connect") {
		cfg.Connect = f.connect
	}
	if fs.Changed("once") {
		cfg.Once = f.once
	}
	if fs.Changed("timeout") {
		cfg.Timeout = time.Duration(f.timeout) * time.Second
	}
	if fs.Changed("retry") {
		cfg.Retries = f.retries
	}
	if fs.Changed("source-port") {
		cfg.SourcePort = f.srcPort
	}
	if fs.Changed("event") {
		cfg.Events = f.events
	}
	if fs.Changed("default") {
		cfg.DefaultValue = f.def
	}
	if len(f.registers) > 0 {
		if cfg.Registers == nil {
			cfg.Registers = make(map[string]string, len(f.registers))
		}
		for _, r := range f.registers {
			addr, value, ok := strings.Cut(r, "=")
			if !ok {
				return nil, fmt.Errorf("register %q: want ADDR=VALUE", r)
			}
			cfg.Registers[strings.TrimSpace(addr)] = strings.TrimSpace(value)
		}
	}
	if fs.Changed("verbose") {
		cfg.Verbose = f.verbose
	}
	if fs.Changed("stats") {
		cfg.Stats = f.stats
	}
	cfg.DryRun = f.dryRun
	return cfg, nil
}

// describe prints the effective configuration for --dry-run.
func describe(cfg *config.Config) {
	if cfg.ClientMode() {
		fmt.Fprintf(stdout, "mode:     connect\nserver:   %s\ntimeout:  %s\n", cfg.Connect, cfg.Timeout)
		if cfg.SourcePort > 0 {
			fmt.Fprintf(stdout, "source:   %s\n", util.FormatAddr("", cfg.SourcePort))
		}
		if cfg.Command != "" {
			fmt.Fprintf(stdout, "command:  %s\n", cfg.Command)
		}
		return
	}
	fmt.Fprintf(stdout, "mode:      serve\nlisten:    %s\nonce:      %v\nevents:    %s\ndefault:   %s\nregisters: %d\n",
		cfg.Listen, cfg.Once, strings.Join(cfg.Events, ","), cfg.DefaultValue, len(cfg.Registers))
	if cfg.ConfigFile != "" {
		fmt.Fprintf(stdout, "config:    %s\n", cfg.ConfigFile)
	}
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(stderr, `wbtcp – Wishbone over TCP v%s

Bridges a simulated wishbone bus to test clients over a line protocol.

Usage:
  wbtcp [options]                             Serve on %s
  wbtcp -c <host:port> [command]              Console or one-shot client

Protocol:
  write <addr> <data>    store data at addr            (no reply)
  read <addr>            read addr                     -> %%08x
  wait_event             block for the next event      -> event <name>
  debug                  dump registers on the server  (no reply)
  disconnect             close this connection         (no reply)
  exit                   stop the server               (no reply)

Options:
`, version, config.DefaultListenAddress)
	fs.PrintDefaults()
	fmt.Fprintf(stderr, `
Examples:
  wbtcp -v                                    Serve with connection logging
  wbtcp -e irq0 -e irq1 -r 1000=deadbeef      Preset a register, two events
  wbtcp -f bench.yaml --once --stats          Serve one client from a config file
  wbtcp -c 127.0.0.1:10022 read 1000          One-shot read
  wbtcp -c 127.0.0.1:10022                    Interactive console
`)
}
