package core

import (
	"wbtcp/config"
	"wbtcp/internal/metrics"
	"wbtcp/internal/peripheral"
	"wbtcp/internal/retry"
	"wbtcp/internal/transport"
	"wbtcp/util"
)

// Build constructs the appropriate Mode from the given configuration.
// The configuration is expected to have passed Validate.
func Build(cfg *config.Config, logger *util.Logger, m *metrics.Collector) (Mode, error) {
	if cfg.ClientMode() {
		return buildConnect(cfg, logger), nil
	}
	return buildServe(cfg, logger, m)
}

// ── mode builders ────────────────────────────────────────────────────

func buildConnect(cfg *config.Config, logger *util.Logger) Mode {
	m := &ConnectMode{
		Dialer:  &transport.TCPDialer{Timeout: cfg.Timeout, LocalPort: cfg.SourcePort},
		Address: cfg.Connect,
		Timeout: cfg.Timeout,
		Command: cfg.Command,
		Logger:  logger,
	}
	if cfg.Retries > 1 {
		m.Retry = retry.ForAttempts(cfg.Retries)
	}
	return m
}

func buildServe(cfg *config.Config, logger *util.Logger, m *metrics.Collector) (Mode, error) {
	regs, err := buildRegisterFile(cfg)
	if err != nil {
		return nil, err
	}
	logger.Verbose("register file: %d preset register(s), events %v", regs.Len(), cfg.Events)

	return &ServeMode{
		Address:    cfg.Listen,
		KeepOpen:   !cfg.Once,
		Peripheral: regs,
		Logger:     logger,
		Metrics:    m,
	}, nil
}

// ── shared helpers ───────────────────────────────────────────────────

// buildRegisterFile creates the simulated peripheral from the default
// value, the preset registers and the event list.
func buildRegisterFile(cfg *config.Config) (*peripheral.RegisterFile, error) {
	def, err := config.ParseValue(cfg.DefaultValue)
	if err != nil {
		return nil, err
	}
	presets, err := cfg.RegisterMap()
	if err != nil {
		return nil, err
	}

	events := cfg.Events
	if len(events) == 0 {
		events = []string{config.DefaultEventName}
	}

	regs := peripheral.NewRegisterFile(def, events...)
	for addr, v := range presets {
		regs.Preset(addr, v)
	}
	return regs, nil
}
