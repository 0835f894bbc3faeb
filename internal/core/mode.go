// Package core is the orchestration layer.  It composes the session,
// the peripheral model and the client into complete operational modes
// and provides a builder that selects the right mode from a Config.
//
// Architecture layers (bottom → top):
//
//	logic/protocol  →  session / client  →  core  →  cmd (CLI)
package core

import "context"

// Mode represents a complete operational mode of wbtcp (serve or
// connect).  Each mode owns its full lifecycle from bind or dial to
// teardown.
type Mode interface {
	Run(ctx context.Context) error
}
