// Package peripheral defines the simulation side of a bus transaction:
// what a read returns, where a write goes, and which event answers a
// wait_event.  Values cross this boundary as logic vectors, the way an
// HDL testbench sees them.
package peripheral

import "wbtcp/internal/logic"

// Peripheral is the device model behind the bus.
type Peripheral interface {
	// Read returns the value at addr.
	Read(addr logic.Vector) logic.Vector
	// Write stores data at addr.
	Write(addr, data logic.Vector)
	// WaitEvent blocks until the device raises an event and returns its
	// identifier.
	WaitEvent() string
}
