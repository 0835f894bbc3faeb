package peripheral

import (
	"sort"

	"wbtcp/internal/logic"
)

// RegisterFile is a sparse 32-bit register map.  Unmapped addresses
// read as the default vector.  Stored vectors keep every std_logic
// state, so a preset 'X' or 'Z' travels all the way to the read reply.
type RegisterFile struct {
	regs   map[uint32]logic.Vector
	def    logic.Vector
	events []string
	next   int
}

// NewRegisterFile creates an empty map.  Events are handed out in
// round-robin order; at least one must be given.
func NewRegisterFile(def logic.Vector, events ...string) *RegisterFile {
	if len(events) == 0 {
		panic("peripheral: register file needs at least one event name")
	}
	return &RegisterFile{
		regs:   make(map[uint32]logic.Vector),
		def:    def,
		events: append([]string(nil), events...),
	}
}

// Preset stores v at addr without going through the bus.
func (r *RegisterFile) Preset(addr uint32, v logic.Vector) {
	r.regs[addr] = v
}

// Lookup returns the vector stored at addr, if any.
func (r *RegisterFile) Lookup(addr uint32) (logic.Vector, bool) {
	v, ok := r.regs[addr]
	return v, ok
}

// Len returns the number of mapped addresses.
func (r *RegisterFile) Len() int { return len(r.regs) }

// Addresses returns the mapped addresses in ascending order.
func (r *RegisterFile) Addresses() []uint32 {
	out := make([]uint32, 0, len(r.regs))
	for a := range r.regs {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Read implements Peripheral.  Undefined address bits read as '0'.
func (r *RegisterFile) Read(addr logic.Vector) logic.Vector {
	a, _ := logic.Decode(addr)
	if v, ok := r.regs[a]; ok {
		return v
	}
	return r.def
}

// Write implements Peripheral.
func (r *RegisterFile) Write(addr, data logic.Vector) {
	a, _ := logic.Decode(addr)
	r.regs[a] = data
}

// WaitEvent implements Peripheral.  It never blocks.
func (r *RegisterFile) WaitEvent() string {
	name := r.events[r.next]
	r.next = (r.next + 1) % len(r.events)
	return name
}
