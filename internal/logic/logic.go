// Package logic converts between 32-bit words and the simulator's
// representation of a std_logic_vector(31 downto 0).
//
// Each element of a vector carries one of the nine IEEE 1164 states,
// numbered the way GHDL exchanges them across its foreign interface.
// Only '0', '1', 'L' and 'H' have a binary meaning; everything else is
// read as '0' and reported back to the caller as undefined.
package logic

import (
	"fmt"
	"strings"
)

// Std is a single std_logic value.
type Std uint8

// IEEE std_logic states, in simulator order.
const (
	StdUninitialized Std = iota // 'U'
	StdUnknown                  // 'X'
	StdLow                      // '0'
	StdHigh                     // '1'
	StdHighImpedance            // 'Z'
	StdWeakUnknown              // 'W'
	StdWeakLow                  // 'L'
	StdWeakHigh                 // 'H'
	StdDontCare                 // '-'
)

// Width is the number of elements in a Vector.
const Width = 32

const stdChars = "UX01ZWLH-"

// Vector is a std_logic_vector(31 downto 0).  Element 0 is bit 31.
type Vector [Width]Std

// String returns the state's character as written in VHDL.
func (s Std) String() string {
	if int(s) < len(stdChars) {
		return stdChars[s : s+1]
	}
	return fmt.Sprintf("Std(%d)", uint8(s))
}

// Binary reports the bit carried by s and whether s has a binary
// meaning at all.
func (s Std) Binary() (bit uint32, ok bool) {
	switch s {
	case StdHigh, StdWeakHigh:
		return 1, true
	case StdLow, StdWeakLow:
		return 0, true
	default:
		return 0, false
	}
}

// ParseStd maps a VHDL character literal to its state.  Letters are
// accepted in either case.
func ParseStd(r rune) (Std, error) {
	i := strings.IndexRune(stdChars, toUpper(r))
	if i < 0 {
		return 0, fmt.Errorf("invalid std_logic character %q", r)
	}
	return Std(i), nil
}

func toUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - 'a' + 'A'
	}
	return r
}

// Encode converts word to a vector, most significant bit first.
func Encode(word uint32) Vector {
	var v Vector
	for i := range v {
		if word&0x80000000 != 0 {
			v[i] = StdHigh
		} else {
			v[i] = StdLow
		}
		word <<= 1
	}
	return v
}

// Decode converts v back to a word.  Elements without a binary meaning
// are taken as '0'; their number is returned in undefined so the caller
// can emit a diagnostic.
func Decode(v Vector) (word uint32, undefined int) {
	for _, s := range v {
		bit, ok := s.Binary()
		if !ok {
			undefined++
		}
		word = word<<1 | bit
	}
	return word, undefined
}

// ParseVector reads a vector written as 32 std_logic characters, MSB
// first.  Underscores may be used as digit separators.
func ParseVector(s string) (Vector, error) {
	var v Vector
	n := 0
	for _, r := range s {
		if r == '_' {
			continue
		}
		if n == Width {
			return Vector{}, fmt.Errorf("vector %q is longer than %d elements", s, Width)
		}
		st, err := ParseStd(r)
		if err != nil {
			return Vector{}, err
		}
		v[n] = st
		n++
	}
	if n != Width {
		return Vector{}, fmt.Errorf("vector %q has %d elements, want %d", s, n, Width)
	}
	return v, nil
}

// String returns the vector as 32 std_logic characters, MSB first.
func (v Vector) String() string {
	var b strings.Builder
	b.Grow(Width)
	for _, s := range v {
		b.WriteString(s.String())
	}
	return b.String()
}
