package protocol

import "testing"

// BenchmarkParse_Write measures the hot path of a simulation: one
// write line per bus cycle.
func BenchmarkParse_Write(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = Parse("write 1000 deadbeef\n")
	}
}

// BenchmarkParse_Invalid measures rejection of a malformed line.
func BenchmarkParse_Invalid(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = Parse("write 1000\n")
	}
}

// BenchmarkFormatReadResponse measures reply formatting.
func BenchmarkFormatReadResponse(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = FormatReadResponse(uint32(i))
	}
}
