package logic

import "testing"

// BenchmarkEncode measures word → vector conversion.
func BenchmarkEncode(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = Encode(uint32(i))
	}
}

// BenchmarkDecode measures vector → word conversion.
func BenchmarkDecode(b *testing.B) {
	v := Encode(0xdeadbeef)
	v[3] = StdUnknown
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Decode(v)
	}
}
