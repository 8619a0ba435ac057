// -----------------------------------------------------------------------------
// ring_bench_test.go — Throughput benchmarks for the 192-byte SPSC ring
// -----------------------------------------------------------------------------

package ring192

import (
	"testing"

	"main/types"
)

// BenchmarkPushPopSingleThread measures the raw per-operation cost with no
// cross-core traffic: one push immediately followed by one pop.
func BenchmarkPushPopSingleThread(b *testing.B) {
	r := New(1024)
	msg := tagged(1)
	var out types.MarketDataL2Message

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Push(&msg)
		r.Pop(&out)
	}
}

// BenchmarkSPSCThroughput streams messages through a real consumer
// goroutine, measuring end-to-end transfer cost including cache-line
// ping-pong between the cursors.
func BenchmarkSPSCThroughput(b *testing.B) {
	r := New(1024)
	done := make(chan struct{})

	go func() {
		var out types.MarketDataL2Message
		for n := 0; n < b.N; n++ {
			for !r.Pop(&out) {
			}
		}
		close(done)
	}()

	msg := tagged(2)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for !r.Push(&msg) {
		}
	}
	<-done
}
