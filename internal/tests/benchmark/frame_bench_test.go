package benchmark

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/linescope/linescope-go/internal/core/domain"
	"github.com/linescope/linescope-go/internal/framefeed"
	"github.com/linescope/linescope-go/internal/server/intakeserver"
)

// BenchmarkFrameCompose measures composing and JPEG-encoding one
// stream frame over the placeholder base image.
func BenchmarkFrameCompose(b *testing.B) {
	composer := framefeed.NewComposer("", framefeed.DefaultJPEGQuality)
	ts := time.Date(2025, 6, 12, 14, 30, 0, 0, domain.SiteZone())

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := composer.Frame(i%framefeed.CounterModulus, ts); err != nil {
			b.Fatalf("frame: %v", err)
		}
	}
}

// BenchmarkCounterNext measures one persisted counter step.
func BenchmarkCounterNext(b *testing.B) {
	counter := framefeed.NewCounter(filepath.Join(b.TempDir(), "counter.txt"))

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := counter.Next(); err != nil {
			b.Fatalf("next: %v", err)
		}
	}
}

// BenchmarkTelemetryCodec measures an intake frame round trip without
// the network.
func BenchmarkTelemetryCodec(b *testing.B) {
	reading := benchReading(0)
	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		frame := intakeserver.BuildTelemetry("BENCH-DEVICE-0001", byte(i), reading)
		if _, err := intakeserver.DecodeTelemetry(frame.Payload); err != nil {
			b.Fatalf("decode: %v", err)
		}
	}
}
