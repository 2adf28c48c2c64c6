package service

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/linescope/linescope-go/internal/core/domain"
)

// Generator produces synthetic sensor readings that follow plausible
// diurnal curves. It stands in for real transmission-line hardware in
// standalone deployments and tests.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a Generator seeded for reproducible sequences.
func NewGenerator(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// At produces one reading stamped ts. Channel values depend on the
// local hour of day plus noise.
func (g *Generator) At(ts time.Time) domain.Reading {
	g.mu.Lock()
	defer g.mu.Unlock()

	local := ts.In(domain.SiteZone())
	h := float64(local.Hour()) + float64(local.Minute())/60

	// Warmest around 15:00, coolest around 03:00.
	diurnal := math.Sin((h - 9) * math.Pi / 12)

	temp := 21.0 + 6.5*diurnal + g.rng.NormFloat64()*0.6
	humidity := clamp(62.0-14.0*diurnal+g.rng.NormFloat64()*2.5, 20, 95)
	pressure := 1012.5 + 3.0*math.Sin(h*math.Pi/12+1.3) + g.rng.NormFloat64()*0.4

	// Sway follows an afternoon-peaking wind proxy; 5% of readings
	// carry a gust spike well above the baseline.
	wind := 0.3 + 0.7*math.Abs(math.Sin(2*math.Pi*(h/24-0.15)))
	sway := 20*wind + g.rng.Float64()*15
	if g.rng.Float64() < 0.05 {
		sway += 50 + g.rng.Float64()*150
	}
	sway = clamp(sway, 0, 500)

	// Daylight from roughly 06:00 to 18:00, peaking at noon.
	lux := 0.0
	if day := math.Sin((h - 6) * math.Pi / 12); day > 0 {
		lux = day * 52000 * (0.75 + 0.25*g.rng.Float64())
	} else {
		lux = g.rng.Float64() * 40
	}

	return domain.Reading{
		Timestamp:   ts,
		SwaySpeed:   domain.Float(round2(sway)),
		Temperature: domain.Float(round2(temp)),
		Humidity:    domain.Float(round2(humidity)),
		Pressure:    domain.Float(round2(pressure)),
		Lux:         domain.Float(round2(lux)),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
