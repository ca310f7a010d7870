package geo

import (
	"math/rand"
	"time"
)

// Jitterer offsets points by a bounded random amount so markers at nearly
// identical coordinates stay distinguishable.
type Jitterer struct {
	magnitude float64
	rng       *rand.Rand
}

// NewJitterer creates a jitterer with offsets in [-magnitude, +magnitude].
// A zero seed draws one from the clock, so results are not reproducible.
func NewJitterer(magnitude float64, seed int64) *Jitterer {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Jitterer{
		magnitude: magnitude,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// Apply returns p with an independent offset on each axis.
func (j *Jitterer) Apply(p Point) Point {
	if j == nil || j.magnitude == 0 {
		return p
	}
	return Point{
		Lat: p.Lat + j.offset(),
		Lon: p.Lon + j.offset(),
	}
}

func (j *Jitterer) offset() float64 {
	return (j.rng.Float64()*2 - 1) * j.magnitude
}
