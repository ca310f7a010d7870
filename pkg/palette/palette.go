// Package palette assigns each narrative a session-stable display position
// and a color from a fixed cyclic table.
package palette

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Size is the number of entries in the color table.
const Size = 8

// Colors is the cyclic color table, dark red through dark blue.
var Colors = [Size]string{
	"#67001f", "#b2182b", "#d6604d", "#f4a582",
	"#92c5de", "#4393c3", "#2166ac", "#053061",
}

// Strategy selects how the display order is derived.
type Strategy string

const (
	// StrategyShuffle randomizes the order once per session (reference behavior).
	StrategyShuffle Strategy = "shuffle"
	// StrategySorted orders ids deterministically, numerically where possible.
	StrategySorted Strategy = "sorted"
)

// Assigner produces display orders.
type Assigner struct {
	strategy Strategy
	rng      *rand.Rand
}

// NewAssigner creates an assigner. For the shuffle strategy a zero seed draws
// one from the clock, so the order differs between runs but never within one.
func NewAssigner(strategy Strategy, seed int64) (*Assigner, error) {
	switch strategy {
	case StrategyShuffle, StrategySorted:
	case "":
		strategy = StrategyShuffle
	default:
		return nil, fmt.Errorf("unknown palette order strategy %q", strategy)
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Assigner{
		strategy: strategy,
		rng:      rand.New(rand.NewSource(seed)),
	}, nil
}

// Strategy returns the configured strategy.
func (a *Assigner) Strategy() Strategy {
	return a.strategy
}

// Order returns a permutation of ids. The input slice is not modified.
func (a *Assigner) Order(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)

	// Sorting first makes a seeded shuffle independent of input order.
	sort.SliceStable(out, func(i, j int) bool { return Less(out[i], out[j]) })
	if a.strategy == StrategyShuffle {
		a.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	}
	return out
}

// Index returns the palette index for a display position.
func Index(position int) int {
	if position < 0 {
		return 0
	}
	return position % Size
}

// Color returns the color for a display position.
func Color(position int) string {
	return Colors[Index(position)]
}

// Less orders ids numerically when both are integers, lexically otherwise.
// Numeric ids sort before non-numeric ones.
func Less(a, b string) bool {
	na, errA := strconv.ParseInt(strings.TrimSpace(a), 10, 64)
	nb, errB := strconv.ParseInt(strings.TrimSpace(b), 10, 64)
	switch {
	case errA == nil && errB == nil:
		if na != nb {
			return na < nb
		}
		return a < b
	case errA == nil:
		return true
	case errB == nil:
		return false
	}
	return a < b
}
