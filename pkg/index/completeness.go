package index

import (
	"sort"

	"passages/pkg/model"
	"passages/pkg/palette"
)

// DefaultThreshold is the missing-text fraction above which a narrative is excluded.
const DefaultThreshold = 0.3

// MissingFraction returns the share of waypoints whose passage lacks the text
// before or after the place name. An empty sequence counts as fully missing.
func MissingFraction(wps []model.Waypoint) float64 {
	if len(wps) == 0 {
		return 1
	}
	missing := 0
	for _, w := range wps {
		if w.Passage.Missing() {
			missing++
		}
	}
	return float64(missing) / float64(len(wps))
}

// Incomplete reports whether a narrative should be excluded from interaction.
func Incomplete(wps []model.Waypoint, threshold float64) bool {
	if len(wps) == 0 {
		return true
	}
	return MissingFraction(wps) > threshold
}

// Filter splits narrative ids into included and excluded sets, each sorted.
func Filter(g Grouped, threshold float64) (included, excluded []string) {
	for id, wps := range g {
		if Incomplete(wps, threshold) {
			excluded = append(excluded, id)
		} else {
			included = append(included, id)
		}
	}
	sort.Slice(included, func(i, j int) bool { return palette.Less(included[i], included[j]) })
	sort.Slice(excluded, func(i, j int) bool { return palette.Less(excluded[i], excluded[j]) })
	return included, excluded
}
