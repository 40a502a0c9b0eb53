package mcpserver

import (
	"math"

	"agent-arena/internal/strategy"
)

const (
	defaultGameType = "RPS"
	defaultPageSize = 20
)

func normalizeGameType(v string) string {
	if v == "" {
		return defaultGameType
	}
	return v
}

// maxWholeAmount is the largest integer a JSON number carries exactly.
const maxWholeAmount = 1 << 53

// wholeAmount converts a JSON number to a positive integral amount. Fractions,
// NaN and values beyond exact float range are rejected.
func wholeAmount(v float64) (int64, bool) {
	if math.IsNaN(v) || v != math.Trunc(v) || v < 1 || v > maxWholeAmount {
		return 0, false
	}
	return int64(v), true
}

func strategyTagsDescription() string {
	return strategy.TagAggressive + "|" + strategy.TagCalculated + "|" + strategy.TagConservative
}
