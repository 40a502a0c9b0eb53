package matchmaking

import "agent-arena/internal/store"

// StakeRange is the ±30% pairing tolerance around stake, rounded inwards so
// both bounds stay within the band.
func StakeRange(stake int64) (int64, int64) {
	lo := (stake*7 + 9) / 10
	if lo < 1 {
		lo = 1
	}
	hi := stake * 13 / 10
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// AgreedStake is the floor of the two requested stakes' average, clamped into
// the intersection of both ranges. The entries must overlap.
func AgreedStake(a, b store.QueueEntry) int64 {
	avg := (a.StakeAmount + b.StakeAmount) / 2
	lo := max(a.StakeRangeMin, b.StakeRangeMin)
	hi := min(a.StakeRangeMax, b.StakeRangeMax)
	return min(max(avg, lo), hi)
}
