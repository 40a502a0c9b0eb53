package rating

import "math"

const (
	DefaultK     = 32
	DefaultFloor = 100
	// DefaultRating is assigned to sessions that never played.
	DefaultRating = 1000
)

// Score values from player A's perspective.
const (
	ScoreWin  = 1.0
	ScoreDraw = 0.5
	ScoreLoss = 0.0
)

type Calculator struct {
	K     int
	Floor int
}

func New(k, floor int) Calculator {
	if k <= 0 {
		k = DefaultK
	}
	if floor < 0 {
		floor = DefaultFloor
	}
	return Calculator{K: k, Floor: floor}
}

// ComputeDelta returns the rating changes for A and B after a game where A
// scored scoreA (1 win, 0.5 draw, 0 loss). B's change is K*(scoreB-expectedB),
// which is exactly -deltaA since math.Round is symmetric around zero.
func (c Calculator) ComputeDelta(ratingA, ratingB int, scoreA float64) (int, int) {
	expectedA := Expected(ratingA, ratingB)
	deltaA := int(math.Round(float64(c.K) * (scoreA - expectedA)))
	return deltaA, -deltaA
}

// Apply adds delta to rating, never going below the floor.
func (c Calculator) Apply(rating, delta int) int {
	next := rating + delta
	if next < c.Floor {
		return c.Floor
	}
	return next
}

func Expected(ratingA, ratingB int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(ratingB-ratingA)/400.0))
}
