package strategy

import (
	"math/rand/v2"
	"sort"
	"strings"
	"sync"

	"agent-arena/internal/rps"
)

const (
	TagAggressive   = "aggressive"
	TagCalculated   = "calculated"
	TagConservative = "conservative"

	DefaultTag = TagConservative
)

// RoundView is one finished round as seen by the agent choosing the next move.
type RoundView struct {
	Own      rps.Move
	Opponent rps.Move
	Outcome  Outcome
}

type Outcome string

const (
	OutcomeWin  Outcome = "WIN"
	OutcomeLoss Outcome = "LOSS"
	OutcomeDraw Outcome = "DRAW"
)

// MoveStrategy picks the next move given the contest so far. It never sees
// the opponent's move for the round being played.
type MoveStrategy interface {
	Tag() string
	SelectMove(history []RoundView) rps.Move
}

// Aggressive plays the counter to the opponent's most recent move.
type Aggressive struct {
	rnd *lockedRand
}

func (s *Aggressive) Tag() string { return TagAggressive }

func (s *Aggressive) SelectMove(history []RoundView) rps.Move {
	if len(history) == 0 {
		return s.rnd.move()
	}
	return rps.Counter(history[len(history)-1].Opponent)
}

// Calculated counters the opponent's most frequent move. Ties fall back to a
// random pick among the tied moves' counters.
type Calculated struct {
	rnd *lockedRand
}

func (s *Calculated) Tag() string { return TagCalculated }

func (s *Calculated) SelectMove(history []RoundView) rps.Move {
	if len(history) == 0 {
		return s.rnd.move()
	}
	counts := map[rps.Move]int{}
	for _, r := range history {
		counts[r.Opponent]++
	}
	best := 0
	var top []rps.Move
	for _, m := range rps.Moves {
		switch c := counts[m]; {
		case c > best:
			best = c
			top = []rps.Move{m}
		case c == best && c > 0:
			top = append(top, m)
		}
	}
	if len(top) == 0 {
		return s.rnd.move()
	}
	return rps.Counter(top[s.rnd.intN(len(top))])
}

// Conservative plays uniformly at random, which cannot be exploited.
type Conservative struct {
	rnd *lockedRand
}

func (s *Conservative) Tag() string { return TagConservative }

func (s *Conservative) SelectMove([]RoundView) rps.Move {
	return s.rnd.move()
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) intN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

func (l *lockedRand) move() rps.Move {
	return rps.Moves[l.intN(len(rps.Moves))]
}

type factory func(rnd *lockedRand) MoveStrategy

// Registry resolves strategy tags to implementations.
type Registry struct {
	rnd       *lockedRand
	factories map[string]factory
}

func NewRegistry(r *rand.Rand) *Registry {
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	aggressive := func(rnd *lockedRand) MoveStrategy { return &Aggressive{rnd: rnd} }
	calculated := func(rnd *lockedRand) MoveStrategy { return &Calculated{rnd: rnd} }
	conservative := func(rnd *lockedRand) MoveStrategy { return &Conservative{rnd: rnd} }
	return &Registry{
		rnd: &lockedRand{r: r},
		factories: map[string]factory{
			TagAggressive:   aggressive,
			TagCalculated:   calculated,
			TagConservative: conservative,
			// legacy tags
			"berzerker": aggressive,
			"merchant":  calculated,
			"disciple":  conservative,
		},
	}
}

// Lookup returns the strategy for tag, or the default strategy when the tag
// is unknown. ok reports whether tag was recognised.
func (r *Registry) Lookup(tag string) (MoveStrategy, bool) {
	f, ok := r.factories[Normalize(tag)]
	if !ok {
		return r.factories[DefaultTag](r.rnd), false
	}
	return f(r.rnd), true
}

func (r *Registry) Known(tag string) bool {
	_, ok := r.factories[Normalize(tag)]
	return ok
}

func (r *Registry) Tags() []string {
	out := make([]string, 0, len(r.factories))
	for tag := range r.factories {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

func Normalize(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}
