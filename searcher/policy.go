package searcher

import (
	"fmt"
	"math"
	"strings"

	"ccmcts/game"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Policy is a probability distribution over actions. Support may be partial;
// absent actions carry probability zero.
type Policy map[game.ActionIdx]float64

// Best returns the highest-probability action, preferring the lowest action
// index on ties. Deterministic for reporting.
func (p Policy) Best() game.ActionIdx {
	best := game.ActionIdx(0)
	maxProb := math.Inf(-1)
	for _, action := range sortedActions(p) {
		if prob := p[action]; prob > maxProb {
			maxProb = prob
			best = action
		}
	}
	return best
}

// Support counts the actions carrying nonzero probability.
func (p Policy) Support() int {
	support := 0
	for _, prob := range p {
		if prob > 0 {
			support++
		}
	}
	return support
}

func (p Policy) String() string {
	var b strings.Builder
	b.WriteString("Policy: ")
	for _, action := range sortedActions(p) {
		fmt.Fprintf(&b, "P(a=%d) = %.3f, ", action, p[action])
	}
	return b.String()
}

func sortedActions(p Policy) []game.ActionIdx {
	actions := maps.Keys(p)
	slices.Sort(actions)
	return actions
}

func formatEdge(action game.ActionIdx, value float64, count uint64) string {
	return fmt.Sprintf("a=%d, q=%.3f, n=%d|", action, value, count)
}
