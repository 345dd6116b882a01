package searcher

import (
	"math"

	"github.com/rs/zerolog/log"
)

// LambdaUpdater adapts the Lagrangian multiplier by a projected gradient step
// on the constraint violation observed at the root statistic.
type LambdaUpdater struct {
	params   *CostConstrainedParams
	discount float64
}

func NewLambdaUpdater(params *CostConstrainedParams, discount float64) *LambdaUpdater {
	return &LambdaUpdater{params: params, discount: discount}
}

// Update runs one gradient step. It is a no-op until every root action has
// been expanded at least once.
func (u *LambdaUpdater) Update(root *CostConstrainedStat, iteration int) {
	if !root.PolicyReady() {
		return
	}

	selected, _ := root.greedyPolicy(0, 0)
	gradient := root.NormalizedCost(selected) - u.params.CostConstraint
	step := u.params.GradientUpdateStep / (0.1*float64(iteration) + 1)

	next := u.params.Lambda + step*gradient
	next = math.Min(math.Max(next, 0), u.clipUpperLimit())

	log.Debug().
		Int("iteration", iteration).
		Float64("gradient", gradient).
		Float64("lambda", next).
		Msg("lambda update")
	u.params.Lambda = next
}

// clipUpperLimit bounds lambda by the reward range over the discounted
// horizon, scaled by tau.
func (u *LambdaUpdater) clipUpperLimit() float64 {
	return (u.params.RewardUpperBound - u.params.RewardLowerBound) /
		(u.params.TauGradientClip * (1 - u.discount))
}
