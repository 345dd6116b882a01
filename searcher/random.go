package searcher

import (
	"math/rand"

	"ccmcts/game"
)

// RandomStat selects uniformly among all actions and tracks only the latest
// returns. It stands in for a real statistic in tests of the tree machinery.
type RandomStat struct {
	numActions game.ActionIdx
	rng        *rand.Rand

	collectedReward float64
	collectedCost   float64
	latestReward    float64
	latestCost      float64
}

func NewRandomStat(numActions game.ActionIdx, rng *rand.Rand) *RandomStat {
	return &RandomStat{numActions: numActions, rng: rng}
}

func (s *RandomStat) ChooseNextAction(game.State) game.ActionIdx {
	return game.ActionIdx(s.rng.Intn(int(s.numActions)))
}

func (s *RandomStat) Collect(_ game.ActionIdx, reward, cost float64) {
	s.collectedReward = reward
	s.collectedCost = cost
}

func (s *RandomStat) Backup(child Statistic) {
	childReward, childCost := child.LatestReturns()
	s.latestReward = s.collectedReward + childReward
	s.latestCost = s.collectedCost + childCost
}

func (s *RandomStat) SeedHeuristic(reward, cost float64) {
	s.latestReward = reward
	s.latestCost = cost
}

func (s *RandomStat) LatestReturns() (float64, float64) {
	return s.latestReward, s.latestCost
}

func (s *RandomStat) BestAction() game.ActionIdx {
	return 0
}
