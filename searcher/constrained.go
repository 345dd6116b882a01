package searcher

import (
	"fmt"
	"math"
	"math/rand"

	"ccmcts/game"

	"gonum.org/v1/gonum/floats"
)

// CostConstrainedStat combines a reward and a cost UCB channel into one node
// decision rule: a lambda-penalized value maximization, a statistical
// near-optimum filter, and a one-constraint LP whose solution is a stochastic
// policy meeting the cost constraint in expectation.
type CostConstrainedStat struct {
	reward *UctStat
	cost   *UctStat

	unexpanded   []game.ActionIdx
	numActions   game.ActionIdx
	meanStepCost map[game.ActionIdx]float64

	// params carries the live lambda owned by the driver.
	params *CostConstrainedParams
	rng    *rand.Rand
}

func NewCostConstrainedStat(numActions game.ActionIdx, base UctParams, discount float64, params *CostConstrainedParams, rng *rand.Rand) *CostConstrainedStat {
	unexpanded := make([]game.ActionIdx, numActions)
	meanStepCost := make(map[game.ActionIdx]float64, numActions)
	for i := range unexpanded {
		unexpanded[i] = game.ActionIdx(i)
		meanStepCost[game.ActionIdx(i)] = 0
	}
	return &CostConstrainedStat{
		reward:       NewUctStat(numActions, params.rewardChannel(base), discount, rng),
		cost:         NewUctStat(numActions, params.costChannel(base), 1.0, rng),
		unexpanded:   unexpanded,
		numActions:   numActions,
		meanStepCost: meanStepCost,
		params:       params,
		rng:          rng,
	}
}

// ChooseNextAction fully expands the action set before exploiting: widening
// here is governed by exhaustion of the shared unexpanded set.
func (s *CostConstrainedStat) ChooseNextAction(game.State) game.ActionIdx {
	if len(s.unexpanded) > 0 {
		idx := s.rng.Intn(len(s.unexpanded))
		action := s.unexpanded[idx]
		s.unexpanded = append(s.unexpanded[:idx], s.unexpanded[idx+1:]...)
		s.reward.registerAction(action)
		s.cost.registerAction(action)
		return action
	}
	selected, _ := s.greedyPolicy(s.params.Kappa, s.params.ActionFilterFactor)
	return selected
}

// BestAction reports the highest-probability action of the constrained
// policy. Unlike ChooseNextAction it never samples, so repeated calls without
// intervening updates agree.
func (s *CostConstrainedStat) BestAction() game.ActionIdx {
	_, policy := s.greedyPolicy(0, s.params.ActionFilterFactor)
	return policy.Best()
}

func (s *CostConstrainedStat) Policy() Policy {
	_, policy := s.greedyPolicy(0, s.params.ActionFilterFactor)
	return policy
}

// PolicyReady reports whether every action has been expanded at least once.
func (s *CostConstrainedStat) PolicyReady() bool {
	return len(s.unexpanded) == 0
}

// greedyPolicy runs the three-stage decision rule and returns the sampled
// action together with the full distribution.
func (s *CostConstrainedStat) greedyPolicy(kappaLocal, filterFactorLocal float64) (game.ActionIdx, Policy) {
	if len(s.reward.ucb) == 0 {
		// Nothing expanded yet, nothing to decide on.
		return 0, Policy{}
	}
	values := s.ucbValues(kappaLocal)
	feasible := s.filterFeasible(values, filterFactorLocal)
	return s.solveLP(feasible)
}

// ucbValues computes u[a] = normalized reward − lambda * normalized cost plus
// the local exploration bonus. Unvisited actions get the largest finite value.
func (s *CostConstrainedStat) ucbValues(kappaLocal float64) Policy {
	values := make(Policy, len(s.reward.ucb))
	totalVisits := float64(s.reward.totalVisits)
	for _, action := range s.reward.expandedActions() {
		exploration := math.MaxFloat64
		if count := s.reward.ucb[action].Count; count > 0 {
			term := kappaLocal * math.Sqrt(math.Log(totalVisits)/float64(count))
			if !math.IsNaN(term) {
				exploration = term
			}
		}
		values[action] = s.reward.NormalizedActionValue(action) -
			s.params.Lambda*s.cost.NormalizedActionValue(action) +
			exploration
	}
	return values
}

// filterFeasible keeps the actions statistically indistinguishable from the
// maximizer: |u* − u[a]| ≤ ff · (s(a) + s(a*)) with s(x) = sqrt(ln n_x / n_x).
func (s *CostConstrainedStat) filterFeasible(values Policy, filterFactorLocal float64) []game.ActionIdx {
	maximizer := game.ActionIdx(0)
	maxValue := math.Inf(-1)
	for _, action := range sortedActions(values) {
		if v := values[action]; v > maxValue {
			maxValue = v
			maximizer = action
		}
	}

	sMax := s.countRelation(maximizer)
	feasible := make([]game.ActionIdx, 0, len(values))
	for _, action := range sortedActions(values) {
		difference := math.Abs(values[action] - maxValue)
		if difference <= filterFactorLocal*(s.countRelation(action)+sMax) {
			feasible = append(feasible, action)
		}
	}
	if len(feasible) == 0 {
		// Numerical edge: the maximizer itself always qualifies.
		feasible = append(feasible, maximizer)
	}
	return feasible
}

func (s *CostConstrainedStat) countRelation(action game.ActionIdx) float64 {
	count := s.reward.ucb[action].Count
	if count == 0 {
		return math.MaxFloat64
	}
	return math.Sqrt(math.Log(float64(count)) / float64(count))
}

// solveLP solves the K=1 linear program over the feasible set: support on the
// cost-maximizing and cost-minimizing actions only, mixed so the expected
// cost meets the constraint.
func (s *CostConstrainedStat) solveLP(feasible []game.ActionIdx) (game.ActionIdx, Policy) {
	costMax := feasible[0]
	costMin := feasible[0]
	for _, action := range feasible {
		if s.cost.ucb[action].Value > s.cost.ucb[costMax].Value {
			costMax = action
			continue
		}
		if s.cost.ucb[action].Value < s.cost.ucb[costMin].Value {
			costMin = action
		}
	}

	policy := make(Policy, len(s.cost.ucb))
	for action := range s.cost.ucb {
		policy[action] = 0
	}

	if costMax == costMin {
		policy[costMin] = 1
		return costMin, policy
	}

	maxVal := s.cost.ucb[costMax].Value
	minVal := s.cost.ucb[costMin].Value
	constraint := s.params.CostConstraint
	switch {
	case minVal >= constraint:
		// Constraint cannot be met, take the safer arm.
		policy[costMin] = 1
		return costMin, policy
	case maxVal <= constraint:
		// Constraint slack, take the better-for-reward arm.
		policy[costMax] = 1
		return costMax, policy
	default:
		probMax := (constraint - minVal) / (maxVal - minVal)
		policy[costMax] = probMax
		policy[costMin] = 1 - probMax
		if s.rng.Float64() <= probMax {
			return costMax, policy
		}
		return costMin, policy
	}
}

// Collect records the traversed edge with its immediate ego reward and cost.
func (s *CostConstrainedStat) Collect(action game.ActionIdx, reward, cost float64) {
	s.reward.collect(action, reward)
	s.cost.collect(action, cost)
}

// Backup folds the child's latest reward and cost returns into both channels
// and refreshes the mean immediate step cost of the traversed action.
func (s *CostConstrainedStat) Backup(child Statistic) {
	childReward, childCost := child.LatestReturns()
	s.reward.backup(childReward)
	s.cost.backup(childCost)

	action := s.cost.collectedAction
	count := s.cost.ucb[action].Count
	s.meanStepCost[action] += (s.cost.collectedValue - s.meanStepCost[action]) / float64(count)
}

// SeedHeuristic initializes a fresh leaf from rollout estimates.
func (s *CostConstrainedStat) SeedHeuristic(reward, cost float64) {
	s.reward.seedHeuristic(reward)
	s.cost.seedHeuristic(cost)
}

// SetEstimates overwrites both node values without counting a visit.
func (s *CostConstrainedStat) SetEstimates(reward, cost float64) {
	s.reward.setEstimate(reward)
	s.cost.setEstimate(cost)
}

func (s *CostConstrainedStat) LatestReturns() (float64, float64) {
	return s.reward.latestReturn, s.cost.latestReturn
}

func (s *CostConstrainedStat) NormalizedCost(action game.ActionIdx) float64 {
	return s.cost.NormalizedActionValue(action)
}

// ExpectedPolicyCost is the expectation of the cost channel under a policy.
func (s *CostConstrainedStat) ExpectedPolicyCost(policy Policy) float64 {
	actions := s.cost.expandedActions()
	probs := make([]float64, len(actions))
	costs := make([]float64, len(actions))
	for i, action := range actions {
		probs[i] = policy[action]
		costs[i] = s.cost.ucb[action].Value
	}
	return floats.Dot(probs, costs)
}

func (s *CostConstrainedStat) MeanStepCost(action game.ActionIdx) float64 {
	return s.meanStepCost[action]
}

func (s *CostConstrainedStat) RewardStats() map[game.ActionIdx]UcbPair { return s.reward.ActionStats() }

func (s *CostConstrainedStat) CostStats() map[game.ActionIdx]UcbPair { return s.cost.ActionStats() }

func (s *CostConstrainedStat) String() string {
	return fmt.Sprintf("Reward stats: %s\nCost stats: %s\nLambda: %.4f",
		s.reward, s.cost, s.params.Lambda)
}
