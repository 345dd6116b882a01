package searcher

import (
	"math/rand"
	"testing"
	"time"

	"ccmcts/game"

	"github.com/stretchr/testify/require"
)

// banditArm describes one ego action of the test domain: a goal reward and a
// cost event firing with the given probability. When coupled, the reward is
// withheld on a cost event.
type banditArm struct {
	reward    float64
	costProb  float64
	costValue float64
	coupled   bool
}

// banditState is a single-agent short-horizon domain for driver tests.
type banditState struct {
	arms    []banditArm
	step    int
	horizon int
	rng     *rand.Rand
	last    game.ActionIdx
}

func newBanditState(arms []banditArm, horizon int, rng *rand.Rand) *banditState {
	return &banditState{arms: arms, horizon: horizon, rng: rng}
}

func (s *banditState) NumAgents() int                    { return 1 }
func (s *banditState) NumActions(game.AgentIdx) game.ActionIdx { return game.ActionIdx(len(s.arms)) }
func (s *banditState) IsTerminal() bool                  { return s.step >= s.horizon }

func (s *banditState) Execute(joint game.JointAction) (game.State, []float64, float64) {
	arm := s.arms[joint[game.EgoAgentIdx]]
	cost := 0.0
	if s.rng.Float64() < arm.costProb {
		cost = arm.costValue
	}
	reward := arm.reward
	if arm.coupled && cost > 0 {
		reward = 0
	}
	next := &banditState{
		arms:    s.arms,
		step:    s.step + 1,
		horizon: s.horizon,
		rng:     s.rng,
		last:    joint[game.EgoAgentIdx],
	}
	return next, []float64{reward}, cost
}

func (s *banditState) PlanActionCurrentHypothesis(game.AgentIdx) game.ActionIdx { return 0 }
func (s *banditState) HypothesisProbability(game.HypothesisID, game.AgentIdx, game.ActionIdx) float64 {
	return 1
}
func (s *banditState) NumHypotheses(game.AgentIdx) game.HypothesisID { return 0 }
func (s *banditState) LastAction(game.AgentIdx) game.ActionIdx      { return s.last }

// banditParams mirrors the reference test setup: one-step horizon, reward
// bounds spanning the goal rewards, undiscounted unit cost bounds.
func banditParams(iterations int, costConstraint, rewardUpper, lambda float64) Params {
	p := DefaultParams()
	p.MaxIterations = iterations
	p.MaxSearchTime = Duration(time.Minute)
	p.RandomSeed = 1000
	p.DiscountFactor = 0.9
	p.Uct.LowerBound = 0
	p.Uct.UpperBound = rewardUpper
	p.CostConstrained = CostConstrainedParams{
		Lambda:             lambda,
		Kappa:              2.0,
		ActionFilterFactor: 1.0,
		CostConstraint:     costConstraint,
		CostLowerBound:     0,
		CostUpperBound:     1,
		RewardLowerBound:   0,
		RewardUpperBound:   rewardUpper,
		GradientUpdateStep: 0.1,
		TauGradientClip:    1.0,
	}
	return p
}

func searchBandit(t *testing.T, arms []banditArm, params Params) (game.ActionIdx, *CostConstrainedStat) {
	t.Helper()
	m, err := NewMCTS(params)
	require.NoError(t, err)

	state := newBanditState(arms, 1, testRng(42))
	best := m.Search(state, nil)
	root, ok := m.RootStatistic().(*CostConstrainedStat)
	require.True(t, ok)
	return best, root
}

// Higher reward on the riskier arm, constraint equal to its risk: the risky
// arm stays feasible and wins.
func TestSearchHigherRewardHigherRiskConstraintEqual(t *testing.T) {
	arms := []banditArm{
		{reward: 0, costProb: 0, costValue: 1, coupled: true},
		{reward: 2.0, costProb: 0.8, costValue: 1, coupled: true},
		{reward: 0.5, costProb: 0.3, costValue: 1, coupled: true},
	}
	best, root := searchBandit(t, arms, banditParams(4000, 0.8, 2.0, 0.3))

	costStats := root.CostStats()
	require.InDelta(t, 0.8, costStats[1].Value, 0.05)
	require.InDelta(t, 0.3, costStats[2].Value, 0.05)
	require.Equal(t, 0.0, costStats[0].Value)

	rewardStats := root.RewardStats()
	require.InDelta(t, (1-0.8)*2.0, rewardStats[1].Value, 0.05)
	require.InDelta(t, (1-0.3)*0.5, rewardStats[2].Value, 0.05)
	require.Equal(t, 0.0, rewardStats[0].Value)

	require.LessOrEqual(t, root.params.Lambda, 0.3+1e-9)
	require.Equal(t, game.ActionIdx(1), best)

	total := uint64(0)
	for _, pair := range rewardStats {
		total += pair.Count
	}
	require.Equal(t, root.reward.totalVisits, total,
		"root visit counts partition total visits")
}

// A tight constraint rules out the high-risk arm; the low-risk arm carries
// the policy mass.
func TestSearchTightConstraintPrefersLowRiskArm(t *testing.T) {
	arms := []banditArm{
		{reward: 0, costProb: 0, costValue: 1, coupled: true},
		{reward: 2.0, costProb: 0.8, costValue: 1, coupled: true},
		{reward: 0.5, costProb: 0.3, costValue: 1, coupled: true},
	}
	best, _ := searchBandit(t, arms, banditParams(4000, 0.2, 2.0, 0.3))

	require.Equal(t, game.ActionIdx(2), best)
}

// Equal goal rewards, different risks, constraint in between: the mixing
// probability recovers the LP solution.
func TestSearchMixingRecoversConstraint(t *testing.T) {
	arms := []banditArm{
		{reward: 0, costProb: 0, costValue: 1},
		{reward: 1.0, costProb: 0.3, costValue: 1},
		{reward: 1.0, costProb: 0.8, costValue: 1},
	}
	_, root := searchBandit(t, arms, banditParams(5000, 0.5, 1.0, 0.0))

	policy := root.Policy()
	expected := (0.5 - 0.3) / (0.8 - 0.3)
	require.InDelta(t, expected, policy[2], 0.1, "mass on the high-risk arm")
	require.InDelta(t, 1-expected, policy[1], 0.1, "mass on the low-risk arm")
	require.LessOrEqual(t, policy.Support(), 2)
}

// Fully symmetric arms: the deterministic tie-break concentrates on the
// lowest action index.
func TestSearchSymmetricArmsTieBreak(t *testing.T) {
	arms := []banditArm{
		{reward: 1.0, costProb: 1.0, costValue: 0.3},
		{reward: 1.0, costProb: 1.0, costValue: 0.3},
		{reward: 1.0, costProb: 1.0, costValue: 0.3},
	}
	best, root := searchBandit(t, arms, banditParams(2000, 0.4, 1.0, 0.0))

	require.Equal(t, game.ActionIdx(0), best)
	policy := root.Policy()
	require.Equal(t, 1.0, policy[0])
	require.LessOrEqual(t, root.ExpectedPolicyCost(policy), 0.4+1e-9)
}

// A zero constraint with strictly positive costs everywhere: all mass on the
// minimum-cost arm.
func TestSearchZeroConstraintPicksMinimumCost(t *testing.T) {
	arms := []banditArm{
		{reward: 1.0, costProb: 1.0, costValue: 0.9},
		{reward: 1.0, costProb: 1.0, costValue: 0.2},
		{reward: 1.0, costProb: 1.0, costValue: 0.5},
	}
	best, root := searchBandit(t, arms, banditParams(2000, 0.0, 1.0, 0.0))

	require.Equal(t, game.ActionIdx(1), best)
	policy := root.Policy()
	require.InDelta(t, 1.0, policy[1], 1e-9)
}

func TestSearchActionAlwaysInRange(t *testing.T) {
	arms := []banditArm{
		{reward: 1.0, costProb: 0.5, costValue: 1},
		{reward: 0.5, costProb: 0.1, costValue: 1},
	}
	for _, iterations := range []int{1, 2, 10, 100} {
		params := banditParams(iterations, 0.3, 1.0, 0.0)
		best, _ := searchBandit(t, arms, params)
		require.GreaterOrEqual(t, best, game.ActionIdx(0))
		require.Less(t, best, game.ActionIdx(2))
	}
}

func TestSearchDeterministicUnderFixedSeed(t *testing.T) {
	arms := []banditArm{
		{reward: 0, costProb: 0, costValue: 1, coupled: true},
		{reward: 2.0, costProb: 0.8, costValue: 1, coupled: true},
		{reward: 0.5, costProb: 0.3, costValue: 1, coupled: true},
	}

	run := func() (game.ActionIdx, float64) {
		m, err := NewMCTS(banditParams(500, 0.5, 2.0, 0.3))
		require.NoError(t, err)
		best := m.Search(newBanditState(arms, 1, testRng(42)), nil)
		return best, m.Lambda()
	}

	bestA, lambdaA := run()
	bestB, lambdaB := run()
	require.Equal(t, bestA, bestB)
	require.Equal(t, lambdaA, lambdaB)
}

// Loosening the constraint can only improve the achievable reward.
func TestSearchRewardMonotoneInConstraint(t *testing.T) {
	arms := []banditArm{
		{reward: 0.0, costProb: 1.0, costValue: 0.01},
		{reward: 1.0, costProb: 1.0, costValue: 0.4},
		{reward: 2.0, costProb: 1.0, costValue: 0.9},
	}

	expectedReward := func(constraint float64) float64 {
		_, root := searchBandit(t, arms, banditParams(3000, constraint, 2.0, 0.0))
		policy := root.Policy()
		stats := root.RewardStats()
		value := 0.0
		for action, prob := range policy {
			value += prob * stats[action].Value
		}
		return value
	}

	previous := expectedReward(0.05)
	for _, constraint := range []float64{0.4, 0.95} {
		current := expectedReward(constraint)
		require.GreaterOrEqual(t, current, previous-0.05)
		previous = current
	}
}

func TestSearchTerminalRootReturnsNoOp(t *testing.T) {
	m, err := NewMCTS(banditParams(100, 0.5, 1.0, 0.0))
	require.NoError(t, err)

	state := newBanditState([]banditArm{{reward: 1}}, 1, testRng(42))
	state.step = 1 // already terminal
	require.Equal(t, NoOpAction, m.Search(state, nil))
}

func TestNewMCTSRejectsInvalidParams(t *testing.T) {
	params := DefaultParams()
	params.CostConstrained.RewardUpperBound = params.CostConstrained.RewardLowerBound
	_, err := NewMCTS(params)
	require.Error(t, err)

	params = DefaultParams()
	params.MaxIterations = 0
	params.MaxSearchTime = 0
	_, err = NewMCTS(params)
	require.Error(t, err)
}
