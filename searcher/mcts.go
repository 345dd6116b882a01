package searcher

import (
	"math"
	"math/rand"
	"time"

	"ccmcts/game"

	"github.com/rs/zerolog/log"
	"github.com/seehuhn/mt19937"
)

// NoOpAction is the sentinel returned when search is asked to plan from a
// terminal state. Callers check terminality themselves.
const NoOpAction game.ActionIdx = 0

// HypothesisSampler redraws the hypothesis assignment for all other agents.
// The returned map is live: domain states constructed over it observe the
// redraw without copying.
type HypothesisSampler interface {
	SampleCurrentHypothesis() map[game.AgentIdx]game.HypothesisID
}

// OpponentPolicy picks the action of one other agent during descent.
type OpponentPolicy func(state game.State, agent game.AgentIdx) game.ActionIdx

// StatisticFactory builds the ego statistic of a fresh node.
type StatisticFactory func(numActions game.ActionIdx) Statistic

type Option func(m *MCTS)

// WithIterations overrides the iteration budget.
func WithIterations(iterations int) Option {
	return func(m *MCTS) {
		if iterations > 0 {
			m.params.MaxIterations = iterations
		}
	}
}

// WithSearchTime overrides the wall-clock budget.
func WithSearchTime(duration time.Duration) Option {
	return func(m *MCTS) {
		if duration > 0 {
			m.params.MaxSearchTime = Duration(duration)
		}
	}
}

// WithOpponentPolicy replaces the default hypothesis-driven opponent model.
func WithOpponentPolicy(policy OpponentPolicy) Option {
	return func(m *MCTS) {
		if policy != nil {
			m.opponents = policy
		}
	}
}

// WithStatistic replaces the default cost-constrained ego statistic.
func WithStatistic(factory StatisticFactory) Option {
	return func(m *MCTS) {
		if factory != nil {
			m.statFactory = factory
		}
	}
}

// MCTS is the single-threaded search driver. Search is a blocking call; the
// wall-clock check between iterations is the only cooperative point. Lambda
// persists inside the driver's parameters across planning calls.
type MCTS struct {
	params    Params
	rng       *rand.Rand
	opponents OpponentPolicy

	statFactory StatisticFactory
	updater     *LambdaUpdater

	root   *stageNode
	metric SearchMetric
}

func NewMCTS(params Params, options ...Option) (*MCTS, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	source := mt19937.New()
	source.Seed(params.RandomSeed)

	m := &MCTS{
		params: params,
		rng:    rand.New(source),
		opponents: func(state game.State, agent game.AgentIdx) game.ActionIdx {
			return state.PlanActionCurrentHypothesis(agent)
		},
	}
	m.statFactory = func(numActions game.ActionIdx) Statistic {
		return NewCostConstrainedStat(numActions, m.params.Uct, m.params.DiscountFactor, &m.params.CostConstrained, m.rng)
	}
	m.updater = NewLambdaUpdater(&m.params.CostConstrained, m.params.DiscountFactor)

	for _, option := range options {
		option(m)
	}
	return m, nil
}

// Search plans from the given state under the sampler's belief and returns
// the best ego action. A nil sampler keeps the current hypothesis assignment
// fixed for all iterations.
func (m *MCTS) Search(state game.State, sampler HypothesisSampler) game.ActionIdx {
	start := time.Now()
	m.metric = SearchMetric{}

	if state.IsTerminal() {
		log.Warn().Msg("search called on terminal state")
		return NoOpAction
	}

	m.root = m.newNode(state)
	budget := m.params.MaxIterations
	if budget <= 0 {
		// Wall clock is the only bound.
		budget = math.MaxInt
	}
	iteration := 0
	for ; iteration < budget; iteration++ {
		if m.params.MaxSearchTime > 0 && time.Since(start) >= time.Duration(m.params.MaxSearchTime) {
			break
		}
		if sampler != nil {
			sampler.SampleCurrentHypothesis()
		}
		m.iterate(iteration)
	}

	m.metric.Iterations = iteration
	m.metric.Duration = time.Since(start)
	m.metric.Lambda = m.params.CostConstrained.Lambda

	best := m.root.ego.BestAction()
	log.Debug().
		Int("iterations", iteration).
		Dur("duration", m.metric.Duration).
		Int("nodes", m.metric.NodesCreated).
		Float64("lambda", m.metric.Lambda).
		Int("action", int(best)).
		Msg("search finished")
	return best
}

// iterate runs one descent, one expansion, one rollout and one backup, then
// adapts lambda from the root statistic.
func (m *MCTS) iterate(iteration int) {
	path := []*stageNode{m.root}
	node := m.root

	for {
		if node.state.IsTerminal() {
			// No future return from here.
			node.ego.SeedHeuristic(0, 0)
			break
		}

		egoAction := node.ego.ChooseNextAction(node.state)
		joint := m.jointAction(node.state, egoAction)
		next, rewards, egoCost := node.state.Execute(joint)
		node.ego.Collect(egoAction, rewards[game.EgoAgentIdx], egoCost)

		key := joint.Key()
		child, ok := node.children[key]
		if !ok {
			child = m.newNode(next)
			node.children[key] = child
			m.metric.NodesCreated++

			heuristicReward, heuristicCost := m.rollout(next)
			child.ego.SeedHeuristic(heuristicReward, heuristicCost)
			path = append(path, child)
			break
		}
		node = child
		path = append(path, node)
	}

	for i := len(path) - 2; i >= 0; i-- {
		path[i].ego.Backup(path[i+1].ego)
	}

	if root, ok := m.root.ego.(*CostConstrainedStat); ok {
		m.updater.Update(root, iteration)
	}
}

// rollout estimates leaf returns by a random playout: the ego acts uniformly
// at random, other agents follow their sampled hypotheses. The reward return
// is discounted, the cost return is not.
func (m *MCTS) rollout(state game.State) (reward, cost float64) {
	rewardDiscount := 1.0
	for depth := 0; depth < m.params.MaxRolloutDepth && !state.IsTerminal(); depth++ {
		ego := game.ActionIdx(m.rng.Intn(int(state.NumActions(game.EgoAgentIdx))))
		joint := m.jointAction(state, ego)
		next, rewards, egoCost := state.Execute(joint)
		reward += rewardDiscount * rewards[game.EgoAgentIdx]
		cost += egoCost
		rewardDiscount *= m.params.DiscountFactor
		state = next
	}
	return reward, cost
}

func (m *MCTS) jointAction(state game.State, ego game.ActionIdx) game.JointAction {
	joint := make(game.JointAction, state.NumAgents())
	joint[game.EgoAgentIdx] = ego
	for agent := 1; agent < state.NumAgents(); agent++ {
		joint[agent] = m.opponents(state, game.AgentIdx(agent))
	}
	return joint
}

func (m *MCTS) newNode(state game.State) *stageNode {
	return newStageNode(state, m.statFactory(state.NumActions(game.EgoAgentIdx)))
}

// Lambda is the current value of the Lagrangian multiplier.
func (m *MCTS) Lambda() float64 {
	return m.params.CostConstrained.Lambda
}

// RootStatistic exposes the last search's root decision rule for reporting.
func (m *MCTS) RootStatistic() Statistic {
	if m.root == nil {
		return nil
	}
	return m.root.ego
}

// Metric reports what the last Search call did.
func (m *MCTS) Metric() SearchMetric {
	return m.metric
}
