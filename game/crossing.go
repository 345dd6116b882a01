package game

import (
	"fmt"
	"math/rand"
)

// Actions of the crossing environment, shared by all agents.
const (
	ActionWait     ActionIdx = 0
	ActionForward  ActionIdx = 1
	ActionBackward ActionIdx = 2

	NumCrossingActions = 3
)

var crossingDeltas = [NumCrossingActions]int{0, 1, -1}

type CrossingParams struct {
	CorridorLength  int     `yaml:"corridor_length"`
	EgoGoalPosition int     `yaml:"ego_goal_position"`
	NumOtherAgents  int     `yaml:"num_other_agents"`
	GoalReward      float64 `yaml:"goal_reward"`
	CollisionReward float64 `yaml:"collision_reward"`
	CollisionCost   float64 `yaml:"collision_cost"`
}

func DefaultCrossingParams() CrossingParams {
	return CrossingParams{
		CorridorLength:  41,
		EgoGoalPosition: 35,
		NumOtherAgents:  1,
		GoalReward:      100.0,
		CollisionReward: -1000.0,
		CollisionCost:   1.0,
	}
}

// CrossingPoint is the cell both corridors share.
func (p CrossingParams) CrossingPoint() int {
	return (p.CorridorLength-1)/2 + 1
}

func (p CrossingParams) Validate() error {
	if p.CorridorLength < 3 {
		return fmt.Errorf("crossing: corridor length %d too short", p.CorridorLength)
	}
	if p.EgoGoalPosition <= 0 || p.EgoGoalPosition >= p.CorridorLength {
		return fmt.Errorf("crossing: goal position %d outside corridor [1, %d)", p.EgoGoalPosition, p.CorridorLength)
	}
	if p.NumOtherAgents < 1 {
		return fmt.Errorf("crossing: need at least one other agent, got %d", p.NumOtherAgents)
	}
	return nil
}

// GapPolicy is one candidate behavior of an other agent: keep a desired gap to
// the ego agent, with the desired gap drawn uniformly from [MinGap, MaxGap].
type GapPolicy struct {
	MinGap int
	MaxGap int
	rng    *rand.Rand
}

func NewGapPolicy(minGap, maxGap int, rng *rand.Rand) GapPolicy {
	if maxGap < minGap {
		minGap, maxGap = maxGap, minGap
	}
	return GapPolicy{MinGap: minGap, MaxGap: maxGap, rng: rng}
}

// Act samples a desired gap and moves to close on it.
func (p GapPolicy) Act(dstToEgo int) ActionIdx {
	gap := p.MinGap + p.rng.Intn(p.MaxGap-p.MinGap+1)
	return p.actionForGap(dstToEgo, gap)
}

func (p GapPolicy) actionForGap(dstToEgo, desiredGap int) ActionIdx {
	switch d := dstToEgo - desiredGap; {
	case d > 0:
		return ActionForward
	case d == 0:
		return ActionWait
	default:
		return ActionBackward
	}
}

// Probability enumerates the desired-gap range and returns the fraction of
// gap values under which the policy selects the given action.
func (p GapPolicy) Probability(dstToEgo int, action ActionIdx) float64 {
	matches := 0
	total := p.MaxGap - p.MinGap + 1
	for gap := p.MinGap; gap <= p.MaxGap; gap++ {
		if p.actionForGap(dstToEgo, gap) == action {
			matches++
		}
	}
	return float64(matches) / float64(total)
}

type agentState struct {
	pos  int
	last ActionIdx
}

// CrossingState is a 1-D environment: the ego agent drives toward a goal cell
// past a crossing point while each other agent approaches the same crossing on
// its own corridor. A collision occurs when the ego and any other agent occupy
// the crossing point after the same step.
type CrossingState struct {
	params      CrossingParams
	hypotheses  []GapPolicy
	assignment  map[AgentIdx]HypothesisID // live map owned by the belief tracker
	ego         agentState
	others      []agentState
	terminal    bool
	collided    bool
	goalReached bool
}

// NewCrossingState places all agents at position zero. The assignment map is
// shared: the belief tracker mutates it in place when sampling hypotheses and
// every state cloned from this one observes the change.
func NewCrossingState(params CrossingParams, hypotheses []GapPolicy, assignment map[AgentIdx]HypothesisID) *CrossingState {
	return &CrossingState{
		params:     params,
		hypotheses: hypotheses,
		assignment: assignment,
		others:     make([]agentState, params.NumOtherAgents),
	}
}

func (s *CrossingState) NumAgents() int { return 1 + len(s.others) }

func (s *CrossingState) NumActions(AgentIdx) ActionIdx { return NumCrossingActions }

func (s *CrossingState) IsTerminal() bool { return s.terminal }

func (s *CrossingState) Execute(joint JointAction) (State, []float64, float64) {
	nextEgo := agentState{
		pos:  s.clampPos(s.ego.pos + crossingDeltas[joint[EgoAgentIdx]]),
		last: joint[EgoAgentIdx],
	}
	nextOthers := make([]agentState, len(s.others))
	for i, o := range s.others {
		nextOthers[i] = agentState{
			pos:  s.clampPos(o.pos + crossingDeltas[joint[i+1]]),
			last: joint[i+1],
		}
	}

	crossing := s.params.CrossingPoint()
	collision := false
	for _, o := range nextOthers {
		if nextEgo.pos == crossing && o.pos == crossing {
			collision = true
		}
	}
	goalReached := nextEgo.pos >= s.params.EgoGoalPosition

	rewards := make([]float64, s.NumAgents())
	if goalReached {
		rewards[EgoAgentIdx] += s.params.GoalReward
	}
	var cost float64
	if collision {
		rewards[EgoAgentIdx] += s.params.CollisionReward
		cost = s.params.CollisionCost
	}

	next := &CrossingState{
		params:      s.params,
		hypotheses:  s.hypotheses,
		assignment:  s.assignment,
		ego:         nextEgo,
		others:      nextOthers,
		terminal:    goalReached || collision,
		collided:    collision,
		goalReached: goalReached,
	}
	return next, rewards, cost
}

func (s *CrossingState) PlanActionCurrentHypothesis(agent AgentIdx) ActionIdx {
	h := s.assignment[agent]
	return s.hypotheses[h].Act(s.DistanceToEgo(agent))
}

func (s *CrossingState) HypothesisProbability(h HypothesisID, agent AgentIdx, action ActionIdx) float64 {
	return s.hypotheses[h].Probability(s.DistanceToEgo(agent), action)
}

func (s *CrossingState) NumHypotheses(AgentIdx) HypothesisID {
	return HypothesisID(len(s.hypotheses))
}

func (s *CrossingState) LastAction(agent AgentIdx) ActionIdx {
	if agent == EgoAgentIdx {
		return s.ego.last
	}
	return s.others[agent-1].last
}

// DistanceToEgo is the signed gap between the ego agent and one other agent.
func (s *CrossingState) DistanceToEgo(agent AgentIdx) int {
	return s.ego.pos - s.others[agent-1].pos
}

func (s *CrossingState) EgoPosition() int      { return s.ego.pos }
func (s *CrossingState) EgoCollided() bool     { return s.collided }
func (s *CrossingState) EgoGoalReached() bool  { return s.goalReached }
func (s *CrossingState) CrossingPoint() int    { return s.params.CrossingPoint() }
func (s *CrossingState) GoalPosition() int     { return s.params.EgoGoalPosition }
func (s *CrossingState) CorridorLength() int   { return s.params.CorridorLength }

func (s *CrossingState) OtherPositions() []int {
	positions := make([]int, len(s.others))
	for i, o := range s.others {
		positions[i] = o.pos
	}
	return positions
}

func (s *CrossingState) clampPos(pos int) int {
	if pos < 0 {
		return 0
	}
	if pos >= s.params.CorridorLength {
		return s.params.CorridorLength - 1
	}
	return pos
}
