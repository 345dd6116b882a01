package engine

import (
	"fmt"

	"ccmcts/belief"
	"ccmcts/game"
	"ccmcts/searcher"

	"github.com/rs/zerolog/log"
)

type Params struct {
	MaxSteps int `yaml:"max_steps"`
}

func DefaultParams() Params {
	return Params{MaxSteps: 40}
}

func (p Params) Validate() error {
	if p.MaxSteps <= 0 {
		return fmt.Errorf("runner: max steps %d must be positive", p.MaxSteps)
	}
	return nil
}

// StepResult is the outcome of one plan-act-observe step.
type StepResult struct {
	Action      game.ActionIdx
	Reward      float64
	EgoCost     float64
	Terminal    bool
	Collision   bool
	GoalReached bool
	Search      searcher.SearchMetric
}

// EpisodeResult aggregates a full episode.
type EpisodeResult struct {
	Steps           []StepResult
	NumSteps        int
	MaxStepsReached bool
	Collision       bool
	GoalReached     bool
	TotalReward     float64
	TotalCost       float64
	BeliefHistory   []map[game.AgentIdx][]float64
}

// OutcomeReporter lets domains expose episode outcomes beyond terminality.
type OutcomeReporter interface {
	EgoCollided() bool
	EgoGoalReached() bool
}

// Viewer renders a state after each step. May be nil.
type Viewer interface {
	Render(state game.State)
}

// TruePolicy is the actual (unknown to the planner) behavior of one other
// agent.
type TruePolicy func(state game.State, agent game.AgentIdx) game.ActionIdx

// Runner drives one episode: plan with the current belief, act, observe the
// other agents, update the belief.
type Runner struct {
	params       Params
	planner      *searcher.MCTS
	tracker      *belief.Tracker
	truePolicies map[game.AgentIdx]TruePolicy
	viewer       Viewer

	state game.State
	last  game.State
}

func NewRunner(params Params, planner *searcher.MCTS, tracker *belief.Tracker,
	initial game.State, truePolicies map[game.AgentIdx]TruePolicy, viewer Viewer) (*Runner, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	for agent := game.AgentIdx(1); int(agent) < initial.NumAgents(); agent++ {
		if _, ok := truePolicies[agent]; !ok {
			return nil, fmt.Errorf("runner: no true policy for agent %d", agent)
		}
	}

	r := &Runner{
		params:       params,
		planner:      planner,
		tracker:      tracker,
		truePolicies: truePolicies,
		viewer:       viewer,
		state:        initial,
		last:         initial,
	}
	// Initialize tracking before the first planning call.
	r.tracker.Update(r.last, r.state)
	return r, nil
}

func (r *Runner) Step() StepResult {
	if r.state.IsTerminal() {
		return StepResult{Terminal: true}
	}

	joint := make(game.JointAction, r.state.NumAgents())
	joint[game.EgoAgentIdx] = r.planner.Search(r.state, r.tracker)
	for agent := game.AgentIdx(1); int(agent) < r.state.NumAgents(); agent++ {
		joint[agent] = r.truePolicies[agent](r.state, agent)
	}

	next, rewards, egoCost := r.state.Execute(joint)
	r.last, r.state = r.state, next
	r.tracker.Update(r.last, r.state)

	collision, goalReached := outcome(r.state)
	result := StepResult{
		Action:      joint[game.EgoAgentIdx],
		Reward:      rewards[game.EgoAgentIdx],
		EgoCost:     egoCost,
		Terminal:    r.state.IsTerminal(),
		Collision:   collision,
		GoalReached: goalReached,
		Search:      r.planner.Metric(),
	}

	if r.viewer != nil {
		r.viewer.Render(r.state)
	}
	log.Info().
		Int("action", int(result.Action)).
		Float64("reward", result.Reward).
		Float64("cost", result.EgoCost).
		Float64("lambda", result.Search.Lambda).
		Bool("terminal", result.Terminal).
		Msg("episode step")
	return result
}

func (r *Runner) Run() EpisodeResult {
	var episode EpisodeResult
	for step := 0; ; step++ {
		if step >= r.params.MaxSteps {
			episode.MaxStepsReached = true
			break
		}
		result := r.Step()
		episode.Steps = append(episode.Steps, result)
		episode.NumSteps++
		episode.TotalReward += result.Reward
		episode.TotalCost += result.EgoCost
		episode.Collision = episode.Collision || result.Collision
		episode.GoalReached = episode.GoalReached || result.GoalReached
		episode.BeliefHistory = append(episode.BeliefHistory, r.tracker.Beliefs())
		if result.Terminal {
			break
		}
	}
	return episode
}

// State is the runner's current environment state.
func (r *Runner) State() game.State {
	return r.state
}

func outcome(state game.State) (collision, goalReached bool) {
	if reporter, ok := state.(OutcomeReporter); ok {
		return reporter.EgoCollided(), reporter.EgoGoalReached()
	}
	return false, false
}
