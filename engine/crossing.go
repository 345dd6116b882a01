package engine

import (
	"fmt"
	"math/rand"

	"ccmcts/game"

	"github.com/seehuhn/mt19937"
)

// GapRange is a desired-gap interval defining one opponent policy.
type GapRange struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// CrossingSetup describes a crossing scenario: the environment, the candidate
// hypotheses shared by all other agents, and the true policy of each other
// agent (usually one of the hypotheses, but not necessarily).
type CrossingSetup struct {
	Params     game.CrossingParams `yaml:"params"`
	Hypotheses []GapRange          `yaml:"hypotheses"`
	TrueGaps   []GapRange          `yaml:"true_gaps"`
	PolicySeed int64               `yaml:"policy_seed"`
}

func DefaultCrossingSetup() CrossingSetup {
	return CrossingSetup{
		Params: game.DefaultCrossingParams(),
		Hypotheses: []GapRange{
			{Min: -8, Max: -1},
			{Min: 1, Max: 8},
		},
		TrueGaps:   []GapRange{{Min: 1, Max: 8}},
		PolicySeed: 3000,
	}
}

func (s CrossingSetup) Validate() error {
	if err := s.Params.Validate(); err != nil {
		return err
	}
	if len(s.Hypotheses) == 0 {
		return fmt.Errorf("crossing setup: need at least one hypothesis")
	}
	if len(s.TrueGaps) != s.Params.NumOtherAgents {
		return fmt.Errorf("crossing setup: %d true policies for %d other agents",
			len(s.TrueGaps), s.Params.NumOtherAgents)
	}
	return nil
}

// BuildCrossing instantiates the initial state and the true policies of a
// scenario. The assignment map ties the state to the belief tracker that owns
// it.
func BuildCrossing(setup CrossingSetup, assignment map[game.AgentIdx]game.HypothesisID) (*game.CrossingState, map[game.AgentIdx]TruePolicy, error) {
	if err := setup.Validate(); err != nil {
		return nil, nil, err
	}

	source := mt19937.New()
	source.Seed(setup.PolicySeed)
	rng := rand.New(source)

	hypotheses := make([]game.GapPolicy, len(setup.Hypotheses))
	for i, r := range setup.Hypotheses {
		hypotheses[i] = game.NewGapPolicy(r.Min, r.Max, rng)
	}
	state := game.NewCrossingState(setup.Params, hypotheses, assignment)

	truePolicies := make(map[game.AgentIdx]TruePolicy, len(setup.TrueGaps))
	for i, r := range setup.TrueGaps {
		policy := game.NewGapPolicy(r.Min, r.Max, rng)
		truePolicies[game.AgentIdx(i+1)] = func(s game.State, a game.AgentIdx) game.ActionIdx {
			crossing, ok := s.(*game.CrossingState)
			if !ok {
				return game.ActionWait
			}
			return policy.Act(crossing.DistanceToEgo(a))
		}
	}
	return state, truePolicies, nil
}
