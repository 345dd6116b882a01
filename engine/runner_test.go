package engine

import (
	"testing"
	"time"

	"ccmcts/belief"
	"ccmcts/game"
	"ccmcts/searcher"

	"github.com/stretchr/testify/require"
)

func testSetup() CrossingSetup {
	setup := DefaultCrossingSetup()
	setup.Params.CorridorLength = 11
	setup.Params.EgoGoalPosition = 8
	setup.Hypotheses = []GapRange{{Min: -3, Max: -1}, {Min: 1, Max: 3}}
	setup.TrueGaps = []GapRange{{Min: 1, Max: 3}}
	return setup
}

func testPlannerParams() searcher.Params {
	params := searcher.DefaultParams()
	params.MaxIterations = 50
	params.MaxSearchTime = searcher.Duration(time.Second)
	params.MaxRolloutDepth = 20
	return params
}

func buildRunner(t *testing.T, viewer Viewer) *Runner {
	t.Helper()
	tracker, err := belief.NewTracker(belief.DefaultParams())
	require.NoError(t, err)

	state, truePolicies, err := BuildCrossing(testSetup(), tracker.CurrentAssignment())
	require.NoError(t, err)

	planner, err := searcher.NewMCTS(testPlannerParams())
	require.NoError(t, err)

	runner, err := NewRunner(DefaultParams(), planner, tracker, state, truePolicies, viewer)
	require.NoError(t, err)
	return runner
}

func TestRunnerEpisodeTerminates(t *testing.T) {
	runner := buildRunner(t, nil)

	result := runner.Run()

	require.Greater(t, result.NumSteps, 0)
	require.Len(t, result.Steps, result.NumSteps)
	require.Len(t, result.BeliefHistory, result.NumSteps)
	if !result.MaxStepsReached {
		require.True(t, result.Steps[result.NumSteps-1].Terminal)
	}
	require.LessOrEqual(t, result.NumSteps, DefaultParams().MaxSteps)

	for _, step := range result.Steps {
		require.GreaterOrEqual(t, step.Action, game.ActionIdx(0))
		require.Less(t, step.Action, game.ActionIdx(game.NumCrossingActions))
	}
}

func TestRunnerTracksBeliefs(t *testing.T) {
	runner := buildRunner(t, nil)

	runner.Step()
	beliefs := runner.tracker.Beliefs()
	require.Contains(t, beliefs, game.AgentIdx(1))
	sum := 0.0
	for _, p := range beliefs[1] {
		sum += p
	}
	require.InDelta(t, 1.0, sum, 1e-9)
}

func TestRunnerStepOnTerminalStateIsNoOp(t *testing.T) {
	runner := buildRunner(t, nil)
	for i := 0; i < DefaultParams().MaxSteps; i++ {
		if result := runner.Step(); result.Terminal {
			break
		}
	}
	if runner.State().IsTerminal() {
		result := runner.Step()
		require.True(t, result.Terminal)
		require.Equal(t, 0.0, result.Reward)
	}
}

func TestNewRunnerValidation(t *testing.T) {
	tracker, err := belief.NewTracker(belief.DefaultParams())
	require.NoError(t, err)
	state, truePolicies, err := BuildCrossing(testSetup(), tracker.CurrentAssignment())
	require.NoError(t, err)
	planner, err := searcher.NewMCTS(testPlannerParams())
	require.NoError(t, err)

	_, err = NewRunner(Params{MaxSteps: 0}, planner, tracker, state, truePolicies, nil)
	require.Error(t, err, "max steps must be positive")

	_, err = NewRunner(DefaultParams(), planner, tracker, state, map[game.AgentIdx]TruePolicy{}, nil)
	require.Error(t, err, "every other agent needs a true policy")
}

func TestBuildCrossingValidation(t *testing.T) {
	setup := testSetup()
	setup.Hypotheses = nil
	_, _, err := BuildCrossing(setup, map[game.AgentIdx]game.HypothesisID{})
	require.Error(t, err)

	setup = testSetup()
	setup.TrueGaps = nil
	_, _, err = BuildCrossing(setup, map[game.AgentIdx]game.HypothesisID{})
	require.Error(t, err)
}
