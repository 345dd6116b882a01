package searcher

import (
	"math/rand"
	"testing"

	"ccmcts/game"

	"github.com/seehuhn/mt19937"
	"github.com/stretchr/testify/require"
)

func testRng(seed int64) *rand.Rand {
	source := mt19937.New()
	source.Seed(seed)
	return rand.New(source)
}

func testUctParams() UctParams {
	return UctParams{
		LowerBound:               0,
		UpperBound:               2,
		ExplorationConstant:      0.7,
		ProgressiveWideningK:     4,
		ProgressiveWideningAlpha: 0.25,
	}
}

func TestUctStatExpandsBeforeExploiting(t *testing.T) {
	s := NewUctStat(3, testUctParams(), 0.9, testRng(1))

	// Each choice is backed up as in the driver, so the widening bound
	// 4*N^0.25 grows with the visits and admits all three expansions.
	seen := map[game.ActionIdx]bool{}
	for i := 0; i < 3; i++ {
		action := s.ChooseNextAction(nil)
		require.False(t, seen[action], "each action should be expanded exactly once")
		seen[action] = true
		s.collect(action, 1.0)
		s.backup(0)
	}
	require.Len(t, s.ucb, 3)
	require.Empty(t, s.unexpanded)
}

func TestUctStatSelectsLowestIndexOnTies(t *testing.T) {
	s := NewUctStat(3, testUctParams(), 0.9, testRng(1))
	s.ucb = map[game.ActionIdx]*UcbPair{
		0: {Count: 10, Value: 1.0},
		1: {Count: 10, Value: 1.0},
		2: {Count: 10, Value: 1.0},
	}
	s.unexpanded = nil
	s.totalVisits = 30

	require.Equal(t, game.ActionIdx(0), s.ChooseNextAction(nil))
	require.Equal(t, game.ActionIdx(0), s.BestAction())
}

func TestUctStatPrefersUnvisitedExpandedAction(t *testing.T) {
	s := NewUctStat(3, testUctParams(), 0.9, testRng(1))
	s.ucb = map[game.ActionIdx]*UcbPair{
		0: {Count: 10, Value: 2.0},
		1: {Count: 0, Value: 0},
		2: {Count: 5, Value: 1.0},
	}
	s.unexpanded = nil
	s.totalVisits = 15

	require.Equal(t, game.ActionIdx(1), s.ChooseNextAction(nil),
		"an unvisited action carries an infinite exploration bonus")
}

func TestUctStatBackup(t *testing.T) {
	s := NewUctStat(2, testUctParams(), 0.9, testRng(1))
	s.registerAction(0)
	s.registerAction(1)

	s.collect(0, 1.0)
	s.backup(1.0)

	require.InDelta(t, 1.9, s.latestReturn, 1e-12, "return is immediate plus discounted child return")
	require.Equal(t, uint64(1), s.ucb[0].Count)
	require.InDelta(t, 1.9, s.ucb[0].Value, 1e-12)
	require.Equal(t, uint64(1), s.totalVisits)

	s.collect(0, 0.5)
	s.backup(0.0)

	require.InDelta(t, 0.5, s.latestReturn, 1e-12)
	require.Equal(t, uint64(2), s.ucb[0].Count)
	require.InDelta(t, 1.2, s.ucb[0].Value, 1e-12, "action value is the running mean of returns")
	require.Equal(t, uint64(2), s.totalVisits)

	total := uint64(0)
	for _, pair := range s.ucb {
		total += pair.Count
	}
	require.Equal(t, s.totalVisits, total, "visit counts must partition total visits")
}

func TestUctStatSeedHeuristic(t *testing.T) {
	s := NewUctStat(2, testUctParams(), 0.9, testRng(1))

	s.seedHeuristic(1.5)

	require.Equal(t, 1.5, s.value)
	require.Equal(t, 1.5, s.latestReturn)
	require.Equal(t, uint64(1), s.totalVisits)
	for _, pair := range s.ucb {
		require.Equal(t, uint64(0), pair.Count, "heuristic seeding must not touch action counters")
	}
}

func TestUctStatNormalization(t *testing.T) {
	s := NewUctStat(2, testUctParams(), 0.9, testRng(1))
	s.ucb[0] = &UcbPair{Count: 1, Value: 1.0}
	s.ucb[1] = &UcbPair{Count: 1, Value: 2.0}

	require.InDelta(t, 0.5, s.NormalizedActionValue(0), 1e-12)
	require.InDelta(t, 1.0, s.NormalizedActionValue(1), 1e-12)

	s.ucb[1].Value = 5.0 // out of bounds, must clamp
	require.Equal(t, 1.0, s.NormalizedActionValue(1))
	s.ucb[1].Value = -3.0
	require.Equal(t, 0.0, s.NormalizedActionValue(1))
}

func TestUctStatProgressiveWidening(t *testing.T) {
	p := testUctParams()
	p.ProgressiveWideningK = 1
	p.ProgressiveWideningAlpha = 0.5
	s := NewUctStat(10, p, 0.9, testRng(1))

	// With one expanded action and one visit, 1 <= 1*1^0.5 keeps widening on.
	s.ChooseNextAction(nil)
	s.collect(s.expandedActions()[0], 1.0)
	s.backup(0)
	require.True(t, s.requireProgressiveWidening())

	// Many expanded actions against few visits turns widening off.
	for i := 0; i < 4; i++ {
		s.registerAction(s.unexpanded[0])
	}
	require.False(t, s.requireProgressiveWidening(), "5 expanded > 1*1^0.5 visits")
}
