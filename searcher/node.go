package searcher

import "ccmcts/game"

// Statistic is the per-node decision rule of the ego agent. Implementations:
// CostConstrainedStat (constrained planning), UctStat (plain UCB) and
// RandomStat (test stub).
type Statistic interface {
	// ChooseNextAction picks the tree-policy action at this node, expanding
	// where the implementation's widening rule allows it.
	ChooseNextAction(state game.State) game.ActionIdx
	// Collect records the edge about to be traversed together with the
	// immediate ego reward and cost observed on it.
	Collect(action game.ActionIdx, reward, cost float64)
	// Backup folds the child's latest returns into this node.
	Backup(child Statistic)
	// SeedHeuristic initializes a fresh leaf from rollout estimates.
	SeedHeuristic(reward, cost float64)
	// LatestReturns exposes the reward and cost returns of the last update
	// for consumption by the parent's Backup.
	LatestReturns() (reward, cost float64)
	// BestAction is the deterministic exploitation choice for reporting.
	BestAction() game.ActionIdx
}

// stageNode is one tree position: the state reached by a joint-action path
// from the root, the ego statistic deciding there, and children keyed by
// joint action. The tree exclusively owns its nodes; parents are not linked
// because backpropagation recurses over the recorded descent path.
type stageNode struct {
	state    game.State
	ego      Statistic
	children map[string]*stageNode
}

func newStageNode(state game.State, ego Statistic) *stageNode {
	return &stageNode{
		state:    state,
		ego:      ego,
		children: make(map[string]*stageNode),
	}
}
