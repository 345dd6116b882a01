package game

// State is the contract an environment must satisfy to be searchable.
// Execute must be pure with respect to the receiver: it returns the successor
// state together with per-agent rewards and the ego cost, leaving the
// receiver unchanged.
type State interface {
	NumAgents() int
	NumActions(agent AgentIdx) ActionIdx
	Execute(joint JointAction) (next State, rewards []float64, egoCost float64)
	IsTerminal() bool

	// PlanActionCurrentHypothesis returns the action the given other agent
	// takes under its currently assigned hypothesis.
	PlanActionCurrentHypothesis(agent AgentIdx) ActionIdx
	// HypothesisProbability is the likelihood of an observed action under one
	// candidate policy, used by belief updates.
	HypothesisProbability(h HypothesisID, agent AgentIdx, action ActionIdx) float64
	NumHypotheses(agent AgentIdx) HypothesisID
	LastAction(agent AgentIdx) ActionIdx
}
