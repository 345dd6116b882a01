package game

import "strconv"

// ActionIdx is a dense action index in [0, NumActions).
type ActionIdx int

// AgentIdx identifies an agent; EgoAgentIdx is the planning agent, 1..n are others.
type AgentIdx int

// HypothesisID indexes the candidate policy set of one other agent.
type HypothesisID int

const EgoAgentIdx AgentIdx = 0

// JointAction holds one action per agent, indexed by AgentIdx.
type JointAction []ActionIdx

// Key encodes the joint action for use as a child map key.
func (ja JointAction) Key() string {
	buf := make([]byte, 0, 2*len(ja))
	for i, a := range ja {
		if i > 0 {
			buf = append(buf, '/')
		}
		buf = strconv.AppendInt(buf, int64(a), 10)
	}
	return string(buf)
}
