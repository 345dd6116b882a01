package experiments

import "time"

// StepRecord is one planning step of one episode.
type StepRecord struct {
	Episode    string
	Step       int
	Action     int
	Reward     float64
	Cost       float64
	Lambda     float64
	Iterations int
	Duration   time.Duration
}

// EpisodeRecord is the outcome of one episode under one cost constraint.
type EpisodeRecord struct {
	ID              string
	CostConstraint  float64
	NumSteps        int
	Collision       bool
	GoalReached     bool
	MaxStepsReached bool
	TotalReward     float64
	TotalCost       float64
}
