package experiments

import (
	"fmt"

	"ccmcts/belief"
	"ccmcts/config"
	"ccmcts/engine"
	"ccmcts/searcher"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat"
)

// SweepSummary aggregates all episodes run under one cost constraint.
type SweepSummary struct {
	CostConstraint float64
	Episodes       int
	MeanReward     float64
	MeanCost       float64
	CollisionRate  float64
	GoalRate       float64
}

// RunConstraintSweep runs episodesPer crossing episodes for every cost
// constraint in the list and writes episode and step records as CSV.
// Tightening the constraint should trade reward for fewer collisions.
func RunConstraintSweep(cfg config.Config, constraints []float64, episodesPer int) ([]SweepSummary, error) {
	if len(constraints) == 0 || episodesPer <= 0 {
		return nil, fmt.Errorf("sweep: need at least one constraint and one episode")
	}

	writer, err := NewWriter("constraint_sweep")
	if err != nil {
		return nil, err
	}

	var episodeRecords []EpisodeRecord
	var stepRecords []StepRecord
	summaries := make([]SweepSummary, 0, len(constraints))

	for _, constraint := range constraints {
		rewards := make([]float64, 0, episodesPer)
		costs := make([]float64, 0, episodesPer)
		collisions := 0
		goals := 0

		for episode := 0; episode < episodesPer; episode++ {
			result, err := runEpisode(cfg, constraint, episode)
			if err != nil {
				return nil, err
			}

			id := uuid.NewString()
			episodeRecords = append(episodeRecords, EpisodeRecord{
				ID:              id,
				CostConstraint:  constraint,
				NumSteps:        result.NumSteps,
				Collision:       result.Collision,
				GoalReached:     result.GoalReached,
				MaxStepsReached: result.MaxStepsReached,
				TotalReward:     result.TotalReward,
				TotalCost:       result.TotalCost,
			})
			for step, s := range result.Steps {
				stepRecords = append(stepRecords, StepRecord{
					Episode:    id,
					Step:       step,
					Action:     int(s.Action),
					Reward:     s.Reward,
					Cost:       s.EgoCost,
					Lambda:     s.Search.Lambda,
					Iterations: s.Search.Iterations,
					Duration:   s.Search.Duration,
				})
			}

			rewards = append(rewards, result.TotalReward)
			costs = append(costs, result.TotalCost)
			if result.Collision {
				collisions++
			}
			if result.GoalReached {
				goals++
			}
		}

		summary := SweepSummary{
			CostConstraint: constraint,
			Episodes:       episodesPer,
			MeanReward:     stat.Mean(rewards, nil),
			MeanCost:       stat.Mean(costs, nil),
			CollisionRate:  float64(collisions) / float64(episodesPer),
			GoalRate:       float64(goals) / float64(episodesPer),
		}
		summaries = append(summaries, summary)
		log.Info().
			Float64("cost_constraint", summary.CostConstraint).
			Float64("mean_reward", summary.MeanReward).
			Float64("mean_cost", summary.MeanCost).
			Float64("collision_rate", summary.CollisionRate).
			Msg("sweep point finished")
	}

	if err := writer.WriteEpisodeRecords(episodeRecords); err != nil {
		return nil, err
	}
	if err := writer.WriteStepRecords(stepRecords); err != nil {
		return nil, err
	}
	log.Info().Str("dir", writer.BaseDir()).Msg("sweep records written")
	return summaries, nil
}

func runEpisode(cfg config.Config, constraint float64, episode int) (engine.EpisodeResult, error) {
	runCfg := cfg
	runCfg.Search.CostConstrained.CostConstraint = constraint
	// Vary seeds per episode, deterministically for the whole sweep.
	runCfg.Search.RandomSeed = cfg.Search.RandomSeed + int64(episode)
	runCfg.Belief.RandomSeed = cfg.Belief.RandomSeed + int64(episode)
	runCfg.Crossing.PolicySeed = cfg.Crossing.PolicySeed + int64(episode)

	tracker, err := belief.NewTracker(runCfg.Belief)
	if err != nil {
		return engine.EpisodeResult{}, err
	}
	state, truePolicies, err := engine.BuildCrossing(runCfg.Crossing, tracker.CurrentAssignment())
	if err != nil {
		return engine.EpisodeResult{}, err
	}
	planner, err := searcher.NewMCTS(runCfg.Search)
	if err != nil {
		return engine.EpisodeResult{}, err
	}
	runner, err := engine.NewRunner(runCfg.Runner, planner, tracker, state, truePolicies, nil)
	if err != nil {
		return engine.EpisodeResult{}, err
	}
	return runner.Run(), nil
}
