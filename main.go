package main

import (
	"fmt"
	"os"

	"ccmcts/belief"
	"ccmcts/config"
	"ccmcts/engine"
	"ccmcts/experiments"
	"ccmcts/searcher"
	"ccmcts/viewer"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	var configPath string
	var verbose bool

	root := &cobra.Command{
		Use:   "ccmcts",
		Short: "Cost-constrained MCTS planner under latent opponent behavior",
		PersistentPreRun: func(*cobra.Command, []string) {
			level := zerolog.InfoLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
				Level(level).
				With().Timestamp().Logger()
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	var render bool
	run := &cobra.Command{
		Use:   "run",
		Short: "Run one crossing episode",
		RunE: func(*cobra.Command, []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return runEpisode(cfg, render)
		},
	}
	run.Flags().BoolVar(&render, "render", false, "render the corridor each step")

	var constraints []float64
	var episodes int
	sweep := &cobra.Command{
		Use:   "sweep",
		Short: "Sweep cost constraints and record outcomes",
		RunE: func(*cobra.Command, []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			summaries, err := experiments.RunConstraintSweep(cfg, constraints, episodes)
			if err != nil {
				return err
			}
			for _, s := range summaries {
				fmt.Printf("C_max=%.2f reward=%.1f cost=%.3f collisions=%.0f%% goals=%.0f%%\n",
					s.CostConstraint, s.MeanReward, s.MeanCost, 100*s.CollisionRate, 100*s.GoalRate)
			}
			return nil
		},
	}
	sweep.Flags().Float64SliceVar(&constraints, "constraints", []float64{0.05, 0.1, 0.2, 0.4}, "cost constraints to sweep")
	sweep.Flags().IntVar(&episodes, "episodes", 10, "episodes per constraint")

	root.AddCommand(run, sweep)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runEpisode(cfg config.Config, render bool) error {
	tracker, err := belief.NewTracker(cfg.Belief)
	if err != nil {
		return err
	}
	state, truePolicies, err := engine.BuildCrossing(cfg.Crossing, tracker.CurrentAssignment())
	if err != nil {
		return err
	}
	planner, err := searcher.NewMCTS(cfg.Search)
	if err != nil {
		return err
	}

	var v engine.Viewer
	if render {
		v = viewer.NewCrossing(os.Stdout)
	}
	runner, err := engine.NewRunner(cfg.Runner, planner, tracker, state, truePolicies, v)
	if err != nil {
		return err
	}

	result := runner.Run()
	log.Info().
		Int("steps", result.NumSteps).
		Bool("collision", result.Collision).
		Bool("goal_reached", result.GoalReached).
		Bool("max_steps", result.MaxStepsReached).
		Float64("total_reward", result.TotalReward).
		Float64("total_cost", result.TotalCost).
		Msg("episode finished")
	return nil
}
