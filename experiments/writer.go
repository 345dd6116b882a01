package experiments

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type Writer struct {
	baseDir string
}

// NewWriter creates a timestamped output directory for one experiment run.
func NewWriter(name string) (*Writer, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339)
	baseDir := filepath.Join("experiments", name, timestamp)
	err := os.MkdirAll(baseDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	return &Writer{
		baseDir: baseDir,
	}, nil
}

func (w *Writer) BaseDir() string { return w.baseDir }

func (w *Writer) WriteEpisodeRecords(records []EpisodeRecord) error {
	path := filepath.Join(w.baseDir, "episode_records.csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create episode records file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	defer writer.Flush()

	header := []string{"id", "cost_constraint", "num_steps", "collision", "goal_reached", "max_steps_reached", "total_reward", "total_cost"}
	err = writer.Write(header)
	if err != nil {
		return fmt.Errorf("failed to write episode records header: %w", err)
	}

	for _, record := range records {
		row := []string{
			record.ID,
			strconv.FormatFloat(record.CostConstraint, 'f', -1, 64),
			strconv.Itoa(record.NumSteps),
			strconv.FormatBool(record.Collision),
			strconv.FormatBool(record.GoalReached),
			strconv.FormatBool(record.MaxStepsReached),
			strconv.FormatFloat(record.TotalReward, 'f', -1, 64),
			strconv.FormatFloat(record.TotalCost, 'f', -1, 64),
		}
		err = writer.Write(row)
		if err != nil {
			return fmt.Errorf("failed to write episode record row: %w", err)
		}
	}

	return nil
}

func (w *Writer) WriteStepRecords(records []StepRecord) error {
	path := filepath.Join(w.baseDir, "step_records.csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create step records file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	defer writer.Flush()

	header := []string{"episode", "step", "action", "reward", "cost", "lambda", "iterations", "duration"}
	err = writer.Write(header)
	if err != nil {
		return fmt.Errorf("failed to write step records header: %w", err)
	}

	for _, record := range records {
		row := []string{
			record.Episode,
			strconv.Itoa(record.Step),
			strconv.Itoa(record.Action),
			strconv.FormatFloat(record.Reward, 'f', -1, 64),
			strconv.FormatFloat(record.Cost, 'f', -1, 64),
			strconv.FormatFloat(record.Lambda, 'f', -1, 64),
			strconv.Itoa(record.Iterations),
			record.Duration.String(),
		}
		err = writer.Write(row)
		if err != nil {
			return fmt.Errorf("failed to write step record row: %w", err)
		}
	}

	return nil
}
