package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"ccmcts/searcher"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadOverlaysYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
search:
  max_iterations: 250
  max_search_time: 250ms
  cost_constrained_statistic:
    cost_constraint: 0.25
belief:
  posterior_type: product
runner:
  max_steps: 12
`)
	require.NoError(t, os.WriteFile(path, content, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 250, cfg.Search.MaxIterations)
	require.Equal(t, searcher.Duration(250*time.Millisecond), cfg.Search.MaxSearchTime)
	require.Equal(t, 0.25, cfg.Search.CostConstrained.CostConstraint)
	require.Equal(t, "product", cfg.Belief.PosteriorType)
	require.Equal(t, 12, cfg.Runner.MaxSteps)
	// Untouched sections keep their defaults.
	require.Equal(t, Default().Search.DiscountFactor, cfg.Search.DiscountFactor)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
search:
  cost_constrained_statistic:
    reward_lower_bound: 10
    reward_upper_bound: 5
`)
	require.NoError(t, os.WriteFile(path, content, 0644))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "reward upper bound")
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadRejectsMalformedYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search: ["), 0644))

	_, err := Load(path)
	require.Error(t, err)
}
