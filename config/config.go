package config

import (
	"fmt"
	"os"

	"ccmcts/belief"
	"ccmcts/engine"
	"ccmcts/searcher"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration: planner, belief tracker, episode
// runner and the crossing scenario.
type Config struct {
	Search   searcher.Params      `yaml:"search"`
	Belief   belief.Params        `yaml:"belief"`
	Runner   engine.Params        `yaml:"runner"`
	Crossing engine.CrossingSetup `yaml:"crossing"`
}

func Default() Config {
	return Config{
		Search:   searcher.DefaultParams(),
		Belief:   belief.DefaultParams(),
		Runner:   engine.DefaultParams(),
		Crossing: engine.DefaultCrossingSetup(),
	}
}

// Load overlays a YAML file onto the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := c.Search.Validate(); err != nil {
		return err
	}
	if err := c.Belief.Validate(); err != nil {
		return err
	}
	if err := c.Runner.Validate(); err != nil {
		return err
	}
	return c.Crossing.Validate()
}
