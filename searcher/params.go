package searcher

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration accepts "250ms"-style YAML values.
type Duration time.Duration

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("search: invalid duration %q: %w", node.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// UctParams configure one UCB statistic channel.
type UctParams struct {
	LowerBound               float64 `yaml:"lower_bound"`
	UpperBound               float64 `yaml:"upper_bound"`
	ExplorationConstant      float64 `yaml:"exploration_constant"`
	ProgressiveWideningK     float64 `yaml:"progressive_widening_k"`
	ProgressiveWideningAlpha float64 `yaml:"progressive_widening_alpha"`
}

func (p UctParams) Validate() error {
	if p.UpperBound <= p.LowerBound {
		return fmt.Errorf("uct statistic: upper bound %v must exceed lower bound %v", p.UpperBound, p.LowerBound)
	}
	if p.ExplorationConstant < 0 {
		return fmt.Errorf("uct statistic: exploration constant %v must not be negative", p.ExplorationConstant)
	}
	if p.ProgressiveWideningK <= 0 || p.ProgressiveWideningAlpha < 0 || p.ProgressiveWideningAlpha > 1 {
		return fmt.Errorf("uct statistic: widening k=%v alpha=%v outside valid range", p.ProgressiveWideningK, p.ProgressiveWideningAlpha)
	}
	return nil
}

// CostConstrainedParams configure the cost-constrained node statistic. Lambda
// is live state: the gradient updater mutates it between iterations and every
// statistic of the tree reads it through a pointer to this struct.
type CostConstrainedParams struct {
	Lambda             float64 `yaml:"lambda"`
	Kappa              float64 `yaml:"kappa"`
	ActionFilterFactor float64 `yaml:"action_filter_factor"`
	CostConstraint     float64 `yaml:"cost_constraint"`
	CostLowerBound     float64 `yaml:"cost_lower_bound"`
	CostUpperBound     float64 `yaml:"cost_upper_bound"`
	RewardLowerBound   float64 `yaml:"reward_lower_bound"`
	RewardUpperBound   float64 `yaml:"reward_upper_bound"`
	GradientUpdateStep float64 `yaml:"gradient_update_step"`
	TauGradientClip    float64 `yaml:"tau_gradient_clip"`
}

func (p CostConstrainedParams) Validate() error {
	if p.Lambda < 0 {
		return fmt.Errorf("cost constrained statistic: lambda %v must not be negative", p.Lambda)
	}
	if p.RewardUpperBound <= p.RewardLowerBound {
		return fmt.Errorf("cost constrained statistic: reward upper bound %v must exceed lower bound %v", p.RewardUpperBound, p.RewardLowerBound)
	}
	if p.CostUpperBound <= p.CostLowerBound {
		return fmt.Errorf("cost constrained statistic: cost upper bound %v must exceed lower bound %v", p.CostUpperBound, p.CostLowerBound)
	}
	if p.TauGradientClip <= 0 {
		return fmt.Errorf("cost constrained statistic: tau gradient clip %v must be positive", p.TauGradientClip)
	}
	return nil
}

// rewardChannel derives the reward-statistic bounds.
func (p CostConstrainedParams) rewardChannel(base UctParams) UctParams {
	base.LowerBound = p.RewardLowerBound
	base.UpperBound = p.RewardUpperBound
	return base
}

// costChannel derives the cost-statistic bounds. Risk is not discounted; the
// caller forces discount 1.0 alongside.
func (p CostConstrainedParams) costChannel(base UctParams) UctParams {
	base.LowerBound = p.CostLowerBound
	base.UpperBound = p.CostUpperBound
	return base
}

// Params is the full parameter object of one planner.
type Params struct {
	MaxIterations   int      `yaml:"max_iterations"`
	MaxSearchTime   Duration `yaml:"max_search_time"`
	RandomSeed      int64    `yaml:"random_seed"`
	DiscountFactor  float64  `yaml:"discount_factor"`
	MaxRolloutDepth int      `yaml:"max_rollout_depth"`

	Uct             UctParams             `yaml:"uct_statistic"`
	CostConstrained CostConstrainedParams `yaml:"cost_constrained_statistic"`
}

func DefaultParams() Params {
	return Params{
		MaxIterations:   1000,
		MaxSearchTime:   Duration(time.Second),
		RandomSeed:      1000,
		DiscountFactor:  0.9,
		MaxRolloutDepth: 100,
		Uct: UctParams{
			LowerBound:               -1000.0,
			UpperBound:               100.0,
			ExplorationConstant:      0.7,
			ProgressiveWideningK:     4.0,
			ProgressiveWideningAlpha: 0.25,
		},
		CostConstrained: CostConstrainedParams{
			Lambda:             2.0,
			Kappa:              10.0,
			ActionFilterFactor: 1.0,
			CostConstraint:     0.1,
			CostLowerBound:     0.0,
			CostUpperBound:     1.0,
			RewardLowerBound:   -1000.0,
			RewardUpperBound:   100.0,
			GradientUpdateStep: 1.0,
			TauGradientClip:    1.0,
		},
	}
}

func (p Params) Validate() error {
	if p.MaxIterations <= 0 && p.MaxSearchTime <= 0 {
		return fmt.Errorf("search: must bound iterations or search time")
	}
	if p.DiscountFactor <= 0 || p.DiscountFactor >= 1 {
		return fmt.Errorf("search: discount factor %v outside (0, 1)", p.DiscountFactor)
	}
	if p.MaxRolloutDepth <= 0 {
		return fmt.Errorf("search: max rollout depth %v must be positive", p.MaxRolloutDepth)
	}
	if err := p.Uct.Validate(); err != nil {
		return err
	}
	return p.CostConstrained.Validate()
}
