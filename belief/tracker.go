package belief

import (
	"fmt"
	"math/rand"

	"ccmcts/game"

	"github.com/seehuhn/mt19937"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/floats"
)

// Posterior blend modes. Product multiplies the windowed likelihoods into the
// prior; Sum averages them. Both raise the posterior weight of hypotheses
// that explain observed actions and lower it otherwise.
const (
	PosteriorProduct = "product"
	PosteriorSum     = "sum"
)

type Params struct {
	HistoryLength int    `yaml:"history_length"`
	PosteriorType string `yaml:"posterior_type"`
	RandomSeed    int64  `yaml:"random_seed_hypothesis_sampling"`
}

func DefaultParams() Params {
	return Params{
		HistoryLength: 5,
		PosteriorType: PosteriorSum,
		RandomSeed:    2000,
	}
}

func (p Params) Validate() error {
	if p.HistoryLength <= 0 {
		return fmt.Errorf("belief: history length %d must be positive", p.HistoryLength)
	}
	if p.PosteriorType != PosteriorProduct && p.PosteriorType != PosteriorSum {
		return fmt.Errorf("belief: unknown posterior type %q", p.PosteriorType)
	}
	return nil
}

// Tracker maintains a posterior over each other agent's hypothesis, updated
// from observed actions. The assignment map returned by
// SampleCurrentHypothesis is live: domain states holding it observe every
// redraw.
type Tracker struct {
	params Params
	rng    *rand.Rand

	priors  map[game.AgentIdx][]float64
	history map[game.AgentIdx][][]float64
	beliefs map[game.AgentIdx][]float64
	current map[game.AgentIdx]game.HypothesisID
}

func NewTracker(params Params) (*Tracker, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	source := mt19937.New()
	source.Seed(params.RandomSeed)
	return &Tracker{
		params:  params,
		rng:     rand.New(source),
		priors:  make(map[game.AgentIdx][]float64),
		history: make(map[game.AgentIdx][][]float64),
		beliefs: make(map[game.AgentIdx][]float64),
		current: make(map[game.AgentIdx]game.HypothesisID),
	}, nil
}

// SampleCurrentHypothesis draws one hypothesis per tracked agent from its
// posterior, writing into the live assignment map. Before the first Update
// the map is returned empty so domain states can share it from construction.
func (t *Tracker) SampleCurrentHypothesis() map[game.AgentIdx]game.HypothesisID {
	for _, agent := range t.trackedAgents() {
		t.current[agent] = t.draw(t.beliefs[agent])
	}
	return t.current
}

func (t *Tracker) draw(belief []float64) game.HypothesisID {
	u := t.rng.Float64()
	cumulative := 0.0
	for h, p := range belief {
		cumulative += p
		if u < cumulative {
			return game.HypothesisID(h)
		}
	}
	return game.HypothesisID(len(belief) - 1)
}

// Update folds the last observed action of every other agent into its
// posterior: the likelihood of the action under each hypothesis, evaluated on
// the state the action was taken in, joins the history window and the
// posterior is recomputed from the prior and the window.
func (t *Tracker) Update(prev, current game.State) {
	for agent := game.AgentIdx(1); int(agent) < current.NumAgents(); agent++ {
		numHypotheses := int(prev.NumHypotheses(agent))
		if numHypotheses == 0 {
			continue
		}
		t.ensureTracked(agent, numHypotheses)

		observed := current.LastAction(agent)
		likelihood := make([]float64, numHypotheses)
		for h := 0; h < numHypotheses; h++ {
			likelihood[h] = prev.HypothesisProbability(game.HypothesisID(h), agent, observed)
		}

		window := append(t.history[agent], likelihood)
		if len(window) > t.params.HistoryLength {
			window = window[len(window)-t.params.HistoryLength:]
		}
		t.history[agent] = window

		t.beliefs[agent] = t.posterior(agent)
	}
}

func (t *Tracker) ensureTracked(agent game.AgentIdx, numHypotheses int) {
	if _, ok := t.priors[agent]; ok {
		return
	}
	prior := make([]float64, numHypotheses)
	for h := range prior {
		prior[h] = 1.0 / float64(numHypotheses)
	}
	t.priors[agent] = prior
	t.beliefs[agent] = slices.Clone(prior)
}

func (t *Tracker) posterior(agent game.AgentIdx) []float64 {
	prior := t.priors[agent]
	window := t.history[agent]
	posterior := slices.Clone(prior)

	switch t.params.PosteriorType {
	case PosteriorProduct:
		for _, likelihood := range window {
			floats.Mul(posterior, likelihood)
		}
	case PosteriorSum:
		accumulated := make([]float64, len(prior))
		for _, likelihood := range window {
			floats.Add(accumulated, likelihood)
		}
		floats.Scale(1/float64(len(window)), accumulated)
		floats.Mul(posterior, accumulated)
	}

	sum := floats.Sum(posterior)
	if sum <= 0 {
		// All hypotheses ruled out numerically; fall back to the prior.
		return slices.Clone(prior)
	}
	floats.Scale(1/sum, posterior)
	return posterior
}

// Beliefs returns a deep snapshot for logging.
func (t *Tracker) Beliefs() map[game.AgentIdx][]float64 {
	snapshot := make(map[game.AgentIdx][]float64, len(t.beliefs))
	for agent, belief := range t.beliefs {
		snapshot[agent] = slices.Clone(belief)
	}
	return snapshot
}

// CurrentAssignment exposes the live assignment map for state construction.
func (t *Tracker) CurrentAssignment() map[game.AgentIdx]game.HypothesisID {
	return t.current
}

func (t *Tracker) trackedAgents() []game.AgentIdx {
	agents := maps.Keys(t.beliefs)
	slices.Sort(agents)
	return agents
}
