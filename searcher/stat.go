package searcher

import (
	"math"
	"math/rand"
	"strings"

	"ccmcts/game"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// UcbPair tracks the running mean of returns seen for one action.
type UcbPair struct {
	Count uint64
	Value float64
}

// UctStat is a single-channel UCB statistic: running action values, visit
// counters and progressive widening over the unexpanded action set.
type UctStat struct {
	value        float64
	latestReturn float64
	ucb          map[game.ActionIdx]*UcbPair
	totalVisits  uint64
	unexpanded   []game.ActionIdx
	numActions   game.ActionIdx

	lower       float64
	upper       float64
	discount    float64
	exploration float64
	pwK         float64
	pwAlpha     float64

	rng *rand.Rand

	// Edge data recorded during descent, consumed on backpropagation.
	collectedAction game.ActionIdx
	collectedValue  float64
}

func NewUctStat(numActions game.ActionIdx, p UctParams, discount float64, rng *rand.Rand) *UctStat {
	unexpanded := make([]game.ActionIdx, numActions)
	for i := range unexpanded {
		unexpanded[i] = game.ActionIdx(i)
	}
	return &UctStat{
		ucb:         make(map[game.ActionIdx]*UcbPair, numActions),
		unexpanded:  unexpanded,
		numActions:  numActions,
		lower:       p.LowerBound,
		upper:       p.UpperBound,
		discount:    discount,
		exploration: p.ExplorationConstant,
		pwK:         p.ProgressiveWideningK,
		pwAlpha:     p.ProgressiveWideningAlpha,
		rng:         rng,
	}
}

// ChooseNextAction expands a random unexpanded action while progressive
// widening allows it, otherwise exploits via the UCB formula.
func (s *UctStat) ChooseNextAction(game.State) game.ActionIdx {
	if s.requireProgressiveWidening() {
		return s.expandRandom()
	}
	return s.maxUCBAction()
}

// requireProgressiveWidening limits expanded children to pwK * visits^pwAlpha.
func (s *UctStat) requireProgressiveWidening() bool {
	widening := s.pwK * math.Pow(float64(s.totalVisits), s.pwAlpha)
	expanded := game.ActionIdx(len(s.ucb))
	return float64(expanded) <= widening && expanded < s.numActions
}

func (s *UctStat) expandRandom() game.ActionIdx {
	idx := s.rng.Intn(len(s.unexpanded))
	action := s.unexpanded[idx]
	s.unexpanded = append(s.unexpanded[:idx], s.unexpanded[idx+1:]...)
	s.ucb[action] = &UcbPair{}
	return action
}

// registerAction moves an action from the unexpanded set into the table with
// a fresh pair, for owners that govern expansion themselves.
func (s *UctStat) registerAction(action game.ActionIdx) {
	for i, a := range s.unexpanded {
		if a == action {
			s.unexpanded = append(s.unexpanded[:i], s.unexpanded[i+1:]...)
			break
		}
	}
	if _, ok := s.ucb[action]; !ok {
		s.ucb[action] = &UcbPair{}
	}
}

func (s *UctStat) maxUCBAction() game.ActionIdx {
	best := game.ActionIdx(0)
	maxValue := math.Inf(-1)
	for _, action := range s.expandedActions() {
		pair := s.ucb[action]
		bonus := math.Inf(1)
		if pair.Count > 0 {
			bonus = 2 * s.exploration * math.Sqrt(2*math.Log(float64(s.totalVisits))/float64(pair.Count))
		}
		value := s.normalize(pair.Value) + bonus
		if value > maxValue {
			maxValue = value
			best = action
		}
	}
	return best
}

// collect records the traversed edge for the next backup.
func (s *UctStat) collect(action game.ActionIdx, immediate float64) {
	s.collectedAction = action
	s.collectedValue = immediate
}

// backup folds a child's latest return into the collected edge:
// the node return is the immediate value plus the discounted child return.
func (s *UctStat) backup(childReturn float64) {
	pair, ok := s.ucb[s.collectedAction]
	if !ok {
		pair = &UcbPair{}
		s.ucb[s.collectedAction] = pair
	}
	s.latestReturn = s.collectedValue + s.discount*childReturn
	pair.Count++
	pair.Value += (s.latestReturn - pair.Value) / float64(pair.Count)
	s.totalVisits++
	s.value += (s.latestReturn - s.value) / float64(s.totalVisits)
}

// seedHeuristic initializes a fresh leaf from a rollout estimate. No action
// counter changes, only the node value and visit count.
func (s *UctStat) seedHeuristic(estimate float64) {
	s.value = estimate
	s.latestReturn = estimate
	s.totalVisits++
}

// setEstimate overwrites the node value without counting a visit.
func (s *UctStat) setEstimate(estimate float64) {
	s.value = estimate
}

// NormalizedActionValue maps an action value into [0, 1] given the configured
// bounds. Out-of-range values indicate a bug upstream; they are clamped and
// logged rather than propagated.
func (s *UctStat) NormalizedActionValue(action game.ActionIdx) float64 {
	return s.normalize(s.ucb[action].Value)
}

func (s *UctStat) normalize(value float64) float64 {
	normalized := (value - s.lower) / (s.upper - s.lower)
	if normalized < 0 || normalized > 1 {
		log.Warn().
			Float64("value", value).
			Float64("lower", s.lower).
			Float64("upper", s.upper).
			Msg("statistic value outside configured bounds, clamping")
		normalized = math.Min(math.Max(normalized, 0), 1)
	}
	return normalized
}

func (s *UctStat) expandedActions() []game.ActionIdx {
	actions := maps.Keys(s.ucb)
	slices.Sort(actions)
	return actions
}

// BestAction is the expanded action with the highest mean return.
func (s *UctStat) BestAction() game.ActionIdx {
	best := game.ActionIdx(0)
	maxValue := math.Inf(-1)
	for _, action := range s.expandedActions() {
		if v := s.ucb[action].Value; v > maxValue {
			maxValue = v
			best = action
		}
	}
	return best
}

// Policy maps each expanded action to its mean return. The entries are action
// values, not probabilities, and need not sum to one.
func (s *UctStat) Policy() Policy {
	policy := make(Policy, len(s.ucb))
	for action, pair := range s.ucb {
		policy[action] = pair.Value
	}
	return policy
}

func (s *UctStat) TotalVisits() uint64 { return s.totalVisits }

func (s *UctStat) LatestReturn() float64 { return s.latestReturn }

func (s *UctStat) Value() float64 { return s.value }

// ActionStats returns a copy of the per-action statistics.
func (s *UctStat) ActionStats() map[game.ActionIdx]UcbPair {
	stats := make(map[game.ActionIdx]UcbPair, len(s.ucb))
	for action, pair := range s.ucb {
		stats[action] = *pair
	}
	return stats
}

func (s *UctStat) String() string {
	var b strings.Builder
	for _, action := range s.expandedActions() {
		pair := s.ucb[action]
		b.WriteString(formatEdge(action, pair.Value, pair.Count))
	}
	return b.String()
}

// Statistic interface: the plain UCB statistic ignores the cost channel.

func (s *UctStat) Collect(action game.ActionIdx, reward, _ float64) {
	s.collect(action, reward)
}

func (s *UctStat) Backup(child Statistic) {
	reward, _ := child.LatestReturns()
	s.backup(reward)
}

func (s *UctStat) SeedHeuristic(reward, _ float64) {
	s.seedHeuristic(reward)
}

func (s *UctStat) LatestReturns() (float64, float64) {
	return s.latestReturn, 0
}
