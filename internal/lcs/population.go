package lcs

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"

	"xcs/internal/condition"
)

var (
	ErrEmptySet         = errors.New("rule set is empty")
	ErrCoveringDiverged = errors.New("covering did not reach a fixed point")
)

// Counters tallies population events since construction.
type Counters struct {
	Covered      int
	Deleted      int
	Removed      int
	GARuns       int
	Offspring    int
	GASubsumed   int
	ASSubsumed   int
	Merged       int
	MatchPasses  int
	CoverRetries int
}

// Sub returns the events recorded since prev.
func (c Counters) Sub(prev Counters) Counters {
	return Counters{
		Covered:      c.Covered - prev.Covered,
		Deleted:      c.Deleted - prev.Deleted,
		Removed:      c.Removed - prev.Removed,
		GARuns:       c.GARuns - prev.GARuns,
		Offspring:    c.Offspring - prev.Offspring,
		GASubsumed:   c.GASubsumed - prev.GASubsumed,
		ASSubsumed:   c.ASSubsumed - prev.ASSubsumed,
		Merged:       c.Merged - prev.Merged,
		MatchPasses:  c.MatchPasses - prev.MatchPasses,
		CoverRetries: c.CoverRetries - prev.CoverRetries,
	}
}

// Population owns every rule. Match and action sets are views over it and
// must not outlive one decision step.
type Population struct {
	params     Params
	kind       condition.Kind
	numActions int
	selector   ParentSelector

	rules         []*Rule
	numerositySum int
	nextID        uint64
	counters      Counters
}

func NewPopulation(params Params, kind condition.Kind, numActions int) (*Population, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if numActions <= 0 {
		return nil, fmt.Errorf("number of actions must be > 0")
	}
	if params.MaxPopSize < numActions {
		return nil, fmt.Errorf("max population size %d cannot cover %d actions", params.MaxPopSize, numActions)
	}
	switch kind {
	case condition.KindTernary, condition.KindInterval:
	default:
		return nil, fmt.Errorf("unsupported condition kind: %s", kind)
	}
	if params.Workers <= 0 {
		params.Workers = 1
	}
	return &Population{
		params:     params,
		kind:       kind,
		numActions: numActions,
		selector:   params.selector(),
		rules:      make([]*Rule, 0, 64),
	}, nil
}

func (p *Population) Params() Params { return p.params }

func (p *Population) Kind() condition.Kind { return p.kind }

func (p *Population) NumActions() int { return p.numActions }

// Size is the number of macro-classifiers.
func (p *Population) Size() int { return len(p.rules) }

func (p *Population) NumerositySum() int { return p.numerositySum }

func (p *Population) Counters() Counters { return p.counters }

// Rules returns the live rules in population order. The slice is a copy; the
// rules are shared and must be treated as read-only.
func (p *Population) Rules() []*Rule {
	return slices.Clone(p.rules)
}

// newRule builds a fresh rule whose action-set-size estimate starts at setSize.
func (p *Population) newRule(cond condition.Condition, action, time, setSize int) *Rule {
	return &Rule{
		Condition:       cond,
		Action:          action,
		Prediction:      p.params.InitialPrediction,
		PredictionError: p.params.InitialPredictionError,
		Fitness:         p.params.InitialFitness,
		ActionSetSize:   float64(max(setSize, 1)),
		TimeStamp:       time,
		numerosity:      1,
	}
}

// cover builds a rule for action matching state. setSize seeds the rule's
// action-set-size estimate, normally the match set numerosity plus one.
func (p *Population) cover(rng *rand.Rand, state []float64, action, time, setSize int) (*Rule, error) {
	cond, err := condition.Cover(p.kind, rng, state, p.params.conditionOptions())
	if err != nil {
		return nil, err
	}
	return p.newRule(cond, action, time, setSize), nil
}

// add appends rule without looking for duplicates.
func (p *Population) add(rule *Rule) {
	if rule.numerosity <= 0 {
		rule.numerosity = 1
	}
	p.nextID++
	rule.ID = p.nextID
	p.rules = append(p.rules, rule)
	p.numerositySum += rule.numerosity
}

// Insert adds rule, merging it into an existing rule with the same action and
// condition when there is one. It returns the rule that holds the copy.
func (p *Population) Insert(rule *Rule) *Rule {
	for _, existing := range p.rules {
		if existing.SameGenotype(rule) {
			p.increment(existing, rule.numerosity)
			p.counters.Merged++
			return existing
		}
	}
	p.add(rule)
	return rule
}

func (p *Population) increment(rule *Rule, by int) {
	rule.numerosity += by
	p.numerositySum += by
}

// decrement removes one copy of rule and drops the rule once no copies are
// left. It reports whether the rule left the population.
func (p *Population) decrement(rule *Rule) bool {
	rule.numerosity--
	p.numerositySum--
	if rule.numerosity > 0 {
		return false
	}
	p.remove(rule)
	return true
}

// absorb moves every copy of victim into into and removes victim.
func (p *Population) absorb(into, victim *Rule) {
	n := victim.numerosity
	p.numerositySum -= n
	victim.numerosity = 0
	p.remove(victim)
	p.increment(into, n)
}

func (p *Population) remove(rule *Rule) {
	idx := slices.Index(p.rules, rule)
	if idx < 0 {
		return
	}
	p.rules = slices.Delete(p.rules, idx, idx+1)
	if rule.numerosity > 0 {
		p.numerositySum -= rule.numerosity
		rule.numerosity = 0
	}
	p.counters.Removed++
}

func (p *Population) enforceCap(rng *rand.Rand) {
	for p.numerositySum > p.params.MaxPopSize && len(p.rules) > 0 {
		p.DeleteOne(rng)
	}
}

// Validate recomputes the numerosity sum and checks every member.
func (p *Population) Validate() error {
	sum := 0
	for i, r := range p.rules {
		if r.numerosity < 1 {
			return fmt.Errorf("rule %d at %d has numerosity %d", r.ID, i, r.numerosity)
		}
		sum += r.numerosity
	}
	if sum != p.numerositySum {
		return fmt.Errorf("numerosity sum %d diverged from members %d", p.numerositySum, sum)
	}
	return nil
}

func (p *Population) assertConsistent() {
	if err := p.Validate(); err != nil {
		panic("lcs: " + err.Error())
	}
}

// Stats summarizes the population weighted by numerosity.
type Stats struct {
	Size                int     `json:"size"`
	NumerositySum       int     `json:"numerosity_sum"`
	MeanFitness         float64 `json:"mean_fitness"`
	MeanPrediction      float64 `json:"mean_prediction"`
	MeanPredictionError float64 `json:"mean_prediction_error"`
	MeanExperience      float64 `json:"mean_experience"`
	MeanGenerality      float64 `json:"mean_generality"`
	MeanActionSetSize   float64 `json:"mean_action_set_size"`
}

func (p *Population) Stats() Stats {
	s := Stats{Size: len(p.rules), NumerositySum: p.numerositySum}
	if p.numerositySum == 0 {
		return s
	}
	for _, r := range p.rules {
		n := float64(r.numerosity)
		s.MeanFitness += r.Fitness
		s.MeanPrediction += r.Prediction * n
		s.MeanPredictionError += r.PredictionError * n
		s.MeanExperience += float64(r.Experience) * n
		s.MeanGenerality += r.Condition.Generality() * n
		s.MeanActionSetSize += r.ActionSetSize * n
	}
	total := float64(p.numerositySum)
	s.MeanFitness /= total
	s.MeanPrediction /= total
	s.MeanPredictionError /= total
	s.MeanExperience /= total
	s.MeanGenerality /= total
	s.MeanActionSetSize /= total
	return s
}
