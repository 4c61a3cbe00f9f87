package lcs

import (
	"context"
	"fmt"
	"math/rand"
	"slices"

	"golang.org/x/sync/errgroup"
)

const (
	// minParallelRules is the population size below which matching stays on
	// the calling goroutine.
	minParallelRules = 256
	// coveringPassFactor bounds the covering/deletion fixed-point loop
	// relative to the population cap.
	coveringPassFactor = 10
)

// RuleSet is a non-owning view over rules of one population. Rules removed
// from the population drop out of every view.
type RuleSet struct {
	pop   *Population
	rules []*Rule
}

func (s *RuleSet) prune() {
	s.rules = slices.DeleteFunc(s.rules, func(r *Rule) bool { return !r.alive() })
}

func (s *RuleSet) Population() *Population { return s.pop }

func (s *RuleSet) Rules() []*Rule {
	s.prune()
	return slices.Clone(s.rules)
}

func (s *RuleSet) Len() int {
	s.prune()
	return len(s.rules)
}

func (s *RuleSet) NumerositySum() int {
	s.prune()
	sum := 0
	for _, r := range s.rules {
		sum += r.numerosity
	}
	return sum
}

// MatchSet holds the rules whose condition matched one state.
type MatchSet struct {
	RuleSet
	state []float64
	time  int
}

func (m *MatchSet) State() []float64 { return slices.Clone(m.state) }

func (m *MatchSet) Time() int { return m.time }

func (m *MatchSet) PredictionArray() *PredictionArray {
	m.prune()
	return NewPredictionArray(m.rules, m.pop.numActions)
}

// ActionSet extracts the match-set rules advocating action.
func (m *MatchSet) ActionSet(action int) *ActionSet {
	m.prune()
	as := &ActionSet{RuleSet: RuleSet{pop: m.pop}, action: action}
	for _, r := range m.rules {
		if r.Action == action {
			as.rules = append(as.rules, r)
		}
	}
	return as
}

func (m *MatchSet) uncoveredActions() []int {
	m.prune()
	covered := make([]bool, m.pop.numActions)
	for _, r := range m.rules {
		if r.Action >= 0 && r.Action < len(covered) {
			covered[r.Action] = true
		}
	}
	var missing []int
	for a, ok := range covered {
		if !ok {
			missing = append(missing, a)
		}
	}
	return missing
}

// BuildMatchSet matches state against every rule, covers actions no rule
// advocates, and deletes until the population fits its cap again. Covering
// repeats while deletion uncovers actions.
func (p *Population) BuildMatchSet(ctx context.Context, rng *rand.Rand, state []float64, time int) (*MatchSet, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	matched, err := p.match(ctx, state)
	if err != nil {
		return nil, err
	}
	p.counters.MatchPasses++

	ms := &MatchSet{
		RuleSet: RuleSet{pop: p, rules: matched},
		state:   slices.Clone(state),
		time:    time,
	}

	limit := coveringPassFactor * max(p.params.MaxPopSize, p.numActions)
	for pass := 0; ; pass++ {
		missing := ms.uncoveredActions()
		if len(missing) == 0 {
			break
		}
		if pass >= limit {
			return nil, fmt.Errorf("%w after %d passes", ErrCoveringDiverged, pass)
		}
		if pass > 0 {
			p.counters.CoverRetries++
		}
		for _, action := range missing {
			rule, err := p.cover(rng, state, action, time, ms.NumerositySum()+1)
			if err != nil {
				return nil, err
			}
			p.add(rule)
			ms.rules = append(ms.rules, rule)
			p.counters.Covered++
		}
		p.enforceCap(rng)
	}

	p.assertConsistent()
	return ms, nil
}

// match evaluates every condition against state. Workers read shared data and
// write only their own slots, so results stay in population order.
func (p *Population) match(ctx context.Context, state []float64) ([]*Rule, error) {
	flags := make([]bool, len(p.rules))
	workers := p.params.Workers
	if workers > len(p.rules) {
		workers = len(p.rules)
	}

	if workers <= 1 || len(p.rules) < minParallelRules {
		for i, r := range p.rules {
			flags[i] = r.Condition.Match(state)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		chunk := (len(p.rules) + workers - 1) / workers
		for start := 0; start < len(p.rules); start += chunk {
			start := start
			end := min(start+chunk, len(p.rules))
			shard := p.rules[start:end]
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				for i, r := range shard {
					flags[start+i] = r.Condition.Match(state)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	matched := make([]*Rule, 0, len(p.rules)/4+1)
	for i, ok := range flags {
		if ok {
			matched = append(matched, p.rules[i])
		}
	}
	return matched, nil
}
