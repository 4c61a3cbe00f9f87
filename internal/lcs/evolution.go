package lcs

import (
	"fmt"
	"math/rand"
)

// RunEvolution runs the niche GA on the set when the numerosity-weighted
// time since its last GA reaches ThetaGA. It reports whether the GA ran.
func (s *ActionSet) RunEvolution(rng *rand.Rand, time int, state []float64) (bool, error) {
	if rng == nil {
		return false, fmt.Errorf("random source is required")
	}
	s.prune()
	if len(s.rules) == 0 {
		return false, nil
	}
	pop := s.pop
	p := &pop.params
	if float64(time)-s.AverageTimeStamp() < float64(p.ThetaGA) {
		return false, nil
	}

	for _, r := range s.rules {
		r.TimeStamp = time
	}

	parent1, err := pop.selector.Select(rng, s.rules)
	if err != nil {
		return false, fmt.Errorf("select first parent: %w", err)
	}
	parent2, err := pop.selector.Select(rng, s.rules)
	if err != nil {
		return false, fmt.Errorf("select second parent: %w", err)
	}

	child1 := parent1.offspring(time)
	child2 := parent2.offspring(time)

	opts := p.conditionOptions()
	crossed, err := child1.Condition.Crossover(rng, child2.Condition, opts)
	if err != nil {
		return false, fmt.Errorf("crossover: %w", err)
	}

	for _, child := range []*Rule{child1, child2} {
		child.Condition.Mutate(rng, state, opts)
		pop.mutateAction(rng, child)
	}

	if crossed {
		prediction := (child1.Prediction + child2.Prediction) / 2
		predictionError := p.PredictionErrorReduction * (child1.PredictionError + child2.PredictionError) / 2
		fitness := p.FitnessReduction * (child1.Fitness + child2.Fitness) / 2
		for _, child := range []*Rule{child1, child2} {
			child.Prediction = prediction
			child.PredictionError = predictionError
			child.Fitness = fitness
		}
	} else {
		for _, child := range []*Rule{child1, child2} {
			child.PredictionError *= p.PredictionErrorReduction
			child.Fitness *= p.FitnessReduction
		}
	}

	for _, child := range []*Rule{child1, child2} {
		pop.insertOffspring(child, parent1, parent2)
	}
	pop.enforceCap(rng)
	pop.counters.GARuns++
	pop.assertConsistent()
	return true, nil
}

func (p *Population) mutateAction(rng *rand.Rand, rule *Rule) {
	if p.numActions < 2 || rng.Float64() >= p.params.ActionMutationProb {
		return
	}
	action := rng.Intn(p.numActions - 1)
	if action >= rule.Action {
		action++
	}
	rule.Action = action
}

// insertOffspring tries subsumption by either parent, then by any subsumer in
// the population, before inserting child with duplicate merging.
func (p *Population) insertOffspring(child, parent1, parent2 *Rule) {
	p.counters.Offspring++
	if p.params.DoGASubsumption {
		for _, parent := range []*Rule{parent1, parent2} {
			if parent.alive() && parent.Subsumes(child, &p.params) {
				p.increment(parent, 1)
				p.counters.GASubsumed++
				return
			}
		}
		for _, r := range p.rules {
			if r.Subsumes(child, &p.params) {
				p.increment(r, 1)
				p.counters.GASubsumed++
				return
			}
		}
	}
	p.Insert(child)
}
