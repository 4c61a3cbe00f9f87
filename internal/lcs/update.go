package lcs

// ActionSet holds the match-set rules that advocate one action.
type ActionSet struct {
	RuleSet
	action int
}

func (s *ActionSet) Action() int { return s.action }

// AverageTimeStamp is the numerosity-weighted mean of the last GA time of
// the set's rules. The set must not be empty.
func (s *ActionSet) AverageTimeStamp() float64 {
	s.prune()
	weighted, total := 0.0, 0
	for _, r := range s.rules {
		weighted += float64(r.TimeStamp) * float64(r.numerosity)
		total += r.numerosity
	}
	if total == 0 {
		return 0
	}
	return weighted / float64(total)
}

// Update applies reward to every rule of the set: experience, error,
// prediction and action-set size first, then the shared fitness step, then
// action-set subsumption when enabled.
func (s *ActionSet) Update(reward float64) error {
	s.prune()
	if len(s.rules) == 0 {
		return ErrEmptySet
	}
	p := &s.pop.params
	numerositySum := float64(s.NumerositySum())

	for _, r := range s.rules {
		r.Experience++
		r.UpdatePredictionError(reward, p)
		r.UpdatePrediction(reward, p)
		r.UpdateActionSetSize(numerositySum, p)
	}
	s.updateFitness()

	if p.DoActionSetSubsumption {
		s.subsume()
	}
	s.pop.assertConsistent()
	return nil
}

func (s *ActionSet) updateFitness() {
	p := &s.pop.params
	accuracies := make([]float64, len(s.rules))
	accuracySum := 0.0
	for i, r := range s.rules {
		accuracies[i] = r.Accuracy(p)
		accuracySum += accuracies[i] * float64(r.numerosity)
	}
	for i, r := range s.rules {
		r.UpdateFitness(accuracySum, accuracies[i], p)
	}
}

// subsume lets the most general subsumer of the set absorb every rule it
// strictly generalizes.
func (s *ActionSet) subsume() {
	p := &s.pop.params
	var subsumer *Rule
	for _, r := range s.rules {
		if !r.IsSubsumer(p) {
			continue
		}
		if subsumer == nil || r.Condition.Generality() > subsumer.Condition.Generality() {
			subsumer = r
		}
	}
	if subsumer == nil {
		return
	}
	for _, r := range s.rules {
		if r == subsumer || !r.alive() {
			continue
		}
		if subsumer.Condition.IsMoreGeneral(r.Condition) {
			s.pop.absorb(subsumer, r)
			s.pop.counters.ASSubsumed++
		}
	}
	s.prune()
}
