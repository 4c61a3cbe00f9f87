package problem

import (
	"math/rand"

	"xcs/internal/condition"
)

// MaxReward is paid for a correct action; a wrong action pays 0.
const MaxReward = 1000.0

// Environment is a single-step problem presented to the learner. A problem
// starts with ResetState and ends after one ExecuteAction.
type Environment interface {
	Name() string
	Kind() condition.Kind
	StateLength() int
	NumActions() int
	ResetState(rng *rand.Rand, isTest bool) []float64
	ExecuteAction(action int, isTest bool) float64
	WasCorrect() bool
	EndOfProblem() bool
}

// singleStep holds the bookkeeping shared by the classification problems.
// answer maps a state to its correct action. With aliasing > 0 an explore
// reward is inverted with that probability; correctness is unaffected.
type singleStep struct {
	name       string
	kind       condition.Kind
	length     int
	actions    int
	continuous bool
	aliasing   float64
	answer     func(state []float64) int

	rng     *rand.Rand
	state   []float64
	correct bool
	done    bool
}

func (s *singleStep) Name() string { return s.name }

func (s *singleStep) Kind() condition.Kind { return s.kind }

func (s *singleStep) StateLength() int { return s.length }

func (s *singleStep) NumActions() int { return s.actions }

func (s *singleStep) ResetState(rng *rand.Rand, _ bool) []float64 {
	s.rng = rng
	if cap(s.state) < s.length {
		s.state = make([]float64, s.length)
	}
	s.state = s.state[:s.length]
	for i := range s.state {
		if s.continuous {
			s.state[i] = rng.Float64()
		} else {
			s.state[i] = float64(rng.Intn(2))
		}
	}
	s.correct = false
	s.done = false
	return append([]float64(nil), s.state...)
}

func (s *singleStep) ExecuteAction(action int, isTest bool) float64 {
	s.correct = action == s.answer(s.state)
	s.done = true
	paid := s.correct
	if !isTest && s.aliasing > 0 && s.rng != nil && s.rng.Float64() < s.aliasing {
		paid = !paid
	}
	if paid {
		return MaxReward
	}
	return 0
}

func (s *singleStep) WasCorrect() bool { return s.correct }

func (s *singleStep) EndOfProblem() bool { return s.done }

func bit(v float64) int {
	if v >= 0.5 {
		return 1
	}
	return 0
}
