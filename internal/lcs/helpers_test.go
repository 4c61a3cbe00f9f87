package lcs

import (
	"math"
	"testing"

	"xcs/internal/condition"
)

func bits(s string) []float64 {
	out := make([]float64, len(s))
	for i := range s {
		if s[i] == '1' {
			out[i] = 1
		}
	}
	return out
}

func newTestPopulation(t *testing.T, numActions int, mutate func(*Params)) *Population {
	t.Helper()
	params := DefaultParams()
	if mutate != nil {
		mutate(&params)
	}
	pop, err := NewPopulation(params, condition.KindTernary, numActions)
	if err != nil {
		t.Fatalf("new population: %v", err)
	}
	return pop
}

func ternaryRule(t *testing.T, symbols string, action int) *Rule {
	t.Helper()
	cond, err := condition.ParseTernary(symbols)
	if err != nil {
		t.Fatalf("parse %s: %v", symbols, err)
	}
	return &Rule{
		Condition:     cond,
		Action:        action,
		Prediction:    10,
		Fitness:       0.01,
		ActionSetSize: 1,
		numerosity:    1,
	}
}

func actionSetOf(pop *Population, action int, rules ...*Rule) *ActionSet {
	return &ActionSet{RuleSet: RuleSet{pop: pop, rules: rules}, action: action}
}

// multiplexer6 returns the correct action for a 6-bit multiplexer state.
func multiplexer6(state []float64) int {
	addr := int(state[0])*2 + int(state[1])
	return int(state[2+addr])
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
