package lcs

import "math/rand"

// PredictionArray holds the fitness-weighted prediction of each action over
// one match set. Fitness already carries the numerosity share of a rule.
type PredictionArray struct {
	values      []float64
	fitnessSums []float64
	covered     []bool
}

func NewPredictionArray(rules []*Rule, numActions int) *PredictionArray {
	pa := &PredictionArray{
		values:      make([]float64, numActions),
		fitnessSums: make([]float64, numActions),
		covered:     make([]bool, numActions),
	}
	for _, r := range rules {
		if !r.alive() || r.Action < 0 || r.Action >= numActions {
			continue
		}
		pa.values[r.Action] += r.Prediction * r.Fitness
		pa.fitnessSums[r.Action] += r.Fitness
		pa.covered[r.Action] = true
	}
	for a := range pa.values {
		if pa.fitnessSums[a] > 0 {
			pa.values[a] /= pa.fitnessSums[a]
		} else {
			pa.values[a] = 0
		}
	}
	return pa
}

func (pa *PredictionArray) Len() int { return len(pa.values) }

func (pa *PredictionArray) Value(action int) float64 { return pa.values[action] }

func (pa *PredictionArray) Covered(action int) bool { return pa.covered[action] }

func (pa *PredictionArray) Values() []float64 {
	return append([]float64(nil), pa.values...)
}

func (pa *PredictionArray) BestValue() float64 {
	best := pa.BestActionWinner()
	if best < 0 {
		return 0
	}
	return pa.values[best]
}

// BestActionWinner returns the covered action with the highest value; ties go
// to the lowest action index. It returns -1 when no action is covered.
func (pa *PredictionArray) BestActionWinner() int {
	best := -1
	for a, v := range pa.values {
		if !pa.covered[a] {
			continue
		}
		if best < 0 || v > pa.values[best] {
			best = a
		}
	}
	return best
}

// RandomActionWinner draws uniformly until it hits a covered action.
func (pa *PredictionArray) RandomActionWinner(rng *rand.Rand) int {
	if pa.BestActionWinner() < 0 {
		return -1
	}
	for {
		a := rng.Intn(len(pa.values))
		if pa.covered[a] {
			return a
		}
	}
}

// RouletteActionWinner samples an action proportionally to its value. With
// no positive mass it falls back to BestActionWinner.
func (pa *PredictionArray) RouletteActionWinner(rng *rand.Rand) int {
	total := 0.0
	for a, v := range pa.values {
		if pa.covered[a] && v > 0 {
			total += v
		}
	}
	if total <= 0 {
		return pa.BestActionWinner()
	}
	point := rng.Float64() * total
	running := 0.0
	last := -1
	for a, v := range pa.values {
		if !pa.covered[a] || v <= 0 {
			continue
		}
		running += v
		last = a
		if running > point {
			return a
		}
	}
	return last
}
