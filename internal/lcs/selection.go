package lcs

import (
	"fmt"
	"math/rand"
)

// ParentSelector picks GA parents from an action set.
type ParentSelector interface {
	Name() string
	Select(rng *rand.Rand, rules []*Rule) (*Rule, error)
}

// RouletteSelector picks a rule with probability proportional to fitness.
type RouletteSelector struct{}

func (RouletteSelector) Name() string {
	return string(SelectionRoulette)
}

func (RouletteSelector) Select(rng *rand.Rand, rules []*Rule) (*Rule, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if len(rules) == 0 {
		return nil, ErrEmptySet
	}
	sum := 0.0
	for _, r := range rules {
		sum += r.Fitness
	}
	if sum <= 0 {
		return rules[rng.Intn(len(rules))], nil
	}
	point := rng.Float64() * sum
	running := 0.0
	for _, r := range rules {
		running += r.Fitness
		if running > point {
			return r, nil
		}
	}
	return rules[len(rules)-1], nil
}

// TournamentSelector enters each copy of each rule into the tournament with
// probability Size and keeps the entrant with the best per-copy fitness.
// A sweep can end without entrants; after Retries empty sweeps selection
// falls back to roulette.
type TournamentSelector struct {
	Size    float64
	Retries int
}

func (TournamentSelector) Name() string {
	return string(SelectionTournament)
}

func (s TournamentSelector) Select(rng *rand.Rand, rules []*Rule) (*Rule, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if len(rules) == 0 {
		return nil, ErrEmptySet
	}
	retries := s.Retries
	if retries <= 0 {
		retries = 10
	}

	for attempt := 0; attempt < retries; attempt++ {
		var winner *Rule
		best := 0.0
		for _, r := range rules {
			if r.numerosity <= 0 {
				continue
			}
			perCopy := r.Fitness / float64(r.numerosity)
			for j := 0; j < r.numerosity; j++ {
				if rng.Float64() >= s.Size {
					continue
				}
				if winner == nil || perCopy > best {
					winner = r
					best = perCopy
				}
				break
			}
		}
		if winner != nil {
			return winner, nil
		}
	}
	return RouletteSelector{}.Select(rng, rules)
}
