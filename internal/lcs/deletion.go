package lcs

import "math/rand"

// DeleteOne removes a single copy chosen by roulette over deletion votes and
// returns the affected rule, or nil when the population is empty.
func (p *Population) DeleteOne(rng *rand.Rand) *Rule {
	if len(p.rules) == 0 || p.numerositySum == 0 {
		return nil
	}

	fitnessSum := 0.0
	for _, r := range p.rules {
		fitnessSum += r.Fitness
	}
	meanFitness := fitnessSum / float64(p.numerositySum)

	votes := make([]float64, len(p.rules))
	voteSum := 0.0
	for i, r := range p.rules {
		votes[i] = r.DeletionVote(meanFitness, &p.params)
		voteSum += votes[i]
	}

	chosen := p.rules[len(p.rules)-1]
	if voteSum > 0 {
		point := rng.Float64() * voteSum
		running := 0.0
		for i, r := range p.rules {
			running += votes[i]
			if running > point {
				chosen = r
				break
			}
		}
	} else {
		chosen = p.rules[rng.Intn(len(p.rules))]
	}

	p.decrement(chosen)
	p.counters.Deleted++
	return chosen
}
