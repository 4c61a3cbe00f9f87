package lcs

import (
	"math"

	"xcs/internal/condition"
)

// minFitnessShare floors per-copy fitness in deletion votes so a zero-fitness
// rule gets a finite vote.
const minFitnessShare = 1e-9

// Rule is one macro-classifier. Prediction, PredictionError and Fitness
// describe the record as a whole; numerosity counts the identical copies it
// stands for and is only changed through the owning Population.
type Rule struct {
	ID              uint64
	Condition       condition.Condition
	Action          int
	Prediction      float64
	PredictionError float64
	Fitness         float64
	Experience      int
	ActionSetSize   float64
	TimeStamp       int

	numerosity int
}

func (r *Rule) Numerosity() int {
	return r.numerosity
}

func (r *Rule) alive() bool {
	return r.numerosity > 0
}

// IsSubsumer reports whether the rule is experienced and accurate enough to
// absorb more specific rules.
func (r *Rule) IsSubsumer(p *Params) bool {
	return r.Experience > p.ThetaSub && r.PredictionError < p.Epsilon0
}

func (r *Rule) Subsumes(other *Rule, p *Params) bool {
	return r.Action == other.Action && r.IsSubsumer(p) && r.Condition.IsMoreGeneral(other.Condition)
}

// SameGenotype reports whether both rules advocate the same action under an
// identical condition.
func (r *Rule) SameGenotype(other *Rule) bool {
	return r.Action == other.Action && r.Condition.Equal(other.Condition)
}

func (r *Rule) Accuracy(p *Params) float64 {
	if r.PredictionError < p.Epsilon0 {
		return 1
	}
	return p.Alpha * math.Pow(r.PredictionError/p.Epsilon0, -p.Nu)
}

func (r *Rule) average(current, target float64, p *Params) float64 {
	if p.JustInTime && r.Experience > 0 && float64(r.Experience) < 1/p.Beta {
		return current + (target-current)/float64(r.Experience)
	}
	return current + p.Beta*(target-current)
}

// UpdatePrediction moves the prediction toward reward. Experience must
// already count the current update.
func (r *Rule) UpdatePrediction(reward float64, p *Params) {
	r.Prediction = r.average(r.Prediction, reward, p)
}

// UpdatePredictionError must run before UpdatePrediction for the same reward.
func (r *Rule) UpdatePredictionError(reward float64, p *Params) {
	r.PredictionError = r.average(r.PredictionError, math.Abs(reward-r.Prediction), p)
}

func (r *Rule) UpdateActionSetSize(numerositySum float64, p *Params) {
	r.ActionSetSize = r.average(r.ActionSetSize, numerositySum, p)
}

// UpdateFitness moves fitness toward the rule's share of the action set's
// numerosity-weighted accuracy.
func (r *Rule) UpdateFitness(accuracySum, accuracy float64, p *Params) {
	if accuracySum <= 0 {
		return
	}
	r.Fitness += p.Beta * (accuracy*float64(r.numerosity)/accuracySum - r.Fitness)
}

// DeletionVote is proportional to the action-set size the rule occupies and
// inflated for experienced rules whose per-copy fitness is below
// Delta*meanFitness.
func (r *Rule) DeletionVote(meanFitness float64, p *Params) float64 {
	vote := r.ActionSetSize * float64(r.numerosity)
	if r.numerosity <= 0 {
		return vote
	}
	perCopy := r.Fitness / float64(r.numerosity)
	if r.Experience >= p.ThetaDel && perCopy < p.Delta*meanFitness {
		vote *= meanFitness / math.Max(perCopy, meanFitness*minFitnessShare)
	}
	return vote
}

// offspring copies the rule for the GA: one copy, no experience, per-copy
// fitness.
func (r *Rule) offspring(time int) *Rule {
	fitness := r.Fitness
	if r.numerosity > 0 {
		fitness /= float64(r.numerosity)
	}
	return &Rule{
		Condition:       r.Condition.Clone(),
		Action:          r.Action,
		Prediction:      r.Prediction,
		PredictionError: r.PredictionError,
		Fitness:         fitness,
		Experience:      0,
		ActionSetSize:   r.ActionSetSize,
		TimeStamp:       time,
		numerosity:      1,
	}
}
