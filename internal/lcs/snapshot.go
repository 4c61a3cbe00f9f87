package lcs

import (
	"fmt"

	"xcs/internal/condition"
	"xcs/internal/model"
)

// Snapshot copies the population into its persisted form. Schema and codec
// versions are stamped by the storage layer.
func (p *Population) Snapshot(id string, time int) model.PopulationSnapshot {
	snap := model.PopulationSnapshot{
		ID:            id,
		ConditionKind: string(p.kind),
		NumActions:    p.numActions,
		Time:          time,
		NumerositySum: p.numerositySum,
		Rules:         make([]model.RuleRecord, 0, len(p.rules)),
	}
	for _, r := range p.rules {
		snap.Rules = append(snap.Rules, RecordOf(r))
	}
	return snap
}

func RecordOf(r *Rule) model.RuleRecord {
	return model.RuleRecord{
		ID:              r.ID,
		Condition:       r.Condition.String(),
		Action:          r.Action,
		Prediction:      r.Prediction,
		PredictionError: r.PredictionError,
		Fitness:         r.Fitness,
		Numerosity:      r.numerosity,
		Experience:      r.Experience,
		ActionSetSize:   r.ActionSetSize,
		TimeStamp:       r.TimeStamp,
	}
}

// Restore rebuilds a population from a snapshot. Rules keep their order; ids
// are reassigned.
func Restore(params Params, snap model.PopulationSnapshot) (*Population, error) {
	kind, err := condition.ParseKind(snap.ConditionKind)
	if err != nil {
		return nil, err
	}
	pop, err := NewPopulation(params, kind, snap.NumActions)
	if err != nil {
		return nil, err
	}
	for i, rec := range snap.Rules {
		cond, err := condition.Parse(kind, rec.Condition)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		if rec.Action < 0 || rec.Action >= snap.NumActions {
			return nil, fmt.Errorf("rule %d: action %d out of range", i, rec.Action)
		}
		if rec.Numerosity < 1 {
			return nil, fmt.Errorf("rule %d: numerosity %d", i, rec.Numerosity)
		}
		pop.add(&Rule{
			Condition:       cond,
			Action:          rec.Action,
			Prediction:      rec.Prediction,
			PredictionError: rec.PredictionError,
			Fitness:         rec.Fitness,
			Experience:      rec.Experience,
			ActionSetSize:   rec.ActionSetSize,
			TimeStamp:       rec.TimeStamp,
			numerosity:      rec.Numerosity,
		})
	}
	if pop.numerositySum > params.MaxPopSize {
		return nil, fmt.Errorf("snapshot numerosity %d exceeds max population size %d", pop.numerositySum, params.MaxPopSize)
	}
	return pop, nil
}
