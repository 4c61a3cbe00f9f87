package lcs

import (
	"testing"

	"xcs/internal/condition"
	"xcs/internal/model"
)

func TestSnapshotRestoreTernary(t *testing.T) {
	pop := newTestPopulation(t, 2, nil)
	a := ternaryRule(t, "1#0#", 1)
	a.Experience = 12
	a.Prediction = 812.5
	a.numerosity = 3
	b := ternaryRule(t, "####", 0)
	pop.add(a)
	pop.add(b)

	snap := pop.Snapshot("pop-1", 42)
	if snap.ConditionKind != "ternary" || snap.NumerositySum != 4 || len(snap.Rules) != 2 || snap.Time != 42 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	restored, err := Restore(pop.Params(), snap)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.NumerositySum() != 4 || restored.Size() != 2 || restored.NumActions() != 2 {
		t.Fatalf("unexpected restored population size=%d sum=%d", restored.Size(), restored.NumerositySum())
	}
	got := restored.Rules()[0]
	if got.Condition.String() != "1#0#" || got.Action != 1 || got.Numerosity() != 3 ||
		got.Experience != 12 || got.Prediction != 812.5 {
		t.Fatalf("unexpected restored rule %+v", got)
	}
	if err := restored.Validate(); err != nil {
		t.Fatalf("invariant: %v", err)
	}
}

func TestSnapshotRestoreInterval(t *testing.T) {
	pop, err := NewPopulation(DefaultParams(), condition.KindInterval, 2)
	if err != nil {
		t.Fatalf("new population: %v", err)
	}
	pop.add(&Rule{
		Condition:  condition.NewInterval([]condition.Bound{{Lower: 0.25, Upper: 0.5}, {Lower: 0, Upper: 1}}),
		Action:     0,
		Fitness:    0.2,
		numerosity: 1,
	})

	restored, err := Restore(pop.Params(), pop.Snapshot("pop-2", 0))
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	got := restored.Rules()[0].Condition
	if got.Kind() != condition.KindInterval || !got.Equal(pop.Rules()[0].Condition) {
		t.Fatalf("interval condition did not survive: %s", got)
	}
	if !got.Match([]float64{0.3, 0.9}) || got.Match([]float64{0.6, 0.9}) {
		t.Fatalf("restored interval matches differently")
	}
}

func TestRestoreRejectsBadRecords(t *testing.T) {
	params := DefaultParams()
	cases := map[string]model.PopulationSnapshot{
		"kind": {ConditionKind: "bitset", NumActions: 2},
		"condition": {ConditionKind: "ternary", NumActions: 2, Rules: []model.RuleRecord{
			{Condition: "1x0", Numerosity: 1},
		}},
		"action": {ConditionKind: "ternary", NumActions: 2, Rules: []model.RuleRecord{
			{Condition: "10", Action: 2, Numerosity: 1},
		}},
		"numerosity": {ConditionKind: "ternary", NumActions: 2, Rules: []model.RuleRecord{
			{Condition: "10", Numerosity: 0},
		}},
		"cap": {ConditionKind: "ternary", NumActions: 2, Rules: []model.RuleRecord{
			{Condition: "10", Numerosity: params.MaxPopSize + 1},
		}},
	}
	for name, snap := range cases {
		if _, err := Restore(params, snap); err == nil {
			t.Fatalf("%s: expected restore error", name)
		}
	}
}
