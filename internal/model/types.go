package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RuleRecord is the flat persisted form of one classifier.
type RuleRecord struct {
	ID              uint64  `json:"id"`
	Condition       string  `json:"condition"`
	Action          int     `json:"action"`
	Prediction      float64 `json:"prediction"`
	PredictionError float64 `json:"prediction_error"`
	Fitness         float64 `json:"fitness"`
	Numerosity      int     `json:"numerosity"`
	Experience      int     `json:"experience"`
	ActionSetSize   float64 `json:"action_set_size"`
	TimeStamp       int     `json:"time_stamp"`
}

type PopulationSnapshot struct {
	VersionedRecord
	ID            string       `json:"id"`
	RunID         string       `json:"run_id,omitempty"`
	ConditionKind string       `json:"condition_kind"`
	NumActions    int          `json:"num_actions"`
	Time          int          `json:"time"`
	NumerositySum int          `json:"numerosity_sum"`
	Rules         []RuleRecord `json:"rules"`
}

// Condensed returns a copy of the snapshot without rules that were never
// updated.
func (s PopulationSnapshot) Condensed() PopulationSnapshot {
	out := s
	out.Rules = make([]RuleRecord, 0, len(s.Rules))
	out.NumerositySum = 0
	for _, r := range s.Rules {
		if r.Experience == 0 {
			continue
		}
		out.Rules = append(out.Rules, r)
		out.NumerositySum += r.Numerosity
	}
	return out
}

type PerformancePoint struct {
	Step            int     `json:"step"`
	Performance     float64 `json:"performance"`
	PredictionError float64 `json:"prediction_error"`
	PopulationSize  int     `json:"population_size"`
	NumerositySum   int     `json:"numerosity_sum"`
}

type RunSummary struct {
	VersionedRecord
	ID               string  `json:"id"`
	Problem          string  `json:"problem"`
	ConditionKind    string  `json:"condition_kind"`
	Seed             int64   `json:"seed"`
	Problems         int     `json:"problems"`
	MaxPopSize       int     `json:"max_pop_size"`
	CreatedAtUTC     string  `json:"created_at_utc"`
	FinalPerformance float64 `json:"final_performance"`
	FinalError       float64 `json:"final_error"`
	PopulationID     string  `json:"population_id"`
	PopulationSize   int     `json:"population_size"`
	NumerositySum    int     `json:"numerosity_sum"`
}
