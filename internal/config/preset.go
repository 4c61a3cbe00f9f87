package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"xcs/internal/lcs"
)

var (
	ErrUnknownPreset        = errors.New("no parameter preset for problem")
	ErrNoTheoreticalSetting = errors.New("no theoretical setting for theta_sub")
)

// ProblemPreset is the recommended setting of the problem-dependent
// parameters.
type ProblemPreset struct {
	Problem      string  `json:"problem" yaml:"problem"`
	MaxPopSize   int     `json:"max_pop_size" yaml:"max_pop_size"`
	Epsilon0     float64 `json:"epsilon0" yaml:"epsilon0"`
	ThetaGA      int     `json:"theta_ga" yaml:"theta_ga"`
	DontCareProb float64 `json:"dont_care_prob" yaml:"dont_care_prob"`
}

var presets = map[string]ProblemPreset{
	"mux6":    {Problem: "mux6", MaxPopSize: 400, Epsilon0: 10, ThetaGA: 25, DontCareProb: 0.33},
	"mux11":   {Problem: "mux11", MaxPopSize: 800, Epsilon0: 10, ThetaGA: 25, DontCareProb: 0.33},
	"mux20":   {Problem: "mux20", MaxPopSize: 2000, Epsilon0: 10, ThetaGA: 25, DontCareProb: 0.5},
	"rmux6":   {Problem: "rmux6", MaxPopSize: 800, Epsilon0: 10, ThetaGA: 12, DontCareProb: 0.5},
	"rmux11":  {Problem: "rmux11", MaxPopSize: 2000, Epsilon0: 10, ThetaGA: 12, DontCareProb: 0.5},
	"parity3": {Problem: "parity3", MaxPopSize: 400, Epsilon0: 10, ThetaGA: 25, DontCareProb: 0.1},
	"parity5": {Problem: "parity5", MaxPopSize: 1000, Epsilon0: 10, ThetaGA: 25, DontCareProb: 0.1},
	"amux6":   {Problem: "amux6", MaxPopSize: 800, Epsilon0: 10, ThetaGA: 25, DontCareProb: 0.33},
	"amux11":  {Problem: "amux11", MaxPopSize: 1600, Epsilon0: 10, ThetaGA: 25, DontCareProb: 0.33},
	"cmux3x2": {Problem: "cmux3x2", MaxPopSize: 800, Epsilon0: 10, ThetaGA: 25, DontCareProb: 0.33},
	"cmux3x3": {Problem: "cmux3x3", MaxPopSize: 2000, Epsilon0: 10, ThetaGA: 25, DontCareProb: 0.33},
	"cmux6x2": {Problem: "cmux6x2", MaxPopSize: 2000, Epsilon0: 10, ThetaGA: 25, DontCareProb: 0.33},
	"dv1":     {Problem: "dv1", MaxPopSize: 1000, Epsilon0: 10, ThetaGA: 25, DontCareProb: 0.33},
}

func Preset(problem string) (ProblemPreset, error) {
	p, ok := presets[strings.ToLower(strings.TrimSpace(problem))]
	if !ok {
		return ProblemPreset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, problem)
	}
	return p, nil
}

// Presets lists every preset ordered by problem name.
func Presets() []ProblemPreset {
	out := make([]ProblemPreset, 0, len(presets))
	for _, p := range presets {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b ProblemPreset) int { return strings.Compare(a.Problem, b.Problem) })
	return out
}

func (p ProblemPreset) Apply(params *lcs.Params) {
	params.MaxPopSize = p.MaxPopSize
	params.Epsilon0 = p.Epsilon0
	params.ThetaGA = p.ThetaGA
	params.DontCareProb = p.DontCareProb
}

// TheoreticalSetting derives beta and epsilon0 from the subsumption
// threshold so that a rule reaching theta_sub updates has an error estimate
// accurate enough to subsume.
type TheoreticalSetting struct {
	ThetaSub int     `json:"theta_sub" yaml:"theta_sub"`
	Beta     float64 `json:"beta" yaml:"beta"`
	Epsilon0 float64 `json:"epsilon0" yaml:"epsilon0"`
}

// Entries above 255 are the adjusted settings for explore rewards aliased
// at rate 0.1 or 0.01.
var theoretical = []TheoreticalSetting{
	{ThetaSub: 31, Beta: 0.13870090, Epsilon0: 58.52695551},
	{ThetaSub: 63, Beta: 0.08199827, Epsilon0: 30.23281083},
	{ThetaSub: 72, Beta: 0.07391850, Epsilon0: 26.78241081},
	{ThetaSub: 127, Beta: 0.04739000, Epsilon0: 15.36777000},
	{ThetaSub: 145, Beta: 0.04255840, Epsilon0: 13.58822963},
	{ThetaSub: 146, Beta: 0.04233210, Epsilon0: 13.48189305},
	{ThetaSub: 255, Beta: 0.02686679, Epsilon0: 7.748196720},
	{ThetaSub: 293, Beta: 0.02393600, Epsilon0: 6.76300696},
	{ThetaSub: 588, Beta: 0.01330713, Epsilon0: 3.38740679},
}

func Theoretical(thetaSub int) (TheoreticalSetting, error) {
	for _, s := range theoretical {
		if s.ThetaSub == thetaSub {
			return s, nil
		}
	}
	return TheoreticalSetting{}, fmt.Errorf("%w: %d", ErrNoTheoreticalSetting, thetaSub)
}

// TheoreticalSettings lists the table ordered by theta_sub.
func TheoreticalSettings() []TheoreticalSetting {
	return slices.Clone(theoretical)
}

func (s TheoreticalSetting) Apply(params *lcs.Params) {
	params.ThetaSub = s.ThetaSub
	params.Beta = s.Beta
	params.Epsilon0 = s.Epsilon0
}
