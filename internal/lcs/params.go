package lcs

import (
	"fmt"

	"xcs/internal/condition"
)

type SelectionMode string

const (
	SelectionRoulette   SelectionMode = "roulette"
	SelectionTournament SelectionMode = "tournament"
)

// Params holds the learning constants shared by every rule of a population.
type Params struct {
	MaxPopSize int `json:"max_pop_size" yaml:"max_pop_size"`

	Beta     float64 `json:"beta" yaml:"beta"`
	Alpha    float64 `json:"alpha" yaml:"alpha"`
	Epsilon0 float64 `json:"epsilon0" yaml:"epsilon0"`
	Nu       float64 `json:"nu" yaml:"nu"`

	ThetaGA            int     `json:"theta_ga" yaml:"theta_ga"`
	Chi                float64 `json:"chi" yaml:"chi"`
	Mu                 float64 `json:"mu" yaml:"mu"`
	ActionMutationProb float64 `json:"action_mutation_prob" yaml:"action_mutation_prob"`

	ThetaDel int     `json:"theta_del" yaml:"theta_del"`
	Delta    float64 `json:"delta" yaml:"delta"`
	ThetaSub int     `json:"theta_sub" yaml:"theta_sub"`

	DontCareProb float64 `json:"dont_care_prob" yaml:"dont_care_prob"`

	InitialPrediction      float64 `json:"initial_prediction" yaml:"initial_prediction"`
	InitialPredictionError float64 `json:"initial_prediction_error" yaml:"initial_prediction_error"`
	InitialFitness         float64 `json:"initial_fitness" yaml:"initial_fitness"`

	PredictionErrorReduction float64 `json:"prediction_error_reduction" yaml:"prediction_error_reduction"`
	FitnessReduction         float64 `json:"fitness_reduction" yaml:"fitness_reduction"`

	DoGASubsumption        bool `json:"do_ga_subsumption" yaml:"do_ga_subsumption"`
	DoActionSetSubsumption bool `json:"do_action_set_subsumption" yaml:"do_action_set_subsumption"`

	// JustInTime switches prediction, error and action-set-size updates to
	// the running average while experience < 1/Beta.
	JustInTime bool `json:"just_in_time" yaml:"just_in_time"`

	Selection         SelectionMode `json:"selection" yaml:"selection"`
	TournamentSize    float64       `json:"tournament_size" yaml:"tournament_size"`
	TournamentRetries int           `json:"tournament_retries" yaml:"tournament_retries"`

	Crossover          condition.CrossoverMode `json:"crossover" yaml:"crossover"`
	LowerCrossoverProb float64                 `json:"lower_crossover_prob" yaml:"lower_crossover_prob"`
	UpperCrossoverProb float64                 `json:"upper_crossover_prob" yaml:"upper_crossover_prob"`
	SBXEta             float64                 `json:"sbx_eta" yaml:"sbx_eta"`
	MutationSpread     float64                 `json:"mutation_spread" yaml:"mutation_spread"`
	CoverSpread        float64                 `json:"cover_spread" yaml:"cover_spread"`

	Workers int `json:"workers" yaml:"workers"`
}

func DefaultParams() Params {
	return Params{
		MaxPopSize:               400,
		Beta:                     0.2,
		Alpha:                    0.1,
		Epsilon0:                 10,
		Nu:                       5,
		ThetaGA:                  25,
		Chi:                      0.8,
		Mu:                       0.04,
		ActionMutationProb:       0.04,
		ThetaDel:                 20,
		Delta:                    0.1,
		ThetaSub:                 20,
		DontCareProb:             0.33,
		InitialPrediction:        10,
		InitialPredictionError:   0,
		InitialFitness:           0.01,
		PredictionErrorReduction: 0.25,
		FitnessReduction:         0.1,
		DoGASubsumption:          true,
		DoActionSetSubsumption:   false,
		JustInTime:               true,
		Selection:                SelectionTournament,
		TournamentSize:           0.4,
		TournamentRetries:        10,
		Crossover:                condition.CrossoverTwoPoint,
		LowerCrossoverProb:       0.5,
		UpperCrossoverProb:       0.5,
		SBXEta:                   15,
		MutationSpread:           0.1,
		CoverSpread:              0.5,
		Workers:                  1,
	}
}

func (p Params) Validate() error {
	if p.MaxPopSize <= 0 {
		return fmt.Errorf("max population size must be > 0")
	}
	if p.Beta <= 0 || p.Beta > 1 {
		return fmt.Errorf("beta must be in (0, 1]")
	}
	if p.Epsilon0 <= 0 {
		return fmt.Errorf("epsilon0 must be > 0")
	}
	if p.Alpha <= 0 || p.Alpha > 1 {
		return fmt.Errorf("alpha must be in (0, 1]")
	}
	if p.Nu <= 0 {
		return fmt.Errorf("nu must be > 0")
	}
	if p.ThetaGA < 0 || p.ThetaDel < 0 || p.ThetaSub < 0 {
		return fmt.Errorf("theta thresholds must be >= 0")
	}
	for name, v := range map[string]float64{
		"chi":                  p.Chi,
		"mu":                   p.Mu,
		"action_mutation_prob": p.ActionMutationProb,
		"delta":                p.Delta,
		"dont_care_prob":       p.DontCareProb,
		"lower_crossover_prob": p.LowerCrossoverProb,
		"upper_crossover_prob": p.UpperCrossoverProb,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be in [0, 1]", name)
		}
	}
	if p.InitialFitness <= 0 {
		return fmt.Errorf("initial fitness must be > 0")
	}
	if p.InitialPredictionError < 0 {
		return fmt.Errorf("initial prediction error must be >= 0")
	}
	switch p.Selection {
	case SelectionRoulette:
	case SelectionTournament:
		if p.TournamentSize <= 0 || p.TournamentSize > 1 {
			return fmt.Errorf("tournament size must be in (0, 1]")
		}
	default:
		return fmt.Errorf("unsupported selection: %s", p.Selection)
	}
	switch p.Crossover {
	case condition.CrossoverTwoPoint, condition.CrossoverUniform:
	default:
		return fmt.Errorf("unsupported crossover: %s", p.Crossover)
	}
	if p.MutationSpread < 0 || p.CoverSpread < 0 {
		return fmt.Errorf("interval spreads must be >= 0")
	}
	return nil
}

func (p Params) conditionOptions() condition.Options {
	opts := condition.DefaultOptions()
	opts.DontCareProb = p.DontCareProb
	opts.MutationProb = p.Mu
	opts.Crossover = p.Crossover
	opts.CrossoverProb = p.Chi
	opts.LowerCrossoverProb = p.LowerCrossoverProb
	opts.UpperCrossoverProb = p.UpperCrossoverProb
	if p.SBXEta > 0 {
		opts.SBXEta = p.SBXEta
	}
	opts.MutationSpread = p.MutationSpread
	opts.CoverSpread = p.CoverSpread
	return opts
}

func (p Params) selector() ParentSelector {
	if p.Selection == SelectionTournament {
		return TournamentSelector{Size: p.TournamentSize, Retries: p.TournamentRetries}
	}
	return RouletteSelector{}
}
