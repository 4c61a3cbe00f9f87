package condition

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
)

// Kind names a condition representation.
type Kind string

const (
	KindTernary  Kind = "ternary"
	KindInterval Kind = "interval"
)

var (
	ErrKindMismatch = errors.New("condition kind mismatch")
	ErrParse        = errors.New("parse condition")
)

type CrossoverMode string

const (
	CrossoverTwoPoint CrossoverMode = "two_point"
	CrossoverUniform  CrossoverMode = "uniform"
)

// Options carries the variation parameters consumed by covering, crossover
// and mutation. Each variant reads only the fields it needs.
type Options struct {
	DontCareProb       float64
	MutationProb       float64
	Crossover          CrossoverMode
	CrossoverProb      float64
	UniformSwapProb    float64
	LowerCrossoverProb float64
	UpperCrossoverProb float64
	SBXEta             float64
	MutationSpread     float64
	CoverSpread        float64
}

func DefaultOptions() Options {
	return Options{
		DontCareProb:       0.33,
		MutationProb:       0.04,
		Crossover:          CrossoverTwoPoint,
		CrossoverProb:      1,
		UniformSwapProb:    0.5,
		LowerCrossoverProb: 0.5,
		UpperCrossoverProb: 0.5,
		SBXEta:             15,
		MutationSpread:     0.1,
		CoverSpread:        0.5,
	}
}

// Condition is the matching predicate of a rule. Implementations are not safe
// for concurrent mutation; Match may be called concurrently.
type Condition interface {
	Kind() Kind
	Len() int
	Match(state []float64) bool
	// IsMoreGeneral reports whether the receiver matches a strict superset of
	// the inputs matched by other.
	IsMoreGeneral(other Condition) bool
	Equal(other Condition) bool
	// Generality is the fraction of the input space left unconstrained, in [0,1].
	Generality() float64
	Clone() Condition
	// Crossover recombines the receiver and other in place and reports whether
	// either of them changed.
	Crossover(rng *rand.Rand, other Condition, opts Options) (bool, error)
	// Mutate perturbs the receiver in place and reports whether it changed.
	Mutate(rng *rand.Rand, state []float64, opts Options) bool
	String() string
}

func ParseKind(raw string) (Kind, error) {
	switch Kind(strings.TrimSpace(strings.ToLower(raw))) {
	case KindTernary, "binary", "":
		return KindTernary, nil
	case KindInterval, "real":
		return KindInterval, nil
	default:
		return "", fmt.Errorf("unsupported condition kind: %s", raw)
	}
}

// Cover builds a condition matching state, leaving each attribute unspecified
// with probability opts.DontCareProb.
func Cover(kind Kind, rng *rand.Rand, state []float64, opts Options) (Condition, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	switch kind {
	case KindTernary:
		return coverTernary(rng, state, opts), nil
	case KindInterval:
		return coverInterval(rng, state, opts), nil
	default:
		return nil, fmt.Errorf("unsupported condition kind: %s", kind)
	}
}

// Parse decodes the String form of a condition.
func Parse(kind Kind, raw string) (Condition, error) {
	switch kind {
	case KindTernary:
		return ParseTernary(raw)
	case KindInterval:
		return ParseInterval(raw)
	default:
		return nil, fmt.Errorf("%w: unsupported kind %s", ErrParse, kind)
	}
}

func swapProbability(opts Options) float64 {
	if opts.UniformSwapProb <= 0 || opts.UniformSwapProb >= 1 {
		return 0.5
	}
	return opts.UniformSwapProb
}
