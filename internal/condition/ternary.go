package condition

import (
	"fmt"
	"math/rand"
)

const (
	SymbolZero     byte = '0'
	SymbolOne      byte = '1'
	SymbolDontCare byte = '#'
)

// Ternary is a condition over binary inputs where each position is 0, 1 or
// don't-care.
type Ternary struct {
	symbols []byte
}

func NewTernary(symbols string) (*Ternary, error) {
	return ParseTernary(symbols)
}

func MustTernary(symbols string) *Ternary {
	t, err := ParseTernary(symbols)
	if err != nil {
		panic(err)
	}
	return t
}

func ParseTernary(raw string) (*Ternary, error) {
	symbols := []byte(raw)
	for i, s := range symbols {
		if s != SymbolZero && s != SymbolOne && s != SymbolDontCare {
			return nil, fmt.Errorf("%w: invalid ternary symbol %q at %d", ErrParse, s, i)
		}
	}
	return &Ternary{symbols: symbols}, nil
}

func coverTernary(rng *rand.Rand, state []float64, opts Options) *Ternary {
	symbols := make([]byte, len(state))
	for i, v := range state {
		if rng.Float64() < opts.DontCareProb {
			symbols[i] = SymbolDontCare
		} else {
			symbols[i] = bitSymbol(v)
		}
	}
	return &Ternary{symbols: symbols}
}

func bitSymbol(v float64) byte {
	if v >= 0.5 {
		return SymbolOne
	}
	return SymbolZero
}

func (t *Ternary) Kind() Kind { return KindTernary }

func (t *Ternary) Len() int { return len(t.symbols) }

func (t *Ternary) Symbol(i int) byte { return t.symbols[i] }

func (t *Ternary) Match(state []float64) bool {
	if len(state) != len(t.symbols) {
		return false
	}
	for i, s := range t.symbols {
		if s == SymbolDontCare {
			continue
		}
		v := state[i]
		if v != 0 && v != 1 {
			return false
		}
		if (s == SymbolOne) != (v == 1) {
			return false
		}
	}
	return true
}

func (t *Ternary) IsMoreGeneral(other Condition) bool {
	o, ok := other.(*Ternary)
	if !ok || len(o.symbols) != len(t.symbols) {
		return false
	}
	if t.dontCares() <= o.dontCares() {
		return false
	}
	for i, s := range t.symbols {
		if s != SymbolDontCare && s != o.symbols[i] {
			return false
		}
	}
	return true
}

func (t *Ternary) Equal(other Condition) bool {
	o, ok := other.(*Ternary)
	if !ok || len(o.symbols) != len(t.symbols) {
		return false
	}
	return string(t.symbols) == string(o.symbols)
}

func (t *Ternary) Generality() float64 {
	if len(t.symbols) == 0 {
		return 1
	}
	return float64(t.dontCares()) / float64(len(t.symbols))
}

func (t *Ternary) dontCares() int {
	n := 0
	for _, s := range t.symbols {
		if s == SymbolDontCare {
			n++
		}
	}
	return n
}

func (t *Ternary) Clone() Condition {
	return &Ternary{symbols: append([]byte(nil), t.symbols...)}
}

func (t *Ternary) Crossover(rng *rand.Rand, other Condition, opts Options) (bool, error) {
	o, ok := other.(*Ternary)
	if !ok {
		return false, fmt.Errorf("%w: ternary with %s", ErrKindMismatch, other.Kind())
	}
	if len(o.symbols) != len(t.symbols) {
		return false, fmt.Errorf("%w: length %d with %d", ErrKindMismatch, len(t.symbols), len(o.symbols))
	}
	if rng.Float64() >= opts.CrossoverProb {
		return false, nil
	}

	changed := false
	swap := func(i int) {
		if t.symbols[i] != o.symbols[i] {
			changed = true
		}
		t.symbols[i], o.symbols[i] = o.symbols[i], t.symbols[i]
	}

	switch opts.Crossover {
	case CrossoverUniform:
		p := swapProbability(opts)
		for i := range t.symbols {
			if rng.Float64() < p {
				swap(i)
			}
		}
	case CrossoverTwoPoint, "":
		// the cut points always span at least one position
		n := len(t.symbols)
		if n == 0 {
			break
		}
		from := rng.Intn(n)
		to := rng.Intn(n) + 1
		if from > to {
			from, to = to, from
		} else if from == to {
			to++
		}
		for i := from; i < to; i++ {
			swap(i)
		}
	default:
		return false, fmt.Errorf("unsupported ternary crossover: %s", opts.Crossover)
	}
	return changed, nil
}

// Mutate toggles each selected position between don't-care and the bit the
// current state shows there, so the mutated condition still matches state.
func (t *Ternary) Mutate(rng *rand.Rand, state []float64, opts Options) bool {
	changed := false
	for i := range t.symbols {
		if rng.Float64() >= opts.MutationProb {
			continue
		}
		if t.symbols[i] == SymbolDontCare {
			if i < len(state) {
				t.symbols[i] = bitSymbol(state[i])
			} else {
				t.symbols[i] = SymbolZero
			}
		} else {
			t.symbols[i] = SymbolDontCare
		}
		changed = true
	}
	return changed
}

func (t *Ternary) String() string {
	return string(t.symbols)
}
