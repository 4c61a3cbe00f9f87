package condition

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
)

// Bound is one attribute of an interval condition over the normalized [0,1]
// domain. A bound spanning the whole domain is unspecified.
type Bound struct {
	Lower float64
	Upper float64
}

func (b Bound) Unspecified() bool {
	return b.Lower <= 0 && b.Upper >= 1
}

func (b Bound) contains(o Bound) bool {
	return b.Lower <= o.Lower && b.Upper >= o.Upper
}

// Interval is the unordered-bound real-valued condition: variation operators
// move each end freely and repair restores lower <= upper inside [0,1].
type Interval struct {
	bounds []Bound
}

func NewInterval(bounds []Bound) *Interval {
	iv := &Interval{bounds: append([]Bound(nil), bounds...)}
	iv.repair()
	return iv
}

func ParseInterval(raw string) (*Interval, error) {
	fields := strings.Fields(raw)
	bounds := make([]Bound, 0, len(fields))
	for i, field := range fields {
		lo, hi, ok := strings.Cut(field, ":")
		if !ok {
			return nil, fmt.Errorf("%w: interval attribute %d %q", ErrParse, i, field)
		}
		lower, err := strconv.ParseFloat(lo, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: interval attribute %d lower: %v", ErrParse, i, err)
		}
		upper, err := strconv.ParseFloat(hi, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: interval attribute %d upper: %v", ErrParse, i, err)
		}
		bounds = append(bounds, Bound{Lower: lower, Upper: upper})
	}
	return NewInterval(bounds), nil
}

func coverInterval(rng *rand.Rand, state []float64, opts Options) *Interval {
	bounds := make([]Bound, len(state))
	for i, v := range state {
		if rng.Float64() < opts.DontCareProb {
			bounds[i] = Bound{Lower: 0, Upper: 1}
			continue
		}
		bounds[i] = Bound{
			Lower: v - rng.Float64()*opts.CoverSpread,
			Upper: v + rng.Float64()*opts.CoverSpread,
		}
	}
	iv := &Interval{bounds: bounds}
	iv.repair()
	return iv
}

func (iv *Interval) Kind() Kind { return KindInterval }

func (iv *Interval) Len() int { return len(iv.bounds) }

func (iv *Interval) Bound(i int) Bound { return iv.bounds[i] }

func (iv *Interval) Match(state []float64) bool {
	if len(state) != len(iv.bounds) {
		return false
	}
	for i, b := range iv.bounds {
		if b.Unspecified() {
			continue
		}
		if state[i] < b.Lower || state[i] > b.Upper {
			return false
		}
	}
	return true
}

func (iv *Interval) IsMoreGeneral(other Condition) bool {
	o, ok := other.(*Interval)
	if !ok || len(o.bounds) != len(iv.bounds) {
		return false
	}
	strict := false
	for i, b := range iv.bounds {
		if !b.contains(o.bounds[i]) {
			return false
		}
		if b != o.bounds[i] {
			strict = true
		}
	}
	return strict
}

func (iv *Interval) Equal(other Condition) bool {
	o, ok := other.(*Interval)
	if !ok || len(o.bounds) != len(iv.bounds) {
		return false
	}
	for i, b := range iv.bounds {
		if b != o.bounds[i] {
			return false
		}
	}
	return true
}

func (iv *Interval) Generality() float64 {
	if len(iv.bounds) == 0 {
		return 1
	}
	total := 0.0
	for _, b := range iv.bounds {
		total += b.Upper - b.Lower
	}
	return total / float64(len(iv.bounds))
}

func (iv *Interval) Clone() Condition {
	return &Interval{bounds: append([]Bound(nil), iv.bounds...)}
}

// Crossover applies bounded simulated binary crossover to the lower vector and
// then the upper vector. Each vector takes part with CrossoverProb; inside it
// every attribute is recombined with LowerCrossoverProb or UpperCrossoverProb.
func (iv *Interval) Crossover(rng *rand.Rand, other Condition, opts Options) (bool, error) {
	o, ok := other.(*Interval)
	if !ok {
		return false, fmt.Errorf("%w: interval with %s", ErrKindMismatch, other.Kind())
	}
	if len(o.bounds) != len(iv.bounds) {
		return false, fmt.Errorf("%w: length %d with %d", ErrKindMismatch, len(iv.bounds), len(o.bounds))
	}

	changed := false
	if rng.Float64() < opts.CrossoverProb {
		for i := range iv.bounds {
			if crossEnd(rng, &iv.bounds[i].Lower, &o.bounds[i].Lower, opts.LowerCrossoverProb, opts.SBXEta) {
				changed = true
			}
		}
	}
	if rng.Float64() < opts.CrossoverProb {
		for i := range iv.bounds {
			if crossEnd(rng, &iv.bounds[i].Upper, &o.bounds[i].Upper, opts.UpperCrossoverProb, opts.SBXEta) {
				changed = true
			}
		}
	}
	iv.repair()
	o.repair()
	return changed, nil
}

// crossEnd recombines one end of an attribute pair; which parent receives which
// child is a coin flip.
func crossEnd(rng *rand.Rand, a, b *float64, prob, eta float64) bool {
	if rng.Float64() >= prob {
		return false
	}
	if math.Abs(*a-*b) <= sbxMinGap {
		return false
	}
	c1, c2 := sbx(rng, *a, *b, eta)
	if rng.Float64() < 0.5 {
		c1, c2 = c2, c1
	}
	changed := c1 != *a || c2 != *b
	*a, *b = c1, c2
	return changed
}

const sbxMinGap = 1e-4

// sbx is Deb's bounded simulated binary crossover over [0,1]. It returns the
// lower child first.
func sbx(rng *rand.Rand, x1, x2, eta float64) (float64, float64) {
	if eta <= 0 {
		eta = 15
	}
	y1, y2 := min(x1, x2), max(x1, x2)
	u := rng.Float64()
	spread := func(beta float64) float64 {
		alpha := 2 - math.Pow(beta, -(eta+1))
		if u <= 1/alpha {
			return math.Pow(u*alpha, 1/(eta+1))
		}
		return math.Pow(1/(2-u*alpha), 1/(eta+1))
	}
	c1 := 0.5 * ((y1 + y2) - spread(1+2*y1/(y2-y1))*(y2-y1))
	c2 := 0.5 * ((y1 + y2) + spread(1+2*(1-y2)/(y2-y1))*(y2-y1))
	return clamp01(c1), clamp01(c2)
}

// Mutate shifts both ends of each selected attribute by independent offsets
// in [-MutationSpread, MutationSpread].
func (iv *Interval) Mutate(rng *rand.Rand, _ []float64, opts Options) bool {
	changed := false
	for i := range iv.bounds {
		if rng.Float64() >= opts.MutationProb {
			continue
		}
		iv.bounds[i].Lower += (2*rng.Float64() - 1) * opts.MutationSpread
		iv.bounds[i].Upper += (2*rng.Float64() - 1) * opts.MutationSpread
		changed = true
	}
	if changed {
		iv.repair()
	}
	return changed
}

func (iv *Interval) repair() {
	for i := range iv.bounds {
		b := &iv.bounds[i]
		b.Lower = clamp01(b.Lower)
		b.Upper = clamp01(b.Upper)
		if b.Lower > b.Upper {
			b.Lower, b.Upper = b.Upper, b.Lower
		}
		if !(b.Lower >= 0 && b.Lower <= b.Upper && b.Upper <= 1) {
			panic(fmt.Sprintf("interval attribute %d out of order after repair: [%v,%v]", i, b.Lower, b.Upper))
		}
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (iv *Interval) String() string {
	var sb strings.Builder
	for i, b := range iv.bounds {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strconv.FormatFloat(b.Lower, 'g', -1, 64))
		sb.WriteByte(':')
		sb.WriteString(strconv.FormatFloat(b.Upper, 'g', -1, 64))
	}
	return sb.String()
}
