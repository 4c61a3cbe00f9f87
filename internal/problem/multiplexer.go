package problem

import (
	"fmt"

	"xcs/internal/condition"
)

// MultiplexerLength is the state length of a multiplexer with addressBits
// address bits.
func MultiplexerLength(addressBits int) int {
	return addressBits + 1<<addressBits
}

// NewMultiplexer builds the boolean multiplexer: the first addressBits bits
// select one of the data bits, whose value is the correct action.
func NewMultiplexer(addressBits int) (Environment, error) {
	return newMultiplexer(addressBits, false)
}

// NewRealMultiplexer presents states in [0,1); every attribute reads as 1
// at or above 0.5.
func NewRealMultiplexer(addressBits int) (Environment, error) {
	return newMultiplexer(addressBits, true)
}

// NewAliasedMultiplexer is the boolean multiplexer whose explore rewards are
// inverted with probability rate. Exploit rewards stay exact.
func NewAliasedMultiplexer(addressBits int, rate float64) (Environment, error) {
	if rate < 0 || rate >= 0.5 {
		return nil, fmt.Errorf("aliasing rate must be in [0, 0.5), got %v", rate)
	}
	env, err := newMultiplexer(addressBits, false)
	if err != nil {
		return nil, err
	}
	s := env.(*singleStep)
	s.name = "a" + s.name
	s.aliasing = rate
	return s, nil
}

// NewConcatenatedMultiplexer joins count multiplexers side by side. The
// correct action is the binary number formed by their outputs, first block
// most significant.
func NewConcatenatedMultiplexer(addressBits, count int) (Environment, error) {
	if err := checkAddressBits(addressBits); err != nil {
		return nil, err
	}
	if count < 1 || count > 4 {
		return nil, fmt.Errorf("concatenated multiplexer count must be in [1, 4], got %d", count)
	}
	block := MultiplexerLength(addressBits)
	return &singleStep{
		name:    fmt.Sprintf("cmux%dx%d", block, count),
		kind:    condition.KindTernary,
		length:  block * count,
		actions: 1 << count,
		answer: func(state []float64) int {
			out := 0
			for b := 0; b < count; b++ {
				out = out<<1 | multiplex(state[b*block:(b+1)*block], addressBits)
			}
			return out
		},
	}, nil
}

func checkAddressBits(addressBits int) error {
	if addressBits < 1 || addressBits > 6 {
		return fmt.Errorf("multiplexer address bits must be in [1, 6], got %d", addressBits)
	}
	return nil
}

func multiplex(state []float64, addressBits int) int {
	addr := 0
	for i := 0; i < addressBits; i++ {
		addr = addr<<1 | bit(state[i])
	}
	return bit(state[addressBits+addr])
}

func newMultiplexer(addressBits int, continuous bool) (Environment, error) {
	if err := checkAddressBits(addressBits); err != nil {
		return nil, err
	}
	length := MultiplexerLength(addressBits)
	name := fmt.Sprintf("mux%d", length)
	kind := condition.KindTernary
	if continuous {
		name = "r" + name
		kind = condition.KindInterval
	}
	return &singleStep{
		name:       name,
		kind:       kind,
		length:     length,
		actions:    2,
		continuous: continuous,
		answer: func(state []float64) int {
			return multiplex(state, addressBits)
		},
	}, nil
}
