package problem

import (
	"fmt"

	"xcs/internal/condition"
)

// NewParity builds the even-parity problem: the correct action is the bit
// that makes the number of ones even.
func NewParity(bits int) (Environment, error) {
	if bits < 1 || bits > 32 {
		return nil, fmt.Errorf("parity length must be in [1, 32], got %d", bits)
	}
	return &singleStep{
		name:    fmt.Sprintf("parity%d", bits),
		kind:    condition.KindTernary,
		length:  bits,
		actions: 2,
		answer: func(state []float64) int {
			ones := 0
			for _, v := range state {
				ones += bit(v)
			}
			return ones % 2
		},
	}, nil
}
