package problem

import "xcs/internal/condition"

// dv1Positives are the 7-bit inputs, read most significant bit first, whose
// correct action is 1.
var dv1Positives = map[int]bool{}

func init() {
	for _, v := range []int{
		1, 2, 3, 8, 9, 10, 11, 13, 14, 24, 25, 26, 27, 28,
		30, 40, 41, 42, 43, 46, 47, 56, 57, 58, 59, 61, 65, 66, 67, 69, 70,
		71, 72, 73, 74, 75, 77, 78, 79, 81, 82, 83, 85, 86, 88, 89, 90, 91,
		93, 94, 95, 97, 98, 99, 101, 102, 103, 104, 105, 106, 107, 109,
		110, 113, 114, 115, 117, 118, 121, 122, 123, 125, 126, 127,
	} {
		dv1Positives[v] = true
	}
}

// NewDV1 builds the 7-bit DV1 boolean function.
func NewDV1() Environment {
	return &singleStep{
		name:    "dv1",
		kind:    condition.KindTernary,
		length:  7,
		actions: 2,
		answer: func(state []float64) int {
			v := 0
			for _, x := range state {
				v = v<<1 | bit(x)
			}
			if dv1Positives[v] {
				return 1
			}
			return 0
		},
	}
}
