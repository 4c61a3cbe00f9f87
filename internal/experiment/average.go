package experiment

import (
	"fmt"
	"math"

	"xcs/internal/model"
)

// movingAverage is the mean of the last n observations.
type movingAverage struct {
	values []float64
	next   int
	filled bool
	sum    float64
}

func newMovingAverage(n int) *movingAverage {
	return &movingAverage{values: make([]float64, n)}
}

func (m *movingAverage) Add(v float64) {
	m.sum += v - m.values[m.next]
	m.values[m.next] = v
	m.next++
	if m.next == len(m.values) {
		m.next = 0
		m.filled = true
	}
}

func (m *movingAverage) Value() float64 {
	n := m.next
	if m.filled {
		n = len(m.values)
	}
	if n == 0 {
		return 0
	}
	return m.sum / float64(n)
}

// AverageCurves averages repeated runs point by point. Every curve must be
// recorded at the same steps; population sizes are rounded to the nearest
// integer.
func AverageCurves(curves [][]model.PerformancePoint) ([]model.PerformancePoint, error) {
	if len(curves) == 0 {
		return nil, fmt.Errorf("no curves to average")
	}
	n := len(curves[0])
	for i, c := range curves[1:] {
		if len(c) != n {
			return nil, fmt.Errorf("curve %d has %d points, want %d", i+1, len(c), n)
		}
	}

	out := make([]model.PerformancePoint, n)
	k := float64(len(curves))
	for j := range out {
		step := curves[0][j].Step
		var perf, errSum, size, num float64
		for i, c := range curves {
			if c[j].Step != step {
				return nil, fmt.Errorf("curve %d point %d is step %d, want %d", i, j, c[j].Step, step)
			}
			perf += c[j].Performance
			errSum += c[j].PredictionError
			size += float64(c[j].PopulationSize)
			num += float64(c[j].NumerositySum)
		}
		out[j] = model.PerformancePoint{
			Step:            step,
			Performance:     perf / k,
			PredictionError: errSum / k,
			PopulationSize:  int(math.Round(size / k)),
			NumerositySum:   int(math.Round(num / k)),
		}
	}
	return out, nil
}
