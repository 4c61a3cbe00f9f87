package stats

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"xcs/internal/model"
)

func WritePerformanceCSV(w io.Writer, points []model.PerformancePoint) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"step", "performance", "prediction_error", "population_size", "numerosity_sum"}); err != nil {
		return err
	}
	for _, p := range points {
		if err := writer.Write([]string{
			strconv.Itoa(p.Step),
			formatFloat(p.Performance),
			formatFloat(p.PredictionError),
			strconv.Itoa(p.PopulationSize),
			strconv.Itoa(p.NumerositySum),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func ReadPerformanceCSV(r io.Reader) ([]model.PerformancePoint, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []model.PerformancePoint{}, nil
		}
		return nil, err
	}
	if len(header) < 5 {
		return nil, fmt.Errorf("performance header must have 5 columns")
	}

	points := make([]model.PerformancePoint, 0, 128)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		var p model.PerformancePoint
		if p.Step, err = strconv.Atoi(record[0]); err != nil {
			return nil, err
		}
		if p.Performance, err = strconv.ParseFloat(record[1], 64); err != nil {
			return nil, err
		}
		if p.PredictionError, err = strconv.ParseFloat(record[2], 64); err != nil {
			return nil, err
		}
		if p.PopulationSize, err = strconv.Atoi(record[3]); err != nil {
			return nil, err
		}
		if p.NumerositySum, err = strconv.Atoi(record[4]); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, nil
}
