package stats

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"

	"xcs/internal/model"
)

var populationHeader = []string{
	"id", "condition", "action", "prediction", "prediction_error", "fitness",
	"numerosity", "experience", "action_set_size", "time_stamp",
}

// WritePopulationCSV writes one row per macro-classifier.
func WritePopulationCSV(w io.Writer, rules []model.RuleRecord) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(populationHeader); err != nil {
		return err
	}
	for _, r := range rules {
		if err := writer.Write([]string{
			strconv.FormatUint(r.ID, 10),
			r.Condition,
			strconv.Itoa(r.Action),
			formatFloat(r.Prediction),
			formatFloat(r.PredictionError),
			formatFloat(r.Fitness),
			strconv.Itoa(r.Numerosity),
			strconv.Itoa(r.Experience),
			formatFloat(r.ActionSetSize),
			strconv.Itoa(r.TimeStamp),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func ReadPopulationCSV(r io.Reader) ([]model.RuleRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(populationHeader)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []model.RuleRecord{}, nil
		}
		return nil, err
	}
	if !slices.Equal(header, populationHeader) {
		return nil, fmt.Errorf("unexpected population header: %v", header)
	}

	rules := make([]model.RuleRecord, 0, 128)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rule, err := parseRule(record)
		if err != nil {
			return nil, fmt.Errorf("population row %d: %w", line, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func parseRule(record []string) (model.RuleRecord, error) {
	p := fieldParser{record: record}
	rule := model.RuleRecord{
		ID:              p.uint(0),
		Condition:       record[1],
		Action:          p.int(2),
		Prediction:      p.float(3),
		PredictionError: p.float(4),
		Fitness:         p.float(5),
		Numerosity:      p.int(6),
		Experience:      p.int(7),
		ActionSetSize:   p.float(8),
		TimeStamp:       p.int(9),
	}
	return rule, p.err
}

// fieldParser keeps the first conversion error of a row.
type fieldParser struct {
	record []string
	err    error
}

func (p *fieldParser) int(i int) int {
	v, err := strconv.Atoi(p.record[i])
	p.keep(i, err)
	return v
}

func (p *fieldParser) uint(i int) uint64 {
	v, err := strconv.ParseUint(p.record[i], 10, 64)
	p.keep(i, err)
	return v
}

func (p *fieldParser) float(i int) float64 {
	v, err := strconv.ParseFloat(p.record[i], 64)
	p.keep(i, err)
	return v
}

func (p *fieldParser) keep(i int, err error) {
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("column %s: %w", populationHeader[i], err)
	}
}

// SortKeys lists the accepted SortRules keys.
var SortKeys = []string{"numerosity", "fitness", "experience", "prediction", "error", "id"}

// SortRules orders rules in place: descending by the key, ascending for
// "error" and "id". Ties keep id order.
func SortRules(rules []model.RuleRecord, key string) error {
	var cmp func(a, b model.RuleRecord) int
	switch key {
	case "", "numerosity":
		cmp = func(a, b model.RuleRecord) int { return b.Numerosity - a.Numerosity }
	case "fitness":
		cmp = func(a, b model.RuleRecord) int { return compareFloat(b.Fitness, a.Fitness) }
	case "experience":
		cmp = func(a, b model.RuleRecord) int { return b.Experience - a.Experience }
	case "prediction":
		cmp = func(a, b model.RuleRecord) int { return compareFloat(b.Prediction, a.Prediction) }
	case "error":
		cmp = func(a, b model.RuleRecord) int { return compareFloat(a.PredictionError, b.PredictionError) }
	case "id":
		cmp = func(model.RuleRecord, model.RuleRecord) int { return 0 }
	default:
		return fmt.Errorf("unsupported sort key %q", key)
	}
	slices.SortStableFunc(rules, func(a, b model.RuleRecord) int {
		if c := cmp(a, b); c != 0 {
			return c
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return nil
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
