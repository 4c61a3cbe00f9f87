package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"xcs/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// CurrentVersion is the version stamp new records are written with.
func CurrentVersion() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func EncodePopulation(s model.PopulationSnapshot) ([]byte, error) {
	return json.Marshal(s)
}

func DecodePopulation(data []byte) (model.PopulationSnapshot, error) {
	var snapshot model.PopulationSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return model.PopulationSnapshot{}, err
	}
	if err := checkVersion(snapshot.VersionedRecord); err != nil {
		return model.PopulationSnapshot{}, err
	}
	sum := 0
	for _, r := range snapshot.Rules {
		sum += r.Numerosity
	}
	if sum != snapshot.NumerositySum {
		return model.PopulationSnapshot{}, fmt.Errorf("population %s: numerosity sum %d does not match rules %d", snapshot.ID, snapshot.NumerositySum, sum)
	}
	return snapshot, nil
}

func EncodeRun(r model.RunSummary) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeRun(data []byte) (model.RunSummary, error) {
	var run model.RunSummary
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunSummary{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.RunSummary{}, err
	}
	return run, nil
}

func EncodePerformance(points []model.PerformancePoint) ([]byte, error) {
	return json.Marshal(points)
}

func DecodePerformance(data []byte) ([]model.PerformancePoint, error) {
	var points []model.PerformancePoint
	if err := json.Unmarshal(data, &points); err != nil {
		return nil, err
	}
	return points, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return fmt.Errorf("%w: schema=%d codec=%d", ErrVersionMismatch, v.SchemaVersion, v.CodecVersion)
	}
	return nil
}
