package storage

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"xcs/internal/model"
)

func TestDecodePopulationFixture(t *testing.T) {
	snapshot := decodePopulationFixture(t, "population_v1.json")
	if snapshot.ID != "pop-fixture-1" || snapshot.RunID != "run-fixture-1" {
		t.Fatalf("unexpected population ids: %s %s", snapshot.ID, snapshot.RunID)
	}
	if len(snapshot.Rules) != 2 || snapshot.Rules[0].Condition != "000###" {
		t.Fatalf("unexpected rules: %+v", snapshot.Rules)
	}
	if condensed := snapshot.Condensed(); len(condensed.Rules) != 1 || condensed.NumerositySum != 4 {
		t.Fatalf("unexpected condensed snapshot: %+v", condensed)
	}
}

func TestDecodePopulationVersionMismatch(t *testing.T) {
	data, err := os.ReadFile(fixturePath("population_v0.json"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	if _, err := DecodePopulation(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected version mismatch, got %v", err)
	}
}

func TestDecodePopulationRejectsDivergedSum(t *testing.T) {
	snapshot := sampleSnapshot("pop-bad")
	snapshot.NumerositySum = 7
	data, err := EncodePopulation(snapshot)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodePopulation(data); err == nil {
		t.Fatal("expected numerosity sum error")
	}
}

func TestPopulationCodecRoundTrip(t *testing.T) {
	input := sampleSnapshot("pop-rt")
	data, err := EncodePopulation(input)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	output, err := DecodePopulation(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(input, output) {
		t.Fatalf("round trip mismatch:\n%+v\n%+v", input, output)
	}
}

func TestDecodeRunVersionMismatch(t *testing.T) {
	data, err := EncodeRun(model.RunSummary{ID: "r", VersionedRecord: model.VersionedRecord{SchemaVersion: 2, CodecVersion: 1}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeRun(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected version mismatch, got %v", err)
	}
}

func fixturePath(name string) string {
	return filepath.Join("testdata", name)
}

func decodePopulationFixture(t *testing.T, name string) model.PopulationSnapshot {
	t.Helper()

	data, err := os.ReadFile(fixturePath(name))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}

	snapshot, err := DecodePopulation(data)
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return snapshot
}
