package storage

import (
	"context"

	"xcs/internal/model"
)

// Store persists population snapshots, run summaries and performance curves.
type Store interface {
	Init(ctx context.Context) error
	SavePopulation(ctx context.Context, snapshot model.PopulationSnapshot) error
	GetPopulation(ctx context.Context, id string) (model.PopulationSnapshot, bool, error)
	SaveRun(ctx context.Context, run model.RunSummary) error
	GetRun(ctx context.Context, id string) (model.RunSummary, bool, error)
	// ListRuns returns every run ordered by creation time, oldest first.
	ListRuns(ctx context.Context) ([]model.RunSummary, error)
	SavePerformance(ctx context.Context, runID string, points []model.PerformancePoint) error
	GetPerformance(ctx context.Context, runID string) ([]model.PerformancePoint, bool, error)
}
