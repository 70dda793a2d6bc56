package storage

import (
	"context"

	"github.com/rustedworkshop/smokerig/internal/model"
)

// RunRepository is the interface for run journal persistence.
type RunRepository interface {
	CreateRun(ctx context.Context, r model.Run) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)
	UpdateRun(ctx context.Context, r model.Run) error
	DeleteRun(ctx context.Context, id string) error
}
