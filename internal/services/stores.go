package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"example.com/backstage/services/pickaudit/internal/billing"
	"example.com/backstage/services/pickaudit/internal/models"
	"example.com/backstage/services/pickaudit/internal/search"
)

// DatasetStore persists uploaded tables
type DatasetStore interface {
	Create(ctx context.Context, dataset *models.Dataset) error
	LatestByKind(ctx context.Context) ([]models.Dataset, error)
}

// RunStore persists analysis runs and their delivery results
type RunStore interface {
	SaveCompleted(ctx context.Context, run *models.AnalysisRun, results []models.DeliveryResult) error
	SaveFailed(ctx context.Context, run *models.AnalysisRun, cause error) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.AnalysisRun, error)
	LatestCompletedByInputHash(ctx context.Context, inputHash string) (*models.AnalysisRun, error)
	ListResults(ctx context.Context, runID uuid.UUID, minOverPick int) ([]models.DeliveryResult, error)
}

// Cache memoizes JSON values
type Cache interface {
	Enabled() bool
	Get(ctx context.Context, key string, value interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// DeliveryIndex indexes and searches delivery billing records
type DeliveryIndex interface {
	IndexDeliveries(ctx context.Context, runID uuid.UUID, records []billing.DeliveryRecord) error
	SearchDeliveries(ctx context.Context, q search.DeliveryQuery) ([]search.DeliveryDocument, error)
}
