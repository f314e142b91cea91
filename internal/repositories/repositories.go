package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"example.com/backstage/services/pickaudit/internal/models"
)

// DatasetRepository provides access to uploaded datasets
type DatasetRepository struct {
	db         *gorm.DB // Write database
	readOnlyDB *gorm.DB // Read-only database
}

// NewDatasetRepository creates a new dataset repository
func NewDatasetRepository(db *gorm.DB, readOnlyDB *gorm.DB) *DatasetRepository {
	return &DatasetRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// Create stores a new dataset
func (r *DatasetRepository) Create(ctx context.Context, dataset *models.Dataset) error {
	if err := r.db.WithContext(ctx).Create(dataset).Error; err != nil {
		return errors.Wrap(err, "failed to create dataset")
	}
	return nil
}

// GetByID gets a dataset by ID
func (r *DatasetRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dataset, error) {
	var dataset models.Dataset
	err := r.readOnlyDB.WithContext(ctx).First(&dataset, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDatasetNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get dataset by ID")
	}
	return &dataset, nil
}

// LatestByKind returns the most recent dataset of every kind, content
// included
func (r *DatasetRepository) LatestByKind(ctx context.Context) ([]models.Dataset, error) {
	var datasets []models.Dataset
	err := r.readOnlyDB.WithContext(ctx).
		Raw(`SELECT DISTINCT ON (kind) * FROM datasets
			WHERE deleted_at IS NULL
			ORDER BY kind, created_at DESC`).
		Scan(&datasets).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to get latest datasets")
	}
	return datasets, nil
}

// AnalysisRepository provides access to analysis runs and their results
type AnalysisRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewAnalysisRepository creates a new repository
func NewAnalysisRepository(db *gorm.DB, readOnlyDB *gorm.DB) *AnalysisRepository {
	return &AnalysisRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// SaveCompleted stores a completed run together with its delivery results
func (r *AnalysisRepository) SaveCompleted(ctx context.Context, run *models.AnalysisRun, results []models.DeliveryResult) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		run.Status = models.RunStatusCompleted
		run.CompletedAt = &now

		if err := tx.Create(run).Error; err != nil {
			return errors.Wrap(err, "failed to create analysis run")
		}
		if len(results) == 0 {
			return nil
		}
		for i := range results {
			results[i].RunID = run.ID
		}
		if err := tx.CreateInBatches(results, 500).Error; err != nil {
			return errors.Wrap(err, "failed to create delivery results")
		}
		return nil
	})
}

// SaveFailed records a run that could not complete
func (r *AnalysisRepository) SaveFailed(ctx context.Context, run *models.AnalysisRun, cause error) error {
	msg := cause.Error()
	run.Status = models.RunStatusFailed
	run.Error = &msg
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return errors.Wrap(err, "failed to record failed analysis run")
	}
	return nil
}

// GetByID gets a run by ID
func (r *AnalysisRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AnalysisRun, error) {
	var run models.AnalysisRun
	err := r.readOnlyDB.WithContext(ctx).First(&run, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get analysis run by ID")
	}
	return &run, nil
}

// LatestCompletedByInputHash gets the newest completed run over the given
// input
func (r *AnalysisRepository) LatestCompletedByInputHash(ctx context.Context, inputHash string) (*models.AnalysisRun, error) {
	var run models.AnalysisRun
	err := r.readOnlyDB.WithContext(ctx).
		Where("input_hash = ? AND status = ?", inputHash, models.RunStatusCompleted).
		Order("created_at DESC").
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get analysis run by input hash")
	}
	return &run, nil
}

// ListResults gets the delivery results of a run, worst over-pick first
func (r *AnalysisRepository) ListResults(ctx context.Context, runID uuid.UUID, minOverPick int) ([]models.DeliveryResult, error) {
	var results []models.DeliveryResult
	err := r.readOnlyDB.WithContext(ctx).
		Where("run_id = ? AND over_pick >= ?", runID, minOverPick).
		Order("over_pick DESC, delivery_id").
		Find(&results).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list delivery results")
	}
	return results, nil
}
