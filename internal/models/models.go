package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Run statuses
const (
	RunStatusPending   = "pending"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Dataset is one uploaded CSV table
type Dataset struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Kind        string         `gorm:"not null;index:idx_dataset_kind_created" json:"kind"`
	Filename    string         `json:"filename"`
	Rows        int            `gorm:"not null;default:0" json:"rows"`
	ContentHash string         `gorm:"not null;index" json:"content_hash"`
	Content     []byte         `gorm:"type:bytea;not null" json:"-"`
}

// AnalysisRun is one execution of the pipeline over a set of datasets
type AnalysisRun struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt      time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt   `gorm:"index" json:"-"`
	Status         string           `gorm:"not null;default:pending" json:"status"`
	InputHash      string           `gorm:"not null;index" json:"input_hash"`
	Trigger        string           `gorm:"not null" json:"trigger"`
	DatasetIDs     []byte           `gorm:"type:jsonb" json:"dataset_ids"`
	Params         []byte           `gorm:"type:jsonb" json:"params"`
	Totals         []byte           `gorm:"type:jsonb" json:"totals"`
	Report         []byte           `gorm:"type:jsonb" json:"-"`
	Deliveries     int              `gorm:"not null;default:0" json:"deliveries"`
	OverPick       int              `gorm:"not null;default:0" json:"over_pick"`
	Error          *string          `json:"error,omitempty"`
	CompletedAt    *time.Time       `json:"completed_at"`
	DeliveryResult []DeliveryResult `gorm:"foreignKey:RunID" json:"-"`
}

// DeliveryResult is the billing reconciliation of one delivery in a run
type DeliveryResult struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	RunID          uuid.UUID `gorm:"type:uuid;not null;index" json:"run_id"`
	DeliveryID     string    `gorm:"not null;index" json:"delivery_id"`
	Category       string    `gorm:"not null" json:"category"`
	BillingMode    string    `gorm:"not null" json:"billing_mode"`
	DominantQueue  string    `json:"dominant_queue"`
	PickingTasks   int       `gorm:"not null" json:"picking_tasks"`
	TotalMoves     int64     `gorm:"not null" json:"total_moves"`
	ExactMoves     int64     `gorm:"not null" json:"exact_moves"`
	EstimatedMoves int64     `gorm:"not null" json:"estimated_moves"`
	BillableUnits  int       `gorm:"not null" json:"billable_units"`
	OverPick       int       `gorm:"not null" json:"over_pick"`
}

// BeforeCreate assigns an id when none is set
func (d *Dataset) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// BeforeCreate assigns an id when none is set
func (r *AnalysisRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// BeforeCreate assigns an id when none is set
func (d *DeliveryResult) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// AnalysisRequest is the payload of an analysis request. Unset limits fall
// back to the configured defaults.
type AnalysisRequest struct {
	WeightLimitKG     *float64 `json:"weight_limit_kg" validate:"omitempty,gte=0"`
	DimensionLimitCM  *float64 `json:"dimension_limit_cm" validate:"omitempty,gte=0"`
	GrabSize          *int     `json:"grab_size" validate:"omitempty,gte=1"`
	ExcludedMaterials []string `json:"excluded_materials" validate:"omitempty,dive,required"`
}

// DatasetUploadedEvent is published after a dataset is stored
type DatasetUploadedEvent struct {
	DatasetID   uuid.UUID `json:"dataset_id"`
	Kind        string    `json:"kind"`
	Rows        int       `json:"rows"`
	ContentHash string    `json:"content_hash"`
}

// AnalysisCompletedEvent is published after a run is persisted
type AnalysisCompletedEvent struct {
	RunID      uuid.UUID `json:"run_id"`
	InputHash  string    `json:"input_hash"`
	Deliveries int       `json:"deliveries"`
	OverPick   int       `json:"over_pick"`
	Cached     bool      `json:"cached"`
}

// SetupModels configures GORM models and runs migrations
func SetupModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&Dataset{},
		&AnalysisRun{},
		&DeliveryResult{},
	)
	if err != nil {
		return errors.Wrap(err, "failed to run auto migrations")
	}

	return nil
}
