package services

import (
	"bytes"
	"context"

	"github.com/rs/zerolog/log"

	"example.com/backstage/services/pickaudit/internal/ingest"
	"example.com/backstage/services/pickaudit/internal/messaging"
	"example.com/backstage/services/pickaudit/internal/metrics"
	"example.com/backstage/services/pickaudit/internal/models"
)

// DatasetService validates and stores uploaded tables
type DatasetService struct {
	datasets  DatasetStore
	publisher messaging.Publisher
	metrics   *metrics.Metrics
}

// NewDatasetService creates a new dataset service
func NewDatasetService(datasets DatasetStore, publisher messaging.Publisher, m *metrics.Metrics) *DatasetService {
	if publisher == nil {
		publisher = messaging.NoopPublisher{}
	}
	return &DatasetService{datasets: datasets, publisher: publisher, metrics: m}
}

// Upload parses content against the kind's schema and stores it. Only
// tables that parse are kept.
func (s *DatasetService) Upload(ctx context.Context, kindName, filename string, content []byte) (*models.Dataset, error) {
	kind, err := ingest.ParseKind(kindName)
	if err != nil {
		return nil, err
	}
	table, err := ingest.Read(kind, bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	dataset := &models.Dataset{
		Kind:        string(kind),
		Filename:    filename,
		Rows:        table.Len(),
		ContentHash: ContentHash(content),
		Content:     content,
	}
	if err := s.datasets.Create(ctx, dataset); err != nil {
		return nil, err
	}

	s.metrics.IncrementCounter(metrics.DatasetsUploaded)
	s.metrics.IncrementCounterBy(metrics.RowsIngested, int64(dataset.Rows))

	evt := models.DatasetUploadedEvent{
		DatasetID:   dataset.ID,
		Kind:        dataset.Kind,
		Rows:        dataset.Rows,
		ContentHash: dataset.ContentHash,
	}
	if err := s.publisher.Publish(ctx, messaging.EventDatasetUploaded, evt); err != nil {
		log.Warn().Err(err).Str("dataset_id", dataset.ID.String()).Msg("Failed to publish dataset upload")
	} else {
		s.metrics.IncrementCounter(metrics.EventsPublished)
	}

	log.Info().
		Str("dataset_id", dataset.ID.String()).
		Str("kind", dataset.Kind).
		Int("rows", dataset.Rows).
		Msg("Dataset stored")

	return dataset, nil
}

// Latest returns the newest dataset of every kind
func (s *DatasetService) Latest(ctx context.Context) ([]models.Dataset, error) {
	return s.datasets.LatestByKind(ctx)
}
