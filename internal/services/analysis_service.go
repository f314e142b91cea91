package services

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"example.com/backstage/services/pickaudit/config"
	"example.com/backstage/services/pickaudit/internal/analysis"
	"example.com/backstage/services/pickaudit/internal/billing"
	"example.com/backstage/services/pickaudit/internal/cache"
	"example.com/backstage/services/pickaudit/internal/ingest"
	"example.com/backstage/services/pickaudit/internal/messaging"
	"example.com/backstage/services/pickaudit/internal/metrics"
	"example.com/backstage/services/pickaudit/internal/models"
	"example.com/backstage/services/pickaudit/internal/moves"
	"example.com/backstage/services/pickaudit/internal/picking"
	"example.com/backstage/services/pickaudit/internal/reports"
	"example.com/backstage/services/pickaudit/internal/repositories"
	"example.com/backstage/services/pickaudit/internal/search"
	"example.com/backstage/services/pickaudit/internal/tracing"
)

// Run triggers
const (
	TriggerAPI      = "api"
	TriggerEvent    = "event"
	TriggerSchedule = "schedule"
)

// RunSummary is the response to an analysis request
type RunSummary struct {
	RunID      uuid.UUID      `json:"run_id"`
	InputHash  string         `json:"input_hash"`
	ParamsHash string         `json:"params_hash"`
	Trigger    string         `json:"trigger"`
	Params     moves.Params   `json:"params"`
	Stats      picking.Stats  `json:"stats"`
	Totals     reports.Totals `json:"totals"`
	Cached     bool           `json:"cached"`
	CreatedAt  time.Time      `json:"created_at"`
}

// AnalysisService runs the pipeline over the latest uploaded datasets and
// keeps the results
type AnalysisService struct {
	datasets  DatasetStore
	runs      RunStore
	cache     Cache
	index     DeliveryIndex
	publisher messaging.Publisher
	tracer    tracing.Tracer
	metrics   *metrics.Metrics
	cfg       config.AnalysisConfig
	validate  *validator.Validate
}

// NewAnalysisService creates a new analysis service. cache, index,
// publisher and tracer may be nil.
func NewAnalysisService(
	datasets DatasetStore,
	runs RunStore,
	cache Cache,
	index DeliveryIndex,
	publisher messaging.Publisher,
	tracer tracing.Tracer,
	m *metrics.Metrics,
	cfg config.AnalysisConfig,
) *AnalysisService {
	if publisher == nil {
		publisher = messaging.NoopPublisher{}
	}
	if tracer == nil {
		tracer, _ = tracing.NewTracer(config.TracingConfig{})
	}
	return &AnalysisService{
		datasets:  datasets,
		runs:      runs,
		cache:     cache,
		index:     index,
		publisher: publisher,
		tracer:    tracer,
		metrics:   m,
		cfg:       cfg,
		validate:  validator.New(),
	}
}

// Options merges a request into the configured defaults
func (s *AnalysisService) Options(req *models.AnalysisRequest) (analysis.Options, error) {
	opts := analysis.Options{
		Params:       s.cfg.Params(),
		Picking:      s.cfg.PickingOptions(),
		TopMaterials: s.cfg.TopMaterials,
	}
	if req == nil {
		return opts, nil
	}
	if err := s.validate.Struct(req); err != nil {
		return opts, errors.Wrap(ErrInvalidRequest, err.Error())
	}
	if req.WeightLimitKG != nil {
		opts.Params.WeightLimitKG = *req.WeightLimitKG
	}
	if req.DimensionLimitCM != nil {
		opts.Params.DimensionLimitCM = *req.DimensionLimitCM
	}
	if req.GrabSize != nil {
		opts.Params.GrabSize = *req.GrabSize
	}
	opts.Picking.ExcludedMaterials = append(opts.Picking.ExcludedMaterials, req.ExcludedMaterials...)
	return opts, nil
}

// Run analyzes the latest dataset of every kind. A run over the same input
// and options is served from the cache.
func (s *AnalysisService) Run(ctx context.Context, req *models.AnalysisRequest, trigger string) (*RunSummary, error) {
	txn := s.tracer.StartTransaction("run-analysis")
	defer s.tracer.EndTransaction(txn)
	s.tracer.AddAttribute(txn, "trigger", trigger)

	opts, err := s.Options(req)
	if err != nil {
		return nil, err
	}

	datasets, err := s.datasets.LatestByKind(ctx)
	if err != nil {
		return nil, err
	}
	if !hasPicks(datasets) {
		return nil, ErrNoPicks
	}

	inputHash := InputHash(datasets)
	paramsHash := ParamsHash(opts)
	cacheKey := cache.GetReportCacheKey(inputHash, paramsHash)

	if summary, ok := s.cachedSummary(ctx, cacheKey); ok {
		s.metrics.IncrementCounter(metrics.ReportCacheHits)
		s.publish(ctx, messaging.EventAnalysisCompleted, models.AnalysisCompletedEvent{
			RunID:      summary.RunID,
			InputHash:  summary.InputHash,
			Deliveries: summary.Totals.Deliveries,
			OverPick:   summary.Totals.OverPick,
			Cached:     true,
		})
		return summary, nil
	}
	s.metrics.IncrementCounter(metrics.ReportCacheMiss)

	start := time.Now()
	run := &models.AnalysisRun{
		ID:         uuid.New(),
		InputHash:  inputHash,
		Trigger:    trigger,
		DatasetIDs: mustJSON(datasetIDs(datasets)),
		Params:     mustJSON(opts.Params.Sanitized()),
	}

	inputs, err := LoadInputs(ctx, datasets)
	if err != nil {
		s.metrics.IncrementCounter(metrics.AnalysesFailed)
		s.tracer.RecordError(txn, err)
		if saveErr := s.runs.SaveFailed(ctx, run, err); saveErr != nil {
			log.Error().Err(saveErr).Str("run_id", run.ID.String()).Msg("Failed to record failed run")
		}
		return nil, errors.Wrap(err, "failed to load datasets")
	}

	report := analysis.Run(inputs, opts)
	s.metrics.Since(metrics.AnalysisDuration, start)

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal report")
	}
	run.Report = reportJSON
	run.Totals = mustJSON(report.Totals)
	run.Deliveries = report.Totals.Deliveries
	run.OverPick = report.Totals.OverPick

	if err := s.runs.SaveCompleted(ctx, run, deliveryResults(report.Deliveries)); err != nil {
		s.metrics.IncrementCounter(metrics.AnalysesFailed)
		s.tracer.RecordError(txn, err)
		return nil, err
	}

	s.metrics.IncrementCounter(metrics.AnalysesRun)
	s.metrics.IncrementCounterBy(metrics.DeliveriesScored, int64(len(report.Deliveries)))
	s.metrics.SetGauge(metrics.LastRunDelivery, int64(report.Totals.Deliveries))
	s.metrics.SetGauge(metrics.LastRunOverPick, int64(report.Totals.OverPick))

	if s.index != nil {
		if err := s.index.IndexDeliveries(ctx, run.ID, report.Deliveries); err != nil {
			log.Warn().Err(err).Str("run_id", run.ID.String()).Msg("Failed to index deliveries")
		} else {
			s.metrics.IncrementCounterBy(metrics.SearchIndexed, int64(len(report.Deliveries)))
		}
	}

	summary := &RunSummary{
		RunID:      run.ID,
		InputHash:  inputHash,
		ParamsHash: paramsHash,
		Trigger:    trigger,
		Params:     report.Params,
		Stats:      report.Stats,
		Totals:     report.Totals,
		CreatedAt:  run.CreatedAt,
	}
	s.remember(ctx, cacheKey, summary)
	s.remember(ctx, cache.GetRunCacheKey(run.ID), report)

	s.publish(ctx, messaging.EventAnalysisCompleted, models.AnalysisCompletedEvent{
		RunID:      run.ID,
		InputHash:  inputHash,
		Deliveries: report.Totals.Deliveries,
		OverPick:   report.Totals.OverPick,
	})

	log.Info().
		Str("run_id", run.ID.String()).
		Str("trigger", trigger).
		Int("lines", report.Stats.Lines).
		Int("deliveries", report.Totals.Deliveries).
		Int("over_pick", report.Totals.OverPick).
		Dur("took", time.Since(start)).
		Msg("Analysis completed")

	return summary, nil
}

// RefreshLatest runs a default analysis when the latest dataset set has no
// completed run yet. It reports whether a run was started.
func (s *AnalysisService) RefreshLatest(ctx context.Context) (bool, error) {
	datasets, err := s.datasets.LatestByKind(ctx)
	if err != nil {
		return false, err
	}
	if !hasPicks(datasets) {
		return false, nil
	}

	_, err = s.runs.LatestCompletedByInputHash(ctx, InputHash(datasets))
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repositories.ErrRunNotFound) {
		return false, err
	}

	if _, err := s.Run(ctx, nil, TriggerSchedule); err != nil {
		return false, err
	}
	return true, nil
}

// HandleEvent reacts to bus events. Uploads are debounced by content hash
// so a redelivered message does not run twice.
func (s *AnalysisService) HandleEvent(ctx context.Context, evt messaging.Event) error {
	s.metrics.IncrementCounter(metrics.EventsReceived)

	switch evt.Type {
	case messaging.EventDatasetUploaded:
		var uploaded models.DatasetUploadedEvent
		if err := evt.Decode(&uploaded); err != nil {
			return err
		}
		key := cache.GetUploadCacheKey(uploaded.ContentHash)
		var seen bool
		if s.cache != nil && s.cache.Get(ctx, key, &seen) == nil && seen {
			log.Debug().Str("content_hash", uploaded.ContentHash).Msg("Upload already processed")
			return nil
		}
		if _, err := s.Run(ctx, nil, TriggerEvent); err != nil {
			if errors.Is(err, ErrNoPicks) {
				return nil
			}
			return err
		}
		s.remember(ctx, key, true)
		return nil

	case messaging.EventAnalysisRequested:
		var req models.AnalysisRequest
		if err := evt.Decode(&req); err != nil {
			return err
		}
		_, err := s.Run(ctx, &req, TriggerEvent)
		if errors.Is(err, ErrInvalidRequest) || errors.Is(err, ErrNoPicks) {
			log.Warn().Err(err).Str("message_id", evt.ID).Msg("Dropping analysis request")
			return nil
		}
		return err

	default:
		log.Debug().Str("event", evt.Type).Msg("Ignoring event")
		return nil
	}
}

// Report returns the full report of a completed run
func (s *AnalysisService) Report(ctx context.Context, id uuid.UUID) (*analysis.Report, error) {
	key := cache.GetRunCacheKey(id)
	var cached analysis.Report
	if s.cache != nil && s.cache.Get(ctx, key, &cached) == nil {
		return &cached, nil
	}

	run, err := s.runs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.Status == models.RunStatusFailed {
		if run.Error != nil {
			return nil, errors.Wrap(ErrRunFailed, *run.Error)
		}
		return nil, ErrRunFailed
	}

	var report analysis.Report
	if err := json.Unmarshal(run.Report, &report); err != nil {
		return nil, errors.Wrap(err, "failed to decode stored report")
	}
	s.remember(ctx, key, report)
	return &report, nil
}

// GetRun returns the stored run record
func (s *AnalysisService) GetRun(ctx context.Context, id uuid.UUID) (*models.AnalysisRun, error) {
	return s.runs.GetByID(ctx, id)
}

// Deliveries lists the delivery results of a run with at least minOverPick
// missed units
func (s *AnalysisService) Deliveries(ctx context.Context, id uuid.UUID, minOverPick int) ([]models.DeliveryResult, error) {
	if _, err := s.runs.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.runs.ListResults(ctx, id, minOverPick)
}

// Audit returns the move breakdown of the run's lines matching the filters
func (s *AnalysisService) Audit(ctx context.Context, id uuid.UUID, deliveryID, transferOrder string) ([]analysis.AuditEntry, error) {
	report, err := s.Report(ctx, id)
	if err != nil {
		return nil, err
	}
	return report.Audit(deliveryID, transferOrder), nil
}

// Search queries indexed delivery records
func (s *AnalysisService) Search(ctx context.Context, q search.DeliveryQuery) ([]search.DeliveryDocument, error) {
	if s.index == nil {
		return nil, ErrSearchDisabled
	}
	return s.index.SearchDeliveries(ctx, q)
}

// LoadInputs parses every dataset concurrently and merges them into one
// input snapshot
func LoadInputs(ctx context.Context, datasets []models.Dataset) (analysis.Inputs, error) {
	tables := make([]*ingest.Table, len(datasets))
	g, gctx := errgroup.WithContext(ctx)
	for i := range datasets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			kind, err := ingest.ParseKind(datasets[i].Kind)
			if err != nil {
				return err
			}
			t, err := ingest.Read(kind, bytes.NewReader(datasets[i].Content))
			if err != nil {
				return errors.Wrapf(err, "dataset %s", datasets[i].ID)
			}
			tables[i] = t
			return nil
		})
	}

	var in analysis.Inputs
	if err := g.Wait(); err != nil {
		return in, err
	}
	for _, t := range tables {
		t.AppendTo(&in)
	}
	return in, nil
}

func (s *AnalysisService) cachedSummary(ctx context.Context, key string) (*RunSummary, bool) {
	if s.cache == nil || !s.cache.Enabled() {
		return nil, false
	}
	var summary RunSummary
	if err := s.cache.Get(ctx, key, &summary); err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		}
		return nil, false
	}
	summary.Cached = true
	return &summary, true
}

func (s *AnalysisService) remember(ctx context.Context, key string, value interface{}) {
	if s.cache == nil || !s.cache.Enabled() {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
}

func (s *AnalysisService) publish(ctx context.Context, eventType string, body interface{}) {
	if err := s.publisher.Publish(ctx, eventType, body); err != nil {
		log.Warn().Err(err).Str("event", eventType).Msg("Failed to publish event")
		return
	}
	s.metrics.IncrementCounter(metrics.EventsPublished)
}

func hasPicks(datasets []models.Dataset) bool {
	for _, d := range datasets {
		if d.Kind == string(ingest.KindPicks) {
			return true
		}
	}
	return false
}

func datasetIDs(datasets []models.Dataset) map[string]uuid.UUID {
	ids := make(map[string]uuid.UUID, len(datasets))
	for _, d := range datasets {
		ids[d.Kind] = d.ID
	}
	return ids
}

func deliveryResults(records []billing.DeliveryRecord) []models.DeliveryResult {
	results := make([]models.DeliveryResult, len(records))
	for i, r := range records {
		results[i] = models.DeliveryResult{
			DeliveryID:     r.DeliveryID,
			Category:       r.Category.Label,
			BillingMode:    r.BillingMode,
			DominantQueue:  r.DominantQueue,
			PickingTasks:   r.PickingTasks,
			TotalMoves:     r.TotalMoves,
			ExactMoves:     r.ExactMoves,
			EstimatedMoves: r.EstimatedMoves,
			BillableUnits:  r.BillableUnits,
			OverPick:       r.OverPick,
		}
	}
	return results
}

func mustJSON(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("null")
	}
	return data
}
