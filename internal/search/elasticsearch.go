package search

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/pickaudit/config"
	"example.com/backstage/services/pickaudit/internal/billing"
)

const defaultSearchSize = 100

// ElasticClient provides integration with Elasticsearch
type ElasticClient struct {
	client *elasticsearch.Client
	config config.ElasticConfig
}

// NewElasticClient creates a new Elasticsearch client
func NewElasticClient(cfg config.ElasticConfig) (*ElasticClient, error) {
	esConfig := elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	}

	client, err := elasticsearch.NewClient(esConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Elasticsearch client")
	}

	return &ElasticClient{
		client: client,
		config: cfg,
	}, nil
}

// DeliveryDocument is the indexed form of a delivery billing record
type DeliveryDocument struct {
	RunID          string    `json:"run_id"`
	DeliveryID     string    `json:"delivery_id"`
	Category       string    `json:"category"`
	CategorySource string    `json:"category_source"`
	BillingMode    string    `json:"billing_mode"`
	DominantQueue  string    `json:"dominant_queue"`
	PickingTasks   int       `json:"picking_tasks"`
	TotalMoves     int64     `json:"total_moves"`
	ExactMoves     int64     `json:"exact_moves"`
	EstimatedMoves int64     `json:"estimated_moves"`
	BillableUnits  int       `json:"billable_units"`
	OverPick       int       `json:"over_pick"`
	IndexedAt      time.Time `json:"indexed_at"`
}

// NewDeliveryDocument converts a billing record for indexing
func NewDeliveryDocument(runID uuid.UUID, r billing.DeliveryRecord, at time.Time) DeliveryDocument {
	return DeliveryDocument{
		RunID:          runID.String(),
		DeliveryID:     r.DeliveryID,
		Category:       r.Category.Label,
		CategorySource: r.Category.Source,
		BillingMode:    r.BillingMode,
		DominantQueue:  r.DominantQueue,
		PickingTasks:   r.PickingTasks,
		TotalMoves:     r.TotalMoves,
		ExactMoves:     r.ExactMoves,
		EstimatedMoves: r.EstimatedMoves,
		BillableUnits:  r.BillableUnits,
		OverPick:       r.OverPick,
		IndexedAt:      at,
	}
}

// DocumentID returns the id a document is stored under. Re-indexing a run
// overwrites its documents.
func (d DeliveryDocument) DocumentID() string {
	return d.RunID + ":" + d.DeliveryID
}

// DeliveryQuery filters indexed delivery documents
type DeliveryQuery struct {
	RunID       string
	Category    string
	MinOverPick int
	Size        int
}

func (c *ElasticClient) indexName() string {
	return config.FormatIndex(c.config, c.config.Index)
}

// IndexDeliveries bulk-indexes the billing records of a run
func (c *ElasticClient) IndexDeliveries(ctx context.Context, runID uuid.UUID, records []billing.DeliveryRecord) error {
	if len(records) == 0 {
		return nil
	}
	log.Info().Str("run_id", runID.String()).Int("deliveries", len(records)).Msg("indexing deliveries")

	now := time.Now().UTC()
	docs := make([]DeliveryDocument, len(records))
	for i, r := range records {
		docs[i] = NewDeliveryDocument(runID, r, now)
	}

	body, err := BulkBody(c.indexName(), docs)
	if err != nil {
		return err
	}

	req := esapi.BulkRequest{
		Body:    bytes.NewReader(body),
		Refresh: "true",
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch bulk request")
	}
	defer res.Body.Close()

	if res.IsError() {
		return responseError(res.Body, "Elasticsearch bulk error")
	}

	var result struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return errors.Wrap(err, "failed to parse Elasticsearch bulk response")
	}
	if result.Errors {
		return errors.New("Elasticsearch bulk request had item errors")
	}

	log.Info().Str("run_id", runID.String()).Msg("deliveries indexed successfully")
	return nil
}

// SearchDeliveries searches indexed delivery documents
func (c *ElasticClient) SearchDeliveries(ctx context.Context, q DeliveryQuery) ([]DeliveryDocument, error) {
	queryJSON, err := json.Marshal(BuildDeliveryQuery(q))
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal search query")
	}

	req := esapi.SearchRequest{
		Index: []string{c.indexName()},
		Body:  bytes.NewReader(queryJSON),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute Elasticsearch search request")
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, responseError(res.Body, "Elasticsearch search error")
	}

	return decodeHits(res.Body)
}

// BuildDeliveryQuery builds the search body for a delivery query
func BuildDeliveryQuery(q DeliveryQuery) map[string]interface{} {
	var filters []interface{}
	if q.RunID != "" {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{"run_id": q.RunID},
		})
	}
	if q.Category != "" {
		filters = append(filters, map[string]interface{}{
			"match_phrase": map[string]interface{}{"category": q.Category},
		})
	}
	if q.MinOverPick > 0 {
		filters = append(filters, map[string]interface{}{
			"range": map[string]interface{}{"over_pick": map[string]interface{}{"gte": q.MinOverPick}},
		})
	}

	size := q.Size
	if size <= 0 {
		size = defaultSearchSize
	}

	query := map[string]interface{}{"match_all": map[string]interface{}{}}
	if len(filters) > 0 {
		query = map[string]interface{}{
			"bool": map[string]interface{}{"filter": filters},
		}
	}

	return map[string]interface{}{
		"size":  size,
		"query": query,
		"sort": []interface{}{
			map[string]interface{}{"over_pick": map[string]interface{}{"order": "desc"}},
		},
	}
}

// BulkBody encodes documents as a bulk index request body
func BulkBody(index string, docs []DeliveryDocument) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, d := range docs {
		meta := map[string]interface{}{
			"index": map[string]interface{}{"_index": index, "_id": d.DocumentID()},
		}
		if err := enc.Encode(meta); err != nil {
			return nil, errors.Wrap(err, "failed to marshal bulk action")
		}
		if err := enc.Encode(d); err != nil {
			return nil, errors.Wrap(err, "failed to marshal delivery document")
		}
	}
	return buf.Bytes(), nil
}

func decodeHits(r io.Reader) ([]DeliveryDocument, error) {
	var result struct {
		Hits struct {
			Hits []struct {
				Source DeliveryDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(r).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "failed to parse Elasticsearch search response")
	}

	docs := make([]DeliveryDocument, 0, len(result.Hits.Hits))
	for _, h := range result.Hits.Hits {
		docs = append(docs, h.Source)
	}
	return docs, nil
}

func responseError(body io.Reader, msg string) error {
	var e map[string]interface{}
	if err := json.NewDecoder(body).Decode(&e); err != nil {
		return errors.Wrap(err, "failed to parse Elasticsearch error response")
	}
	return errors.Errorf("%s: %v", msg, e)
}
