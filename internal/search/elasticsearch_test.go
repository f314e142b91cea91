package search

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/backstage/services/pickaudit/internal/billing"
)

func TestNewDeliveryDocument(t *testing.T) {
	runID := uuid.MustParse("7b0e4a52-52a4-4b4e-9f0e-2b8d0c1f6a11")
	at := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	rec := billing.DeliveryRecord{
		DeliveryID:    "D1",
		Category:      billing.Category{Label: "N Misch", Source: "queue"},
		BillingMode:   "root",
		PickingTasks:  3,
		TotalMoves:    12,
		BillableUnits: 1,
		OverPick:      2,
	}

	doc := NewDeliveryDocument(runID, rec, at)
	assert.Equal(t, "N Misch", doc.Category)
	assert.Equal(t, "queue", doc.CategorySource)
	assert.Equal(t, 2, doc.OverPick)
	assert.Equal(t, runID.String()+":D1", doc.DocumentID())
}

func TestBulkBody(t *testing.T) {
	docs := []DeliveryDocument{
		{RunID: "r1", DeliveryID: "D1", OverPick: 1},
		{RunID: "r1", DeliveryID: "D2"},
	}

	body, err := BulkBody("pickaudit-deliveries", docs)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(body), "\n"), "\n")
	require.Len(t, lines, 4)

	var meta map[string]map[string]string
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &meta))
	assert.Equal(t, "pickaudit-deliveries", meta["index"]["_index"])
	assert.Equal(t, "r1:D1", meta["index"]["_id"])

	var doc DeliveryDocument
	require.NoError(t, json.Unmarshal([]byte(lines[3]), &doc))
	assert.Equal(t, "D2", doc.DeliveryID)
}

func TestBuildDeliveryQuery(t *testing.T) {
	q := BuildDeliveryQuery(DeliveryQuery{})
	assert.Equal(t, defaultSearchSize, q["size"])
	assert.Contains(t, q["query"], "match_all")

	q = BuildDeliveryQuery(DeliveryQuery{RunID: "r1", Category: "E Misch", MinOverPick: 2, Size: 10})
	assert.Equal(t, 10, q["size"])

	raw, err := json.Marshal(q["query"])
	require.NoError(t, err)
	assert.JSONEq(t, `{"bool":{"filter":[
		{"term":{"run_id":"r1"}},
		{"match_phrase":{"category":"E Misch"}},
		{"range":{"over_pick":{"gte":2}}}
	]}}`, string(raw))
}

func TestDecodeHits(t *testing.T) {
	body := `{"hits":{"hits":[{"_source":{"delivery_id":"D1","over_pick":3}},{"_source":{"delivery_id":"D2"}}]}}`
	docs, err := decodeHits(bytes.NewBufferString(body))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "D1", docs[0].DeliveryID)
	assert.Equal(t, 3, docs[0].OverPick)
}
