package tracing

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/backstage/services/pickaudit/config"
)

func TestDisabledTracer(t *testing.T) {
	tracer, err := NewTracer(config.TracingConfig{AppName: "pickaudit"})
	require.NoError(t, err)

	assert.False(t, tracer.Enabled())
	assert.Nil(t, tracer.Application())

	txn := tracer.StartTransaction("analysis")
	assert.Nil(t, txn)
	assert.NotPanics(t, func() {
		tracer.StartSegment(context.Background(), "ingest").End()
		tracer.AddAttribute(txn, "deliveries", 3)
		tracer.RecordError(txn, errors.New("boom"))
		tracer.EndTransaction(txn)
		tracer.Close()
	})
}
