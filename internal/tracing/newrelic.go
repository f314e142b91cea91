package tracing

import (
	"context"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/pickaudit/config"
)

const shutdownTimeout = 5 * time.Second

// Tracer wraps the New Relic agent. A tracer without a license key is
// disabled and every method is a no-op.
type Tracer interface {
	Enabled() bool
	Application() *newrelic.Application
	StartTransaction(name string) *newrelic.Transaction
	StartSegment(ctx context.Context, name string) *newrelic.Segment
	EndTransaction(txn *newrelic.Transaction)
	RecordError(txn *newrelic.Transaction, err error)
	AddAttribute(txn *newrelic.Transaction, key string, value interface{})
	Close()
}

// NewRelicTracer implements Tracer using New Relic
type NewRelicTracer struct {
	app     *newrelic.Application
	appName string
	enabled bool
}

// NewTracer creates a new tracer
func NewTracer(cfg config.TracingConfig) (Tracer, error) {
	if cfg.LicenseKey == "" {
		log.Warn().Msg("New Relic license key not provided, tracing will be disabled")
		return &NewRelicTracer{appName: cfg.AppName}, nil
	}

	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(cfg.AppName),
		newrelic.ConfigLicense(cfg.LicenseKey),
		newrelic.ConfigDistributedTracerEnabled(cfg.DistribTracing),
		newrelic.ConfigAppLogForwardingEnabled(cfg.LogEnabled),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize New Relic")
	}

	return &NewRelicTracer{app: app, appName: cfg.AppName, enabled: true}, nil
}

// Enabled reports whether transactions are sent to New Relic
func (t *NewRelicTracer) Enabled() bool {
	return t.enabled && t.app != nil
}

// Application returns the agent application for middleware such as nrgin,
// nil when disabled
func (t *NewRelicTracer) Application() *newrelic.Application {
	if !t.Enabled() {
		return nil
	}
	return t.app
}

// StartTransaction starts a background transaction
func (t *NewRelicTracer) StartTransaction(name string) *newrelic.Transaction {
	if !t.Enabled() {
		return nil
	}
	return t.app.StartTransaction(name)
}

// StartSegment starts a segment on the transaction carried by ctx. The
// returned segment is safe to End when there is none.
func (t *NewRelicTracer) StartSegment(ctx context.Context, name string) *newrelic.Segment {
	txn := newrelic.FromContext(ctx)
	if !t.Enabled() || txn == nil {
		return &newrelic.Segment{}
	}
	return txn.StartSegment(name)
}

// EndTransaction ends a transaction
func (t *NewRelicTracer) EndTransaction(txn *newrelic.Transaction) {
	if !t.Enabled() || txn == nil {
		return
	}
	txn.End()
}

// RecordError records an error in a transaction
func (t *NewRelicTracer) RecordError(txn *newrelic.Transaction, err error) {
	if !t.Enabled() || txn == nil || err == nil {
		return
	}
	txn.NoticeError(err)
}

// AddAttribute adds an attribute to a transaction
func (t *NewRelicTracer) AddAttribute(txn *newrelic.Transaction, key string, value interface{}) {
	if !t.Enabled() || txn == nil {
		return
	}
	txn.AddAttribute(key, value)
}

// Close flushes pending data
func (t *NewRelicTracer) Close() {
	if !t.Enabled() {
		return
	}
	t.app.Shutdown(shutdownTimeout)
	log.Info().Str("app", t.appName).Msg("New Relic tracer shutdown")
}
