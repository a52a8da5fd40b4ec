package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/issuesync/issuesync/internal/tracker"
	"github.com/issuesync/issuesync/internal/types"
)

const (
	sourceScopeName = "github.com/issuesync/issuesync/source"
	storeScopeName  = "github.com/issuesync/issuesync/store"
)

// instruments holds the span and metric handles shared by both wrappers.
type instruments struct {
	tracer  trace.Tracer
	ops     metric.Int64Counter
	dur     metric.Float64Histogram
	errs    metric.Int64Counter
	records metric.Int64Counter
}

func newInstruments(tracer trace.Tracer, m metric.Meter, prefix string) instruments {
	ops, _ := m.Int64Counter("issuesync."+prefix+".operations",
		metric.WithDescription("Total remote calls executed"),
	)
	dur, _ := m.Float64Histogram("issuesync."+prefix+".operation.duration",
		metric.WithDescription("Remote call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs, _ := m.Int64Counter("issuesync."+prefix+".errors",
		metric.WithDescription("Total remote call errors"),
	)
	records, _ := m.Int64Counter("issuesync."+prefix+".records",
		metric.WithDescription("Records read or written"),
	)
	return instruments{tracer: tracer, ops: ops, dur: dur, errs: errs, records: records}
}

// op starts a span and counts the named operation.
func (in instruments) op(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time) {
	all := append([]attribute.KeyValue{attribute.String("issuesync.operation", name)}, attrs...)
	ctx, span := in.tracer.Start(ctx, name,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	in.ops.Add(ctx, 1, metric.WithAttributes(all...))
	return ctx, span, time.Now()
}

// done ends the span, records duration, record count and optional error.
func (in instruments) done(ctx context.Context, span trace.Span, start time.Time, n int, err error, attrs ...attribute.KeyValue) {
	ms := float64(time.Since(start).Milliseconds())
	in.dur.Record(ctx, ms, metric.WithAttributes(attrs...))
	if n > 0 {
		in.records.Add(ctx, int64(n), metric.WithAttributes(attrs...))
	}
	span.SetAttributes(attribute.Int("issuesync.records", n))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		in.errs.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	span.End()
}

// InstrumentedSource wraps a tracker.IssueSource with OTel tracing and
// metrics.
type InstrumentedSource struct {
	inner tracker.IssueSource
	in    instruments
}

// WrapSource returns s decorated with OTel instrumentation.
// When telemetry is disabled, s is returned as-is with zero overhead.
func WrapSource(s tracker.IssueSource) tracker.IssueSource {
	if !Enabled() {
		return s
	}
	return newInstrumentedSource(s, Tracer(sourceScopeName), Meter(sourceScopeName))
}

func newInstrumentedSource(s tracker.IssueSource, tracer trace.Tracer, m metric.Meter) *InstrumentedSource {
	return &InstrumentedSource{inner: s, in: newInstruments(tracer, m, "source")}
}

func (s *InstrumentedSource) Repository() string { return s.inner.Repository() }

func (s *InstrumentedSource) FetchIssues(ctx context.Context, state types.StateFilter) ([]types.Issue, error) {
	attrs := []attribute.KeyValue{
		attribute.String("issuesync.repo", s.inner.Repository()),
		attribute.String("issuesync.state", string(state)),
	}
	ctx, span, t := s.in.op(ctx, "source.FetchIssues", attrs...)
	v, err := s.inner.FetchIssues(ctx, state)
	s.in.done(ctx, span, t, len(v), err, attrs...)
	return v, err
}

// InstrumentedStore wraps a tracker.RowStore with OTel tracing and metrics.
// Every write chunk gets its own span, so per-chunk failures are visible.
type InstrumentedStore struct {
	inner tracker.RowStore
	in    instruments
}

// WrapStore returns s decorated with OTel instrumentation.
// When telemetry is disabled, s is returned as-is with zero overhead.
func WrapStore(s tracker.RowStore) tracker.RowStore {
	if !Enabled() {
		return s
	}
	return newInstrumentedStore(s, Tracer(storeScopeName), Meter(storeScopeName))
}

func newInstrumentedStore(s tracker.RowStore, tracer trace.Tracer, m metric.Meter) *InstrumentedStore {
	return &InstrumentedStore{inner: s, in: newInstruments(tracer, m, "store")}
}

func (s *InstrumentedStore) TableName() string { return s.inner.TableName() }

func (s *InstrumentedStore) ListRecords(ctx context.Context) ([]types.Row, error) {
	attrs := []attribute.KeyValue{attribute.String("issuesync.table", s.inner.TableName())}
	ctx, span, t := s.in.op(ctx, "store.ListRecords", attrs...)
	v, err := s.inner.ListRecords(ctx)
	s.in.done(ctx, span, t, len(v), err, attrs...)
	return v, err
}

func (s *InstrumentedStore) CreateRecords(ctx context.Context, fields []types.Fields) ([]types.Row, error) {
	attrs := []attribute.KeyValue{
		attribute.String("issuesync.table", s.inner.TableName()),
		attribute.Int("issuesync.batch.size", len(fields)),
	}
	ctx, span, t := s.in.op(ctx, "store.CreateRecords", attrs...)
	v, err := s.inner.CreateRecords(ctx, fields)
	s.in.done(ctx, span, t, len(v), err, attrs...)
	return v, err
}

func (s *InstrumentedStore) UpdateRecords(ctx context.Context, rows []types.Row) ([]types.Row, error) {
	attrs := []attribute.KeyValue{
		attribute.String("issuesync.table", s.inner.TableName()),
		attribute.Int("issuesync.batch.size", len(rows)),
	}
	ctx, span, t := s.in.op(ctx, "store.UpdateRecords", attrs...)
	v, err := s.inner.UpdateRecords(ctx, rows)
	s.in.done(ctx, span, t, len(v), err, attrs...)
	return v, err
}
