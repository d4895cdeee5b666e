package telemetry

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	metricsOnce         sync.Once
	metricsInitErr      error
	redactionCounter    metric.Int64Counter
	llmCallCounter      metric.Int64Counter
	llmRetryCounter     metric.Int64Counter
	llmLatencyHistogram metric.Float64Histogram
)

// LLMCall captures the fields recorded for a single completion request.
type LLMCall struct {
	Model    string
	Purpose  string
	Outcome  string
	Duration time.Duration
	Attempts int
}

// Outcomes recorded for LLM calls.
const (
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomeFallback = "fallback"
)

// RecordRedactions adds the per-category redaction counts for one sanitized document.
func RecordRedactions(ctx context.Context, source string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	if err := ensureMetrics(); err != nil {
		return
	}

	for category, n := range counts {
		if n <= 0 {
			continue
		}
		redactionCounter.Add(ctx, int64(n), metric.WithAttributes(
			attribute.String("redaction.source", source),
			attribute.String("redaction.category", category),
		))
	}
}

// RecordLLMCall emits counters and latency for one completion request.
func RecordLLMCall(ctx context.Context, call LLMCall) {
	if err := ensureMetrics(); err != nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("llm.model", call.Model),
		attribute.String("llm.purpose", call.Purpose),
		attribute.String("llm.outcome", call.Outcome),
	}

	llmCallCounter.Add(ctx, 1, metric.WithAttributes(attrs...))

	if call.Duration > 0 {
		llmLatencyHistogram.Record(ctx, float64(call.Duration)/float64(time.Millisecond), metric.WithAttributes(attrs...))
	}

	if call.Attempts > 1 {
		llmRetryCounter.Add(ctx, int64(call.Attempts-1), metric.WithAttributes(attrs...))
	}
}

// RecordRedactionEvent attaches redaction counts to the span without any matched text.
func RecordRedactionEvent(span trace.Span, counts map[string]int) {
	if span == nil || !span.IsRecording() {
		return
	}

	categories := make([]string, 0, len(counts))
	total := 0
	for category, n := range counts {
		categories = append(categories, category)
		total += n
	}
	sort.Strings(categories)

	attrs := []attribute.KeyValue{
		attribute.Int("redaction.count", total),
		attribute.StringSlice("redaction.categories", categories),
	}
	span.AddEvent("sanitize.redacted", trace.WithAttributes(attrs...))
}

func ensureMetrics() error {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter(InstrumentationName)

		redactionCounter, metricsInitErr = meter.Int64Counter(
			"educator.redactions_total",
			metric.WithDescription("Redactions applied by the content sanitizer, by category"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		llmCallCounter, metricsInitErr = meter.Int64Counter(
			"educator.llm.calls_total",
			metric.WithDescription("LLM completion requests partitioned by outcome"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		llmRetryCounter, metricsInitErr = meter.Int64Counter(
			"educator.llm.retries_total",
			metric.WithDescription("Retry attempts performed for LLM requests"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		llmLatencyHistogram, metricsInitErr = meter.Float64Histogram(
			"educator.llm.duration_ms",
			metric.WithDescription("Observed LLM request latency"),
			metric.WithUnit("ms"),
		)
	})

	return metricsInitErr
}
