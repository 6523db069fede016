// Package observe holds the OpenTelemetry instruments for the conversation
// pipeline and the Prometheus bridge used to scrape them.
//
// All Record helpers are safe to call on a nil *Metrics, so components can be
// constructed without metrics in tests.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "venture"

var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32,
}

// Metrics groups the pipeline instruments.
type Metrics struct {
	LLMDuration metric.Float64Histogram
	TTSDuration metric.Float64Histogram
	STTDuration metric.Float64Histogram

	// ProviderErrors counts failed remote calls, by "stage".
	ProviderErrors metric.Int64Counter

	// DroppedUtterances counts captured utterances flushed from the queue
	// without being processed.
	DroppedUtterances metric.Int64Counter

	// Interruptions counts hard stops of NPC playback.
	Interruptions metric.Int64Counter

	ActiveSessions metric.Int64UpDownCounter
}

// NewMetrics creates all instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	met := &Metrics{}
	var err error

	hist := func(name, desc string) (metric.Float64Histogram, error) {
		return m.Float64Histogram(name,
			metric.WithDescription(desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(latencyBuckets...),
		)
	}

	if met.LLMDuration, err = hist("venture.llm.duration", "Latency of NPC response inference."); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = hist("venture.tts.duration", "Latency of speech synthesis requests."); err != nil {
		return nil, err
	}
	if met.STTDuration, err = hist("venture.stt.duration", "Latency of speech recognition."); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("venture.provider.errors",
		metric.WithDescription("Failed remote provider calls."),
	); err != nil {
		return nil, err
	}
	if met.DroppedUtterances, err = m.Int64Counter("venture.speech.dropped_utterances",
		metric.WithDescription("Captured utterances discarded by the backlog flush."),
	); err != nil {
		return nil, err
	}
	if met.Interruptions, err = m.Int64Counter("venture.speech.interruptions",
		metric.WithDescription("NPC speech playbacks stopped early."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("venture.sessions.active",
		metric.WithDescription("Open NPC conversations."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// RecordStage observes the latency of one pipeline stage ("llm", "tts",
// "stt") and counts a provider error when err is non-nil.
func (m *Metrics) RecordStage(ctx context.Context, stage string, start time.Time, err error) {
	if m == nil {
		return
	}
	d := time.Since(start).Seconds()
	switch stage {
	case "llm":
		m.LLMDuration.Record(ctx, d)
	case "tts":
		m.TTSDuration.Record(ctx, d)
	case "stt":
		m.STTDuration.Record(ctx, d)
	}
	if err != nil {
		m.ProviderErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
	}
}

// RecordDropped counts n utterances dropped from the capture backlog.
func (m *Metrics) RecordDropped(ctx context.Context, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.DroppedUtterances.Add(ctx, int64(n))
}

// RecordInterruption counts one playback hard stop.
func (m *Metrics) RecordInterruption(ctx context.Context) {
	if m == nil {
		return
	}
	m.Interruptions.Add(ctx, 1)
}

// SessionOpened and SessionClosed track the number of open conversations,
// labelled by NPC role.
func (m *Metrics) SessionOpened(ctx context.Context, npc string) {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(ctx, 1, metric.WithAttributes(attribute.String("npc", npc)))
}

func (m *Metrics) SessionClosed(ctx context.Context, npc string) {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(ctx, -1, metric.WithAttributes(attribute.String("npc", npc)))
}
