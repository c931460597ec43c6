// Package observe provides the decoder's OpenTelemetry metrics
// instruments: per-frame and per-utterance latency histograms, active-set
// size gauges, and search/model-reload counters. A package-level default
// instance is available via [DefaultMetrics] for callers that don't want to
// thread a [metric.MeterProvider] through construction; tests should use
// [NewMetrics] with their own provider to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/cmusphinx/pocketsphinx-sub004"

// Metrics holds every metric instrument the decoder records against.
type Metrics struct {
	// FrameDuration tracks one frame's front-end+AM+search latency.
	FrameDuration metric.Float64Histogram

	// UtteranceDuration tracks one utterance's total StartUtt..EndUtt latency.
	UtteranceDuration metric.Float64Histogram

	// ActiveSenones tracks the per-frame active-senone-set size.
	ActiveSenones metric.Int64Histogram

	// ActiveHMMs tracks the per-frame active-HMM count that the decoder's
	// search mode reports through a Counts method. None of the current
	// modes (ngram, fsg, keyword, allphone, align) has one, so nothing is
	// recorded; phone-loop prefilter phones are never counted.
	ActiveHMMs metric.Int64Histogram

	// Utterances counts completed utterances by outcome ("hyp", "no_hyp").
	Utterances metric.Int64Counter

	// SearchErrors counts decoder-reported search errors by [ErrorKind].
	SearchErrors metric.Int64Counter

	// ModelReloads counts successful model hot-reloads by kind ("lm", "am").
	ModelReloads metric.Int64Counter
}

var latencyBuckets = []float64{
	0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1,
}

// NewMetrics creates a fully initialised [Metrics] using mp. Returns an
// error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.FrameDuration, err = m.Float64Histogram("pocketsphinx.frame.duration",
		metric.WithDescription("Latency of one frame through front-end, acoustic model and search."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.UtteranceDuration, err = m.Float64Histogram("pocketsphinx.utterance.duration",
		metric.WithDescription("Latency of one utterance from start_utt to end_utt."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if met.ActiveSenones, err = m.Int64Histogram("pocketsphinx.active_senones",
		metric.WithDescription("Per-frame active-senone-set size."),
	); err != nil {
		return nil, err
	}
	if met.ActiveHMMs, err = m.Int64Histogram("pocketsphinx.active_hmms",
		metric.WithDescription("Per-frame active-HMM count reported by the search mode."),
	); err != nil {
		return nil, err
	}
	if met.Utterances, err = m.Int64Counter("pocketsphinx.utterances",
		metric.WithDescription("Completed utterances by outcome."),
	); err != nil {
		return nil, err
	}
	if met.SearchErrors, err = m.Int64Counter("pocketsphinx.search_errors",
		metric.WithDescription("Search errors reported by the decoder, by error kind."),
	); err != nil {
		return nil, err
	}
	if met.ModelReloads, err = m.Int64Counter("pocketsphinx.model_reloads",
		metric.WithDescription("Successful model hot-reloads by model kind."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call from [otel.GetMeterProvider]. Panics if instrument creation
// fails, which should not happen against the global no-op provider.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordUtterance records a completed utterance's outcome.
func (m *Metrics) RecordUtterance(ctx context.Context, outcome string) {
	m.Utterances.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordSearchError records a decoder-reported search error.
func (m *Metrics) RecordSearchError(ctx context.Context, kind string) {
	m.SearchErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordModelReload records a successful hot-reload.
func (m *Metrics) RecordModelReload(ctx context.Context, kind string) {
	m.ModelReloads.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}
