// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Chat counters
	MessagesPersisted     prometheus.Counter
	MessagesBroadcast     prometheus.Counter
	MessagesDropped       prometheus.Counter // invalid inbound events (empty content etc.)
	MessagesPersistFailed prometheus.Counter
	RetentionDeleted      prometheus.Counter
	MirrorMessages        prometheus.Counter

	// Provider polling
	ProviderPolls        *prometheus.CounterVec // labels: platform
	ProviderPollFailures *prometheus.CounterVec // labels: platform
	LiveCacheHits        prometheus.Counter
	LiveCacheMisses      prometheus.Counter

	// Histograms (seconds)
	PollCycleDuration prometheus.Observer

	// Gauges
	ConnectedClients prometheus.Gauge
	LiveStreamsGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		MessagesPersisted = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_messages_persisted_total", Help: "Chat messages successfully persisted"})
		MessagesBroadcast = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_messages_broadcast_total", Help: "Chat messages broadcast to connected clients"})
		MessagesDropped = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_messages_dropped_total", Help: "Inbound chat events dropped by validation"})
		MessagesPersistFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_messages_persist_failed_total", Help: "Chat messages that failed to persist"})
		RetentionDeleted = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_retention_deleted_total", Help: "Messages removed by the retention sweep"})
		MirrorMessages = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_mirror_messages_total", Help: "External chat lines relayed by the Twitch mirror"})
		ProviderPolls = promauto.NewCounterVec(prometheus.CounterOpts{Name: "live_provider_polls_total", Help: "Provider live-status polls dispatched"}, []string{"platform"})
		ProviderPollFailures = promauto.NewCounterVec(prometheus.CounterOpts{Name: "live_provider_poll_failures_total", Help: "Provider live-status polls that errored"}, []string{"platform"})
		LiveCacheHits = promauto.NewCounter(prometheus.CounterOpts{Name: "live_cache_hits_total", Help: "Live status requests served from cache"})
		LiveCacheMisses = promauto.NewCounter(prometheus.CounterOpts{Name: "live_cache_misses_total", Help: "Live status requests that triggered a provider fan-out"})
		PollCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "live_poll_cycle_duration_seconds", Help: "Full provider fan-out duration seconds", Buckets: prometheus.DefBuckets})
		ConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{Name: "chat_connected_clients", Help: "Current number of open chat connections"})
		LiveStreamsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "live_streams_current", Help: "Live streams found by the most recent poll cycle"})
	})
}

// IncProviderPoll records one poll attempt for a platform, and optionally its failure.
func IncProviderPoll(platform string, failed bool) {
	if ProviderPolls == nil {
		return
	}
	ProviderPolls.WithLabelValues(platform).Inc()
	if failed {
		ProviderPollFailures.WithLabelValues(platform).Inc()
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding correlation id (if absent) and the id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
