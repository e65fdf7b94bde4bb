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

	// Counters
	EventsTotal    *prometheus.CounterVec
	CommandsTotal  *prometheus.CounterVec
	IdleKicks      prometheus.Counter
	LogRotations   prometheus.Counter
	VideoLookups   *prometheus.CounterVec
	ActionUpdates  prometheus.Counter
	ActionsDeleted prometheus.Counter

	// Histograms (seconds)
	CommandDuration prometheus.Observer

	// Gauges
	TrackedGauge   prometheus.Gauge
	ConnectedGauge prometheus.Gauge // 1=connected,0=not
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{Name: "idlebot_events_total", Help: "Inbound chat events by kind"}, []string{"kind"})
		CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{Name: "idlebot_commands_total", Help: "Dispatched commands by name"}, []string{"command"})
		IdleKicks = promauto.NewCounter(prometheus.CounterOpts{Name: "idlebot_idle_kicks_total", Help: "Participants kicked for inactivity"})
		LogRotations = promauto.NewCounter(prometheus.CounterOpts{Name: "idlebot_log_rotations_total", Help: "Daily room log rotations"})
		VideoLookups = promauto.NewCounterVec(prometheus.CounterOpts{Name: "idlebot_video_lookups_total", Help: "Video metadata lookups by provider and result"}, []string{"provider", "result"})
		ActionUpdates = promauto.NewCounter(prometheus.CounterOpts{Name: "idlebot_action_updates_total", Help: "Action templates added or replaced"})
		ActionsDeleted = promauto.NewCounter(prometheus.CounterOpts{Name: "idlebot_actions_deleted_total", Help: "Action templates deleted"})
		CommandDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "idlebot_command_duration_seconds", Help: "Command handler duration seconds", Buckets: prometheus.DefBuckets})
		TrackedGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "idlebot_tracked_participants", Help: "Participants with a running idle timer"})
		ConnectedGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "idlebot_connected", Help: "Chat connection up=1 down=0"})
	})
}

// CountEvent records one inbound event of kind.
func CountEvent(kind string) {
	if EventsTotal != nil {
		EventsTotal.WithLabelValues(kind).Inc()
	}
}

// CountCommand records one dispatched command.
func CountCommand(name string) {
	if CommandsTotal != nil {
		CommandsTotal.WithLabelValues(name).Inc()
	}
}

// CountIdleKick records one inactivity kick.
func CountIdleKick() {
	if IdleKicks != nil {
		IdleKicks.Inc()
	}
}

// CountRotation records one log rotation.
func CountRotation() {
	if LogRotations != nil {
		LogRotations.Inc()
	}
}

// CountVideoLookup records a video lookup outcome ("ok" or "error").
func CountVideoLookup(provider, result string) {
	if VideoLookups != nil {
		VideoLookups.WithLabelValues(provider, result).Inc()
	}
}

// CountActionUpdate records an action added or replaced.
func CountActionUpdate() {
	if ActionUpdates != nil {
		ActionUpdates.Inc()
	}
}

// CountActionDelete records an action removed.
func CountActionDelete() {
	if ActionsDeleted != nil {
		ActionsDeleted.Inc()
	}
}

// SetTracked records the number of running idle timers.
func SetTracked(n int) {
	if TrackedGauge != nil {
		TrackedGauge.Set(float64(n))
	}
}

// SetConnected sets the connection gauge to 1 if up else 0.
func SetConnected(up bool) {
	if ConnectedGauge == nil {
		return
	}
	if up {
		ConnectedGauge.Set(1)
	} else {
		ConnectedGauge.Set(0)
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

// WithCorrelation returns a new context carrying correlation id.
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
