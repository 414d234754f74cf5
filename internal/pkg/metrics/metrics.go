package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics pipeline collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	CycleRuns       *prometheus.CounterVec
	CycleDuration   prometheus.Histogram
	UsersProcessed  prometheus.Counter
	TweetsGenerated prometheus.Counter
	UserErrors      prometheus.Counter
	PublishOutcomes *prometheus.CounterVec
	UpstreamCalls   *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them on reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CycleRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "postpilot",
			Name:      "generation_cycles_total",
			Help:      "Content generation cycles by outcome",
		}, []string{"outcome"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "postpilot",
			Name:      "generation_cycle_duration_seconds",
			Help:      "Duration of completed content generation cycles",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		UsersProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "postpilot",
			Name:      "generation_users_processed_total",
			Help:      "Eligible users processed by generation cycles",
		}),
		TweetsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "postpilot",
			Name:      "generation_tweets_total",
			Help:      "Scheduled posts created by generation cycles",
		}),
		UserErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "postpilot",
			Name:      "generation_user_errors_total",
			Help:      "Per-user failures recorded by generation cycles",
		}),
		PublishOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "postpilot",
			Name:      "publish_outcomes_total",
			Help:      "Publish attempts by outcome",
		}, []string{"outcome"}),
		UpstreamCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "postpilot",
			Name:      "upstream_calls_total",
			Help:      "Calls to external gateways by gateway and result",
		}, []string{"gateway", "result"}),
	}

	reg.MustRegister(
		m.CycleRuns,
		m.CycleDuration,
		m.UsersProcessed,
		m.TweetsGenerated,
		m.UserErrors,
		m.PublishOutcomes,
		m.UpstreamCalls,
	)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// ObserveCycle records a finished cycle. outcome is "completed", "conflict" or "failed".
func (m *Metrics) ObserveCycle(outcome string, duration time.Duration, users, tweets, errs int) {
	if m == nil {
		return
	}
	m.CycleRuns.WithLabelValues(outcome).Inc()
	if outcome != "completed" {
		return
	}
	m.CycleDuration.Observe(duration.Seconds())
	m.UsersProcessed.Add(float64(users))
	m.TweetsGenerated.Add(float64(tweets))
	m.UserErrors.Add(float64(errs))
}

func (m *Metrics) IncPublish(outcome string) {
	if m == nil {
		return
	}
	m.PublishOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncUpstream(gateway string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.UpstreamCalls.WithLabelValues(gateway, result).Inc()
}

// Handler serves the registry the collectors were registered on
func (m *Metrics) Handler() gin.HandlerFunc {
	var h = promhttp.Handler()
	if m != nil && m.gatherer != nil {
		h = promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
	}
	return gin.WrapH(h)
}
