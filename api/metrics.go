package api

import (
	"github.com/hoshinonyaruko/stack-in-im/game"
	"github.com/hoshinonyaruko/stack-in-im/stack"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 记录游戏和 HTTP 指标
type Metrics struct {
	placements   *prometheus.CounterVec
	gamesStarted prometheus.Counter
	gamesOver    prometheus.Counter
	finalScores  prometheus.Histogram

	reqDuration *prometheus.HistogramVec
	reqErrors   *prometheus.CounterVec
}

// NewMetrics 创建指标并注册到 reg；sessions 用于在线会话数
func NewMetrics(reg prometheus.Registerer, sessions func() int) *Metrics {
	m := &Metrics{
		placements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stack",
			Name:      "placements_total",
			Help:      "Block placements by outcome.",
		}, []string{"outcome"}),
		gamesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stack",
			Name:      "games_started_total",
			Help:      "Sessions that left idle.",
		}),
		gamesOver: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stack",
			Name:      "games_over_total",
			Help:      "Sessions that reached the ended state.",
		}),
		finalScores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "stack",
			Name:      "final_score",
			Help:      "Final score of finished games.",
			Buckets:   []float64{1, 5, 10, 20, 30, 50, 75, 100, 150},
		}),
		reqDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stack",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"method", "path", "status"}),
		reqErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stack",
			Name:      "http_request_errors_total",
			Help:      "HTTP requests answered with 4xx/5xx.",
		}, []string{"method", "path", "status"}),
	}
	reg.MustRegister(m.placements, m.gamesStarted, m.gamesOver, m.finalScores, m.reqDuration, m.reqErrors)
	if sessions != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "stack",
			Name:      "sessions",
			Help:      "Live game sessions.",
		}, func() float64 { return float64(sessions()) }))
	}
	return m
}

// ObservePlacement counts one resolved action.
func (m *Metrics) ObservePlacement(p *stack.Placement) {
	if p == nil {
		return
	}
	m.placements.WithLabelValues(p.Outcome.String()).Inc()
}

// Listener 返回统计开局和结束的监听者
func (m *Metrics) Listener() game.Listener {
	return game.ListenerFuncs{
		Start: m.gamesStarted.Inc,
		GameOver: func(finalScore int) {
			m.gamesOver.Inc()
			m.finalScores.Observe(float64(finalScore))
		},
	}
}
