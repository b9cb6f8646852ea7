package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequests counts handled requests by method, route template and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aedi_http_requests_total",
		Help: "Total HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	// HTTPDuration tracks request latency by route template.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aedi_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
	}, []string{"method", "route"})

	// Engagement counts committed engagement mutations by action.
	Engagement = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aedi_engagement_total",
		Help: "Committed engagement mutations by action",
	}, []string{"action"})

	// Signups counts created accounts by provider ("local", "github", "google").
	Signups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aedi_signups_total",
		Help: "Accounts created by provider",
	}, []string{"provider"})
)

// Engagement actions.
const (
	ActionFollow        = "follow"
	ActionUnfollow      = "unfollow"
	ActionLike          = "like"
	ActionUnlike        = "unlike"
	ActionLikeEdit      = "like_edit"
	ActionUnlikeEdit    = "unlike_edit"
	ActionLikeNext      = "like_next"
	ActionUnlikeNext    = "unlike_next"
	ActionEdit          = "edit"
	ActionNext          = "next"
	ActionPost          = "post"
	ActionDeletePost    = "delete_post"
	ActionDeleteAdapt   = "delete_adaptation"
	ActionDeleteAccount = "delete_account"
)

// Record bumps the engagement counter for action.
func Record(action string) {
	Engagement.WithLabelValues(action).Inc()
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
