package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	APIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "devlink_api_requests_total", Help: "API requests"},
		[]string{"endpoint", "status"},
	)
	CampaignsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "devlink_campaigns_started_total", Help: "Campaigns moved to sending"},
	)
	CampaignsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "devlink_campaigns_finished_total", Help: "Campaign terminal states"},
		[]string{"status"},
	)
	EmailSend = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "devlink_email_send_total", Help: "Per-recipient send outcomes"},
		[]string{"result", "transport"},
	)
	EmailSendLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "devlink_email_send_latency_seconds", Help: "Delivery channel send latency"},
	)
	ContentGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "devlink_content_generated_total", Help: "Content generation results by source"},
		[]string{"source"},
	)
	TokenRefresh = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "devlink_token_refresh_total", Help: "OAuth2 token refresh outcomes"},
		[]string{"result"},
	)
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		APIRequests,
		CampaignsStarted,
		CampaignsFinished,
		EmailSend,
		EmailSendLatency,
		ContentGenerated,
		TokenRefresh,
	)
}
