package constants

// Static route constants
const (
	WebhookRoute      = "/webhook"
	WebhookStatsRoute = "/stats"
	MetricsRoute      = "/metrics"
	// Swagger UI is served below DocsBasePath + DocsPath
	DocsBasePath = "/docs/api/"
	DocsPath     = "v1"
)
