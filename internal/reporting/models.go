package reporting

import "time"

// Common filtering inputs.

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// CallsSummaryRequest requests aggregated call metrics.
// Tenant isolation: OrganizationID is required and always comes from the
// authenticated context, never a request payload.

type CallsSummaryRequest struct {
	OrganizationID string    `json:"organization_id"`
	Range          TimeRange `json:"range"`
	CampaignID     string    `json:"campaign_id,omitempty"`
}

type CallsSummary struct {
	OrganizationID string `json:"organization_id"`
	CampaignID     string `json:"campaign_id,omitempty"`

	TotalCalls      int `json:"total_calls"`
	CompletedCalls  int `json:"completed_calls"`
	FailedCalls     int `json:"failed_calls"`
	CancelledCalls  int `json:"cancelled_calls"`
	InProgressCalls int `json:"in_progress_calls"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`

	RecordedCalls    int `json:"recorded_calls"`
	TranscribedCalls int `json:"transcribed_calls"`
}

// CampaignMetricsRequest captures per-campaign connect metrics.

type CampaignMetricsRequest struct {
	OrganizationID string    `json:"organization_id"`
	Range          TimeRange `json:"range"`
	CampaignID     string    `json:"campaign_id"`
}

type CampaignMetrics struct {
	OrganizationID string `json:"organization_id"`
	CampaignID     string `json:"campaign_id"`

	CallsAttempted int `json:"calls_attempted"`
	CallsConnected int `json:"calls_connected"`

	ConnectionRate float64 `json:"connection_rate"`
}
