package calls

import "time"

// Call represents one voice-agent interaction, inbound or outbound.
//
// Multi-tenant invariant: OrganizationID is required on every row and is
// immutable after creation.
//
// ProviderCallID is the vendor's identifier for the call (the join key
// between vendor webhooks/poll responses and this record). It is empty
// until the vendor assigns it and immutable afterwards.
type Call struct {
	CallID         string `json:"call_id" db:"call_id"`
	OrganizationID string `json:"organization_id" db:"organization_id"`
	CampaignID     string `json:"campaign_id,omitempty" db:"campaign_id"`
	LeadID         string `json:"lead_id,omitempty" db:"lead_id"`

	ProviderCallID string `json:"provider_call_id,omitempty" db:"provider_call_id"`

	From string `json:"from" db:"from_number"`
	To   string `json:"to" db:"to_number"`

	Status CallStatus `json:"status" db:"status"`

	// DurationSeconds is nil until the vendor reports a duration.
	DurationSeconds *int `json:"duration,omitempty" db:"duration"`

	// Transcript is replaced wholesale when the vendor reports one;
	// there is no partial merge.
	Transcript   string `json:"transcript,omitempty" db:"transcript"`
	RecordingURL string `json:"recording_url,omitempty" db:"recording_url"`

	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	StartedAt *time.Time `json:"started_at,omitempty" db:"started_at"`
	// EndedAt is set exactly once, on the transition into a terminal status.
	EndedAt   *time.Time `json:"ended_at,omitempty" db:"ended_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

type CallStatus string

const (
	CallStatusQueued     CallStatus = "queued"
	CallStatusInitiated  CallStatus = "initiated"
	CallStatusRinging    CallStatus = "ringing"
	CallStatusInProgress CallStatus = "in_progress"
	CallStatusCompleted  CallStatus = "completed"
	CallStatusFailed     CallStatus = "failed"
	CallStatusCancelled  CallStatus = "cancelled"
)

// IsTerminal reports whether no further status transition is expected.
// Once a stored Call reaches a terminal status, no writer (webhook or
// poller) may move it back to a non-terminal one.
func (s CallStatus) IsTerminal() bool {
	switch s {
	case CallStatusCompleted, CallStatusFailed, CallStatusCancelled:
		return true
	default:
		return false
	}
}
