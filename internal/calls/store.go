package calls

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("calls: not found")
	ErrInvalidArgument = errors.New("calls: invalid argument")
)

// CallUpdate is a partial update applied to a stored Call. Nil fields are
// left untouched; a vendor response that omits a field must never clear a
// value that was already stored.
type CallUpdate struct {
	Status          *CallStatus
	ProviderCallID  *string
	DurationSeconds *int
	Transcript      *string
	RecordingURL    *string
	StartedAt       *time.Time
	EndedAt         *time.Time
}

// DashboardMetrics is the per-organization aggregate shown on the dashboard
// and pushed out whenever a call changes.
type DashboardMetrics struct {
	OrganizationID string `json:"organization_id"`

	TotalCalls      int `json:"total_calls"`
	ActiveCalls     int `json:"active_calls"`
	CompletedCalls  int `json:"completed_calls"`
	FailedCalls     int `json:"failed_calls"`
	CancelledCalls  int `json:"cancelled_calls"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`
}

// ListFilter narrows ListCalls results. Zero values mean "no filter".
type ListFilter struct {
	CampaignID string
	Status     CallStatus
	Limit      int
}

// Store is the persistence contract for Call records.
//
// Tenancy invariant: every method takes the caller's organization id and
// implementations must scope reads and writes by it. The org id comes from
// the authenticated request context, never from a request payload.
//
// Terminal latch: UpdateCall is the single choke point for the one-way
// status latch. Both the webhook handler and the poller write through it;
// an update carrying a non-terminal status against a record whose stored
// status is already terminal keeps the stored status (the rest of the
// partial update still applies). This makes the webhook/poller race safe
// regardless of write ordering.
type Store interface {
	CreateCall(ctx context.Context, c Call) (Call, error)
	GetCall(ctx context.Context, orgID, callID string) (Call, error)
	GetCallByProviderID(ctx context.Context, orgID, providerCallID string) (Call, error)
	UpdateCall(ctx context.Context, orgID, callID string, upd CallUpdate) (Call, error)
	ListCalls(ctx context.Context, orgID string, f ListFilter) ([]Call, error)
	DashboardMetrics(ctx context.Context, orgID string) (DashboardMetrics, error)
}
