package poller

import (
	"context"

	"voicecampaign-platform/internal/calls"
)

// EventSink receives notifications produced by the reconciliation loop.
// Delivery is fire-and-forget: implementations must not block the tick and
// the poller does not depend on delivery confirmation.
type EventSink interface {
	CallUpdated(ctx context.Context, orgID string, call calls.Call)
	MetricsUpdated(ctx context.Context, orgID string, m calls.DashboardMetrics)
}

// NopSink discards all events. Useful when no realtime channel is wired.
type NopSink struct{}

func (NopSink) CallUpdated(context.Context, string, calls.Call)                {}
func (NopSink) MetricsUpdated(context.Context, string, calls.DashboardMetrics) {}
