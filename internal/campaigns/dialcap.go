package campaigns

import (
	"context"
	"log/slog"

	"voicecampaign-platform/internal/calls"
	"voicecampaign-platform/internal/poller"
)

// DialCapSink decorates an EventSink and releases the organization's
// concurrent-dial slot when a campaign call reaches a terminal state.
// Calls without a campaign pass through untouched; their dialing never took
// a slot.
type DialCapSink struct {
	next poller.EventSink
	caps CapLimiter
	log  *slog.Logger
}

func NewDialCapSink(next poller.EventSink, caps CapLimiter, log *slog.Logger) *DialCapSink {
	if next == nil {
		next = poller.NopSink{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &DialCapSink{next: next, caps: caps, log: log}
}

func (s *DialCapSink) CallUpdated(ctx context.Context, orgID string, call calls.Call) {
	if call.CampaignID != "" && call.Status.IsTerminal() {
		if err := s.caps.Release(ctx, DialCapKey(orgID)); err != nil {
			// TTL expiry reclaims the slot eventually.
			s.log.Warn("dial cap release failed", "organization_id", orgID, "err", err)
		}
	}
	s.next.CallUpdated(ctx, orgID, call)
}

func (s *DialCapSink) MetricsUpdated(ctx context.Context, orgID string, m calls.DashboardMetrics) {
	s.next.MetricsUpdated(ctx, orgID, m)
}
