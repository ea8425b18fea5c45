package reporting

import (
	"context"
	"errors"
	"time"

	"voicecampaign-platform/internal/calls"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts data access for reporting.
//
// IMPORTANT:
// - Implementations must enforce organization filtering.
// - Reporting reads only; it never mutates call records.

type Repository interface {
	ListCalls(ctx context.Context, orgID string, from, to time.Time, campaignID string) ([]calls.Call, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func (s *Service) CallsSummary(ctx context.Context, req CallsSummaryRequest) (CallsSummary, error) {
	if req.OrganizationID == "" {
		return CallsSummary{}, ErrInvalidRequest
	}
	if req.Range.From.IsZero() || req.Range.To.IsZero() || !req.Range.To.After(req.Range.From) {
		return CallsSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return CallsSummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListCalls(ctx, req.OrganizationID, req.Range.From, req.Range.To, req.CampaignID)
	if err != nil {
		return CallsSummary{}, err
	}

	out := CallsSummary{OrganizationID: req.OrganizationID, CampaignID: req.CampaignID}
	for _, c := range rows {
		out.TotalCalls++
		if c.DurationSeconds != nil {
			out.TotalDurationSeconds += *c.DurationSeconds
		}
		if c.RecordingURL != "" {
			out.RecordedCalls++
		}
		if c.Transcript != "" {
			out.TranscribedCalls++
		}
		switch c.Status {
		case calls.CallStatusCompleted:
			out.CompletedCalls++
		case calls.CallStatusFailed:
			out.FailedCalls++
		case calls.CallStatusCancelled:
			out.CancelledCalls++
		case calls.CallStatusInProgress:
			out.InProgressCalls++
		case calls.CallStatusQueued, calls.CallStatusInitiated, calls.CallStatusRinging:
			// not counted separately
		}
	}
	if out.TotalCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / out.TotalCalls
	}
	return out, nil
}

func (s *Service) CampaignMetrics(ctx context.Context, req CampaignMetricsRequest) (CampaignMetrics, error) {
	if req.OrganizationID == "" || req.CampaignID == "" {
		return CampaignMetrics{}, ErrInvalidRequest
	}
	if req.Range.From.IsZero() || req.Range.To.IsZero() || !req.Range.To.After(req.Range.From) {
		return CampaignMetrics{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return CampaignMetrics{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListCalls(ctx, req.OrganizationID, req.Range.From, req.Range.To, req.CampaignID)
	if err != nil {
		return CampaignMetrics{}, err
	}

	out := CampaignMetrics{OrganizationID: req.OrganizationID, CampaignID: req.CampaignID}
	out.CallsAttempted = len(rows)
	for _, c := range rows {
		if c.Status == calls.CallStatusCompleted {
			out.CallsConnected++
		}
	}
	if out.CallsAttempted > 0 {
		out.ConnectionRate = float64(out.CallsConnected) / float64(out.CallsAttempted)
	}
	return out, nil
}
