package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
//
// IMPORTANT:
// - Audit is internal-only. Do not expose these records to tenant users by default.
// - Callers should treat audit logging as best-effort.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.OrganizationID == "" {
		return ErrInvalidEvent
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// LogTenantMismatch records a rejected cross-tenant access attempt. These
// records are security-relevant; keep them even when the rejection was a
// client bug.
func (s *Service) LogTenantMismatch(ctx context.Context, orgID, actorUserID, ip, attemptedOrgID, path string) error {
	return s.Append(ctx, Event{
		OrganizationID:          orgID,
		Type:                    EventTypeTenantMismatch,
		ActorUserID:             actorUserID,
		IPAddress:               ip,
		AttemptedOrganizationID: attemptedOrgID,
		Message:                 "request carried a foreign tenant id",
		Metadata:                `{"path":"` + path + `"}`,
	})
}

// LogCampaignDial records a batch-dial action against a campaign.
func (s *Service) LogCampaignDial(ctx context.Context, orgID, actorUserID, campaignID string, dialed int) error {
	return s.Append(ctx, Event{
		OrganizationID: orgID,
		Type:           EventTypeCampaignDial,
		ActorUserID:    actorUserID,
		CampaignID:     campaignID,
		Message:        "campaign batch dial started",
		Metadata:       fmt.Sprintf(`{"dialed":%d}`, dialed),
	})
}
