package campaigns

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"voicecampaign-platform/internal/audit"
	"voicecampaign-platform/internal/calls"
	"voicecampaign-platform/pkg/utils"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrNotFound        = errors.New("campaigns: not found")
	ErrInvalidArgument = errors.New("campaigns: invalid argument")
)

// Repository is the persistence contract for campaigns and leads.
// All methods are organization-scoped.
type Repository interface {
	CreateCampaign(ctx context.Context, c Campaign) error
	GetCampaign(ctx context.Context, orgID, campaignID string) (Campaign, error)
	UpdateCampaignStatus(ctx context.Context, orgID, campaignID string, status CampaignStatus) error
	AddLeads(ctx context.Context, orgID, campaignID string, leads []Lead) error
	PendingLeads(ctx context.Context, orgID, campaignID string) ([]Lead, error)
	UpdateLead(ctx context.Context, orgID, campaignID, leadID string, status LeadStatus, callID string) error
}

// Dialer places one agent call and returns the provider call id.
// The Bolna client satisfies this.
type Dialer interface {
	StartCall(ctx context.Context, agentID, fromNumber, toNumber string) (string, error)
}

// PollStarter begins status reconciliation for a freshly dialed call.
type PollStarter interface {
	Start(providerCallID, callID, orgID string) error
}

// CapLimiter grants and returns per-organization concurrent-dial slots.
// The production implementation is RedisCapLimiter; tests substitute fakes.
type CapLimiter interface {
	Acquire(ctx context.Context, key string, limit int, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// RedisCapLimiter backs CapLimiter with the atomic Lua scripts in pkg/utils.
type RedisCapLimiter struct {
	rdb *redis.Client
}

func NewRedisCapLimiter(rdb *redis.Client) *RedisCapLimiter { return &RedisCapLimiter{rdb: rdb} }

func (l *RedisCapLimiter) Acquire(ctx context.Context, key string, limit int, ttl time.Duration) (bool, error) {
	return utils.AcquireDialCap(ctx, l.rdb, key, limit, ttl)
}

func (l *RedisCapLimiter) Release(ctx context.Context, key string) error {
	return utils.ReleaseDialCap(ctx, l.rdb, key)
}

// Config bounds batch dialing.
type Config struct {
	// MaxConcurrentCalls caps simultaneous in-flight calls per organization.
	MaxConcurrentCalls int
	// DialCapTTL expires a concurrency slot if nothing releases it (crash
	// safety). Should comfortably exceed the longest expected call.
	DialCapTTL time.Duration
}

func (c Config) withDefaults() Config {
	out := c
	if out.MaxConcurrentCalls <= 0 {
		out.MaxConcurrentCalls = 5
	}
	if out.DialCapTTL <= 0 {
		out.DialCapTTL = 20 * time.Minute
	}
	return out
}

// Service orchestrates campaign batch dialing: for each pending lead it
// takes a per-organization concurrency slot, asks the vendor to place the
// call, records the Call, and starts the status poller for it.
type Service struct {
	repo   Repository
	store  calls.Store
	dialer Dialer
	polls  PollStarter
	caps   CapLimiter
	audit  *audit.Service
	cfg    Config
	log    *slog.Logger
	clock  func() time.Time
}

func NewService(repo Repository, store calls.Store, dialer Dialer, polls PollStarter, caps CapLimiter, auditSvc *audit.Service, cfg Config, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:   repo,
		store:  store,
		dialer: dialer,
		polls:  polls,
		caps:   caps,
		audit:  auditSvc,
		cfg:    cfg.withDefaults(),
		log:    log,
		clock:  time.Now,
	}
}

type CreateCampaignRequest struct {
	Name       string `json:"name"`
	AgentID    string `json:"agent_id"`
	FromNumber string `json:"from_number,omitempty"`
}

func (s *Service) CreateCampaign(ctx context.Context, orgID string, req CreateCampaignRequest) (Campaign, error) {
	if orgID == "" || req.Name == "" || req.AgentID == "" {
		return Campaign{}, ErrInvalidArgument
	}
	now := s.clock().UTC()
	c := Campaign{
		CampaignID:     uuid.NewString(),
		OrganizationID: orgID,
		Name:           req.Name,
		AgentID:        req.AgentID,
		FromNumber:     req.FromNumber,
		Status:         CampaignStatusDraft,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.CreateCampaign(ctx, c); err != nil {
		return Campaign{}, err
	}
	return c, nil
}

type AddLeadsRequest struct {
	Leads []struct {
		Name        string `json:"name,omitempty"`
		PhoneNumber string `json:"phone_number"`
	} `json:"leads"`
}

func (s *Service) AddLeads(ctx context.Context, orgID, campaignID string, req AddLeadsRequest) (int, error) {
	if orgID == "" || campaignID == "" || len(req.Leads) == 0 {
		return 0, ErrInvalidArgument
	}
	now := s.clock().UTC()
	leads := make([]Lead, 0, len(req.Leads))
	for _, l := range req.Leads {
		if l.PhoneNumber == "" {
			return 0, ErrInvalidArgument
		}
		leads = append(leads, Lead{
			LeadID:         uuid.NewString(),
			CampaignID:     campaignID,
			OrganizationID: orgID,
			Name:           l.Name,
			PhoneNumber:    l.PhoneNumber,
			Status:         LeadStatusPending,
			CreatedAt:      now,
		})
	}
	if err := s.repo.AddLeads(ctx, orgID, campaignID, leads); err != nil {
		return 0, err
	}
	return len(leads), nil
}

// StartResult reports one batch-dial pass.
type StartResult struct {
	Dialed  int `json:"dialed"`
	Failed  int `json:"failed"`
	Pending int `json:"pending"`
}

// Start dials as many pending leads as the organization's concurrency cap
// allows. Leads left over stay pending; calling Start again resumes the
// batch. Slots are released as calls reach a terminal state (see
// DialCapSink) and expire on their own if the process dies holding them.
func (s *Service) Start(ctx context.Context, orgID, campaignID, actorUserID string) (StartResult, error) {
	if orgID == "" || campaignID == "" {
		return StartResult{}, ErrInvalidArgument
	}
	campaign, err := s.repo.GetCampaign(ctx, orgID, campaignID)
	if err != nil {
		return StartResult{}, err
	}
	pending, err := s.repo.PendingLeads(ctx, orgID, campaignID)
	if err != nil {
		return StartResult{}, err
	}

	var out StartResult
	for _, lead := range pending {
		ok, err := s.caps.Acquire(ctx, DialCapKey(orgID), s.cfg.MaxConcurrentCalls, s.cfg.DialCapTTL)
		if err != nil {
			s.log.Error("dial cap check failed", "organization_id", orgID, "err", err)
			break
		}
		if !ok {
			// Cap reached; the rest of the batch stays pending.
			break
		}

		if err := s.dialLead(ctx, campaign, lead); err != nil {
			_ = s.caps.Release(ctx, DialCapKey(orgID))
			s.log.Warn("lead dial failed", "lead_id", lead.LeadID, "err", err)
			_ = s.repo.UpdateLead(ctx, orgID, campaignID, lead.LeadID, LeadStatusFailed, "")
			out.Failed++
			continue
		}
		out.Dialed++
	}
	out.Pending = len(pending) - out.Dialed - out.Failed

	if out.Dialed > 0 {
		_ = s.repo.UpdateCampaignStatus(ctx, orgID, campaignID, CampaignStatusActive)
		if s.audit != nil {
			_ = s.audit.LogCampaignDial(ctx, orgID, actorUserID, campaignID, out.Dialed)
		}
	}
	return out, nil
}

func (s *Service) dialLead(ctx context.Context, campaign Campaign, lead Lead) error {
	providerCallID, err := s.dialer.StartCall(ctx, campaign.AgentID, campaign.FromNumber, lead.PhoneNumber)
	if err != nil {
		return err
	}

	call := calls.Call{
		CallID:         uuid.NewString(),
		OrganizationID: campaign.OrganizationID,
		CampaignID:     campaign.CampaignID,
		LeadID:         lead.LeadID,
		ProviderCallID: providerCallID,
		From:           campaign.FromNumber,
		To:             lead.PhoneNumber,
		Status:         calls.CallStatusInitiated,
	}
	created, err := s.store.CreateCall(ctx, call)
	if err != nil {
		return err
	}

	if err := s.repo.UpdateLead(ctx, campaign.OrganizationID, campaign.CampaignID, lead.LeadID, LeadStatusDialed, created.CallID); err != nil {
		s.log.Warn("lead status update failed", "lead_id", lead.LeadID, "err", err)
	}
	return s.polls.Start(providerCallID, created.CallID, campaign.OrganizationID)
}

// DialCapKey is the redis key holding an organization's concurrent-dial counter.
func DialCapKey(orgID string) string { return "dialcap:" + orgID }
