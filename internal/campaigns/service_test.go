package campaigns

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"voicecampaign-platform/internal/audit"
	"voicecampaign-platform/internal/calls"
)

// fakeLimiter hands out up to capacity slots, tracking acquire/release
// traffic per key.
type fakeLimiter struct {
	capacity int
	held     map[string]int
	releases int
}

func newFakeLimiter(capacity int) *fakeLimiter {
	return &fakeLimiter{capacity: capacity, held: map[string]int{}}
}

func (l *fakeLimiter) Acquire(ctx context.Context, key string, limit int, ttl time.Duration) (bool, error) {
	if l.held[key] >= l.capacity {
		return false, nil
	}
	l.held[key]++
	return true, nil
}

func (l *fakeLimiter) Release(ctx context.Context, key string) error {
	l.releases++
	if l.held[key] > 0 {
		l.held[key]--
	}
	return nil
}

type fakeDialer struct {
	calls   int
	failOn  map[string]bool // phone numbers that fail to dial
}

func (d *fakeDialer) StartCall(ctx context.Context, agentID, fromNumber, toNumber string) (string, error) {
	d.calls++
	if d.failOn[toNumber] {
		return "", errors.New("vendor refused")
	}
	return fmt.Sprintf("exec-%d", d.calls), nil
}

type fakePollStarter struct {
	started []string
}

func (p *fakePollStarter) Start(providerCallID, callID, orgID string) error {
	p.started = append(p.started, providerCallID)
	return nil
}

type campaignFixture struct {
	svc     *Service
	repo    *MemoryRepo
	store   *calls.MemoryStore
	dialer  *fakeDialer
	polls   *fakePollStarter
	limiter *fakeLimiter
	audits  *audit.MemoryRepo
}

func newFixture(t *testing.T, capacity int) *campaignFixture {
	t.Helper()
	f := &campaignFixture{
		repo:    NewMemoryRepo(),
		store:   calls.NewMemoryStore(),
		dialer:  &fakeDialer{failOn: map[string]bool{}},
		polls:   &fakePollStarter{},
		limiter: newFakeLimiter(capacity),
		audits:  audit.NewMemoryRepo(),
	}
	f.svc = NewService(f.repo, f.store, f.dialer, f.polls, f.limiter,
		audit.NewService(f.audits), Config{MaxConcurrentCalls: capacity}, nil)
	return f
}

func (f *campaignFixture) createCampaignWithLeads(t *testing.T, orgID string, phones ...string) Campaign {
	t.Helper()
	ctx := context.Background()
	campaign, err := f.svc.CreateCampaign(ctx, orgID, CreateCampaignRequest{Name: "q3 outreach", AgentID: "agent-1", FromNumber: "+15550001111"})
	if err != nil {
		t.Fatalf("CreateCampaign: %v", err)
	}
	if len(phones) > 0 {
		var req AddLeadsRequest
		for _, p := range phones {
			req.Leads = append(req.Leads, struct {
				Name        string `json:"name,omitempty"`
				PhoneNumber string `json:"phone_number"`
			}{PhoneNumber: p})
		}
		if _, err := f.svc.AddLeads(ctx, orgID, campaign.CampaignID, req); err != nil {
			t.Fatalf("AddLeads: %v", err)
		}
	}
	return campaign
}

func TestService_CreateCampaignValidation(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	if _, err := f.svc.CreateCampaign(ctx, "", CreateCampaignRequest{Name: "n", AgentID: "a"}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("missing org: got %v", err)
	}
	if _, err := f.svc.CreateCampaign(ctx, "org-a", CreateCampaignRequest{AgentID: "a"}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("missing name: got %v", err)
	}
	if _, err := f.svc.CreateCampaign(ctx, "org-a", CreateCampaignRequest{Name: "n"}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("missing agent: got %v", err)
	}
}

func TestService_AddLeadsValidation(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	campaign := f.createCampaignWithLeads(t, "org-a")

	var req AddLeadsRequest
	req.Leads = append(req.Leads, struct {
		Name        string `json:"name,omitempty"`
		PhoneNumber string `json:"phone_number"`
	}{Name: "no phone"})
	if _, err := f.svc.AddLeads(ctx, "org-a", campaign.CampaignID, req); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("lead without phone: got %v", err)
	}
	if _, err := f.svc.AddLeads(ctx, "org-a", campaign.CampaignID, AddLeadsRequest{}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("empty batch: got %v", err)
	}
}

func TestService_StartDialsPendingLeads(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	campaign := f.createCampaignWithLeads(t, "org-a", "+15551000001", "+15551000002")

	out, err := f.svc.Start(ctx, "org-a", campaign.CampaignID, "user-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if out.Dialed != 2 || out.Failed != 0 || out.Pending != 0 {
		t.Fatalf("unexpected result: %+v", out)
	}
	if len(f.polls.started) != 2 {
		t.Fatalf("poll sessions started = %d, want 2", len(f.polls.started))
	}

	// Each dialed lead has a Call in initiated state and is marked dialed.
	rows, err := f.store.ListCalls(ctx, "org-a", calls.ListFilter{CampaignID: campaign.CampaignID})
	if err != nil {
		t.Fatalf("ListCalls: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("calls created = %d, want 2", len(rows))
	}
	for _, c := range rows {
		if c.Status != calls.CallStatusInitiated || c.ProviderCallID == "" || c.LeadID == "" {
			t.Fatalf("bad call record: %+v", c)
		}
	}
	pending, _ := f.repo.PendingLeads(ctx, "org-a", campaign.CampaignID)
	if len(pending) != 0 {
		t.Fatalf("%d leads still pending", len(pending))
	}

	got, _ := f.repo.GetCampaign(ctx, "org-a", campaign.CampaignID)
	if got.Status != CampaignStatusActive {
		t.Fatalf("campaign status = %q, want active", got.Status)
	}

	events := f.audits.Events()
	if len(events) != 1 || events[0].Type != audit.EventTypeCampaignDial {
		t.Fatalf("audit trail wrong: %+v", events)
	}
}

func TestService_StartRespectsDialCap(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	campaign := f.createCampaignWithLeads(t, "org-a", "+15551000001", "+15551000002", "+15551000003", "+15551000004")

	out, err := f.svc.Start(ctx, "org-a", campaign.CampaignID, "user-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if out.Dialed != 2 || out.Pending != 2 {
		t.Fatalf("cap not enforced: %+v", out)
	}

	// A second pass with no freed slots dials nothing.
	out, err = f.svc.Start(ctx, "org-a", campaign.CampaignID, "user-1")
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if out.Dialed != 0 || out.Pending != 2 {
		t.Fatalf("exhausted cap should leave leads pending: %+v", out)
	}

	// Freeing slots lets the batch resume.
	_ = f.limiter.Release(ctx, DialCapKey("org-a"))
	_ = f.limiter.Release(ctx, DialCapKey("org-a"))
	out, err = f.svc.Start(ctx, "org-a", campaign.CampaignID, "user-1")
	if err != nil {
		t.Fatalf("third Start: %v", err)
	}
	if out.Dialed != 2 || out.Pending != 0 {
		t.Fatalf("batch did not resume: %+v", out)
	}
}

func TestService_FailedDialReleasesSlot(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	f.dialer.failOn["+15559999999"] = true
	campaign := f.createCampaignWithLeads(t, "org-a", "+15559999999", "+15551000001")

	out, err := f.svc.Start(ctx, "org-a", campaign.CampaignID, "user-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if out.Dialed != 1 || out.Failed != 1 {
		t.Fatalf("unexpected result: %+v", out)
	}
	// One slot released for the failed dial, one still held by the live call.
	if f.limiter.releases != 1 || f.limiter.held[DialCapKey("org-a")] != 1 {
		t.Fatalf("slot accounting wrong: releases=%d held=%d", f.limiter.releases, f.limiter.held[DialCapKey("org-a")])
	}

	// The failed lead is marked failed, not retried silently.
	pending, _ := f.repo.PendingLeads(ctx, "org-a", campaign.CampaignID)
	if len(pending) != 0 {
		t.Fatalf("failed lead still pending")
	}
}

func TestService_StartUnknownCampaign(t *testing.T) {
	f := newFixture(t, 5)
	if _, err := f.svc.Start(context.Background(), "org-a", "camp-ghost", "user-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown campaign: got %v", err)
	}
}

func TestDialCapSink_ReleasesOnTerminalCampaignCall(t *testing.T) {
	limiter := newFakeLimiter(5)
	sink := NewDialCapSink(nil, limiter, nil)
	ctx := context.Background()

	// Non-campaign call: no slot was taken, none released.
	sink.CallUpdated(ctx, "org-a", calls.Call{CallID: "c1", Status: calls.CallStatusCompleted})
	if limiter.releases != 0 {
		t.Fatalf("ad-hoc call released a slot")
	}

	// Campaign call still in flight: slot stays held.
	sink.CallUpdated(ctx, "org-a", calls.Call{CallID: "c2", CampaignID: "camp-1", Status: calls.CallStatusInProgress})
	if limiter.releases != 0 {
		t.Fatalf("non-terminal update released a slot")
	}

	// Terminal campaign call frees its slot.
	sink.CallUpdated(ctx, "org-a", calls.Call{CallID: "c2", CampaignID: "camp-1", Status: calls.CallStatusFailed})
	if limiter.releases != 1 {
		t.Fatalf("terminal campaign call did not release a slot: %d", limiter.releases)
	}
}
