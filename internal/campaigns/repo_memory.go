package campaigns

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory campaign/lead repository for tests and early
// development. It enforces organization isolation on all reads and writes.

type MemoryRepo struct {
	mu        sync.Mutex
	campaigns map[string]Campaign // key: org_id|campaign_id
	leads     map[string][]Lead   // key: org_id|campaign_id
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		campaigns: map[string]Campaign{},
		leads:     map[string][]Lead{},
	}
}

func repoKey(orgID, campaignID string) string { return orgID + "|" + campaignID }

func (r *MemoryRepo) CreateCampaign(ctx context.Context, c Campaign) error {
	if c.OrganizationID == "" || c.CampaignID == "" {
		return ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.campaigns[repoKey(c.OrganizationID, c.CampaignID)] = c
	return nil
}

func (r *MemoryRepo) GetCampaign(ctx context.Context, orgID, campaignID string) (Campaign, error) {
	if orgID == "" || campaignID == "" {
		return Campaign{}, ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[repoKey(orgID, campaignID)]
	if !ok {
		return Campaign{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) UpdateCampaignStatus(ctx context.Context, orgID, campaignID string, status CampaignStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := repoKey(orgID, campaignID)
	c, ok := r.campaigns[k]
	if !ok {
		return ErrNotFound
	}
	c.Status = status
	r.campaigns[k] = c
	return nil
}

func (r *MemoryRepo) AddLeads(ctx context.Context, orgID, campaignID string, leads []Lead) error {
	if orgID == "" || campaignID == "" {
		return ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.campaigns[repoKey(orgID, campaignID)]; !ok {
		return ErrNotFound
	}
	k := repoKey(orgID, campaignID)
	r.leads[k] = append(r.leads[k], leads...)
	return nil
}

func (r *MemoryRepo) PendingLeads(ctx context.Context, orgID, campaignID string) ([]Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Lead, 0)
	for _, l := range r.leads[repoKey(orgID, campaignID)] {
		if l.Status == LeadStatusPending {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *MemoryRepo) UpdateLead(ctx context.Context, orgID, campaignID, leadID string, status LeadStatus, callID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := repoKey(orgID, campaignID)
	for i, l := range r.leads[k] {
		if l.LeadID == leadID {
			l.Status = status
			if callID != "" {
				l.CallID = callID
			}
			r.leads[k][i] = l
			return nil
		}
	}
	return ErrNotFound
}
