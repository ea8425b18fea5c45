package campaigns

import "time"

// Campaign is a tenant-scoped batch of leads dialed by one voice agent.

type Campaign struct {
	CampaignID     string `json:"campaign_id" db:"campaign_id"`
	OrganizationID string `json:"organization_id" db:"organization_id"`

	Name       string `json:"name" db:"name"`
	AgentID    string `json:"agent_id" db:"agent_id"`
	FromNumber string `json:"from_number,omitempty" db:"from_number"`

	Status CampaignStatus `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusCompleted CampaignStatus = "completed"
)

// Lead is one callable contact inside a campaign.

type Lead struct {
	LeadID         string `json:"lead_id" db:"lead_id"`
	CampaignID     string `json:"campaign_id" db:"campaign_id"`
	OrganizationID string `json:"organization_id" db:"organization_id"`

	Name        string `json:"name,omitempty" db:"name"`
	PhoneNumber string `json:"phone_number" db:"phone_number"`

	Status LeadStatus `json:"status" db:"status"`
	// CallID links the lead to the Call created when it was dialed.
	CallID string `json:"call_id,omitempty" db:"call_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type LeadStatus string

const (
	LeadStatusPending LeadStatus = "pending"
	LeadStatusDialed  LeadStatus = "dialed"
	LeadStatusFailed  LeadStatus = "failed"
)
