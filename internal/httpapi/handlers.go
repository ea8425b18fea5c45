package httpapi

import (
	"errors"
	"net/http"
	"time"

	"voicecampaign-platform/internal/auth"
	"voicecampaign-platform/internal/calls"
	"voicecampaign-platform/internal/campaigns"
	"voicecampaign-platform/internal/poller"
	"voicecampaign-platform/internal/reporting"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth      *auth.Manager
	Store     calls.Store
	Poller    *poller.Poller
	Dialer    campaigns.Dialer
	Campaigns *campaigns.Service
	Reporting *reporting.Service

	// AgentID is the default voice agent used for ad-hoc dials.
	AgentID string
}

// --- Auth ---

type loginRequest struct {
	UserID         string `json:"user_id"`
	OrganizationID string `json:"organization_id"`
	Role           string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: Credential validation is delegated to the identity provider in
// front of this service; this endpoint only mints tokens for callers that
// already passed it.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.OrganizationID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, organization_id, role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.OrganizationID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Calls ---

type dialRequest struct {
	To      string `json:"to"`
	From    string `json:"from,omitempty"`
	AgentID string `json:"agent_id,omitempty"`
}

// DialCall places a single ad-hoc agent call and starts status polling.
func (h Handlers) DialCall(c *gin.Context) {
	orgID, err := auth.OrganizationID(c.Request.Context())
	if err != nil || orgID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "organization_id required"})
		return
	}
	var req dialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.To == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "to required"})
		return
	}
	agentID := req.AgentID
	if agentID == "" {
		agentID = h.AgentID
	}
	if agentID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "agent_id required"})
		return
	}

	ctx := c.Request.Context()
	providerCallID, err := h.Dialer.StartCall(ctx, agentID, req.From, req.To)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "vendor dial failed"})
		return
	}

	call, err := h.Store.CreateCall(ctx, calls.Call{
		CallID:         uuid.NewString(),
		OrganizationID: orgID,
		ProviderCallID: providerCallID,
		From:           req.From,
		To:             req.To,
		Status:         calls.CallStatusInitiated,
	})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call create failed"})
		return
	}

	if h.Poller != nil {
		_ = h.Poller.Start(providerCallID, call.CallID, orgID)
	}
	c.JSON(http.StatusCreated, call)
}

func (h Handlers) GetCall(c *gin.Context) {
	orgID, err := auth.OrganizationID(c.Request.Context())
	if err != nil || orgID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "organization_id required"})
		return
	}
	callID := c.Param("call_id")
	if callID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "call_id required"})
		return
	}
	call, err := h.Store.GetCall(c.Request.Context(), orgID, callID)
	if err != nil {
		if errors.Is(err, calls.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "call not found"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call lookup failed"})
		return
	}
	c.JSON(http.StatusOK, call)
}

func (h Handlers) ListCalls(c *gin.Context) {
	orgID, err := auth.OrganizationID(c.Request.Context())
	if err != nil || orgID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "organization_id required"})
		return
	}
	filter := calls.ListFilter{
		CampaignID: c.Query("campaign_id"),
		Status:     calls.CallStatus(c.Query("status")),
	}
	rows, err := h.Store.ListCalls(c.Request.Context(), orgID, filter)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": rows})
}

// --- Dashboard ---

func (h Handlers) DashboardMetrics(c *gin.Context) {
	orgID, err := auth.OrganizationID(c.Request.Context())
	if err != nil || orgID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "organization_id required"})
		return
	}
	m, err := h.Store.DashboardMetrics(c.Request.Context(), orgID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "metrics failed"})
		return
	}
	c.JSON(http.StatusOK, m)
}

// --- Campaigns ---

func (h Handlers) CreateCampaign(c *gin.Context) {
	orgID, err := auth.OrganizationID(c.Request.Context())
	if err != nil || orgID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "organization_id required"})
		return
	}
	var req campaigns.CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	campaign, err := h.Campaigns.CreateCampaign(c.Request.Context(), orgID, req)
	if err != nil {
		if errors.Is(err, campaigns.ErrInvalidArgument) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "name and agent_id required"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "campaign create failed"})
		return
	}
	c.JSON(http.StatusCreated, campaign)
}

func (h Handlers) AddLeads(c *gin.Context) {
	orgID, err := auth.OrganizationID(c.Request.Context())
	if err != nil || orgID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "organization_id required"})
		return
	}
	var req campaigns.AddLeadsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	n, err := h.Campaigns.AddLeads(c.Request.Context(), orgID, c.Param("campaign_id"), req)
	if err != nil {
		if errors.Is(err, campaigns.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
			return
		}
		if errors.Is(err, campaigns.ErrInvalidArgument) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "leads with phone_number required"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lead import failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"added": n})
}

func (h Handlers) StartCampaign(c *gin.Context) {
	ctx := c.Request.Context()
	orgID, err := auth.OrganizationID(ctx)
	if err != nil || orgID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "organization_id required"})
		return
	}
	userID, _ := auth.UserID(ctx)
	out, err := h.Campaigns.Start(ctx, orgID, c.Param("campaign_id"), userID)
	if err != nil {
		if errors.Is(err, campaigns.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "campaign start failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}

// --- Reporting ---

func (h Handlers) CallsSummary(c *gin.Context) {
	orgID, err := auth.OrganizationID(c.Request.Context())
	if err != nil || orgID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "organization_id required"})
		return
	}
	rng, err := parseRange(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out, err := h.Reporting.CallsSummary(c.Request.Context(), reporting.CallsSummaryRequest{
		OrganizationID: orgID,
		Range:          rng,
		CampaignID:     c.Query("campaign_id"),
	})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "summary failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}

func parseRange(c *gin.Context) (reporting.TimeRange, error) {
	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		return reporting.TimeRange{}, errors.New("from must be RFC3339")
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		return reporting.TimeRange{}, errors.New("to must be RFC3339")
	}
	return reporting.TimeRange{From: from, To: to}, nil
}

// --- Operations ---

// PollingStats exposes the poller's active-session snapshot for monitoring.
func (h Handlers) PollingStats(c *gin.Context) {
	if h.Poller == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "poller not configured"})
		return
	}
	c.JSON(http.StatusOK, h.Poller.Stats())
}
