package bolna

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"voicecampaign-platform/internal/calls"
	"voicecampaign-platform/internal/poller"

	"github.com/gin-gonic/gin"
)

// StatusWebhookPayload is the push-side counterpart of GetCallDetails: the
// vendor posts it when a call changes state. Fields mirror the poll
// response; absent fields mean "not reported yet".
type StatusWebhookPayload struct {
	ExecutionID     string  `json:"execution_id"`
	Status          string  `json:"status"`
	ConversationSec float64 `json:"conversation_duration"`
	Transcript      string  `json:"transcript"`
	RecordingURL    string  `json:"recording_url"`
}

// SessionStopper lets the webhook cancel the polling session for a call the
// push path has already reconciled to a terminal state.
type SessionStopper interface {
	Stop(providerCallID string)
}

// StatusWebhookHandler applies vendor status pushes to the call store.
//
// Webhooks and the poller race to update the same Call; both write through
// the store's latched update path, so ordering between them does not
// matter. The webhook is authoritative when it arrives first, and the
// poller is the backstop when it does not arrive at all.
type StatusWebhookHandler struct {
	Store  calls.Store
	Poller SessionStopper
	Sink   poller.EventSink
	Log    *slog.Logger

	// OrganizationResolver extracts the tenant for this webhook delivery.
	// The default reads the org query parameter baked into the callback URL
	// registered with the vendor.
	OrganizationResolver func(c *gin.Context) (string, error)
}

func (h StatusWebhookHandler) resolveOrganization(c *gin.Context) (string, error) {
	if h.OrganizationResolver != nil {
		return h.OrganizationResolver(c)
	}
	org := c.Query("org")
	if org == "" {
		return "", errors.New("org query parameter missing")
	}
	return org, nil
}

// HandleStatusUpdate processes one vendor status push.
// Unknown provider call ids are acknowledged with 200 and logged; the
// vendor retries deliveries that are not acknowledged and an id we do not
// track will never become one we do.
func (h StatusWebhookHandler) HandleStatusUpdate(c *gin.Context) {
	log := h.Log
	if log == nil {
		log = slog.Default()
	}

	var payload StatusWebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if payload.ExecutionID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "execution_id required"})
		return
	}

	orgID, err := h.resolveOrganization(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "organization unresolved"})
		return
	}

	ctx := c.Request.Context()
	call, err := h.Store.GetCallByProviderID(ctx, orgID, payload.ExecutionID)
	if err != nil {
		if errors.Is(err, calls.ErrNotFound) {
			log.Warn("webhook for unknown call", "provider_call_id", payload.ExecutionID, "organization_id", orgID)
			c.JSON(http.StatusOK, gin.H{"status": "ignored"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call lookup failed"})
		return
	}

	status := call.Status
	if payload.Status != "" {
		status = calls.NormalizeStatus(payload.Status)
	}

	now := time.Now().UTC()
	upd := calls.CallUpdate{Status: &status}
	if payload.ConversationSec > 0 {
		d := int(payload.ConversationSec)
		upd.DurationSeconds = &d
	}
	if payload.Transcript != "" {
		upd.Transcript = &payload.Transcript
	}
	if payload.RecordingURL != "" {
		upd.RecordingURL = &payload.RecordingURL
	}
	if status == calls.CallStatusInProgress && call.StartedAt == nil {
		upd.StartedAt = &now
	}
	if status.IsTerminal() && call.EndedAt == nil {
		upd.EndedAt = &now
	}

	updated, err := h.Store.UpdateCall(ctx, orgID, call.CallID, upd)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call update failed"})
		return
	}
	log.Info("webhook reconciled call",
		"call_id", updated.CallID, "provider_call_id", payload.ExecutionID, "status", updated.Status)

	if h.Sink != nil {
		h.Sink.CallUpdated(ctx, orgID, updated)
		if m, err := h.Store.DashboardMetrics(ctx, orgID); err == nil {
			h.Sink.MetricsUpdated(ctx, orgID, m)
		}
	}

	if updated.Status.IsTerminal() && h.Poller != nil {
		h.Poller.Stop(payload.ExecutionID)
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
