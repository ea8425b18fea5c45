// Package bolna is the adapter for the Bolna voice-agent API.
//
// Rules:
// - No vendor SDK/HTTP calls outside this adapter.
// - Keep request/response types vendor-shaped here and convert at the edge;
//   business logic never sees raw vendor payloads.
package bolna

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"voicecampaign-platform/internal/poller"

	"github.com/go-resty/resty/v2"
)

type Config struct {
	BaseURL string
	APIKey  string

	Timeout    time.Duration
	RetryCount int
}

func (c Config) withDefaults() Config {
	out := c
	if out.Timeout <= 0 {
		out.Timeout = 8 * time.Second
	}
	if out.RetryCount < 0 {
		out.RetryCount = 0
	}
	return out
}

type Client struct {
	http *resty.Client
}

func NewClient(cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	if cfg.BaseURL == "" {
		return nil, errors.New("bolna: base url is required")
	}
	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetHeader("Authorization", "Bearer "+cfg.APIKey).
		SetHeader("Content-Type", "application/json")
	return &Client{http: rc}, nil
}

// callDetailsResponse is the vendor's execution payload. All fields are
// optional; the vendor fills them in as the call progresses.
type callDetailsResponse struct {
	Status          string  `json:"status"`
	ConversationSec float64 `json:"conversation_duration"`
	Transcript      string  `json:"transcript"`
	RecordingURL    string  `json:"recording_url"`
}

// GetCallDetails fetches the vendor's status snapshot for a provider call
// id. A (nil, nil) return means the vendor has nothing yet (404 or an empty
// body); that is "poll again later", not an error.
func (c *Client) GetCallDetails(ctx context.Context, providerCallID string) (*poller.VendorSnapshot, error) {
	if providerCallID == "" {
		return nil, errors.New("bolna: provider call id is required")
	}
	var body callDetailsResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&body).
		SetPathParam("execution_id", providerCallID).
		Get("/executions/{execution_id}")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("bolna: status fetch returned %d", resp.StatusCode())
	}
	if body.Status == "" && body.Transcript == "" && body.RecordingURL == "" && body.ConversationSec == 0 {
		return nil, nil
	}

	snap := &poller.VendorSnapshot{
		Status:       body.Status,
		Transcript:   body.Transcript,
		RecordingURL: body.RecordingURL,
	}
	if body.ConversationSec > 0 {
		d := int(body.ConversationSec)
		snap.DurationSeconds = &d
	}
	return snap, nil
}

type StartCallRequest struct {
	AgentID       string `json:"agent_id"`
	RecipientData struct {
		PhoneNumber string `json:"contact_number"`
	} `json:"recipient_data"`
	FromNumber string `json:"from_phone_number,omitempty"`
}

type startCallResponse struct {
	ExecutionID string `json:"execution_id"`
	Status      string `json:"status"`
}

// StartCall asks the vendor to place an agent call and returns the provider
// call id assigned to it.
func (c *Client) StartCall(ctx context.Context, agentID, fromNumber, toNumber string) (string, error) {
	if agentID == "" || toNumber == "" {
		return "", errors.New("bolna: agent id and recipient number are required")
	}
	req := StartCallRequest{AgentID: agentID, FromNumber: fromNumber}
	req.RecipientData.PhoneNumber = toNumber

	var body startCallResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&body).
		Post("/call")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("bolna: call start returned %d", resp.StatusCode())
	}
	if body.ExecutionID == "" {
		return "", errors.New("bolna: call start response missing execution id")
	}
	return body.ExecutionID, nil
}
