package external

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// NotifyClient talks to the notification gateway that owns actual delivery
// (email/SMS/push). The domain only hands over templated payloads.
type NotifyClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type NotifyConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type Notification struct {
	RecipientID int64                  `json:"recipient_id"`
	Email       string                 `json:"email"`
	Template    string                 `json:"template"`
	Data        map[string]interface{} `json:"data"`
}

type NotifyResponse struct {
	Accepted  bool   `json:"accepted"`
	MessageID string `json:"message_id"`
}

// Notification templates understood by the gateway
const (
	TemplateWaitlistOffer    = "waitlist_offer"
	TemplateBookingCancelled = "booking_cancelled"
	TemplateBookingConfirmed = "booking_confirmed"
	TemplateCreditsExpired   = "credits_expired"
)

func NewNotifyClient(cfg NotifyConfig) *NotifyClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &NotifyClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Send delivers one notification through the gateway
func (nc *NotifyClient) Send(n Notification) (*NotifyResponse, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, nc.baseURL+"/api/v1/notifications", bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if nc.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+nc.apiKey)
	}

	resp, err := nc.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return nil, fmt.Errorf("notification gateway returned status %d", resp.StatusCode)
	}

	var result NotifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}

	return &result, nil
}
