package external

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendNotification(t *testing.T) {
	var got Notification
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/notifications", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(NotifyResponse{Accepted: true, MessageID: "msg-1"})
	}))
	defer server.Close()

	client := NewNotifyClient(NotifyConfig{BaseURL: server.URL, APIKey: "test-key"})

	resp, err := client.Send(Notification{
		RecipientID: 42,
		Email:       "parent@example.com",
		Template:    TemplateWaitlistOffer,
		Data:        map[string]interface{}{"slot_id": 7},
	})
	require.NoError(t, err)
	assert.True(t, resp.Accepted)
	assert.Equal(t, "msg-1", resp.MessageID)
	assert.Equal(t, int64(42), got.RecipientID)
	assert.Equal(t, "parent@example.com", got.Email)
	assert.Equal(t, TemplateWaitlistOffer, got.Template)
}

func TestSendGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewNotifyClient(NotifyConfig{BaseURL: server.URL})

	_, err := client.Send(Notification{RecipientID: 1, Template: TemplateBookingConfirmed})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestSendWithoutAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(NotifyResponse{Accepted: true})
	}))
	defer server.Close()

	client := NewNotifyClient(NotifyConfig{BaseURL: server.URL})

	resp, err := client.Send(Notification{RecipientID: 1, Template: TemplateCreditsExpired})
	require.NoError(t, err)
	assert.True(t, resp.Accepted)
}
