package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almonzer-fadl/teramotors/internal/model"
)

var testContact = &model.Contact{CustomerID: "cust-1", Name: "Ada Reyes", Email: "ada@example.com"}

func TestWebhookNotifierSend(t *testing.T) {
	var received webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, 0, 0)
	err := n.Send(context.Background(), testContact, "Appointment reminder", "see you tomorrow")
	require.NoError(t, err)

	assert.Equal(t, "ada@example.com", received.To)
	assert.Equal(t, "Ada Reyes", received.Name)
	assert.Equal(t, "Appointment reminder", received.Subject)
	assert.Equal(t, "see you tomorrow", received.Body)
}

func TestWebhookNotifierNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, 0, 0)
	err := n.Send(context.Background(), testContact, "s", "b")

	var serr *SendError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "ada@example.com", serr.Contact)
	assert.Contains(t, serr.Error(), "502")
}

func TestWebhookNotifierConnectionRefused(t *testing.T) {
	n := NewWebhookNotifier("http://127.0.0.1:1", 0, 0)
	err := n.Send(context.Background(), testContact, "s", "b")

	var serr *SendError
	assert.ErrorAs(t, err, &serr)
}
