package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hostel-residence/internal/queue"
)

func TestWebhookRetriesServerErrors(t *testing.T) {
	var calls int32
	var got payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "notification-7", r.Header.Get("Idempotency-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, "tok", nil)
	err := w.Send(context.Background(), queue.NotificationEvent{NotificationID: 7, UserID: 3, Subject: "Room allocated", Message: "Room 101"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
	assert.Equal(t, uint64(7), got.ID)
	assert.Equal(t, "Room allocated", got.Subject)
}

func TestWebhookClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, "", nil).Send(context.Background(), queue.NotificationEvent{NotificationID: 1})
	assert.ErrorContains(t, err, "400")
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestWebhookGivesUpAfterRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, "", nil).Send(context.Background(), queue.NotificationEvent{NotificationID: 1})
	assert.Error(t, err)
	assert.EqualValues(t, 4, atomic.LoadInt32(&calls))
}
