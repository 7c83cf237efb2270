package alert

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookAlerter_Send(t *testing.T) {
	var received map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewWebhookAlerter(srv.URL)
	err := a.Send(context.Background(), Alert{
		Type:    AlertTypeRestoreErrors,
		Title:   "restoration finished with errors",
		Message: "3/10 entities failed",
		Fields:  map[string]string{"errors": "3"},
	})
	require.NoError(t, err)

	assert.Equal(t, "RESTORE_ERRORS", received["type"])
	assert.Equal(t, "restoration finished with errors", received["title"])
}

func TestWebhookAlerter_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := NewWebhookAlerter(srv.URL)
	err := a.Send(context.Background(), Alert{Type: AlertTypeRestoreErrors})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}
