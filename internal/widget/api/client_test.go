package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-widget/internal/models"
)

func TestClientSendsIdentityHeaders(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":"raw"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, models.ViewerContext{UserID: 42, DisplayName: "ada", IsModerator: true})

	var out struct {
		Content string `json:"content"`
	}
	require.NoError(t, client.Get(context.Background(), "/chats/1/messages/2/raw", &out))

	assert.Equal(t, "raw", out.Content)
	assert.Equal(t, "42", got.Get("X-User-ID"))
	assert.Equal(t, "ada", got.Get("X-Display-Name"))
	assert.Equal(t, "true", got.Get("X-Moderator"))
}

func TestClientDecodesErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"email not confirmed"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, models.ViewerContext{UserID: 42})

	err := client.Post(context.Background(), "/chats/1", map[string]any{"message": "hi"}, nil)
	require.Error(t, err)

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusForbidden, reqErr.StatusCode)
	assert.True(t, IsEmailNotConfirmed(err))
	assert.Equal(t, EmailNotConfirmedMessage, ErrorMessage(err))
}

func TestClientFallsBackToStatusText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, models.ViewerContext{UserID: 42})

	err := client.Get(context.Background(), "/chats", nil)
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusBadGateway, reqErr.StatusCode)
	assert.NotEmpty(t, reqErr.Message)
}
