package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cloakedsheets/internal/domain"
)

func TestTelegramClient_SendMessage(t *testing.T) {
	var gotPath string
	var gotPayload map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewTelegramClient(zap.NewNop())
	client.baseURL = server.URL

	settings := domain.TelegramSettings{BotToken: "123:abc", ChatID: "42"}
	require.NoError(t, client.SendMessage(context.Background(), settings, "<b>hello</b>"))

	assert.Equal(t, "/bot123:abc/sendMessage", gotPath)
	assert.Equal(t, "42", gotPayload["chat_id"])
	assert.Equal(t, "<b>hello</b>", gotPayload["text"])
	assert.Equal(t, "HTML", gotPayload["parse_mode"])
}

func TestTelegramClient_SendMessageAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"ok":false,"description":"Unauthorized"}`))
	}))
	defer server.Close()

	client := NewTelegramClient(zap.NewNop())
	client.baseURL = server.URL

	err := client.SendMessage(context.Background(), domain.TelegramSettings{BotToken: "bad", ChatID: "42"}, "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestTelegramClient_NotConfigured(t *testing.T) {
	client := NewTelegramClient(zap.NewNop())
	err := client.SendMessage(context.Background(), domain.TelegramSettings{}, "hi")
	require.Error(t, err)
}
