package chat

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"cloakedsheets/internal/connector"
	"cloakedsheets/internal/conversation"
	"cloakedsheets/internal/domain"
)

type brokenStore struct{}

func (brokenStore) SaveMessage(conversationID string, m domain.Message) error {
	return errors.New("disk full")
}

func (brokenStore) AppendAudit(conversationID, line string) error {
	return errors.New("disk full")
}

func TestHandler_PinLogsPersistenceFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.WarnLevel)

	processor := conversation.NewProcessor(connector.NewMockClient(), nil, nil, nil,
		zap.NewNop(), "c-1", "demo-sales")
	processor.Log().Append(domain.Message{
		ID: "m1", Type: domain.MessageUser, Content: "hello", Timestamp: time.Now(),
	})

	handler := NewHandler(processor, brokenStore{}, zap.New(core))
	router := gin.New()
	handler.RegisterRoutes(router.Group("/chat"))

	req := httptest.NewRequest(http.MethodPost, "/chat/messages/m1/pin",
		bytes.NewReader([]byte(`{"pinned":true}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// The pin succeeds in memory even though persistence failed.
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"pinned":true`)

	entries := logs.FilterMessage("failed to persist pin state").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "m1", entries[0].ContextMap()["message_id"])
}
