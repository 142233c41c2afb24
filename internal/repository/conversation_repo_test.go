package repository

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cloakedsheets/internal/domain"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestConversationRepository_MessageRoundTrip(t *testing.T) {
	repo := NewConversationRepository(newTestDB(t))

	convID, err := repo.Create("ds-1")
	require.NoError(t, err)

	base := time.Now().Truncate(time.Second)
	require.NoError(t, repo.SaveMessage(convID, domain.Message{
		ID: "m1", Type: domain.MessageUser, Content: "analyze revenue", Timestamp: base,
	}))
	require.NoError(t, repo.SaveMessage(convID, domain.Message{
		ID: "m2", Type: domain.MessageClarification, Content: "Which period?",
		Timestamp: base.Add(time.Second),
		Clarification: &domain.NeedsClarification{
			Question: "Which period?",
			Choices:  []string{"last_7_days"},
			Intent:   "set_time_period",
		},
	}))

	messages, err := repo.Messages(convID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "m1", messages[0].ID)
	assert.Equal(t, domain.MessageUser, messages[0].Type)
	require.NotNil(t, messages[1].Clarification)
	assert.Equal(t, "set_time_period", messages[1].Clarification.Intent)
	assert.False(t, messages[1].Answered)
}

func TestConversationRepository_SaveMessageUpsertsState(t *testing.T) {
	repo := NewConversationRepository(newTestDB(t))

	convID, err := repo.Create("ds-1")
	require.NoError(t, err)

	m := domain.Message{
		ID: "m1", Type: domain.MessageClarification, Content: "Which period?",
		Timestamp: time.Now(),
		Clarification: &domain.NeedsClarification{
			Question: "Which period?", Intent: "set_time_period",
		},
	}
	require.NoError(t, repo.SaveMessage(convID, m))

	m.Answered = true
	require.NoError(t, repo.SaveMessage(convID, m))

	messages, err := repo.Messages(convID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.True(t, messages[0].Answered)
}

func TestConversationRepository_AuditLinesInOrder(t *testing.T) {
	repo := NewConversationRepository(newTestDB(t))

	convID, err := repo.Create("ds-1")
	require.NoError(t, err)

	lines := []string{
		"privacy: aggregates only, no sample rows sent",
		"analysis type: trend",
		"time period: last_7_days",
	}
	for _, line := range lines {
		require.NoError(t, repo.AppendAudit(convID, line))
	}

	got, err := repo.AuditLines(convID)
	require.NoError(t, err)
	assert.Equal(t, lines, got)
}

func TestConversationRepository_MessagesScopedToConversation(t *testing.T) {
	repo := NewConversationRepository(newTestDB(t))

	first, err := repo.Create("ds-1")
	require.NoError(t, err)
	second, err := repo.Create("ds-2")
	require.NoError(t, err)

	require.NoError(t, repo.SaveMessage(first, domain.Message{
		ID: "m1", Type: domain.MessageUser, Content: "hello", Timestamp: time.Now(),
	}))

	messages, err := repo.Messages(second)
	require.NoError(t, err)
	assert.Empty(t, messages)
}
