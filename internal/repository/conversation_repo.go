package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"cloakedsheets/internal/domain"
)

// ConversationRepository persists conversations, their message logs and
// their audit trails.
type ConversationRepository struct {
	db *DB
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Create creates a new conversation and returns its ID.
func (r *ConversationRepository) Create(datasetID string) (string, error) {
	id := uuid.New().String()
	now := time.Now()
	_, err := r.db.Exec(`
		INSERT INTO conversations (id, dataset_id, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, id, datasetID, now, now)
	return id, err
}

// Touch updates a conversation's dataset binding and updated_at timestamp.
func (r *ConversationRepository) Touch(id, datasetID string) error {
	_, err := r.db.Exec(`UPDATE conversations SET dataset_id = ?, updated_at = ? WHERE id = ?`,
		datasetID, time.Now(), id)
	return err
}

// SaveMessage inserts a message or, when the ID already exists, overwrites
// its mutable state (answered, pinned, content). Clarification entries are
// updated in place rather than re-inserted.
func (r *ConversationRepository) SaveMessage(conversationID string, m domain.Message) error {
	clarificationJSON, _ := json.Marshal(m.Clarification)
	queriesJSON, _ := json.Marshal(m.Queries)

	_, err := r.db.Exec(`
		INSERT INTO messages (id, conversation_id, type, content, pinned, answered, clarification, queries, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			pinned = excluded.pinned,
			answered = excluded.answered
	`, m.ID, conversationID, string(m.Type), m.Content, m.Pinned, m.Answered,
		string(clarificationJSON), string(queriesJSON), m.Timestamp)

	return err
}

// Messages retrieves the message log of a conversation in order.
func (r *ConversationRepository) Messages(conversationID string) ([]domain.Message, error) {
	rows, err := r.db.Query(`
		SELECT id, type, content, pinned, answered, clarification, queries, created_at
		FROM messages WHERE conversation_id = ?
		ORDER BY created_at ASC
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		var msgType string
		var clarificationJSON, queriesJSON sql.NullString

		if err := rows.Scan(&m.ID, &msgType, &m.Content, &m.Pinned, &m.Answered,
			&clarificationJSON, &queriesJSON, &m.Timestamp); err != nil {
			return nil, err
		}
		m.Type = domain.MessageType(msgType)

		if clarificationJSON.Valid && clarificationJSON.String != "" && clarificationJSON.String != "null" {
			var c domain.NeedsClarification
			if err := json.Unmarshal([]byte(clarificationJSON.String), &c); err == nil {
				m.Clarification = &c
			}
		}
		if queriesJSON.Valid && queriesJSON.String != "" && queriesJSON.String != "null" {
			json.Unmarshal([]byte(queriesJSON.String), &m.Queries)
		}
		messages = append(messages, m)
	}

	return messages, rows.Err()
}

// AppendAudit appends one audit-trail line to a conversation.
func (r *ConversationRepository) AppendAudit(conversationID, line string) error {
	_, err := r.db.Exec(`
		INSERT INTO audit_entries (id, conversation_id, line, created_at)
		VALUES (?, ?, ?, ?)
	`, uuid.New().String(), conversationID, line, time.Now())
	return err
}

// AuditLines retrieves the audit trail of a conversation in order.
func (r *ConversationRepository) AuditLines(conversationID string) ([]string, error) {
	rows, err := r.db.Query(`
		SELECT line FROM audit_entries WHERE conversation_id = ?
		ORDER BY created_at ASC, id ASC
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}
