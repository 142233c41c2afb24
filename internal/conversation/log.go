package conversation

import (
	"sync"

	"cloakedsheets/internal/domain"
)

// Log is the in-memory message log of one conversation. Waiting entries are
// transient and removed once superseded; clarification entries are mutated
// to answered in place and never deleted.
type Log struct {
	mu       sync.RWMutex
	messages []domain.Message
}

// NewLog creates an empty log, optionally seeded with restored history.
func NewLog(history ...domain.Message) *Log {
	l := &Log{}
	l.messages = append(l.messages, history...)
	return l
}

// Append adds a message to the end of the log.
func (l *Log) Append(m domain.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, m)
}

// Messages returns a copy of the log in order.
func (l *Log) Messages() []domain.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// RemoveWaiting drops all waiting entries and returns their IDs.
func (l *Log) RemoveWaiting() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var removed []string
	kept := l.messages[:0]
	for _, m := range l.messages {
		if m.Type == domain.MessageWaiting {
			removed = append(removed, m.ID)
			continue
		}
		kept = append(kept, m)
	}
	l.messages = kept
	return removed
}

// HasUnansweredQuestion reports whether an unanswered clarification with
// exactly this question text is already present.
func (l *Log) HasUnansweredQuestion(question string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, m := range l.messages {
		if m.Type == domain.MessageClarification && !m.Answered &&
			m.Clarification != nil && m.Clarification.Question == question {
			return true
		}
	}
	return false
}

// MarkAnswered flips the most recent unanswered clarification whose intent
// matches to answered and returns a copy of the updated message, or nil
// when no clarification matched.
func (l *Log) MarkAnswered(intent string) *domain.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.messages) - 1; i >= 0; i-- {
		m := &l.messages[i]
		if m.Type == domain.MessageClarification && !m.Answered &&
			m.Clarification != nil && m.Clarification.Intent == intent {
			m.Answered = true
			updated := *m
			return &updated
		}
	}
	return nil
}

// SetPinned toggles the pinned flag of a message, reporting whether the
// message exists.
func (l *Log) SetPinned(id string, pinned bool) *domain.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.messages {
		if l.messages[i].ID == id {
			l.messages[i].Pinned = pinned
			updated := l.messages[i]
			return &updated
		}
	}
	return nil
}
