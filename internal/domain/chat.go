package domain

import (
	"fmt"
	"time"
)

// ResponseKind discriminates the chat response union returned by the connector.
type ResponseKind string

const (
	KindNeedsClarification ResponseKind = "needs_clarification"
	KindIntentAcknowledged ResponseKind = "intent_acknowledged"
	KindRunQueries         ResponseKind = "run_queries"
	KindFinalAnswer        ResponseKind = "final_answer"
)

// ChatRequest is the request body sent to the connector's chat endpoint.
type ChatRequest struct {
	DatasetID       string         `json:"datasetId"`
	ConversationID  string         `json:"conversationId"`
	Message         string         `json:"message,omitempty"`
	Intent          string         `json:"intent,omitempty"`
	Value           string         `json:"value,omitempty"`
	PrivacyMode     bool           `json:"privacyMode"`
	SafeMode        bool           `json:"safeMode"`
	AIAssist        bool           `json:"aiAssist"`
	ResultsContext  []QueryResult  `json:"resultsContext,omitempty"`
	DefaultsContext map[string]any `json:"defaultsContext,omitempty"`
}

// ChatResponse is the wire shape of a connector chat turn. Exactly one
// variant's fields are populated; Type says which. Use Event to obtain
// the typed variant.
type ChatResponse struct {
	Type ResponseKind `json:"type"`

	// needs_clarification
	Question      string   `json:"question,omitempty"`
	Choices       []string `json:"choices,omitempty"`
	AllowFreeText bool     `json:"allowFreeText,omitempty"`
	Intent        string   `json:"intent,omitempty"`

	// intent_acknowledged
	Value string `json:"value,omitempty"`

	// run_queries
	Queries     []Query `json:"queries,omitempty"`
	Explanation string  `json:"explanation,omitempty"`

	// final_answer
	SummaryMarkdown string        `json:"summaryMarkdown,omitempty"`
	Tables          []QueryResult `json:"tables,omitempty"`
	Audit           *Audit        `json:"audit,omitempty"`
}

// TurnEvent is the typed variant of a chat response. Concrete types are
// NeedsClarification, IntentAcknowledged, RunQueries and FinalAnswer;
// turn handling switches over them.
type TurnEvent interface {
	turnEvent()
}

// NeedsClarification asks the user to narrow down their request.
type NeedsClarification struct {
	Question      string   `json:"question"`
	Choices       []string `json:"choices,omitempty"`
	AllowFreeText bool     `json:"allowFreeText"`
	Intent        string   `json:"intent,omitempty"`
}

// IntentAcknowledged confirms that a clarification answer was applied.
type IntentAcknowledged struct {
	Intent string `json:"intent"`
	Value  string `json:"value"`
}

// RunQueries instructs the client to execute SQL and report the results back.
type RunQueries struct {
	Queries     []Query `json:"queries"`
	Explanation string  `json:"explanation,omitempty"`
}

// FinalAnswer terminates a turn with a rendered summary and its audit block.
type FinalAnswer struct {
	SummaryMarkdown string        `json:"summaryMarkdown"`
	Tables          []QueryResult `json:"tables,omitempty"`
	Audit           Audit         `json:"audit"`
}

func (NeedsClarification) turnEvent() {}
func (IntentAcknowledged) turnEvent() {}
func (RunQueries) turnEvent()         {}
func (FinalAnswer) turnEvent()        {}

// Event converts the wire response into its typed variant. An unknown Type
// is an error rather than a silent no-op.
func (r *ChatResponse) Event() (TurnEvent, error) {
	switch r.Type {
	case KindNeedsClarification:
		return NeedsClarification{
			Question:      r.Question,
			Choices:       r.Choices,
			AllowFreeText: r.AllowFreeText,
			Intent:        r.Intent,
		}, nil
	case KindIntentAcknowledged:
		return IntentAcknowledged{Intent: r.Intent, Value: r.Value}, nil
	case KindRunQueries:
		return RunQueries{Queries: r.Queries, Explanation: r.Explanation}, nil
	case KindFinalAnswer:
		var audit Audit
		if r.Audit != nil {
			audit = *r.Audit
		}
		return FinalAnswer{
			SummaryMarkdown: r.SummaryMarkdown,
			Tables:          r.Tables,
			Audit:           audit,
		}, nil
	default:
		return nil, fmt.Errorf("unknown chat response type %q", r.Type)
	}
}

// Query is a named SQL statement the connector asks the client to run.
type Query struct {
	Name string `json:"name"`
	SQL  string `json:"sql"`
}

// ExecutedQuery records one query of a finished analysis for the audit trail.
type ExecutedQuery struct {
	Name     string `json:"name"`
	SQL      string `json:"sql"`
	RowCount int    `json:"rowCount"`
}

// Audit is the connector-reported provenance block of a final answer.
type Audit struct {
	AnalysisType    string          `json:"analysisType"`
	TimePeriod      string          `json:"timePeriod"`
	AIAssist        bool            `json:"aiAssist"`
	SafeMode        bool            `json:"safeMode"`
	PrivacyMode     bool            `json:"privacyMode"`
	ExecutedQueries []ExecutedQuery `json:"executedQueries,omitempty"`
	ReportID        string          `json:"reportId,omitempty"`
	Anomalies       []string        `json:"anomalies,omitempty"`
}

// MessageType classifies entries in the conversation log.
type MessageType string

const (
	MessageUser          MessageType = "user"
	MessageAssistant     MessageType = "assistant"
	MessageClarification MessageType = "clarification"
	MessageWaiting       MessageType = "waiting"
)

// Message is one entry of the conversation log. Waiting entries are removed
// once superseded; clarification entries are flipped to answered in place
// and never deleted, so the history stays complete.
type Message struct {
	ID            string              `json:"id"`
	Type          MessageType         `json:"type"`
	Content       string              `json:"content"`
	Timestamp     time.Time           `json:"timestamp"`
	Pinned        bool                `json:"pinned,omitempty"`
	Answered      bool                `json:"answered,omitempty"`
	Clarification *NeedsClarification `json:"clarificationData,omitempty"`
	Queries       []Query             `json:"queriesData,omitempty"`
}

// QueryResult holds the rows returned for one named query. Cells are
// heterogeneous (string, number or nil). Privacy filtering produces a new
// copy; the original kept for local display is never mutated.
type QueryResult struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}
