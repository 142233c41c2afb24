// Package conversation drives chat turns against the connector: it owns the
// message log, dispatches on the response variants, applies privacy
// filtering before query results are re-submitted, and hands terminal
// outcomes to the notification dispatcher.
package conversation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cloakedsheets/internal/connector"
	"cloakedsheets/internal/domain"
	"cloakedsheets/internal/privacy"
)

// maxTurnDepth bounds how many connector responses one user action may
// chain through before the turn is declared stuck.
const maxTurnDepth = 8

const continueMessage = "continue"

// SettingsSource supplies the live preference values a turn needs.
type SettingsSource interface {
	Privacy() domain.PrivacySettings
	Flag(key string) bool
	DatasetDefaults(dataset string) map[string]any
}

// Notifier receives terminal turn outcomes.
type Notifier interface {
	AnalysisComplete(ctx context.Context, summary string, audit domain.Audit)
	AnalysisError(ctx context.Context, err error)
}

// Persistence stores the message log and audit trail across restarts.
// It may be nil; the in-memory log is authoritative within a session.
type Persistence interface {
	SaveMessage(conversationID string, m domain.Message) error
	AppendAudit(conversationID, line string) error
}

// Processor runs the turn pipeline for a single conversation. Turns are
// strictly sequential: a second send while one is in flight fails with
// ErrTurnInFlight. Switching the active dataset cancels the turn epoch,
// so stale responses never apply to the new dataset.
type Processor struct {
	client   connector.Client
	settings SettingsSource
	notifier Notifier
	store    Persistence
	logger   *zap.Logger

	conversationID  string
	log             *Log
	onReportRefresh func()

	turnMu sync.Mutex

	mu          sync.Mutex
	datasetID   string
	epochCtx    context.Context
	epochCancel context.CancelFunc
	audit       []string
	lastResults []domain.QueryResult
	summary     string
	tables      []domain.QueryResult
}

// NewProcessor creates a processor bound to one conversation and dataset.
// store and notifier may be nil.
func NewProcessor(client connector.Client, settings SettingsSource, notifier Notifier,
	store Persistence, logger *zap.Logger, conversationID, datasetID string) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	epochCtx, epochCancel := context.WithCancel(context.Background())
	return &Processor{
		client:         client,
		settings:       settings,
		notifier:       notifier,
		store:          store,
		logger:         logger,
		conversationID: conversationID,
		log:            NewLog(),
		datasetID:      datasetID,
		epochCtx:       epochCtx,
		epochCancel:    epochCancel,
	}
}

// OnReportRefresh registers a hook fired after every final answer, so the
// report list can be re-fetched.
func (p *Processor) OnReportRefresh(fn func()) { p.onReportRefresh = fn }

// ConversationID returns the persistent conversation ID.
func (p *Processor) ConversationID() string { return p.conversationID }

// Log exposes the conversation's message log.
func (p *Processor) Log() *Log { return p.log }

// DatasetID returns the currently active dataset.
func (p *Processor) DatasetID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.datasetID
}

// SetDataset switches the active dataset. Any in-flight turn is canceled;
// locally displayed results belong to the old dataset and are dropped.
func (p *Processor) SetDataset(datasetID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if datasetID == p.datasetID {
		return
	}
	p.epochCancel()
	p.epochCtx, p.epochCancel = context.WithCancel(context.Background())
	p.datasetID = datasetID
	p.lastResults = nil
	p.summary = ""
	p.tables = nil
	p.logger.Info("active dataset switched", zap.String("dataset_id", datasetID))
}

// AuditLines returns a copy of the audit trail.
func (p *Processor) AuditLines() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.audit))
	copy(out, p.audit)
	return out
}

// Results returns the unfiltered results of the last executed query batch,
// kept local for display.
func (p *Processor) Results() []domain.QueryResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastResults
}

// Summary returns the last final-answer summary and its tables.
func (p *Processor) Summary() (string, []domain.QueryResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.summary, p.tables
}

// Send submits a free-text user message and processes the resulting turn.
func (p *Processor) Send(ctx context.Context, text string) error {
	if !p.turnMu.TryLock() {
		return domain.ErrTurnInFlight
	}
	defer p.turnMu.Unlock()

	p.appendMessage(domain.Message{Type: domain.MessageUser, Content: text})
	p.appendMessage(domain.Message{Type: domain.MessageWaiting, Content: "Analyzing your question..."})

	req := p.baseRequest()
	req.Message = text
	if defaults := p.settings.DatasetDefaults(req.DatasetID); len(defaults) > 0 {
		req.DefaultsContext = defaults
	}
	return p.runTurn(ctx, req)
}

// Answer resolves a pending clarification with an intent/value pair.
func (p *Processor) Answer(ctx context.Context, intent, value string) error {
	if !p.turnMu.TryLock() {
		return domain.ErrTurnInFlight
	}
	defer p.turnMu.Unlock()

	p.appendMessage(domain.Message{Type: domain.MessageUser, Content: value})
	p.appendMessage(domain.Message{Type: domain.MessageWaiting, Content: "Applying your answer..."})

	req := p.baseRequest()
	req.Intent = intent
	req.Value = value
	return p.runTurn(ctx, req)
}

func (p *Processor) baseRequest() domain.ChatRequest {
	return domain.ChatRequest{
		DatasetID:      p.DatasetID(),
		ConversationID: p.conversationID,
		PrivacyMode:    p.settings.Flag(domain.KeyPrivacyMode),
		SafeMode:       p.settings.Flag(domain.KeySafeMode),
		AIAssist:       p.settings.Flag(domain.KeyAIAssist),
	}
}

func (p *Processor) runTurn(ctx context.Context, req domain.ChatRequest) error {
	turnCtx, cancel := p.turnContext(ctx)
	defer cancel()

	resp, err := p.client.SendChatMessage(turnCtx, req)
	if err != nil {
		return p.failTurn(turnCtx, err)
	}
	return p.handle(turnCtx, resp, 0)
}

// turnContext derives the turn's context from both the caller and the
// dataset epoch, so a dataset switch aborts the turn mid-flight.
func (p *Processor) turnContext(ctx context.Context) (context.Context, context.CancelFunc) {
	turnCtx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	epoch := p.epochCtx
	p.mu.Unlock()
	stop := context.AfterFunc(epoch, cancel)
	return turnCtx, func() {
		stop()
		cancel()
	}
}

func (p *Processor) handle(ctx context.Context, resp *domain.ChatResponse, depth int) error {
	if depth > maxTurnDepth {
		return p.failTurn(ctx, fmt.Errorf("turn exceeded %d chained responses", maxTurnDepth))
	}

	ev, err := resp.Event()
	if err != nil {
		return p.failTurn(ctx, err)
	}

	switch v := ev.(type) {
	case domain.NeedsClarification:
		p.removeWaiting()
		if p.log.HasUnansweredQuestion(v.Question) {
			p.logger.Warn("duplicate clarification dropped",
				zap.String("question", v.Question))
			return nil
		}
		clarification := v
		p.appendMessage(domain.Message{
			Type:          domain.MessageClarification,
			Content:       v.Question,
			Clarification: &clarification,
		})
		return nil

	case domain.IntentAcknowledged:
		if updated := p.log.MarkAnswered(v.Intent); updated != nil {
			p.persist(*updated)
		} else {
			p.logger.Warn("intent acknowledged without a matching clarification",
				zap.String("intent", v.Intent))
		}
		// The resume nudge is issued from this arm only, so a backend that
		// already advanced past the acknowledgment is never double-advanced.
		req := p.baseRequest()
		req.Message = continueMessage
		next, err := p.client.SendChatMessage(ctx, req)
		if err != nil {
			return p.failTurn(ctx, err)
		}
		return p.handle(ctx, next, depth+1)

	case domain.RunQueries:
		p.removeWaiting()
		p.appendMessage(domain.Message{
			Type:    domain.MessageWaiting,
			Content: "Running queries...",
			Queries: v.Queries,
		})

		results, err := p.client.ExecuteQueries(ctx, p.DatasetID(), v.Queries)
		if err != nil {
			return p.failTurn(ctx, err)
		}
		p.mu.Lock()
		p.lastResults = results
		p.mu.Unlock()

		ps := p.settings.Privacy()
		filtered := privacy.Apply(results, ps)
		p.appendAudit(privacy.Describe(ps))

		req := p.baseRequest()
		req.ResultsContext = filtered
		next, err := p.client.SendChatMessage(ctx, req)
		if err != nil {
			return p.failTurn(ctx, err)
		}
		return p.handle(ctx, next, depth+1)

	case domain.FinalAnswer:
		p.removeWaiting()
		p.appendMessage(domain.Message{Type: domain.MessageAssistant, Content: v.SummaryMarkdown})

		p.mu.Lock()
		p.summary = v.SummaryMarkdown
		p.tables = v.Tables
		p.mu.Unlock()

		p.appendAudit(fmt.Sprintf("analysis type: %s", v.Audit.AnalysisType))
		p.appendAudit(fmt.Sprintf("time period: %s", v.Audit.TimePeriod))
		p.appendAudit(fmt.Sprintf("modes: ai_assist=%t safe_mode=%t privacy_mode=%t",
			v.Audit.AIAssist, v.Audit.SafeMode, v.Audit.PrivacyMode))
		for _, q := range v.Audit.ExecutedQueries {
			p.appendAudit(fmt.Sprintf("query %s returned %d rows: %s", q.Name, q.RowCount, q.SQL))
		}

		if p.onReportRefresh != nil {
			p.onReportRefresh()
		}
		if p.notifier != nil {
			p.notifier.AnalysisComplete(ctx, v.SummaryMarkdown, v.Audit)
		}
		return nil

	default:
		return p.failTurn(ctx, fmt.Errorf("unhandled turn event %T", ev))
	}
}

// failTurn aborts the current turn. Epoch cancellation (dataset switch) is
// discarded quietly; real failures surface as an inline assistant-style
// error plus the error notification channel.
func (p *Processor) failTurn(ctx context.Context, err error) error {
	p.removeWaiting()

	if ctx.Err() != nil {
		p.logger.Info("turn abandoned", zap.Error(err))
		return fmt.Errorf("%w: %v", domain.ErrTurnCanceled, err)
	}

	p.logger.Error("turn failed", zap.Error(err))
	p.appendMessage(domain.Message{
		Type:    domain.MessageAssistant,
		Content: fmt.Sprintf("Something went wrong while processing your request: %v", err),
	})
	if p.notifier != nil {
		p.notifier.AnalysisError(ctx, err)
	}
	return err
}

func (p *Processor) appendMessage(m domain.Message) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	p.log.Append(m)
	p.persist(m)
}

func (p *Processor) persist(m domain.Message) {
	if p.store == nil || m.Type == domain.MessageWaiting {
		return
	}
	if err := p.store.SaveMessage(p.conversationID, m); err != nil {
		p.logger.Warn("failed to persist message", zap.String("message_id", m.ID), zap.Error(err))
	}
}

func (p *Processor) removeWaiting() {
	p.log.RemoveWaiting()
}

func (p *Processor) appendAudit(line string) {
	p.mu.Lock()
	p.audit = append(p.audit, line)
	p.mu.Unlock()

	if p.store != nil {
		if err := p.store.AppendAudit(p.conversationID, line); err != nil {
			p.logger.Warn("failed to persist audit line", zap.Error(err))
		}
	}
}
