package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"go.uber.org/zap"

	"cloakedsheets/internal/domain"
)

// Telegram messages are kept short; errors get a little more room than
// insight teasers.
const (
	maxErrorChars   = 200
	maxInsightChars = 150
)

// insightKeywords flag a summary as noteworthy enough for an insight
// notification.
var insightKeywords = []string{"insight", "anomaly", "spike", "outlier", "unusual", "significant"}

// SettingsSource supplies the live notification preferences.
type SettingsSource interface {
	Notifications() domain.NotificationSettings
	Telegram() domain.TelegramSettings
}

// Dispatcher routes analysis outcomes to the enabled channels. Channels are
// independent: a Telegram failure is logged and never blocks the in-app
// event, and vice versa.
type Dispatcher struct {
	bus      *Bus
	telegram *TelegramClient
	settings SettingsSource
	logger   *zap.Logger
}

func NewDispatcher(bus *Bus, telegram *TelegramClient, settings SettingsSource, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{bus: bus, telegram: telegram, settings: settings, logger: logger}
}

// AnalysisComplete dispatches completion and, when warranted, insight
// notifications for a finished analysis.
func (d *Dispatcher) AnalysisComplete(ctx context.Context, summary string, audit domain.Audit) {
	prefs := d.settings.Notifications()
	tg := d.settings.Telegram()

	if prefs.JobComplete {
		d.bus.Publish(Event{
			Kind:    EventJobComplete,
			Title:   "Analysis complete",
			Message: summary,
		})
		if tg.Configured() && tg.NotifyOnCompletion {
			text := fmt.Sprintf("<b>Analysis complete</b>\n%s",
				html.EscapeString(truncate(summary, maxErrorChars)))
			d.sendTelegram(ctx, tg, text)
		}
	}

	if prefs.Insights && containsInsight(summary, audit) {
		teaser := truncate(summary, maxInsightChars)
		d.bus.Publish(Event{
			Kind:    EventInsight,
			Title:   "Insight detected",
			Message: teaser,
		})
		if tg.Configured() {
			d.sendTelegram(ctx, tg, fmt.Sprintf("<b>Insight</b>\n%s", html.EscapeString(teaser)))
		}
	}
}

// AnalysisError dispatches a failure notification.
func (d *Dispatcher) AnalysisError(ctx context.Context, err error) {
	prefs := d.settings.Notifications()
	if !prefs.Errors {
		return
	}

	detail := truncate(err.Error(), maxErrorChars)
	d.bus.Publish(Event{
		Kind:    EventError,
		Title:   "Analysis failed",
		Message: detail,
	})

	if tg := d.settings.Telegram(); tg.Configured() {
		d.sendTelegram(ctx, tg, fmt.Sprintf("<b>Analysis failed</b>\n%s", html.EscapeString(detail)))
	}
}

func (d *Dispatcher) sendTelegram(ctx context.Context, tg domain.TelegramSettings, text string) {
	if err := d.telegram.SendMessage(ctx, tg, text); err != nil {
		d.logger.Warn("telegram notification failed", zap.Error(err))
	}
}

func containsInsight(summary string, audit domain.Audit) bool {
	if len(audit.Anomalies) > 0 {
		return true
	}
	lower := strings.ToLower(summary)
	for _, kw := range insightKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
