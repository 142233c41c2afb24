package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cloakedsheets/internal/domain"
)

type staticSettings struct {
	notifications domain.NotificationSettings
	telegram      domain.TelegramSettings
}

func (s staticSettings) Notifications() domain.NotificationSettings { return s.notifications }
func (s staticSettings) Telegram() domain.TelegramSettings          { return s.telegram }

// telegramRecorder captures sendMessage payloads behind an httptest server.
type telegramRecorder struct {
	mu       sync.Mutex
	texts    []string
	failWith int
	server   *httptest.Server
}

func newTelegramRecorder() *telegramRecorder {
	rec := &telegramRecorder{}
	rec.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)
		rec.mu.Lock()
		rec.texts = append(rec.texts, payload["text"])
		status := rec.failWith
		rec.mu.Unlock()
		if status != 0 {
			w.WriteHeader(status)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	return rec
}

func (r *telegramRecorder) sent() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.texts))
	copy(out, r.texts)
	return out
}

func newTestDispatcher(t *testing.T, settings staticSettings) (*Dispatcher, *Bus, *telegramRecorder) {
	t.Helper()
	rec := newTelegramRecorder()
	t.Cleanup(rec.server.Close)

	tg := NewTelegramClient(zap.NewNop())
	tg.baseURL = rec.server.URL

	bus := NewBus()
	return NewDispatcher(bus, tg, settings, zap.NewNop()), bus, rec
}

func drain(ch <-chan Event) []Event {
	var out []Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		case <-time.After(50 * time.Millisecond):
			return out
		}
	}
}

func TestDispatcher_JobCompleteEvent(t *testing.T) {
	d, bus, rec := newTestDispatcher(t, staticSettings{
		notifications: domain.NotificationSettings{JobComplete: true},
	})
	ch, cancel := bus.Subscribe()
	defer cancel()

	d.AnalysisComplete(context.Background(), "Revenue is flat.", domain.Audit{})

	events := drain(ch)
	require.Len(t, events, 1)
	assert.Equal(t, EventJobComplete, events[0].Kind)
	assert.Equal(t, "Revenue is flat.", events[0].Message)

	// Telegram is unconfigured, so nothing was sent.
	assert.Empty(t, rec.sent())
}

func TestDispatcher_InsightOnKeyword(t *testing.T) {
	d, bus, _ := newTestDispatcher(t, staticSettings{
		notifications: domain.NotificationSettings{Insights: true},
	})
	ch, cancel := bus.Subscribe()
	defer cancel()

	d.AnalysisComplete(context.Background(), "We found an unusual spike in week 4.", domain.Audit{})

	events := drain(ch)
	require.Len(t, events, 1)
	assert.Equal(t, EventInsight, events[0].Kind)
}

func TestDispatcher_InsightOnAnomalies(t *testing.T) {
	d, bus, _ := newTestDispatcher(t, staticSettings{
		notifications: domain.NotificationSettings{Insights: true},
	})
	ch, cancel := bus.Subscribe()
	defer cancel()

	d.AnalysisComplete(context.Background(), "Everything looks normal.",
		domain.Audit{Anomalies: []string{"revenue dip in March"}})

	events := drain(ch)
	require.Len(t, events, 1)
	assert.Equal(t, EventInsight, events[0].Kind)
}

func TestDispatcher_NoInsightWithoutSignal(t *testing.T) {
	d, bus, _ := newTestDispatcher(t, staticSettings{
		notifications: domain.NotificationSettings{Insights: true},
	})
	ch, cancel := bus.Subscribe()
	defer cancel()

	d.AnalysisComplete(context.Background(), "Everything looks normal.", domain.Audit{})

	assert.Empty(t, drain(ch))
}

func TestDispatcher_TelegramOnCompletion(t *testing.T) {
	d, _, rec := newTestDispatcher(t, staticSettings{
		notifications: domain.NotificationSettings{JobComplete: true},
		telegram:      domain.TelegramSettings{BotToken: "123:abc", ChatID: "42", NotifyOnCompletion: true},
	})

	d.AnalysisComplete(context.Background(), "Revenue is <flat>.", domain.Audit{})

	sent := rec.sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "<b>Analysis complete</b>")
	// Summary content is HTML-escaped.
	assert.Contains(t, sent[0], "&lt;flat&gt;")
}

func TestDispatcher_TelegramCompletionRequiresJobComplete(t *testing.T) {
	d, bus, rec := newTestDispatcher(t, staticSettings{
		notifications: domain.NotificationSettings{JobComplete: false},
		telegram:      domain.TelegramSettings{BotToken: "123:abc", ChatID: "42", NotifyOnCompletion: true},
	})
	ch, cancel := bus.Subscribe()
	defer cancel()

	d.AnalysisComplete(context.Background(), "Revenue is flat.", domain.Audit{})

	// Job-completion notifications are off, so neither channel fires.
	assert.Empty(t, drain(ch))
	assert.Empty(t, rec.sent())
}

func TestDispatcher_ErrorTruncatedTo200(t *testing.T) {
	d, bus, rec := newTestDispatcher(t, staticSettings{
		notifications: domain.NotificationSettings{Errors: true},
		telegram:      domain.TelegramSettings{BotToken: "123:abc", ChatID: "42"},
	})
	ch, cancel := bus.Subscribe()
	defer cancel()

	long := strings.Repeat("x", 500)
	d.AnalysisError(context.Background(), errors.New(long))

	events := drain(ch)
	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Kind)
	assert.Len(t, []rune(events[0].Message), 200)
	assert.True(t, strings.HasSuffix(events[0].Message, "..."))

	sent := rec.sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "<b>Analysis failed</b>")
}

func TestDispatcher_ErrorsDisabled(t *testing.T) {
	d, bus, rec := newTestDispatcher(t, staticSettings{
		telegram: domain.TelegramSettings{BotToken: "123:abc", ChatID: "42"},
	})
	ch, cancel := bus.Subscribe()
	defer cancel()

	d.AnalysisError(context.Background(), errors.New("boom"))

	assert.Empty(t, drain(ch))
	assert.Empty(t, rec.sent())
}

func TestDispatcher_TelegramFailureDoesNotBlockBus(t *testing.T) {
	rec := newTelegramRecorder()
	t.Cleanup(rec.server.Close)
	rec.failWith = http.StatusUnauthorized

	tg := NewTelegramClient(zap.NewNop())
	tg.baseURL = rec.server.URL
	bus := NewBus()
	d := NewDispatcher(bus, tg, staticSettings{
		notifications: domain.NotificationSettings{JobComplete: true},
		telegram:      domain.TelegramSettings{BotToken: "bad", ChatID: "42", NotifyOnCompletion: true},
	}, zap.NewNop())

	ch, cancel := bus.Subscribe()
	defer cancel()

	d.AnalysisComplete(context.Background(), "done", domain.Audit{})

	// The in-app event still arrives even though Telegram rejected the send.
	events := drain(ch)
	require.Len(t, events, 1)
	assert.Equal(t, EventJobComplete, events[0].Kind)
}

func TestBus_SlowSubscriberDoesNotBlockPublish(t *testing.T) {
	bus := NewBus()
	_, cancel := bus.Subscribe() // never drained
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			bus.Publish(Event{Kind: EventHealth, Message: "tick"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}
