package settings

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cloakedsheets/internal/domain"
	"cloakedsheets/internal/repository"
)

func newTestStore(t *testing.T) (*Store, *repository.SettingsRepository) {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := repository.NewSettingsRepository(db)
	return NewStore(repo, zap.NewNop()), repo
}

func TestStore_DefaultsWhenAbsent(t *testing.T) {
	store, _ := newTestStore(t)

	assert.Equal(t, domain.DefaultPrivacySettings(), store.Privacy())
	assert.Equal(t, domain.DefaultNotificationSettings(), store.Notifications())
	assert.False(t, store.Telegram().Configured())
	assert.False(t, store.Flag(domain.KeySafeMode))
}

func TestStore_RoundTrip(t *testing.T) {
	store, _ := newTestStore(t)

	want := domain.PrivacySettings{AllowSampleRows: true, MaskPII: false}
	require.NoError(t, store.SetPrivacy(want))
	assert.Equal(t, want, store.Privacy())

	tg := domain.TelegramSettings{BotToken: "123:abc", ChatID: "42", NotifyOnCompletion: true}
	require.NoError(t, store.SetTelegram(tg))
	assert.Equal(t, tg, store.Telegram())

	require.NoError(t, store.SetFlag(domain.KeyDemoMode, true))
	assert.True(t, store.Flag(domain.KeyDemoMode))
}

func TestStore_CorruptValueFallsBackToDefault(t *testing.T) {
	store, repo := newTestStore(t)

	require.NoError(t, repo.Set(domain.KeyPrivacySettings, "{not json"))
	assert.Equal(t, domain.DefaultPrivacySettings(), store.Privacy())
}

func TestStore_SubscribeSignalsOnSet(t *testing.T) {
	store, _ := newTestStore(t)

	ch, cancel := store.Subscribe(domain.KeyPrivacySettings)
	defer cancel()

	require.NoError(t, store.SetPrivacy(domain.PrivacySettings{AllowSampleRows: true}))

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no change signal received")
	}

	// Unrelated key does not signal.
	require.NoError(t, store.SetFlag(domain.KeySafeMode, true))
	select {
	case <-ch:
		t.Fatal("unexpected signal for unrelated key")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStore_SubscribeCancel(t *testing.T) {
	store, _ := newTestStore(t)

	ch, cancel := store.Subscribe(domain.KeyNotifications)
	cancel()

	require.NoError(t, store.SetNotifications(domain.NotificationSettings{Errors: true}))
	select {
	case <-ch:
		t.Fatal("signal received after cancel")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStore_DatasetDefaults(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.SetDatasetDefaults("sales", map[string]any{"time_period": "last_7_days"}))
	got := store.DatasetDefaults("sales")
	assert.Equal(t, "last_7_days", got["time_period"])
	assert.Empty(t, store.DatasetDefaults("other"))
}
