package domain

// Persisted settings keys. Each key maps to one JSON-serialized record in
// the settings store; absence falls back to the defaults below.
const (
	KeyPrivacySettings = "privacySettings"
	KeyNotifications   = "notifications"
	KeyTelegram        = "telegramSettings"
	KeyPrivacyMode     = "privacyMode"
	KeySafeMode        = "safeMode"
	KeyAIAssist        = "aiAssist"
	KeyDemoMode        = "demoMode"
	KeyTheme           = "themePreference"

	// DatasetDefaultsPrefix scopes per-dataset default answers; the full
	// key is DatasetDefaultsPrefix + dataset name.
	DatasetDefaultsPrefix = "dataset_defaults_"
)

// PrivacySettings controls what leaves the gateway toward the chat backend.
// MaskPII has no effect while AllowSampleRows is false: no rows are sent at
// all in that case.
type PrivacySettings struct {
	AllowSampleRows bool `json:"allowSampleRows"`
	MaskPII         bool `json:"maskPII"`
}

// NotificationSettings selects which events fan out to notification channels.
type NotificationSettings struct {
	JobComplete bool `json:"jobComplete"`
	Errors      bool `json:"errors"`
	Insights    bool `json:"insights"`
}

// TelegramSettings holds the bot credentials for the Telegram channel.
type TelegramSettings struct {
	BotToken           string `json:"botToken"`
	ChatID             string `json:"chatId"`
	NotifyOnCompletion bool   `json:"notifyOnCompletion"`
}

// Configured reports whether Telegram delivery can be attempted at all.
func (t TelegramSettings) Configured() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// DefaultPrivacySettings keeps raw rows local until the user opts in.
func DefaultPrivacySettings() PrivacySettings {
	return PrivacySettings{AllowSampleRows: false, MaskPII: true}
}

// DefaultNotificationSettings enables completion and error notices only.
func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{JobComplete: true, Errors: true, Insights: false}
}
