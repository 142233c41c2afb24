package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"cloakedsheets/internal/domain"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramClient sends messages through the Telegram Bot API.
type TelegramClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewTelegramClient(logger *zap.Logger) *TelegramClient {
	return &TelegramClient{
		baseURL:    telegramAPIBase,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// SendMessage posts one HTML-formatted message to the configured chat.
func (c *TelegramClient) SendMessage(ctx context.Context, settings domain.TelegramSettings, text string) error {
	if !settings.Configured() {
		return fmt.Errorf("telegram is not configured")
	}

	payload := map[string]string{
		"chat_id":    settings.ChatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, settings.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("telegram API returned status %d: %s", resp.StatusCode, string(raw))
	}

	c.logger.Debug("telegram message sent", zap.String("chat_id", settings.ChatID))
	return nil
}
