// Package prefs exposes the persisted user preferences over HTTP.
package prefs

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cloakedsheets/internal/domain"
	"cloakedsheets/internal/settings"
)

// Handler handles settings requests.
type Handler struct {
	store *settings.Store
}

// NewHandler creates a new settings handler
func NewHandler(store *settings.Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes registers settings routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/privacy", h.GetPrivacy)
	r.PUT("/privacy", h.PutPrivacy)
	r.GET("/notifications", h.GetNotifications)
	r.PUT("/notifications", h.PutNotifications)
	r.GET("/telegram", h.GetTelegram)
	r.PUT("/telegram", h.PutTelegram)
	r.GET("/flags", h.GetFlags)
	r.PUT("/flags", h.PutFlags)
}

// GetPrivacy returns the privacy settings.
func (h *Handler) GetPrivacy(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Privacy())
}

// PutPrivacy replaces the privacy settings.
func (h *Handler) PutPrivacy(c *gin.Context) {
	var s domain.PrivacySettings
	if err := c.ShouldBindJSON(&s); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.store.SetPrivacy(s); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s)
}

// GetNotifications returns the notification settings.
func (h *Handler) GetNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Notifications())
}

// PutNotifications replaces the notification settings.
func (h *Handler) PutNotifications(c *gin.Context) {
	var s domain.NotificationSettings
	if err := c.ShouldBindJSON(&s); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.store.SetNotifications(s); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s)
}

// GetTelegram returns the telegram settings with the bot token redacted.
func (h *Handler) GetTelegram(c *gin.Context) {
	s := h.store.Telegram()
	c.JSON(http.StatusOK, gin.H{
		"configured":         s.Configured(),
		"chatId":             s.ChatID,
		"notifyOnCompletion": s.NotifyOnCompletion,
	})
}

// PutTelegram replaces the telegram settings.
func (h *Handler) PutTelegram(c *gin.Context) {
	var s domain.TelegramSettings
	if err := c.ShouldBindJSON(&s); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.store.SetTelegram(s); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"configured": s.Configured()})
}

type flagsPayload struct {
	PrivacyMode *bool   `json:"privacyMode,omitempty"`
	SafeMode    *bool   `json:"safeMode,omitempty"`
	AIAssist    *bool   `json:"aiAssist,omitempty"`
	DemoMode    *bool   `json:"demoMode,omitempty"`
	Theme       *string `json:"theme,omitempty"`
}

// GetFlags returns the toggle flags and theme preference.
func (h *Handler) GetFlags(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"privacyMode": h.store.Flag(domain.KeyPrivacyMode),
		"safeMode":    h.store.Flag(domain.KeySafeMode),
		"aiAssist":    h.store.Flag(domain.KeyAIAssist),
		"demoMode":    h.store.Flag(domain.KeyDemoMode),
		"theme":       h.store.Theme(),
	})
}

// PutFlags updates the provided flags; omitted fields stay unchanged.
func (h *Handler) PutFlags(c *gin.Context) {
	var p flagsPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]*bool{
		domain.KeyPrivacyMode: p.PrivacyMode,
		domain.KeySafeMode:    p.SafeMode,
		domain.KeyAIAssist:    p.AIAssist,
		domain.KeyDemoMode:    p.DemoMode,
	}
	for key, value := range updates {
		if value == nil {
			continue
		}
		if err := h.store.SetFlag(key, *value); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	if p.Theme != nil {
		if err := h.store.SetTheme(*p.Theme); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	h.GetFlags(c)
}
