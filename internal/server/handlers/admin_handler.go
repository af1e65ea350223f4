package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kdialloh/waresponder/internal/domain/models"
)

// ConfigStore persists operator updates to the auto-reply configuration.
type ConfigStore interface {
	UpsertResponseConfig(ctx context.Context, cfg models.ResponseConfig) error
}

// CacheInvalidator clears the in-memory configuration cache.
type CacheInvalidator interface {
	Invalidate()
}

// AdminHandler exposes the operator surface for the auto-reply configuration.
type AdminHandler struct {
	store  ConfigStore
	cache  CacheInvalidator
	logger *zap.Logger
}

// NewAdminHandler constructs the operator endpoints adapter.
func NewAdminHandler(store ConfigStore, cache CacheInvalidator, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{store: store, cache: cache, logger: logger}
}

// UpdateAutoReply replaces the stored configuration and drops the cached copy
// so the next webhook sees the update immediately.
func (h *AdminHandler) UpdateAutoReply(c *gin.Context) {
	var req models.ResponseConfigUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid auto-reply update", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	cfg := models.ResponseConfig{
		Enabled:         *req.Enabled,
		TemplateMessage: req.TemplateMessage,
		TimeWindowHours: req.TimeWindowHours,
	}

	if err := h.store.UpsertResponseConfig(c.Request.Context(), cfg); err != nil {
		h.logger.Error("failed storing auto-reply config", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to store configuration"})
		return
	}

	h.cache.Invalidate()
	h.logger.Info("auto-reply config updated", zap.Bool("enabled", cfg.Enabled))

	c.JSON(http.StatusOK, cfg)
}

// InvalidateCache drops the cached configuration without changing storage.
func (h *AdminHandler) InvalidateCache(c *gin.Context) {
	h.cache.Invalidate()
	c.Status(http.StatusNoContent)
}

// RequireAdminToken guards the operator endpoints with a static shared-secret
// header compare.
func RequireAdminToken(token string, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		if token == "" {
			logger.Error("admin endpoint hit but ADMIN_TOKEN is not configured")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "admin surface not configured"})
			return
		}

		if c.GetHeader("X-Admin-Token") != token {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		c.Next()
	}
}
