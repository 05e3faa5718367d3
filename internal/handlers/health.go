// internal/handlers/health.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/agency-onboarding/internal/i18n"
	"github.com/javajoker/agency-onboarding/internal/utils"
)

// Pinger reports whether the database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	pinger  Pinger
	timeout time.Duration
}

func NewHealthHandler(pinger Pinger) *HealthHandler {
	return &HealthHandler{pinger: pinger, timeout: 3 * time.Second}
}

// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	if err := h.pinger.Ping(ctx); err != nil {
		logrus.WithError(err).Warn("Health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success":  false,
			"database": "Disconnected",
			"message":  i18n.T(lang, i18n.KeyHealthDisconnected),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"database": "Connected",
		"message":  i18n.T(lang, i18n.KeyHealthConnected),
	})
}
