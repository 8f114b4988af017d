// internal/handler/health_handler.go
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/acascioli/serial-chiller/internal/config"
	"github.com/acascioli/serial-chiller/internal/database"
	"github.com/acascioli/serial-chiller/internal/utils"
)

// HealthHandler handles health and readiness probes
type HealthHandler struct {
	config    *config.Config
	db        *database.DB
	migrator  *database.Migrator
	logger    *utils.ServiceLogger
	startedAt time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(cfg *config.Config, db *database.DB, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		config:    cfg,
		db:        db,
		migrator:  database.NewMigrator(db, logger),
		logger:    utils.NewServiceLogger(logger, "health-handler"),
		startedAt: time.Now(),
	}
}

// Health godoc
// @Summary Service health
// @Tags health
// @Produce json
// @Success 200 {object} utils.APIResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Service is healthy", gin.H{
		"name":    h.config.App.Name,
		"version": h.config.App.Version,
		"uptime":  time.Since(h.startedAt).String(),
	})
}

// Readiness godoc
// @Summary Readiness probe
// @Description Verifies the transcript store is reachable and its schema is current
// @Tags health
// @Produce json
// @Success 200 {object} utils.APIResponse
// @Failure 503 {object} utils.APIResponse
// @Router /ready [get]
func (h *HealthHandler) Readiness(c *gin.Context) {
	if err := h.db.PingContext(c.Request.Context()); err != nil {
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "Transcript store unavailable", err)
		return
	}

	version, dirty, err := h.migrator.Version()
	if err != nil {
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "Transcript store schema unavailable", err)
		return
	}
	if dirty {
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "Transcript store schema is dirty", nil)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Service is ready", gin.H{
		"schema_version": version,
	})
}

// Liveness godoc
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} utils.APIResponse
// @Router /live [get]
func (h *HealthHandler) Liveness(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Service is alive", nil)
}
