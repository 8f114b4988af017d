// internal/handler/session_handler.go
package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/acascioli/serial-chiller/internal/model"
	"github.com/acascioli/serial-chiller/internal/repository"
	"github.com/acascioli/serial-chiller/internal/service"
	"github.com/acascioli/serial-chiller/internal/utils"
)

// SessionHandler handles session lifecycle HTTP requests
type SessionHandler struct {
	sessionService  *service.SessionService
	exchangeService *service.ExchangeService
	logger          *utils.ServiceLogger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(
	sessionService *service.SessionService,
	exchangeService *service.ExchangeService,
	logger *zap.Logger,
) *SessionHandler {
	return &SessionHandler{
		sessionService:  sessionService,
		exchangeService: exchangeService,
		logger:          utils.NewServiceLogger(logger, "session-handler"),
	}
}

// OpenSession godoc
// @Summary Open a serial session
// @Description Opens a serial port with the given parameters and starts a session on it
// @Tags sessions
// @Accept json
// @Produce json
// @Param request body model.OpenSessionRequest true "Session parameters"
// @Success 201 {object} utils.APIResponse{data=model.Session}
// @Failure 400 {object} utils.APIResponse
// @Failure 409 {object} utils.APIResponse
// @Router /sessions [post]
func (h *SessionHandler) OpenSession(c *gin.Context) {
	var req model.OpenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	session, err := h.sessionService.Open(c.Request.Context(), &req)
	if err != nil {
		if strings.Contains(err.Error(), "already in use") {
			utils.ErrorResponse(c, http.StatusConflict, "Port already in use", err)
			return
		}
		utils.ErrorResponse(c, http.StatusBadRequest, "Failed to open session", err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Session opened", session)
}

// ListSessions godoc
// @Summary List sessions
// @Description Lists live sessions, or recent sessions from the store when recent=true
// @Tags sessions
// @Produce json
// @Param recent query bool false "Include closed sessions from the store"
// @Param limit query int false "Maximum number of recent sessions" default(20)
// @Success 200 {object} utils.APIResponse{data=[]model.Session}
// @Router /sessions [get]
func (h *SessionHandler) ListSessions(c *gin.Context) {
	if c.Query("recent") == "true" {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		sessions, err := h.sessionService.ListRecent(c.Request.Context(), limit)
		if err != nil {
			utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list sessions", err)
			return
		}
		utils.SuccessResponse(c, http.StatusOK, "Sessions retrieved", sessions)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Sessions retrieved", h.sessionService.ListActive())
}

// GetSession godoc
// @Summary Get session details
// @Tags sessions
// @Produce json
// @Param session_id path string true "Session ID"
// @Success 200 {object} utils.APIResponse{data=model.Session}
// @Failure 404 {object} utils.APIResponse
// @Router /sessions/{session_id} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		return
	}

	session, err := h.sessionService.Get(c.Request.Context(), id)
	if err != nil {
		utils.ErrorResponse(c, http.StatusNotFound, "Session not found", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Session retrieved", session)
}

// CloseSession godoc
// @Summary Close a session
// @Description Closes the session's serial port and marks the session closed
// @Tags sessions
// @Produce json
// @Param session_id path string true "Session ID"
// @Success 200 {object} utils.APIResponse
// @Failure 404 {object} utils.APIResponse
// @Router /sessions/{session_id} [delete]
func (h *SessionHandler) CloseSession(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		return
	}

	if err := h.sessionService.Close(c.Request.Context(), id); err != nil {
		utils.ErrorResponse(c, http.StatusNotFound, "Session not found", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Session closed", nil)
}

// GetTranscript godoc
// @Summary Get a session's transcript
// @Description Returns a page of the session's transcript, oldest entries first
// @Tags sessions
// @Produce json
// @Param session_id path string true "Session ID"
// @Param direction query string false "Filter by direction (TX or RX)"
// @Param outcome query string false "Filter by outcome (OK, TIMEOUT, DECODE_ERROR, CONNECTION_ERROR)"
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Entries per page" default(100)
// @Success 200 {object} utils.APIResponse
// @Failure 404 {object} utils.APIResponse
// @Router /sessions/{session_id}/transcript [get]
func (h *SessionHandler) GetTranscript(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		return
	}

	filter := repository.DefaultTranscriptFilter()
	filter.Direction = model.Direction(c.Query("direction"))
	filter.Outcome = model.Outcome(c.Query("outcome"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if perPage, err := strconv.Atoi(c.DefaultQuery("per_page", "100")); err == nil {
		filter.PerPage = perPage
	}

	entries, total, err := h.exchangeService.Transcript(c.Request.Context(), id, filter)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to get transcript", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Transcript retrieved", gin.H{
		"entries":  entries,
		"total":    total,
		"page":     filter.Page,
		"per_page": filter.PerPage,
	})
}

// parseSessionID parses the session_id path parameter
func parseSessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "session_id must be a valid UUID", err)
		return uuid.Nil, false
	}
	return id, true
}
