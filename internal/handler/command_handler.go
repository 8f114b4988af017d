// internal/handler/command_handler.go
package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/acascioli/serial-chiller/internal/chiller"
	"github.com/acascioli/serial-chiller/internal/model"
	"github.com/acascioli/serial-chiller/internal/service"
	"github.com/acascioli/serial-chiller/internal/utils"
)

// CommandHandler handles command execution HTTP requests
type CommandHandler struct {
	exchangeService *service.ExchangeService
	logger          *utils.ServiceLogger
}

// NewCommandHandler creates a new command handler
func NewCommandHandler(exchangeService *service.ExchangeService, logger *zap.Logger) *CommandHandler {
	return &CommandHandler{
		exchangeService: exchangeService,
		logger:          utils.NewServiceLogger(logger, "command-handler"),
	}
}

// ListCommands godoc
// @Summary List known commands
// @Description Returns the command catalog the service knows how to validate
// @Tags commands
// @Produce json
// @Success 200 {object} utils.APIResponse{data=[]model.CommandSpec}
// @Router /commands [get]
func (h *CommandHandler) ListCommands(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Commands retrieved", h.exchangeService.Catalog())
}

// ExecuteCommand godoc
// @Summary Execute a command on a session
// @Description Runs one command/response round trip on the session's port and records both directions in the transcript. Timeouts and undecodable responses are reported in the exchange outcome, not as HTTP errors.
// @Tags commands
// @Accept json
// @Produce json
// @Param session_id path string true "Session ID"
// @Param request body model.CommandRequest true "Command to execute"
// @Success 200 {object} utils.APIResponse
// @Failure 400 {object} utils.APIResponse
// @Failure 404 {object} utils.APIResponse
// @Failure 503 {object} utils.APIResponse
// @Router /sessions/{session_id}/commands [post]
func (h *CommandHandler) ExecuteCommand(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		return
	}

	var req model.CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" && req.Raw == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "name or raw is required", nil)
		return
	}

	exchange, err := h.exchangeService.Execute(c.Request.Context(), id, &req)
	if err != nil {
		if exchange != nil {
			// the command hit the wire before the port died
			utils.ErrorResponse(c, http.StatusServiceUnavailable, "Connection lost during exchange", err)
			return
		}
		if strings.Contains(err.Error(), "not found") {
			utils.ErrorResponse(c, http.StatusNotFound, "Session not found", err)
			return
		}
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid command", err)
		return
	}

	data := gin.H{"exchange": exchange}
	if exchange.Outcome == model.OutcomeOK {
		if reading, ok := chiller.ParseReading(exchange.Response); ok {
			data["reading"] = reading
		}
	}

	utils.SuccessResponse(c, http.StatusOK, "Command executed", data)
}
