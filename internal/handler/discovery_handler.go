// internal/handler/discovery_handler.go
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/acascioli/serial-chiller/internal/service"
	"github.com/acascioli/serial-chiller/internal/utils"
)

// DiscoveryHandler handles serial port discovery HTTP requests
type DiscoveryHandler struct {
	discoveryService *service.DiscoveryService
	logger           *utils.ServiceLogger
}

// NewDiscoveryHandler creates a new discovery handler
func NewDiscoveryHandler(discoveryService *service.DiscoveryService, logger *zap.Logger) *DiscoveryHandler {
	return &DiscoveryHandler{
		discoveryService: discoveryService,
		logger:           utils.NewServiceLogger(logger, "discovery-handler"),
	}
}

// ListPorts godoc
// @Summary List serial ports
// @Description Enumerates the serial ports currently visible on the host, with USB metadata where available
// @Tags discovery
// @Produce json
// @Success 200 {object} utils.APIResponse{data=[]model.PortInfo}
// @Failure 500 {object} utils.APIResponse
// @Router /ports [get]
func (h *DiscoveryHandler) ListPorts(c *gin.Context) {
	ports, err := h.discoveryService.ListPorts()
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to enumerate ports", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Ports retrieved", ports)
}
