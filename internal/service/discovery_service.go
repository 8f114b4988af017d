// internal/service/discovery_service.go
package service

import (
	"go.uber.org/zap"

	"github.com/acascioli/serial-chiller/internal/discovery"
	"github.com/acascioli/serial-chiller/internal/model"
)

// DiscoveryService exposes serial port enumeration
type DiscoveryService struct {
	scanner *discovery.Scanner
	logger  *zap.Logger
}

// NewDiscoveryService creates a new discovery service
func NewDiscoveryService(logger *zap.Logger) *DiscoveryService {
	return &DiscoveryService{
		scanner: discovery.NewScanner(logger),
		logger:  logger.With(zap.String("service", "discovery")),
	}
}

// ListPorts returns the serial ports currently visible on the host
func (s *DiscoveryService) ListPorts() ([]model.PortInfo, error) {
	return s.scanner.ListPorts()
}
