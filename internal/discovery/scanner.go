// internal/discovery/scanner.go
package discovery

import (
	"fmt"
	"sort"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"

	"github.com/acascioli/serial-chiller/internal/model"
)

// Scanner enumerates serial ports on the host
type Scanner struct {
	logger *zap.Logger
}

// NewScanner creates a new port scanner
func NewScanner(logger *zap.Logger) *Scanner {
	return &Scanner{
		logger: logger.With(zap.String("component", "discovery")),
	}
}

// ListPorts returns all serial ports visible on the host, sorted by name.
// USB metadata is attached where the platform exposes it.
func (s *Scanner) ListPorts() ([]model.PortInfo, error) {
	names, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	details := make(map[string]*enumerator.PortDetails)
	if detailed, err := enumerator.GetDetailedPortsList(); err != nil {
		// fall back to bare names when detailed enumeration is unsupported
		s.logger.Debug("Detailed port enumeration unavailable", zap.Error(err))
	} else {
		for _, d := range detailed {
			details[d.Name] = d
		}
	}

	ports := make([]model.PortInfo, 0, len(names))
	for _, name := range names {
		info := model.PortInfo{Name: name}
		if d, ok := details[name]; ok {
			info.IsUSB = d.IsUSB
			info.VID = d.VID
			info.PID = d.PID
			info.SerialNumber = d.SerialNumber
			info.Product = d.Product
		}
		ports = append(ports, info)
	}

	sort.Slice(ports, func(i, j int) bool { return ports[i].Name < ports[j].Name })

	s.logger.Debug("Enumerated serial ports", zap.Int("count", len(ports)))
	return ports, nil
}
