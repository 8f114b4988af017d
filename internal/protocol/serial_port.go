// internal/protocol/serial_port.go
package protocol

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/acascioli/serial-chiller/internal/model"
)

// maxResponseBytes bounds a single ReadUntil. The chiller answers with short
// ASCII lines; anything longer is a framing problem, not a response.
const maxResponseBytes = 512

// SerialPort implements Port over a physical or virtual serial device
type SerialPort struct {
	params model.SerialParams
	port   serial.Port
	logger *zap.Logger
	mutex  sync.RWMutex
	isOpen bool
	stats  *PortStats
}

// NewSerialPort creates a new serial port with the given session parameters
func NewSerialPort(params model.SerialParams, logger *zap.Logger) *SerialPort {
	return &SerialPort{
		params: params,
		logger: logger.With(
			zap.String("protocol", "serial"),
			zap.String("port", params.Port),
		),
		stats: &PortStats{
			IsConnected: false,
		},
	}
}

// Open opens the serial port
func (sp *SerialPort) Open(ctx context.Context) error {
	sp.mutex.Lock()
	defer sp.mutex.Unlock()

	if sp.isOpen {
		return nil
	}

	sp.logger.Info("Opening serial port",
		zap.String("port", sp.params.Port),
		zap.Int("baud_rate", sp.params.BaudRate),
		zap.Int("data_bits", sp.params.DataBits),
		zap.String("parity", string(sp.params.Parity)),
		zap.String("stop_bits", string(sp.params.StopBits)),
	)

	mode := &serial.Mode{
		BaudRate: sp.params.BaudRate,
		DataBits: sp.params.DataBits,
	}

	switch sp.params.Parity {
	case model.ParityOdd:
		mode.Parity = serial.OddParity
	case model.ParityEven:
		mode.Parity = serial.EvenParity
	default:
		mode.Parity = serial.NoParity
	}

	switch sp.params.StopBits {
	case model.StopBitsOnePointFive:
		mode.StopBits = serial.OnePointFiveStopBits
	case model.StopBitsTwo:
		mode.StopBits = serial.TwoStopBits
	default:
		mode.StopBits = serial.OneStopBit
	}

	port, err := serial.Open(sp.params.Port, mode)
	if err != nil {
		sp.logger.Error("Failed to open serial port", zap.Error(err))
		return fmt.Errorf("failed to open serial port %s: %w", sp.params.Port, err)
	}

	// Individual reads block for at most the configured timeout; ReadUntil
	// applies the same window across the whole response.
	if err := port.SetReadTimeout(sp.params.ReadTimeout); err != nil {
		port.Close()
		return fmt.Errorf("failed to set read timeout: %w", err)
	}

	sp.port = port
	sp.isOpen = true
	sp.stats.IsConnected = true
	sp.stats.LastActivity = time.Now()

	sp.logger.Info("Serial port opened successfully")
	return nil
}

// Close closes the serial port
func (sp *SerialPort) Close() error {
	sp.mutex.Lock()
	defer sp.mutex.Unlock()

	if !sp.isOpen || sp.port == nil {
		return nil
	}

	if err := sp.port.Close(); err != nil {
		sp.logger.Error("Failed to close serial port", zap.Error(err))
		return fmt.Errorf("failed to close serial port: %w", err)
	}

	sp.port = nil
	sp.isOpen = false
	sp.stats.IsConnected = false

	sp.logger.Info("Serial port closed")
	return nil
}

// IsOpen returns whether the port is open
func (sp *SerialPort) IsOpen() bool {
	sp.mutex.RLock()
	defer sp.mutex.RUnlock()
	return sp.isOpen && sp.port != nil
}

// Write writes data to the serial port, pacing bytes when a per-byte delay
// is configured. The transmitted bytes are identical either way; only the
// timing changes.
func (sp *SerialPort) Write(ctx context.Context, data []byte) error {
	sp.mutex.RLock()
	port := sp.port
	open := sp.isOpen
	sp.mutex.RUnlock()

	if !open || port == nil {
		return ErrPortClosed
	}

	startTime := time.Now()

	if sp.params.ByteDelay > 0 {
		for i, b := range data {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			if _, err := port.Write([]byte{b}); err != nil {
				sp.stats.ErrorCount++
				sp.logger.Error("Serial write failed", zap.Error(err))
				return fmt.Errorf("failed to write to serial port: %w", err)
			}
			if err := port.Drain(); err != nil {
				return fmt.Errorf("failed to drain serial port: %w", err)
			}
			if i < len(data)-1 {
				time.Sleep(sp.params.ByteDelay)
			}
		}
	} else {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := port.Write(data)
		if err != nil {
			sp.stats.ErrorCount++
			sp.logger.Error("Serial write failed", zap.Error(err))
			return fmt.Errorf("failed to write to serial port: %w", err)
		}
		if n != len(data) {
			return fmt.Errorf("incomplete write: wrote %d of %d bytes", n, len(data))
		}
		if err := port.Drain(); err != nil {
			return fmt.Errorf("failed to drain serial port: %w", err)
		}
	}

	duration := time.Since(startTime)
	sp.stats.BytesWritten += int64(len(data))
	sp.stats.OperationCount++
	sp.stats.LastActivity = time.Now()
	sp.updateAverageLatency(duration)

	sp.logger.Debug("Serial write completed", zap.Int("bytes", len(data)))
	return nil
}

// ReadUntil reads from the port until delim, the read timeout, or ctx
// cancellation. Closing the port from another goroutine unblocks the
// pending read with ErrPortClosed.
func (sp *SerialPort) ReadUntil(ctx context.Context, delim byte) ([]byte, error) {
	sp.mutex.RLock()
	port := sp.port
	open := sp.isOpen
	sp.mutex.RUnlock()

	if !open || port == nil {
		return nil, ErrPortClosed
	}

	deadline := time.Now().Add(sp.params.ReadTimeout)
	collected := make([]byte, 0, 64)
	buf := make([]byte, 1)

	for {
		select {
		case <-ctx.Done():
			return collected, ctx.Err()
		default:
		}

		n, err := port.Read(buf)
		if err != nil {
			sp.stats.ErrorCount++
			return collected, fmt.Errorf("%w: %v", ErrPortClosed, err)
		}

		if n > 0 {
			collected = append(collected, buf[0])
			sp.stats.BytesRead++
			sp.stats.LastActivity = time.Now()

			if buf[0] == delim {
				sp.stats.OperationCount++
				return collected, nil
			}
			if len(collected) >= maxResponseBytes {
				sp.logger.Warn("Response exceeded maximum length without terminator",
					zap.Int("bytes", len(collected)))
				return collected, nil
			}
			continue
		}

		// n == 0 means the driver-level timeout expired without data
		if time.Now().After(deadline) {
			return collected, nil
		}
	}
}

// Stats returns port statistics
func (sp *SerialPort) Stats() *PortStats {
	sp.mutex.RLock()
	defer sp.mutex.RUnlock()
	statsCopy := *sp.stats
	return &statsCopy
}

// updateAverageLatency updates the running average latency
func (sp *SerialPort) updateAverageLatency(newLatency time.Duration) {
	if sp.stats.AverageLatency == 0 {
		sp.stats.AverageLatency = newLatency
	} else {
		sp.stats.AverageLatency = (sp.stats.AverageLatency + newLatency) / 2
	}
}
