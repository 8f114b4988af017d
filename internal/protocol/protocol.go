// internal/protocol/protocol.go
package protocol

import (
	"context"
	"errors"
	"time"
)

// ErrPortClosed is returned when an operation hits a closed or disconnected
// port. A pending ReadUntil unblocks with this error when Close is called.
var ErrPortClosed = errors.New("serial port closed")

// Port represents one end of a serial link. Implementations apply the
// session's configured parameters: Write paces bytes by the configured
// per-byte delay, ReadUntil is bounded by the configured read timeout.
type Port interface {
	// Connection lifecycle
	Open(ctx context.Context) error
	Close() error
	IsOpen() bool

	// Data communication
	Write(ctx context.Context, data []byte) error
	// ReadUntil collects bytes until delim is seen or the read timeout
	// elapses. A timeout is not an error: it returns whatever arrived,
	// possibly nothing.
	ReadUntil(ctx context.Context, delim byte) ([]byte, error)

	// Health and diagnostics
	Stats() *PortStats
}

// PortStats provides port-level statistics
type PortStats struct {
	BytesWritten   int64         `json:"bytes_written"`
	BytesRead      int64         `json:"bytes_read"`
	OperationCount int64         `json:"operation_count"`
	ErrorCount     int64         `json:"error_count"`
	LastActivity   time.Time     `json:"last_activity"`
	AverageLatency time.Duration `json:"average_latency"`
	IsConnected    bool          `json:"is_connected"`
}
