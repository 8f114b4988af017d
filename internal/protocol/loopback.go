// internal/protocol/loopback.go
package protocol

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/acascioli/serial-chiller/internal/model"
)

// LoopbackPort is an in-memory Port wired back-to-back with a device-side
// endpoint. It stands in for a virtual serial port pair when exercising the
// dispatcher and the simulator without any OS-level pairing utility.
type LoopbackPort struct {
	params model.SerialParams
	tx     chan byte
	rx     chan byte
	done   chan struct{}
	once   sync.Once
	mutex  sync.RWMutex
	isOpen bool
	stats  *PortStats
}

// loopbackEndpoint is the device-side end of a loopback pair. It satisfies
// io.ReadWriteCloser, the same surface a real serial handle offers the
// simulator.
type loopbackEndpoint struct {
	rx   chan byte
	tx   chan byte
	done chan struct{}
	once *sync.Once
}

// NewLoopbackPair creates a connected pair: the operator-side Port and the
// device-side endpoint
func NewLoopbackPair(params model.SerialParams) (*LoopbackPort, io.ReadWriteCloser) {
	a2b := make(chan byte, 4096)
	b2a := make(chan byte, 4096)
	done := make(chan struct{})

	port := &LoopbackPort{
		params: params,
		tx:     a2b,
		rx:     b2a,
		done:   done,
		stats:  &PortStats{},
	}
	endpoint := &loopbackEndpoint{
		rx:   a2b,
		tx:   b2a,
		done: done,
		once: &port.once,
	}
	return port, endpoint
}

// Open marks the loopback as connected
func (lp *LoopbackPort) Open(ctx context.Context) error {
	lp.mutex.Lock()
	defer lp.mutex.Unlock()
	select {
	case <-lp.done:
		return ErrPortClosed
	default:
	}
	lp.isOpen = true
	lp.stats.IsConnected = true
	return nil
}

// Close tears down both ends; pending reads unblock with ErrPortClosed
func (lp *LoopbackPort) Close() error {
	lp.mutex.Lock()
	defer lp.mutex.Unlock()
	lp.once.Do(func() { close(lp.done) })
	lp.isOpen = false
	lp.stats.IsConnected = false
	return nil
}

// IsOpen returns whether the loopback is connected
func (lp *LoopbackPort) IsOpen() bool {
	lp.mutex.RLock()
	defer lp.mutex.RUnlock()
	return lp.isOpen
}

// Write pushes bytes to the device side, honoring the per-byte delay
func (lp *LoopbackPort) Write(ctx context.Context, data []byte) error {
	if !lp.IsOpen() {
		return ErrPortClosed
	}

	for i, b := range data {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-lp.done:
			return ErrPortClosed
		case lp.tx <- b:
			lp.stats.BytesWritten++
		}
		if lp.params.ByteDelay > 0 && i < len(data)-1 {
			time.Sleep(lp.params.ByteDelay)
		}
	}

	lp.stats.OperationCount++
	lp.stats.LastActivity = time.Now()
	return nil
}

// ReadUntil collects bytes from the device side until delim or timeout
func (lp *LoopbackPort) ReadUntil(ctx context.Context, delim byte) ([]byte, error) {
	if !lp.IsOpen() {
		return nil, ErrPortClosed
	}

	timer := time.NewTimer(lp.params.ReadTimeout)
	defer timer.Stop()

	collected := make([]byte, 0, 64)
	for {
		select {
		case <-ctx.Done():
			return collected, ctx.Err()
		case <-lp.done:
			return collected, ErrPortClosed
		case <-timer.C:
			return collected, nil
		case b := <-lp.rx:
			collected = append(collected, b)
			lp.stats.BytesRead++
			if b == delim || len(collected) >= maxResponseBytes {
				lp.stats.OperationCount++
				return collected, nil
			}
		}
	}
}

// Stats returns port statistics
func (lp *LoopbackPort) Stats() *PortStats {
	lp.mutex.RLock()
	defer lp.mutex.RUnlock()
	statsCopy := *lp.stats
	return &statsCopy
}

// Read blocks until at least one byte arrives or the pair is closed
func (le *loopbackEndpoint) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	select {
	case <-le.done:
		return 0, io.EOF
	case b := <-le.rx:
		p[0] = b
		n := 1
		// Drain whatever else is already buffered without blocking
		for n < len(p) {
			select {
			case nb := <-le.rx:
				p[n] = nb
				n++
			default:
				return n, nil
			}
		}
		return n, nil
	}
}

// Write pushes response bytes toward the operator side
func (le *loopbackEndpoint) Write(p []byte) (int, error) {
	for i, b := range p {
		select {
		case <-le.done:
			return i, io.EOF
		case le.tx <- b:
		}
	}
	return len(p), nil
}

// Close tears down both ends of the pair
func (le *loopbackEndpoint) Close() error {
	le.once.Do(func() { close(le.done) })
	return nil
}
