// internal/simulator/responder_test.go
package simulator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/acascioli/serial-chiller/internal/model"
	"github.com/acascioli/serial-chiller/internal/protocol"
)

func startResponder(t *testing.T, replyDelay time.Duration) (*protocol.LoopbackPort, chan error) {
	t.Helper()

	params := model.SerialParams{
		Port:        "loopback",
		ReadTimeout: 2 * time.Second,
		Terminator:  model.TerminatorCR,
	}
	port, endpoint := protocol.NewLoopbackPair(params)
	require.NoError(t, port.Open(context.Background()))

	responder := NewResponder(NewCommandTable(nil, ""), replyDelay, zap.NewNop())

	done := make(chan error, 1)
	go func() {
		done <- responder.Run(context.Background(), endpoint)
	}()

	// Closing the pair unblocks the responder's read with EOF
	t.Cleanup(func() { port.Close() })

	return port, done
}

func ask(t *testing.T, port *protocol.LoopbackPort, command string) string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, port.Write(ctx, []byte(command+"\r")))
	raw, err := port.ReadUntil(ctx, '\n')
	require.NoError(t, err)
	return string(raw)
}

func TestResponder_AnswersWithCRLF(t *testing.T) {
	port, _ := startResponder(t, 0)

	assert.Equal(t, "03 REMOTE START\r\n", ask(t, port, "status"))
	assert.Equal(t, "2.00\r\n", ask(t, port, "in_sp_00"))
}

func TestResponder_UnknownCommandGetsDefault(t *testing.T) {
	port, _ := startResponder(t, 0)

	assert.Equal(t, "OK\r\n", ask(t, port, "in_xx_77"))
}

func TestResponder_SurvivesMalformedInput(t *testing.T) {
	port, _ := startResponder(t, 0)

	// Non-ASCII frame is dropped without a reply
	ctx := context.Background()
	require.NoError(t, port.Write(ctx, []byte{0xFF, 0xFE, '\r'}))

	// Bare delimiters are skipped as empty lines
	require.NoError(t, port.Write(ctx, []byte("\r\r")))

	// The loop must still be serving afterwards
	assert.Equal(t, "JULABO_V3.0\r\n", ask(t, port, "VERSION"))
}

func TestResponder_CRLFClientsTolerated(t *testing.T) {
	port, _ := startResponder(t, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// The LF of a CRLF-framed command leaks into the next frame and must
	// be stripped there
	require.NoError(t, port.Write(ctx, []byte("status\r\n")))
	raw, err := port.ReadUntil(ctx, '\n')
	require.NoError(t, err)
	assert.Equal(t, "03 REMOTE START\r\n", string(raw))

	assert.Equal(t, "2.00\r\n", ask(t, port, "in_sp_00"))
}

func TestResponder_ReplyDelay(t *testing.T) {
	port, _ := startResponder(t, 50*time.Millisecond)

	start := time.Now()
	response := ask(t, port, "status")
	elapsed := time.Since(start)

	assert.Equal(t, "03 REMOTE START\r\n", response)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
}

func TestResponder_StopsOnPortClose(t *testing.T) {
	port, done := startResponder(t, 0)

	require.NoError(t, port.Close())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("responder did not stop")
	}
}

// stubTransport blocks reads until released, then fails them with a fixed
// error, the way a serial driver reports a port closed under a pending read
type stubTransport struct {
	release chan struct{}
	readErr error
}

func (s *stubTransport) Read(p []byte) (int, error) {
	<-s.release
	return 0, s.readErr
}

func (s *stubTransport) Write(p []byte) (int, error) { return len(p), nil }

func (s *stubTransport) Close() error { return nil }

func TestResponder_DriverErrorAfterShutdownIsCleanStop(t *testing.T) {
	transport := &stubTransport{
		release: make(chan struct{}),
		readErr: errors.New("Port has been closed"),
	}
	responder := NewResponder(NewCommandTable(nil, ""), 0, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- responder.Run(ctx, transport)
	}()

	// Shutdown order: cancel first, then the port teardown fails the read
	cancel()
	close(transport.release)

	select {
	case err := <-done:
		assert.NoError(t, err, "a read error during shutdown is a clean stop")
	case <-time.After(time.Second):
		t.Fatal("responder did not stop")
	}
}

func TestResponder_DriverErrorWithoutShutdownIsSurfaced(t *testing.T) {
	transport := &stubTransport{
		release: make(chan struct{}),
		readErr: errors.New("device reports readiness to read but returned no data"),
	}
	responder := NewResponder(NewCommandTable(nil, ""), 0, zap.NewNop())

	done := make(chan error, 1)
	go func() {
		done <- responder.Run(context.Background(), transport)
	}()

	close(transport.release)

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read command")
	case <-time.After(time.Second):
		t.Fatal("responder did not stop")
	}
}
