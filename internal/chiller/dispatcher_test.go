// internal/chiller/dispatcher_test.go
package chiller

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/acascioli/serial-chiller/internal/model"
	"github.com/acascioli/serial-chiller/internal/protocol"
	"github.com/acascioli/serial-chiller/internal/simulator"
)

func testParams(readTimeout time.Duration) model.SerialParams {
	return model.SerialParams{
		Port:        "loopback",
		BaudRate:    4800,
		DataBits:    7,
		Parity:      model.ParityNone,
		StopBits:    model.StopBitsTwo,
		ReadTimeout: readTimeout,
		Terminator:  model.TerminatorCR,
	}
}

func testSession(params model.SerialParams) *model.Session {
	return &model.Session{
		ID:       uuid.New(),
		Params:   params,
		Status:   model.SessionStatusOpen,
		OpenedAt: time.Now(),
	}
}

func TestExchange_RoundTripWithSimulator(t *testing.T) {
	params := testParams(2 * time.Second)
	port, endpoint := protocol.NewLoopbackPair(params)
	require.NoError(t, port.Open(context.Background()))
	defer port.Close()

	table := simulator.NewCommandTable(nil, "")
	responder := simulator.NewResponder(table, 0, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go responder.Run(ctx, endpoint)

	dispatcher := NewDispatcher(zap.NewNop())
	session := testSession(params)

	exchange, err := dispatcher.Exchange(ctx, port, session, "in_sp_00")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeOK, exchange.Outcome)
	assert.Equal(t, "2.00", exchange.Response)
	assert.Equal(t, []byte("2.00\r\n"), exchange.RawRx)

	// One call is one full round trip; a second exchange reuses the port
	exchange, err = dispatcher.Exchange(ctx, port, session, "out_sp_00 8.50")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeOK, exchange.Outcome)
	assert.Equal(t, "Setpoint updated to 8.50", exchange.Response)
}

func TestExchange_TimeoutIsOutcomeNotError(t *testing.T) {
	params := testParams(150 * time.Millisecond)
	port, _ := protocol.NewLoopbackPair(params)
	require.NoError(t, port.Open(context.Background()))
	defer port.Close()

	dispatcher := NewDispatcher(zap.NewNop())
	session := testSession(params)

	start := time.Now()
	exchange, err := dispatcher.Exchange(context.Background(), port, session, "in_pv_00")
	waited := time.Since(start)

	require.NoError(t, err, "a silent device is an outcome, not an error")
	assert.Equal(t, model.OutcomeTimeout, exchange.Outcome)
	assert.Empty(t, exchange.RawRx)
	assert.Less(t, waited, 2*time.Second, "timeout must be bounded by the read timeout")
}

func TestExchange_ClosedPortIsConnectionError(t *testing.T) {
	params := testParams(time.Second)
	port, _ := protocol.NewLoopbackPair(params)
	require.NoError(t, port.Open(context.Background()))
	require.NoError(t, port.Close())

	dispatcher := NewDispatcher(zap.NewNop())
	session := testSession(params)

	exchange, err := dispatcher.Exchange(context.Background(), port, session, "status")
	require.Error(t, err)
	assert.Equal(t, model.OutcomeConnErr, exchange.Outcome)
}

func TestExchange_NonASCIIResponseIsDecodeError(t *testing.T) {
	params := testParams(time.Second)
	port, endpoint := protocol.NewLoopbackPair(params)
	require.NoError(t, port.Open(context.Background()))
	defer port.Close()

	// Pre-load garbage on the device side, as if the baud rate were wrong
	_, err := endpoint.Write([]byte{0xFF, 0x01, '\n'})
	require.NoError(t, err)

	dispatcher := NewDispatcher(zap.NewNop())
	session := testSession(params)

	exchange, err := dispatcher.Exchange(context.Background(), port, session, "status")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeDecodeErr, exchange.Outcome)
	assert.Contains(t, exchange.Response, "<undecodable:")
	assert.Equal(t, []byte{0xFF, 0x01, '\n'}, exchange.RawRx, "raw bytes are preserved for diagnosis")
}

func TestExchange_ByteDelayDoesNotAlterContent(t *testing.T) {
	params := testParams(2 * time.Second)
	params.ByteDelay = 2 * time.Millisecond
	port, endpoint := protocol.NewLoopbackPair(params)
	require.NoError(t, port.Open(context.Background()))
	defer port.Close()

	table := simulator.NewCommandTable(nil, "")
	responder := simulator.NewResponder(table, 0, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go responder.Run(ctx, endpoint)

	dispatcher := NewDispatcher(zap.NewNop())
	session := testSession(params)

	start := time.Now()
	exchange, err := dispatcher.Exchange(ctx, port, session, "VERSION")
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, model.OutcomeOK, exchange.Outcome)
	assert.Equal(t, "JULABO_V3.0", exchange.Response, "pacing must never change what goes on the wire")

	// 8 byte frame with 2ms gaps between bytes
	assert.GreaterOrEqual(t, elapsed, 14*time.Millisecond)
}

func TestExchange_CommandDelayWaitsBeforeSend(t *testing.T) {
	params := testParams(2 * time.Second)
	params.CommandDelay = 60 * time.Millisecond
	port, endpoint := protocol.NewLoopbackPair(params)
	require.NoError(t, port.Open(context.Background()))
	defer port.Close()

	table := simulator.NewCommandTable(nil, "")
	responder := simulator.NewResponder(table, 0, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go responder.Run(ctx, endpoint)

	dispatcher := NewDispatcher(zap.NewNop())
	session := testSession(params)

	start := time.Now()
	exchange, err := dispatcher.Exchange(ctx, port, session, "status")
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, "03 REMOTE START", exchange.Response)
	assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond)
}
