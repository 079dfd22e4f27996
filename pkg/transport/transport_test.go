package transport

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listenLoopback(t *testing.T) *UDPConn {
	t.Helper()
	conn, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestUDPConn_SendReceive(t *testing.T) {
	a := listenLoopback(t)
	b := listenLoopback(t)

	require.NoError(t, a.Send([]byte(`{"Type":"Hello","Content":"20"}`), b.LocalAddr()))

	res := b.Receive(time.Second)
	require.Equal(t, Received, res.Status, "err: %v", res.Err)
	assert.Equal(t, `{"Type":"Hello","Content":"20"}`, string(res.Payload))
	assert.True(t, SameEndpoint(a.LocalAddr(), res.From))
}

func TestUDPConn_PayloadIsNotAliased(t *testing.T) {
	a := listenLoopback(t)
	b := listenLoopback(t)

	require.NoError(t, a.Send([]byte("first"), b.LocalAddr()))
	require.NoError(t, a.Send([]byte("2nd"), b.LocalAddr()))

	first := b.Receive(time.Second)
	second := b.Receive(time.Second)
	require.Equal(t, Received, first.Status)
	require.Equal(t, Received, second.Status)
	assert.Equal(t, "first", string(first.Payload))
	assert.Equal(t, "2nd", string(second.Payload))
}

func TestUDPConn_ReceiveTimesOut(t *testing.T) {
	conn := listenLoopback(t)

	start := time.Now()
	res := conn.Receive(50 * time.Millisecond)

	assert.Equal(t, TimedOut, res.Status)
	assert.NoError(t, res.Err)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestUDPConn_InterruptUnblocksReceiveAndKeepsSending(t *testing.T) {
	a := listenLoopback(t)
	b := listenLoopback(t)

	done := make(chan Result, 1)
	go func() { done <- a.Receive(time.Minute) }()
	time.Sleep(20 * time.Millisecond)
	a.Interrupt()

	select {
	case res := <-done:
		assert.Equal(t, TimedOut, res.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("Receive still blocked after Interrupt")
	}
	assert.Equal(t, TimedOut, a.Receive(time.Minute).Status, "later receives time out at once")

	require.NoError(t, a.Send([]byte("bye"), b.LocalAddr()))
	res := b.Receive(time.Second)
	require.Equal(t, Received, res.Status, "err: %v", res.Err)
	assert.Equal(t, "bye", string(res.Payload))
}

func TestUDPConn_ReceiveAfterClose(t *testing.T) {
	conn, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	res := conn.Receive(50 * time.Millisecond)
	assert.Equal(t, Failed, res.Status)
	assert.True(t, errors.Is(res.Err, net.ErrClosed), "got %v", res.Err)
}

func TestListen_BadAddress(t *testing.T) {
	_, err := Listen("not-an-address")
	assert.Error(t, err)
}

func TestSameEndpoint(t *testing.T) {
	a := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 32000}
	b := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 32000}
	c := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 32001}

	assert.True(t, SameEndpoint(a, b))
	assert.False(t, SameEndpoint(a, c))
	assert.False(t, SameEndpoint(a, nil))
	assert.True(t, SameEndpoint(nil, nil))
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "received", Received.String())
	assert.Equal(t, "timed_out", TimedOut.String())
	assert.Equal(t, "failed", Failed.String())
}
