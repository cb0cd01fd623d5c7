package telemetry

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/kinoreplan/internal/plan"
)

// listenUDP opens a loopback listener and returns it with its address.
func listenUDP(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readDatagram(t *testing.T, conn *net.UDPConn) []byte {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 64*1024)
	n, _, err := conn.ReadFromUDP(buf)
	require.NoError(t, err)
	return buf[:n]
}

func TestUDPPublisher_PublishTrajectory(t *testing.T) {
	listener := listenUDP(t)

	pub, err := NewUDPPublisher(listener.LocalAddr().String())
	require.NoError(t, err)
	defer pub.Close()

	msg := &plan.TrajectoryMessage{
		Order:        plan.CurveOrder,
		TrajectoryID: 7,
		Knots:        []float64{0, 0, 1, 1},
	}
	require.NoError(t, pub.PublishTrajectory(msg))

	var got plan.TrajectoryMessage
	require.NoError(t, json.Unmarshal(readDatagram(t, listener), &got))
	assert.Equal(t, int64(7), got.TrajectoryID)
	assert.Equal(t, plan.CurveOrder, got.Order)
}

func TestUDPPublisher_SignalReplan(t *testing.T) {
	listener := listenUDP(t)

	pub, err := NewUDPPublisher(listener.LocalAddr().String())
	require.NoError(t, err)
	defer pub.Close()

	pub.SignalReplan()

	var got map[string]bool
	require.NoError(t, json.Unmarshal(readDatagram(t, listener), &got))
	assert.True(t, got["replan"])
}
