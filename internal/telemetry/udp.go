package telemetry

import (
	"encoding/json"
	"fmt"
	"net"

	"github.com/banshee-data/kinoreplan/internal/monitoring"
	"github.com/banshee-data/kinoreplan/internal/plan"
)

// replanSignal is the zero-payload replan notification datagram.
var replanSignal = []byte(`{"replan":true}`)

// UDPPublisher sends trajectory messages and replan signals as JSON
// datagrams to the downstream executor. UDP writes do not block, which is
// what the controller tick requires of its publisher.
type UDPPublisher struct {
	conn net.Conn
}

// NewUDPPublisher dials the executor address, e.g. "127.0.0.1:9870".
func NewUDPPublisher(addr string) (*UDPPublisher, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("dialing trajectory endpoint: %w", err)
	}
	return &UDPPublisher{conn: conn}, nil
}

// Close closes the underlying socket.
func (p *UDPPublisher) Close() error {
	return p.conn.Close()
}

// PublishTrajectory sends one trajectory message.
func (p *UDPPublisher) PublishTrajectory(msg *plan.TrajectoryMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding trajectory message: %w", err)
	}
	if _, err := p.conn.Write(data); err != nil {
		return fmt.Errorf("sending trajectory message: %w", err)
	}
	return nil
}

// SignalReplan sends the replan notification. Send failures are logged and
// dropped; the signal is advisory.
func (p *UDPPublisher) SignalReplan() {
	if _, err := p.conn.Write(replanSignal); err != nil {
		monitoring.Logf("replan signal send failed: %v", err)
	}
}
