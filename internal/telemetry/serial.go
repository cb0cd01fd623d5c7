// Package telemetry ingests odometry from the flight controller's serial
// link. Frames are line-oriented, either CSV or JSON; malformed frames are
// a protocol error rejected here, before they reach the planning core.
package telemetry

import (
	"bufio"
	"context"

	"go.bug.st/serial"

	"github.com/banshee-data/kinoreplan/internal/monitoring"
	"github.com/banshee-data/kinoreplan/internal/plan"
)

// OdometryPort reads odometry frames from a serial port and delivers the
// parsed updates on a channel.
type OdometryPort struct {
	serial.Port
	updates chan plan.Odometry
}

// NewOdometryPort opens the named serial port at flight-controller line
// settings.
func NewOdometryPort(portName string) (*OdometryPort, error) {
	mode := &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: 1,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, err
	}

	return &OdometryPort{Port: port, updates: make(chan plan.Odometry)}, nil
}

// Updates returns the channel of parsed odometry updates produced by
// Monitor.
func (p *OdometryPort) Updates() <-chan plan.Odometry {
	return p.updates
}

// Close closes the serial port.
func (p *OdometryPort) Close() error {
	return p.Port.Close()
}

// Monitor reads lines from the serial port until ctx is cancelled, parsing
// each into an odometry update. Unparseable lines are logged and dropped;
// the link keeps running. Cancellation closes the port so a silent link
// cannot leave the scanner blocked in a read.
func (p *OdometryPort) Monitor(ctx context.Context) error {
	defer p.Close()
	stop := context.AfterFunc(ctx, func() { p.Port.Close() })
	defer stop()

	scan := bufio.NewScanner(p.Port)
	for scan.Scan() {
		odom, err := ParseOdometryFrame(scan.Text())
		if err != nil {
			monitoring.Logf("telemetry: dropped frame: %v", err)
			continue
		}

		select {
		case p.updates <- odom:
		case <-ctx.Done():
			return nil
		}
	}

	if ctx.Err() != nil {
		return nil
	}
	return scan.Err()
}
