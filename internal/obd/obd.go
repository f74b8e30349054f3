// Package obd holds the OBD-II mode 01 request and reply definitions for
// the two quantities this monitor tracks.
package obd

import "codeberg.org/mutker/obdmon/internal/canbus"

// Quantity identifies which tracked value a sample, request, or statistic
// belongs to.
type Quantity int

const (
	RPM Quantity = iota
	Speed

	QuantityCount = 2
)

func (q Quantity) String() string {
	switch q {
	case RPM:
		return "rpm"
	case Speed:
		return "speed"
	default:
		return "unknown"
	}
}

const (
	// ServiceCurrentData is OBD-II mode 1: show current data.
	ServiceCurrentData = 0x01

	// RequestID is the 11-bit broadcast CAN ID for OBD-II requests to the
	// primary ECU; ReplyID is the primary ECU's response ID.
	RequestID uint32 = 0x7DF
	ReplyID   uint32 = 0x7E8

	// SAE standard PID codes (8-bit; proprietary ones are 16-bit)
	PIDEngineRPM    = 0x0C
	PIDVehicleSpeed = 0x0D

	serviceResponse = 0x41
)

// Request payloads are fixed at startup: length, service, PID, padding.
var requests = [QuantityCount][8]byte{
	RPM:   {0x02, ServiceCurrentData, PIDEngineRPM, 0xCC, 0xCC, 0xCC, 0xCC, 0xCC},
	Speed: {0x02, ServiceCurrentData, PIDVehicleSpeed, 0x55, 0x55, 0x55, 0x55, 0x55},
}

// Length codes expected in byte 0 of a mode 01 reply: service + PID + data
var replyLengths = [QuantityCount]byte{
	RPM:   0x04,
	Speed: 0x03,
}

var pids = [QuantityCount]byte{
	RPM:   PIDEngineRPM,
	Speed: PIDVehicleSpeed,
}

// Request returns the fixed 8-byte request payload for a quantity.
func Request(q Quantity) [8]byte {
	return requests[q]
}

// DecodeReply validates a received frame as a mode 01 reply for one of the
// tracked quantities and decodes its value. Frames that do not match are
// reported as ok=false; they may belong to other ECUs or services and are
// not an error.
func DecodeReply(frame canbus.Frame) (q Quantity, value int, ok bool) {
	if frame.Extended || frame.ID != ReplyID {
		return 0, 0, false
	}
	if frame.Data[1] != serviceResponse {
		return 0, 0, false
	}

	switch {
	case frame.Data[0] == replyLengths[RPM] && frame.Data[2] == pids[RPM]:
		// RPM is a big-endian 16-bit value in quarter revolutions
		value = int(frame.Data[3])<<8 | int(frame.Data[4])
		value /= 4

		return RPM, value, true
	case frame.Data[0] == replyLengths[Speed] && frame.Data[2] == pids[Speed]:
		// Speed is a single byte in km/h
		return Speed, int(frame.Data[3]), true
	default:
		return 0, 0, false
	}
}
