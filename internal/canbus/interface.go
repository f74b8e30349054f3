// Package canbus provides the CAN bus capability used by the monitor:
// fire-and-forget sends and non-blocking receive polling.
package canbus

import "codeberg.org/mutker/obdmon/internal/errors"

// Frame is a received CAN frame.
type Frame struct {
	ID       uint32
	Length   uint8
	Extended bool
	Data     [8]byte
}

// Bus represents a CAN bus connection. Send and TryReceive never block;
// TryReceive returns false when no frame is pending.
type Bus interface {
	Send(id uint32, payload [8]byte) error
	TryReceive() (Frame, bool)
	Close() error
}

const (
	ErrBusInit  = errors.ErrorCode("canbus_init_failed")
	ErrBusSend  = errors.ErrorCode("canbus_send_failed")
	ErrBusClose = errors.ErrorCode("canbus_close_failed")
)
