package canbus

import "codeberg.org/mutker/obdmon/internal/errors"

// Disconnected is the bus used when interface initialization fails.
// Polling proceeds regardless; every send fails and the replies never
// come, so all samples fold into the "off" bucket.
type Disconnected struct{}

func (Disconnected) Send(uint32, [8]byte) error {
	return errors.WithMessage(ErrBusSend, "CAN interface not connected")
}

func (Disconnected) TryReceive() (Frame, bool) {
	return Frame{}, false
}

func (Disconnected) Close() error {
	return nil
}
