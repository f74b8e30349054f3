package canbus

import (
	"codeberg.org/mutker/obdmon/internal/errors"
	"codeberg.org/mutker/obdmon/internal/logger"
	"github.com/brutella/can"
)

// Pending frames buffered between loop iterations. The ECU answers one
// frame per request at 10Hz per quantity, so a small queue is plenty.
const rxQueueDepth = 16

const extendedFlag = 0x80000000

type socketBus struct {
	bus    *can.Bus
	rx     chan Frame
	closed chan struct{}
}

// NewSocketCAN opens a SocketCAN interface. The bitrate is a property of
// the link itself (ip link set <name> type can bitrate <n>) and must be
// configured before the daemon starts; OBD-II buses run at 500 kbit/s.
func NewSocketCAN(name string) (Bus, error) {
	bus, err := can.NewBusForInterfaceWithName(name)
	if err != nil {
		return nil, errors.Wrap(ErrBusInit, err)
	}

	s := &socketBus{
		bus:    bus,
		rx:     make(chan Frame, rxQueueDepth),
		closed: make(chan struct{}),
	}
	bus.SubscribeFunc(s.handleFrame)

	go func() {
		if err := bus.ConnectAndPublish(); err != nil {
			select {
			case <-s.closed:
				// Disconnect during Close; not a fault
			default:
				logger.Error().Err(err).Msg("CAN receive loop terminated")
			}
		}
	}()

	logger.Info().Str("interface", name).Msg("CAN interface opened")

	return s, nil
}

func (s *socketBus) handleFrame(frm can.Frame) {
	f := Frame{
		ID:       frm.ID &^ extendedFlag,
		Length:   frm.Length,
		Extended: frm.ID&extendedFlag != 0,
		Data:     frm.Data,
	}

	select {
	case s.rx <- f:
	default:
		// Queue full; the loop thread has stalled. Drop the frame rather
		// than block the bus callback.
	}
}

func (s *socketBus) Send(id uint32, payload [8]byte) error {
	frm := can.Frame{
		ID:     id,
		Length: 8,
		Data:   payload,
	}
	if err := s.bus.Publish(frm); err != nil {
		return errors.Wrap(ErrBusSend, err)
	}

	return nil
}

func (s *socketBus) TryReceive() (Frame, bool) {
	select {
	case f := <-s.rx:
		return f, true
	default:
		return Frame{}, false
	}
}

func (s *socketBus) Close() error {
	close(s.closed)
	if err := s.bus.Disconnect(); err != nil {
		return errors.Wrap(ErrBusClose, err)
	}

	return nil
}
