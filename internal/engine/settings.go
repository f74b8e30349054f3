package engine

import (
	"sync/atomic"

	"codeberg.org/mutker/obdmon/internal/errors"
	"codeberg.org/mutker/obdmon/internal/obd"
)

const (
	maxIdleRPM     = 10000
	maxIdleSpeed   = 300
	maxFastPublish = 3600000
)

const ErrSettingOutOfRange = errors.ErrorCode("engine_setting_out_of_range")

// Settings holds the cloud-synchronized engine parameters. The control
// loop is the only reader; the cloud layer writes whole values from its
// own goroutine, hence the atomics.
type Settings struct {
	idleRPM     atomic.Int64
	idleSpeed   atomic.Int64
	fastPublish atomic.Int64
}

func NewSettings(idleRPM, idleSpeed, fastPublishMillis int) *Settings {
	s := &Settings{}
	s.idleRPM.Store(int64(idleRPM))
	s.idleSpeed.Store(int64(idleSpeed))
	s.fastPublish.Store(int64(fastPublishMillis))

	return s
}

// IdleRPM is the idle threshold for engine RPM in revolutions per minute.
func (s *Settings) IdleRPM() int {
	return int(s.idleRPM.Load())
}

// IdleSpeed is the idle threshold for vehicle speed in km/h.
func (s *Settings) IdleSpeed() int {
	return int(s.idleSpeed.Load())
}

// FastPublish is the fast-publish period in milliseconds; 0 disables it.
func (s *Settings) FastPublish() int {
	return int(s.fastPublish.Load())
}

func (s *Settings) SetIdleRPM(v int) error {
	if v < 0 || v > maxIdleRPM {
		return errors.WithData(ErrSettingOutOfRange, v)
	}
	s.idleRPM.Store(int64(v))

	return nil
}

func (s *Settings) SetIdleSpeed(v int) error {
	if v < 0 || v > maxIdleSpeed {
		return errors.WithData(ErrSettingOutOfRange, v)
	}
	s.idleSpeed.Store(int64(v))

	return nil
}

func (s *Settings) SetFastPublish(v int) error {
	if v < 0 || v > maxFastPublish {
		return errors.WithData(ErrSettingOutOfRange, v)
	}
	s.fastPublish.Store(int64(v))

	return nil
}

// threshold returns the idle threshold for a quantity.
func (s *Settings) threshold(q obd.Quantity) int {
	if q == obd.RPM {
		return s.IdleRPM()
	}

	return s.IdleSpeed()
}
