// Package engine implements the monitor core: the per-quantity request
// scheduler, the sample classifier and aggregator, the sleep gate, and
// the fast-publish decision. All state is owned by the control loop
// goroutine; the only cross-goroutine traffic is whole-value Settings
// updates from the cloud layer.
package engine

import (
	"time"

	"codeberg.org/mutker/obdmon/internal/canbus"
	"codeberg.org/mutker/obdmon/internal/errors"
	"codeberg.org/mutker/obdmon/internal/gpio"
	"codeberg.org/mutker/obdmon/internal/logger"
	"codeberg.org/mutker/obdmon/internal/obd"
	"codeberg.org/mutker/obdmon/internal/power"
)

const ErrTransmit = errors.ErrorCode("engine_transmit_failed")

// Config carries the loop timing parameters (all in milliseconds).
type Config struct {
	// RequestPeriod is the per-quantity poll period; both quantities are
	// requested on this cadence to bound bus load.
	RequestPeriod int

	// EngineLogPeriod is the diagnostic log cadence; 0 disables the log.
	EngineLogPeriod int
}

// Monitor evaluates the core once per control loop iteration.
type Monitor struct {
	bus      canbus.Bus
	key      gpio.Signal
	sleep    *SleepGate
	settings *Settings
	cfg      Config

	latest             [obd.QuantityCount]int
	lastRequestAt      [obd.QuantityCount]time.Time
	lastTransmitFailed [obd.QuantityCount]bool
	stats              [obd.QuantityCount]RunningStats

	lastEngineLog time.Time
	keyReadFailed bool

	fastPub fastPublish
}

func NewMonitor(bus canbus.Bus, key gpio.Signal, sleepCtl power.SleepController, settings *Settings, cfg Config) *Monitor {
	return &Monitor{
		bus:      bus,
		key:      key,
		sleep:    NewSleepGate(sleepCtl),
		settings: settings,
		cfg:      cfg,
	}
}

// Step performs one loop iteration: drain received frames, run the
// per-quantity due checks, apply the sleep gate, and emit the periodic
// engine log. Nothing in here blocks.
func (m *Monitor) Step(now time.Time) {
	m.drainReplies()

	keyIn := m.keyIn()
	for q := obd.Quantity(0); q < obd.QuantityCount; q++ {
		m.pollIfDue(q, now, keyIn)
	}

	m.sleep.Observe(keyIn)
	m.logEngineStats(now)
}

func (m *Monitor) drainReplies() {
	for {
		frame, ok := m.bus.TryReceive()
		if !ok {
			return
		}
		m.handleReply(frame)
	}
}

// handleReply records a decoded reading. Frames that do not validate as a
// reply for a tracked quantity are bus noise from other responders and
// are dropped without comment.
func (m *Monitor) handleReply(frame canbus.Frame) {
	if q, value, ok := obd.DecodeReply(frame); ok {
		m.latest[q] = value
	}
}

// pollIfDue runs one quantity's period check. When due, the previous
// reading is classified first and then cleared, so the next classification
// sees the sentinel 0 unless a fresh reply arrives within the period; a
// missed round-trip is counted as "off". The request itself goes out only
// while the key is in.
func (m *Monitor) pollIfDue(q obd.Quantity, now time.Time, keyIn bool) {
	period := time.Duration(m.cfg.RequestPeriod) * time.Millisecond
	if !m.lastRequestAt[q].IsZero() && now.Sub(m.lastRequestAt[q]) < period {
		return
	}
	m.lastRequestAt[q] = now

	m.stats[q].Record(m.latest[q], m.settings.threshold(q))
	m.latest[q] = 0

	if !keyIn {
		return
	}

	if err := m.bus.Send(obd.RequestID, obd.Request(q)); err != nil {
		// Log once per failure episode; with the vehicle off every request
		// fails and the log would flood otherwise.
		if !m.lastTransmitFailed[q] {
			logger.ErrorWithCode(errors.Wrap(ErrTransmit, err)).
				Str("quantity", q.String()).
				Msg("CAN transmit failed")
			m.lastTransmitFailed[q] = true
		}
	} else {
		m.lastTransmitFailed[q] = false
	}
}

func (m *Monitor) keyIn() bool {
	high, err := m.key.High()
	if err != nil {
		if !m.keyReadFailed {
			logger.Warn().Err(err).Msg("key-in read failed; treating as key out")
			m.keyReadFailed = true
		}

		return false
	}
	m.keyReadFailed = false

	return high
}

func (m *Monitor) logEngineStats(now time.Time) {
	if m.cfg.EngineLogPeriod == 0 {
		return
	}

	period := time.Duration(m.cfg.EngineLogPeriod) * time.Millisecond
	if !m.lastEngineLog.IsZero() && now.Sub(m.lastEngineLog) < period {
		return
	}
	m.lastEngineLog = now

	for q := obd.Quantity(0); q < obd.QuantityCount; q++ {
		r := m.stats[q].Report(m.cfg.RequestPeriod)
		logger.Info().
			Str("quantity", q.String()).
			Int("engine_off", r.OffSeconds).
			Int("engine_idle", r.IdleSeconds).
			Int("engine_non_idle", r.ActiveSeconds).
			Int("min", r.Min).
			Int("mean", r.Mean).
			Int("max", r.Max).
			Msg("")
	}
}

// Harvest returns both quantities' reports and resets the accumulators.
// Each harvest covers exactly the interval since the previous one.
func (m *Monitor) Harvest() (rpm, speed Report) {
	rpm = m.stats[obd.RPM].Report(m.cfg.RequestPeriod)
	speed = m.stats[obd.Speed].Report(m.cfg.RequestPeriod)
	m.stats[obd.RPM].Reset()
	m.stats[obd.Speed].Reset()

	return rpm, speed
}
