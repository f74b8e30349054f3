package engine

import (
	"time"

	"codeberg.org/mutker/obdmon/internal/logger"
	"codeberg.org/mutker/obdmon/internal/obd"
)

// fastPublish decides when to request an out-of-band telemetry publish.
type fastPublish struct {
	last time.Time
}

func (f *fastPublish) maybe(now time.Time, latestRPM, idleRPM, periodMillis int, connected bool) bool {
	if !connected || latestRPM < idleRPM || periodMillis <= 0 {
		return false
	}

	if !f.last.IsZero() && now.Sub(f.last) < time.Duration(periodMillis)*time.Millisecond {
		return false
	}
	f.last = now

	return true
}

// MaybeFastPublish reports whether the vehicle is being actively driven
// and the fast-publish period has elapsed, recording the publish time
// when it returns true. The caller publishes out of band on true,
// independent of the baseline cadence.
func (m *Monitor) MaybeFastPublish(now time.Time, connected bool) bool {
	latestRPM := m.latest[obd.RPM]
	idleRPM := m.settings.IdleRPM()
	period := m.settings.FastPublish()

	if !m.fastPub.maybe(now, latestRPM, idleRPM, period, connected) {
		return false
	}

	logger.Info().
		Int("last_rpm", latestRPM).
		Int("idle_rpm", idleRPM).
		Int("period_ms", period).
		Msg("Fast publish triggered")

	return true
}
