package power_test

import (
	"testing"

	"codeberg.org/mutker/obdmon/internal/power"
	"github.com/stretchr/testify/assert"
)

func TestManagerPauseResume(t *testing.T) {
	m := power.NewManager(false)

	assert.False(t, m.IsSuspended())
	assert.False(t, m.IsSleepDisabled())

	m.PauseSleep()
	assert.True(t, m.IsSuspended())

	m.ResumeSleep()
	assert.False(t, m.IsSuspended())
}

func TestManagerDisabledFlag(t *testing.T) {
	m := power.NewManager(true)
	assert.True(t, m.IsSleepDisabled())
}
