// Package power exposes the device sleep capability the sleep gate drives.
package power

import "codeberg.org/mutker/obdmon/internal/logger"

// SleepController pauses and resumes the device low-power sleep mode.
type SleepController interface {
	PauseSleep()
	ResumeSleep()
	IsSleepDisabled() bool
	IsSuspended() bool
}

// Manager tracks the process-local sleep suspension state. The platform
// sleep executor observes IsSuspended; everything else in this process
// only needs the state and the log lines.
type Manager struct {
	disabled  bool
	suspended bool
}

func NewManager(disabled bool) *Manager {
	return &Manager{disabled: disabled}
}

func (m *Manager) PauseSleep() {
	m.suspended = true
	logger.Info().Msg("Pausing sleep mode")
}

func (m *Manager) ResumeSleep() {
	m.suspended = false
	logger.Info().Msg("Resuming sleep mode")
}

func (m *Manager) IsSleepDisabled() bool {
	return m.disabled
}

func (m *Manager) IsSuspended() bool {
	return m.suspended
}
