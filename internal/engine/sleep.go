package engine

import "codeberg.org/mutker/obdmon/internal/power"

// SleepGate adapts the key-in level signal to edge-triggered sleep
// transitions. The suspension state is read back from the controller
// before acting, so repeated observations of a stable level are no-ops.
type SleepGate struct {
	ctl power.SleepController
}

func NewSleepGate(ctl power.SleepController) *SleepGate {
	return &SleepGate{ctl: ctl}
}

// Observe applies the current key-in level. Transitions happen only while
// sleep is not externally disabled: key in suspends sleep, key out
// resumes it.
func (g *SleepGate) Observe(keyIn bool) {
	if g.ctl.IsSleepDisabled() {
		return
	}

	if keyIn && !g.ctl.IsSuspended() {
		g.ctl.PauseSleep()
	} else if !keyIn && g.ctl.IsSuspended() {
		g.ctl.ResumeSleep()
	}
}
