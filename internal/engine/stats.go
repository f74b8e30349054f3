package engine

// RunningStats accumulates classified samples for one quantity between
// telemetry harvests. Total == Off + Idle + Active after every Record.
// Sum, Min, and Max cover active samples only; Min and Max stay 0 until
// the first active sample arrives.
type RunningStats struct {
	Total  int
	Off    int
	Idle   int
	Active int
	Sum    int
	Min    int
	Max    int
}

// Record folds one reading into the stats. A zero value means the engine
// was off or the request round-trip failed; the two are indistinguishable
// on the bus and are deliberately counted together.
func (s *RunningStats) Record(value, idleThreshold int) {
	s.Total++

	switch {
	case value == 0:
		s.Off++
	case value < idleThreshold:
		s.Idle++
	default:
		s.Active++
		s.Sum += value

		if value < s.Min || s.Min == 0 {
			s.Min = value
		}
		if value > s.Max {
			s.Max = value
		}
	}
}

// Mean is the integer mean of the active samples, 0 when there are none.
func (s *RunningStats) Mean() int {
	if s.Active == 0 {
		return 0
	}

	return s.Sum / s.Active
}

func (s *RunningStats) Reset() {
	*s = RunningStats{}
}

// Report holds the derived per-quantity figures emitted in the engine log
// and the telemetry payload.
type Report struct {
	OffSeconds    int
	IdleSeconds   int
	ActiveSeconds int
	Min           int
	Mean          int
	Max           int
}

// Report derives durations from sample counts. The integer division
// truncates for periods that do not evenly divide 1000; downstream
// consumers depend on the exact integers, so this stays integer math.
func (s *RunningStats) Report(periodMillis int) Report {
	return Report{
		OffSeconds:    s.Off * periodMillis / 1000,
		IdleSeconds:   s.Idle * periodMillis / 1000,
		ActiveSeconds: s.Active * periodMillis / 1000,
		Min:           s.Min,
		Mean:          s.Mean(),
		Max:           s.Max,
	}
}
