package telemetry

import (
	"context"
	"time"

	"codeberg.org/mutker/obdmon/internal/engine"
)

// Publisher is the cloud connectivity capability the snapshot provider
// hands payloads to.
type Publisher interface {
	Publish(ctx context.Context, payload []byte) error
	IsConnected() bool
}

// Repository stores published snapshots locally.
type Repository interface {
	Store(ctx context.Context, snapshot *Snapshot) error
	Close() error
}

// Snapshot is the wire payload harvested from the engine statistics.
// Durations are in seconds and derive from the RPM sample counts; the
// field names are fixed by the consuming fleet backend.
type Snapshot struct {
	Timestamp       time.Time `json:"timestamp"`
	EngineOff       int       `json:"engineOff"`
	EngineIdle      int       `json:"engineIdle"`
	EngineNonIdle   int       `json:"engineNonIdle"`
	EngineRpmMin    int       `json:"engineRpmMin"`
	EngineRpmMean   int       `json:"engineRpmMean"`
	EngineRpmMax    int       `json:"engineRpmMax"`
	EngineSpeedMin  int       `json:"engineSpeedMin"`
	EngineSpeedMean int       `json:"engineSpeedMean"`
	EngineSpeedMax  int       `json:"engineSpeedMax"`
}

// NewSnapshot converts harvested engine reports into the wire payload.
func NewSnapshot(now time.Time, rpm, speed engine.Report) *Snapshot {
	return &Snapshot{
		Timestamp:       now,
		EngineOff:       rpm.OffSeconds,
		EngineIdle:      rpm.IdleSeconds,
		EngineNonIdle:   rpm.ActiveSeconds,
		EngineRpmMin:    rpm.Min,
		EngineRpmMean:   rpm.Mean,
		EngineRpmMax:    rpm.Max,
		EngineSpeedMin:  speed.Min,
		EngineSpeedMean: speed.Mean,
		EngineSpeedMax:  speed.Max,
	}
}
