package cloud

import (
	"encoding/json"

	"codeberg.org/mutker/obdmon/internal/engine"
	"codeberg.org/mutker/obdmon/internal/errors"
	"codeberg.org/mutker/obdmon/internal/logger"
)

// settingsDoc is the remote configuration document. Pointer fields so an
// absent key leaves the current value alone.
type settingsDoc struct {
	IdleRPM   *int `json:"idleRPM"`
	IdleSpeed *int `json:"idleSPEED"`
	FastPub   *int `json:"fastpub"`
}

// ApplySettings parses a remote settings document and applies each present
// key through the clamped setters. Out-of-range values are rejected
// per key; valid keys in the same document still apply.
func ApplySettings(settings *engine.Settings, payload []byte) error {
	var doc settingsDoc
	if err := json.Unmarshal(payload, &doc); err != nil {
		return errors.Wrap(ErrBadConfigDoc, err)
	}

	if doc.IdleRPM != nil {
		if err := settings.SetIdleRPM(*doc.IdleRPM); err != nil {
			logger.Warn().Err(err).Int("idleRPM", *doc.IdleRPM).Msg("rejected idleRPM")
		}
	}
	if doc.IdleSpeed != nil {
		if err := settings.SetIdleSpeed(*doc.IdleSpeed); err != nil {
			logger.Warn().Err(err).Int("idleSPEED", *doc.IdleSpeed).Msg("rejected idleSPEED")
		}
	}
	if doc.FastPub != nil {
		if err := settings.SetFastPublish(*doc.FastPub); err != nil {
			logger.Warn().Err(err).Int("fastpub", *doc.FastPub).Msg("rejected fastpub")
		}
	}

	logger.Info().
		Int("idle_rpm", settings.IdleRPM()).
		Int("idle_speed", settings.IdleSpeed()).
		Int("fastpub_ms", settings.FastPublish()).
		Msg("Remote settings applied")

	return nil
}
