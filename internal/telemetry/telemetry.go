// Package telemetry converts harvested engine statistics into the wire
// payload and hands it to the cloud publisher, optionally archiving each
// published snapshot locally.
package telemetry

import (
	"context"
	"encoding/json"

	"codeberg.org/mutker/obdmon/internal/errors"
	"codeberg.org/mutker/obdmon/internal/logger"
)

type Service struct {
	pub  Publisher
	repo Repository
}

// NewService wires the publisher and the optional archive repository;
// repo may be nil when archiving is disabled.
func NewService(pub Publisher, repo Repository) *Service {
	return &Service{
		pub:  pub,
		repo: repo,
	}
}

func (s *Service) IsConnected() bool {
	return s.pub.IsConnected()
}

// Publish serializes the snapshot and emits it. The archive write is best
// effort; a storage fault must not cost the cloud publish and vice versa.
func (s *Service) Publish(ctx context.Context, snapshot *Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return errors.Wrap(ErrEncodeSnapshot, err)
	}

	if s.repo != nil {
		if err := s.repo.Store(ctx, snapshot); err != nil {
			logger.Warn().Err(err).Msg("failed to archive snapshot")
		}
	}

	if err := s.pub.Publish(ctx, payload); err != nil {
		return errors.Wrap(ErrPublishFailed, err)
	}

	logger.Debug().
		Int("engine_off", snapshot.EngineOff).
		Int("engine_idle", snapshot.EngineIdle).
		Int("engine_non_idle", snapshot.EngineNonIdle).
		Msg("Snapshot published")

	return nil
}

func (s *Service) Close() error {
	if s.repo == nil {
		return nil
	}

	if err := s.repo.Close(); err != nil {
		return errors.Wrap(ErrStorageClose, err)
	}

	return nil
}
