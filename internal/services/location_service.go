package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/beacontrace/internal/bus"
	"github.com/prudhvinik1/beacontrace/internal/models"
	"github.com/prudhvinik1/beacontrace/internal/repositories"
	"go.uber.org/zap"
)

var ErrInvalidCoordinates = errors.New("coordinates out of range")

// DefaultHistoryLimit caps one page of the sighting history.
const DefaultHistoryLimit = 100

// LocationService is the report store surface: anonymous sighting ingest and
// the owner-side location queries.
type LocationService struct {
	sightingRepo repositories.SightingRepository
	events       *bus.Bus
	logger       *zap.Logger
}

func NewLocationService(sightingRepo repositories.SightingRepository, events *bus.Bus, logger *zap.Logger) *LocationService {
	return &LocationService{
		sightingRepo: sightingRepo,
		events:       events,
		logger:       logger,
	}
}

// SubmitSighting accepts an anonymous report. No device existence check: the
// store must not reveal which ids are registered, so any syntactically valid
// id is accepted and relevance is resolved at query time.
func (s *LocationService) SubmitSighting(ctx context.Context, deviceID uuid.UUID, latitude, longitude, accuracy float64, reporterToken string, observedAt time.Time) (*models.Sighting, error) {
	if latitude < -90 || latitude > 90 || longitude < -180 || longitude > 180 || accuracy < 0 {
		return nil, ErrInvalidCoordinates
	}

	if observedAt.IsZero() {
		observedAt = time.Now()
	}
	if reporterToken == "" {
		reporterToken = uuid.New().String()
	}

	sighting := &models.Sighting{
		DeviceID:      deviceID,
		ReporterToken: reporterToken,
		Latitude:      latitude,
		Longitude:     longitude,
		Accuracy:      accuracy,
		ObservedAt:    observedAt,
	}
	if err := s.sightingRepo.Append(ctx, sighting); err != nil {
		return nil, err
	}

	s.events.Publish(bus.Event{
		Kind:      bus.KindSighting,
		Timestamp: time.Now(),
		Payload:   bus.SightingEvent{DeviceID: deviceID, ObservedAt: observedAt},
	})

	return sighting, nil
}

// LatestSighting returns the most recent sighting for the device, or
// repositories.ErrNotFound if it was never reported. "Never located" is a
// normal outcome, not a failure.
func (s *LocationService) LatestSighting(ctx context.Context, deviceID uuid.UUID) (*models.Sighting, error) {
	return s.sightingRepo.Latest(ctx, deviceID)
}

// SightingsSince returns one page of the device's trail at or after cutoff,
// ascending. Callers resume with the observed_at and id of the last row; the
// sequence is finite and restartable from any cursor.
func (s *LocationService) SightingsSince(ctx context.Context, deviceID uuid.UUID, cutoff, afterObservedAt time.Time, afterID int64, limit int) ([]*models.Sighting, error) {
	if limit <= 0 || limit > DefaultHistoryLimit {
		limit = DefaultHistoryLimit
	}
	return s.sightingRepo.Since(ctx, deviceID, cutoff, afterObservedAt, afterID, limit)
}

// RunPruner periodically deletes sightings older than the retention horizon.
// Each device's most recent sighting is always retained. Blocks until ctx is
// cancelled.
func (s *LocationService) RunPruner(ctx context.Context, interval, horizon time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pruned, err := s.sightingRepo.Prune(ctx, time.Now().Add(-horizon))
			if err != nil {
				s.logger.Error("sighting prune failed", zap.Error(err))
				continue
			}
			if pruned > 0 {
				s.logger.Info("pruned old sightings", zap.Int64("count", pruned))
			}
		case <-ctx.Done():
			return
		}
	}
}
