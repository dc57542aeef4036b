package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/beacontrace/internal/models"
)

type PostgresSightingRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresSightingRepository(pool *pgxpool.Pool) *PostgresSightingRepository {
	return &PostgresSightingRepository{pool: pool}
}

// Append writes a sighting. The log is append-only: rows are never updated,
// so concurrent writers need no coordination.
func (r *PostgresSightingRepository) Append(ctx context.Context, sighting *models.Sighting) error {
	query := `INSERT INTO sightings (device_id, reporter_token, latitude, longitude, accuracy, observed_at)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id, received_at`

	err := r.pool.QueryRow(ctx, query,
		sighting.DeviceID,
		sighting.ReporterToken,
		sighting.Latitude,
		sighting.Longitude,
		sighting.Accuracy,
		sighting.ObservedAt,
	).Scan(&sighting.ID, &sighting.ReceivedAt)

	if err != nil {
		return fmt.Errorf("failed to append sighting: %w", err)
	}
	return nil
}

// Latest returns the sighting with the greatest observed_at for the device,
// ties broken by insertion order (last write wins).
func (r *PostgresSightingRepository) Latest(ctx context.Context, deviceID uuid.UUID) (*models.Sighting, error) {
	query := `SELECT id, device_id, reporter_token, latitude, longitude, accuracy, observed_at, received_at
	          FROM sightings
	          WHERE device_id = $1
	          ORDER BY observed_at DESC, id DESC
	          LIMIT 1`

	var s models.Sighting
	err := r.pool.QueryRow(ctx, query, deviceID).Scan(
		&s.ID,
		&s.DeviceID,
		&s.ReporterToken,
		&s.Latitude,
		&s.Longitude,
		&s.Accuracy,
		&s.ObservedAt,
		&s.ReceivedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest sighting: %w", err)
	}
	return &s, nil
}

// Since returns sightings at or after cutoff in ascending observed_at order.
// The (afterObservedAt, afterID) pair is a keyset cursor; zero values start
// from the beginning. At most limit rows are returned.
func (r *PostgresSightingRepository) Since(ctx context.Context, deviceID uuid.UUID, cutoff time.Time, afterObservedAt time.Time, afterID int64, limit int) ([]*models.Sighting, error) {
	query := `SELECT id, device_id, reporter_token, latitude, longitude, accuracy, observed_at, received_at
	          FROM sightings
	          WHERE device_id = $1
	            AND observed_at >= $2
	            AND (observed_at, id) > ($3, $4)
	          ORDER BY observed_at ASC, id ASC
	          LIMIT $5`

	rows, err := r.pool.Query(ctx, query, deviceID, cutoff, afterObservedAt, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sightings: %w", err)
	}
	defer rows.Close()

	var sightings []*models.Sighting
	for rows.Next() {
		var s models.Sighting
		err := rows.Scan(
			&s.ID,
			&s.DeviceID,
			&s.ReporterToken,
			&s.Latitude,
			&s.Longitude,
			&s.Accuracy,
			&s.ObservedAt,
			&s.ReceivedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sighting: %w", err)
		}
		sightings = append(sightings, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sightings: %w", err)
	}

	return sightings, nil
}

// Prune deletes sightings older than the cutoff, except each device's most
// recent sighting, so Latest stays answerable for every device that was ever
// reported.
func (r *PostgresSightingRepository) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	query := `DELETE FROM sightings
	          WHERE observed_at < $1
	            AND id NOT IN (
	                SELECT DISTINCT ON (device_id) id
	                FROM sightings
	                ORDER BY device_id, observed_at DESC, id DESC
	            )`

	result, err := r.pool.Exec(ctx, query, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to prune sightings: %w", err)
	}
	return result.RowsAffected(), nil
}
