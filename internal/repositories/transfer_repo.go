package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/beacontrace/internal/models"
)

type PostgresTransferRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresTransferRepository(pool *pgxpool.Pool) *PostgresTransferRepository {
	return &PostgresTransferRepository{pool: pool}
}

// Create inserts a pending transfer request. The partial unique index on
// (device_id) WHERE status='pending' makes two concurrent requests for the
// same device resolve to exactly one winner; the loser gets ErrConflict.
func (r *PostgresTransferRepository) Create(ctx context.Context, request *models.TransferRequest) error {
	query := `INSERT INTO transfer_requests (device_id, from_account_id, to_account_id)
	          VALUES ($1, $2, $3)
	          RETURNING id, status, created_at`

	err := r.pool.QueryRow(ctx, query,
		request.DeviceID,
		request.FromAccountID,
		request.ToAccountID,
	).Scan(&request.ID, &request.Status, &request.CreatedAt)

	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to create transfer request: %w", err)
	}
	return nil
}

func (r *PostgresTransferRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.TransferRequest, error) {
	return getTransferRequest(ctx, r.pool, id)
}

// Approve flips a pending request to approved and reassigns the device's
// owner in one transaction. The conditional UPDATE on status='pending' is the
// serialization point: of two concurrent approvals, only one claims the row.
func (r *PostgresTransferRepository) Approve(ctx context.Context, id uuid.UUID) (*models.TransferRequest, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `UPDATE transfer_requests
	          SET status = 'approved', resolved_at = NOW()
	          WHERE id = $1 AND status = 'pending'
	          RETURNING id, device_id, from_account_id, to_account_id, status, created_at, resolved_at`

	var request models.TransferRequest
	err = tx.QueryRow(ctx, query, id).Scan(
		&request.ID,
		&request.DeviceID,
		&request.FromAccountID,
		&request.ToAccountID,
		&request.Status,
		&request.CreatedAt,
		&request.ResolvedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		// Either the request doesn't exist or it is already terminal.
		existing, getErr := getTransferRequest(ctx, r.pool, id)
		if getErr != nil {
			return nil, getErr
		}
		return existing, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("failed to approve transfer: %w", err)
	}

	result, err := tx.Exec(ctx,
		`UPDATE devices SET owner_account_id = $1, updated_at = NOW() WHERE id = $2`,
		request.ToAccountID, request.DeviceID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reassign device owner: %w", err)
	}
	if result.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transfer approval: %w", err)
	}
	return &request, nil
}

// Reject flips a pending request to rejected. Requests already terminal are
// returned unchanged, making rejection idempotent.
func (r *PostgresTransferRepository) Reject(ctx context.Context, id uuid.UUID) (*models.TransferRequest, error) {
	query := `UPDATE transfer_requests
	          SET status = 'rejected', resolved_at = NOW()
	          WHERE id = $1 AND status = 'pending'
	          RETURNING id, device_id, from_account_id, to_account_id, status, created_at, resolved_at`

	var request models.TransferRequest
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&request.ID,
		&request.DeviceID,
		&request.FromAccountID,
		&request.ToAccountID,
		&request.Status,
		&request.CreatedAt,
		&request.ResolvedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return getTransferRequest(ctx, r.pool, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to reject transfer: %w", err)
	}
	return &request, nil
}

func getTransferRequest(ctx context.Context, pool *pgxpool.Pool, id uuid.UUID) (*models.TransferRequest, error) {
	query := `SELECT id, device_id, from_account_id, to_account_id, status, created_at, resolved_at
	          FROM transfer_requests
	          WHERE id = $1`

	var request models.TransferRequest
	err := pool.QueryRow(ctx, query, id).Scan(
		&request.ID,
		&request.DeviceID,
		&request.FromAccountID,
		&request.ToAccountID,
		&request.Status,
		&request.CreatedAt,
		&request.ResolvedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transfer request: %w", err)
	}
	return &request, nil
}
