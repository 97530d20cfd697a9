package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/intake-service/internal/domain"
)

// RequestRepository encapsulates request persistence.
type RequestRepository interface {
	Create(ctx context.Context, request *domain.Request) error
	List(ctx context.Context) ([]domain.Request, error)
	// UpdateStatus returns pgx.ErrNoRows when no row has the id.
	UpdateStatus(ctx context.Context, id int64, status domain.RequestStatus) error
	Delete(ctx context.Context, id int64) error
}

type requestRepository struct {
	pool *pgxpool.Pool
}

// NewRequestRepository instantiates repository.
func NewRequestRepository(pool *pgxpool.Pool) RequestRepository {
	return &requestRepository{pool: pool}
}

func (r *requestRepository) Create(ctx context.Context, request *domain.Request) error {
	const query = `
        INSERT INTO requests (type, content, subject, submitter_id, address, status, file_ref)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		request.Type,
		request.Content,
		request.Subject,
		request.SubmitterID,
		request.Address,
		request.Status,
		request.FileRef,
	).Scan(&request.ID, &request.CreatedAt, &request.UpdatedAt)
	return mapWriteError(err)
}

// List returns every row in store order. There is no pagination.
func (r *requestRepository) List(ctx context.Context) ([]domain.Request, error) {
	const query = `
        SELECT id, type, content, subject, submitter_id, address, status, file_ref, created_at, updated_at
        FROM requests`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

func (r *requestRepository) UpdateStatus(ctx context.Context, id int64, status domain.RequestStatus) error {
	const query = `UPDATE requests SET status=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *requestRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM requests WHERE id=$1`, id)
	return err
}

func scanRequests(rows pgx.Rows) ([]domain.Request, error) {
	result := []domain.Request{}
	for rows.Next() {
		var request domain.Request
		if err := rows.Scan(
			&request.ID,
			&request.Type,
			&request.Content,
			&request.Subject,
			&request.SubmitterID,
			&request.Address,
			&request.Status,
			&request.FileRef,
			&request.CreatedAt,
			&request.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, request)
	}
	return result, rows.Err()
}
