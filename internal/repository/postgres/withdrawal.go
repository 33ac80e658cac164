package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"hail/internal/domain"
	"hail/internal/repository"
)

// WithdrawalRepository is a PostgreSQL implementation of
// repository.WithdrawalRepository.
type WithdrawalRepository struct {
	q Querier
}

// NewWithdrawalRepository creates a new PostgreSQL withdrawal repository.
func NewWithdrawalRepository(db *sql.DB) *WithdrawalRepository {
	return &WithdrawalRepository{q: db}
}

// NewWithdrawalRepositoryWithTx creates a withdrawal repository using a transaction.
func NewWithdrawalRepositoryWithTx(tx *sql.Tx) *WithdrawalRepository {
	return &WithdrawalRepository{q: tx}
}

const withdrawalColumns = `
	id, driver_id, amount, upi_id, mobile_number, status,
	request_date, processed_date, transaction_id, remarks`

// Create persists a new pending request.
func (r *WithdrawalRepository) Create(ctx context.Context, req *domain.WithdrawalRequest) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO withdrawal_requests (`+withdrawalColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		req.ID,
		req.DriverID,
		req.Amount,
		req.UPIID,
		req.MobileNumber,
		req.Status,
		req.RequestDate,
		nullTime(req.ProcessedDate),
		nullString(req.TransactionID),
		nullString(req.Remarks),
	)
	return err
}

// GetByID retrieves a request by ID.
func (r *WithdrawalRepository) GetByID(ctx context.Context, id string) (*domain.WithdrawalRequest, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE id = $1`, id)

	req, err := scanWithdrawal(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return req, nil
}

// Resolve moves a request out of PENDING. The status condition rejects a
// second processing attempt.
func (r *WithdrawalRepository) Resolve(ctx context.Context, id string, to domain.WithdrawalStatus, processedAt time.Time, transactionID, remarks string) (bool, error) {
	result, err := r.q.ExecContext(ctx, `
		UPDATE withdrawal_requests
		SET status = $1, processed_date = $2, transaction_id = $3, remarks = $4
		WHERE id = $5 AND status = $6`,
		to, processedAt, nullString(transactionID), nullString(remarks),
		id, domain.WithdrawalPending,
	)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// List retrieves requests, optionally filtered by driver and status.
func (r *WithdrawalRepository) List(ctx context.Context, driverID string, status domain.WithdrawalStatus) ([]*domain.WithdrawalRequest, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests
		WHERE ($1 = '' OR driver_id = $1)
		  AND ($2 = '' OR status = $2)
		ORDER BY request_date DESC`

	rows, err := r.q.QueryContext(ctx, query, driverID, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []*domain.WithdrawalRequest
	for rows.Next() {
		req, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

func scanWithdrawal(s scanner) (*domain.WithdrawalRequest, error) {
	var req domain.WithdrawalRequest
	var processedAt sql.NullTime
	var txID, remarks sql.NullString

	err := s.Scan(
		&req.ID,
		&req.DriverID,
		&req.Amount,
		&req.UPIID,
		&req.MobileNumber,
		&req.Status,
		&req.RequestDate,
		&processedAt,
		&txID,
		&remarks,
	)
	if err != nil {
		return nil, err
	}

	if processedAt.Valid {
		req.ProcessedDate = processedAt.Time
	}
	req.TransactionID = txID.String
	req.Remarks = remarks.String
	return &req, nil
}

var _ repository.WithdrawalRepository = (*WithdrawalRepository)(nil)
