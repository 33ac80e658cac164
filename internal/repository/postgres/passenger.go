package postgres

import (
	"context"
	"database/sql"
	"errors"

	"hail/internal/domain"
	"hail/internal/repository"
)

// PassengerRepository is a PostgreSQL implementation of repository.PassengerRepository.
type PassengerRepository struct {
	q Querier
}

// NewPassengerRepository creates a new PostgreSQL passenger repository.
func NewPassengerRepository(db *sql.DB) *PassengerRepository {
	return &PassengerRepository{q: db}
}

// NewPassengerRepositoryWithTx creates a passenger repository using a transaction.
func NewPassengerRepositoryWithTx(tx *sql.Tx) *PassengerRepository {
	return &PassengerRepository{q: tx}
}

const passengerColumns = `
	id, username, profile_url, gender, wallet_balance, mobile_number, lat, lng`

// Create adds a new passenger.
func (r *PassengerRepository) Create(ctx context.Context, passenger *domain.Passenger) error {
	query := `
		INSERT INTO passengers (` + passengerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.q.ExecContext(ctx, query,
		passenger.ID,
		passenger.Username,
		passenger.ProfileURL,
		passenger.Gender,
		passenger.WalletBalance,
		nullString(passenger.MobileNumber),
		passenger.Location.Lat,
		passenger.Location.Lng,
	)
	return err
}

// GetByID retrieves a passenger by ID.
func (r *PassengerRepository) GetByID(ctx context.Context, id string) (*domain.Passenger, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+passengerColumns+` FROM passengers WHERE id = $1`, id)

	passenger, err := scanPassenger(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return passenger, nil
}

// GetAll retrieves all passengers.
func (r *PassengerRepository) GetAll(ctx context.Context) ([]*domain.Passenger, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+passengerColumns+` FROM passengers`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var passengers []*domain.Passenger
	for rows.Next() {
		passenger, err := scanPassenger(rows)
		if err != nil {
			return nil, err
		}
		passengers = append(passengers, passenger)
	}
	return passengers, rows.Err()
}

// UpdateLocation stores the passenger's last known position.
func (r *PassengerRepository) UpdateLocation(ctx context.Context, id string, loc domain.Point) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE passengers SET lat = $1, lng = $2 WHERE id = $3`, loc.Lat, loc.Lng, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Debit decreases the wallet balance if funds suffice.
func (r *PassengerRepository) Debit(ctx context.Context, id string, amount float64) (bool, error) {
	result, err := r.q.ExecContext(ctx, `
		UPDATE passengers SET wallet_balance = wallet_balance - $1
		WHERE id = $2 AND wallet_balance >= $1`, amount, id)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// Credit increases the wallet balance.
func (r *PassengerRepository) Credit(ctx context.Context, id string, amount float64) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE passengers SET wallet_balance = wallet_balance + $1 WHERE id = $2`, amount, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanPassenger(s scanner) (*domain.Passenger, error) {
	var passenger domain.Passenger
	var mobile sql.NullString

	err := s.Scan(
		&passenger.ID,
		&passenger.Username,
		&passenger.ProfileURL,
		&passenger.Gender,
		&passenger.WalletBalance,
		&mobile,
		&passenger.Location.Lat,
		&passenger.Location.Lng,
	)
	if err != nil {
		return nil, err
	}

	passenger.MobileNumber = mobile.String
	return &passenger, nil
}

var _ repository.PassengerRepository = (*PassengerRepository)(nil)
