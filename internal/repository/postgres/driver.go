package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"hail/internal/domain"
	"hail/internal/repository"
)

// DriverRepository is a PostgreSQL implementation of repository.DriverRepository.
type DriverRepository struct {
	q Querier
}

// NewDriverRepository creates a new PostgreSQL driver repository.
func NewDriverRepository(db *sql.DB) *DriverRepository {
	return &DriverRepository{q: db}
}

// NewDriverRepositoryWithTx creates a driver repository using a transaction.
func NewDriverRepositoryWithTx(tx *sql.Tx) *DriverRepository {
	return &DriverRepository{q: tx}
}

const driverColumns = `
	id, username, profile_url, gender, vehicle_type, wallet_balance,
	is_available, is_location_on, upi_id, mobile_number, lat, lng,
	current_ride_id, average_rating, total_rides`

// Create adds a new driver.
func (r *DriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	query := `
		INSERT INTO drivers (` + driverColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.q.ExecContext(ctx, query,
		driver.ID,
		driver.Username,
		driver.ProfileURL,
		driver.Gender,
		driver.VehicleType,
		driver.WalletBalance,
		driver.IsAvailable,
		driver.IsLocationOn,
		nullString(driver.UPIID),
		nullString(driver.MobileNumber),
		driver.Location.Lat,
		driver.Location.Lng,
		nullString(driver.CurrentRideID),
		driver.AverageRating,
		driver.TotalRides,
	)
	return err
}

// GetByID retrieves a driver by ID.
func (r *DriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+driverColumns+` FROM drivers WHERE id = $1`, id)

	driver, err := scanDriver(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return driver, nil
}

// GetByIDs retrieves several drivers in one query.
func (r *DriverRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Driver, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT `+driverColumns+` FROM drivers WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drivers []*domain.Driver
	for rows.Next() {
		driver, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		drivers = append(drivers, driver)
	}
	return drivers, rows.Err()
}

// UpdateAvailability sets the availability flag.
func (r *DriverRepository) UpdateAvailability(ctx context.Context, id string, available bool) error {
	return r.exec(ctx, `UPDATE drivers SET is_available = $1 WHERE id = $2`, available, id)
}

// UpdateLocation stores the driver's reported position.
func (r *DriverRepository) UpdateLocation(ctx context.Context, id string, loc domain.Point, locationOn bool) error {
	return r.exec(ctx,
		`UPDATE drivers SET lat = $1, lng = $2, is_location_on = $3 WHERE id = $4`,
		loc.Lat, loc.Lng, locationOn, id)
}

// UpdateContact stores the UPI and mobile destination used for payouts.
func (r *DriverRepository) UpdateContact(ctx context.Context, id, upiID, mobileNumber string) error {
	return r.exec(ctx, `
		UPDATE drivers
		SET upi_id = COALESCE(NULLIF($1, ''), upi_id),
		    mobile_number = COALESCE(NULLIF($2, ''), mobile_number)
		WHERE id = $3`, upiID, mobileNumber, id)
}

// BindCurrentRide binds the driver to a ride and marks them unavailable. The
// free-and-available condition keeps the check and the bind atomic, so one
// driver cannot win two rides at once.
func (r *DriverRepository) BindCurrentRide(ctx context.Context, id, rideID string) (bool, error) {
	result, err := r.q.ExecContext(ctx, `
		UPDATE drivers
		SET current_ride_id = $1, is_available = FALSE
		WHERE id = $2 AND current_ride_id IS NULL AND is_available`, rideID, id)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// ReleaseCurrentRide clears the driver's current ride, but only if they are
// still bound to that ride. The condition makes a double release a no-op.
func (r *DriverRepository) ReleaseCurrentRide(ctx context.Context, id, rideID string) (bool, error) {
	result, err := r.q.ExecContext(ctx, `
		UPDATE drivers
		SET current_ride_id = NULL, is_available = TRUE
		WHERE id = $1 AND current_ride_id = $2`, id, rideID)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// ForceOffline marks the driver unavailable with location reporting off.
func (r *DriverRepository) ForceOffline(ctx context.Context, id string) error {
	return r.exec(ctx,
		`UPDATE drivers SET is_available = FALSE, is_location_on = FALSE WHERE id = $1`, id)
}

// Debit decreases the wallet balance if funds suffice. The balance condition
// keeps the check and the decrement atomic.
func (r *DriverRepository) Debit(ctx context.Context, id string, amount float64) (bool, error) {
	result, err := r.q.ExecContext(ctx, `
		UPDATE drivers SET wallet_balance = wallet_balance - $1
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

// DebitAboveFloor decreases the wallet balance only if at least floor
// remains afterwards.
func (r *DriverRepository) DebitAboveFloor(ctx context.Context, id string, amount, floor float64) (bool, error) {
	result, err := r.q.ExecContext(ctx, `
		UPDATE drivers SET wallet_balance = wallet_balance - $1
		WHERE id = $2 AND wallet_balance >= $1 + $3`, amount, id, floor)
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
func (r *DriverRepository) Credit(ctx context.Context, id string, amount float64) error {
	return r.exec(ctx,
		`UPDATE drivers SET wallet_balance = wallet_balance + $1 WHERE id = $2`, amount, id)
}

// RecordRating folds a new rating into the driver's running average.
func (r *DriverRepository) RecordRating(ctx context.Context, id string, rating int) error {
	return r.exec(ctx, `
		UPDATE drivers
		SET average_rating = (average_rating * total_rides + $1) / (total_rides + 1),
		    total_rides = total_rides + 1
		WHERE id = $2`, rating, id)
}

func (r *DriverRepository) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.q.ExecContext(ctx, query, args...)
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

func scanDriver(s scanner) (*domain.Driver, error) {
	var driver domain.Driver
	var upiID, mobile, currentRide sql.NullString

	err := s.Scan(
		&driver.ID,
		&driver.Username,
		&driver.ProfileURL,
		&driver.Gender,
		&driver.VehicleType,
		&driver.WalletBalance,
		&driver.IsAvailable,
		&driver.IsLocationOn,
		&upiID,
		&mobile,
		&driver.Location.Lat,
		&driver.Location.Lng,
		&currentRide,
		&driver.AverageRating,
		&driver.TotalRides,
	)
	if err != nil {
		return nil, err
	}

	driver.UPIID = upiID.String
	driver.MobileNumber = mobile.String
	driver.CurrentRideID = currentRide.String
	return &driver, nil
}

var _ repository.DriverRepository = (*DriverRepository)(nil)
