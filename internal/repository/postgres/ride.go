package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"hail/internal/domain"
	"hail/internal/repository"
)

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
// Passengers and the fare matrix live in child tables keyed by ride ID.
type RideRepository struct {
	q Querier
}

// NewRideRepository creates a new PostgreSQL ride repository.
func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{q: db}
}

// NewRideRepositoryWithTx creates a ride repository using a transaction.
func NewRideRepositoryWithTx(tx *sql.Tx) *RideRepository {
	return &RideRepository{q: tx}
}

const rideColumns = `
	id, vehicle_type, pickup_lat, pickup_lng, pickup_address,
	drop_lat, drop_lng, drop_address, preferred_gender, distance_km,
	discount_pct, status, payment_status, payment_method,
	driver_id, driver_name, driver_image, driver_number,
	final_price, final_vehicle_type, shareable, current_passengers,
	max_passengers, notified_drivers, feedback_rating, feedback_comment,
	created_at, expires_at, completed_at`

// Create persists a new ride request with its passengers and fare matrix.
func (r *RideRepository) Create(ctx context.Context, ride *domain.RideRequest) error {
	query := `
		INSERT INTO ride_requests (` + rideColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29)
	`

	_, err := r.q.ExecContext(ctx, query,
		ride.ID,
		ride.VehicleType,
		ride.PickupLocation.Lat,
		ride.PickupLocation.Lng,
		ride.PickupLocation.Address,
		ride.DropLocation.Lat,
		ride.DropLocation.Lng,
		ride.DropLocation.Address,
		ride.PreferredGender,
		ride.DistanceKm,
		ride.DiscountPct,
		ride.Status,
		ride.PaymentStatus,
		ride.PaymentMethod,
		nullString(ride.DriverID),
		nullString(ride.DriverName),
		nullString(ride.DriverImageURL),
		nullString(ride.DriverNumber),
		nullFloat(ride.FinalPrice),
		nullString(string(ride.FinalVehicleType)),
		ride.Shareable,
		ride.CurrentPassengers,
		ride.MaxPassengers,
		pq.Array(ride.NotifiedDrivers),
		feedbackRating(ride.Feedback),
		feedbackComment(ride.Feedback),
		ride.CreatedAt,
		ride.ExpiresAt,
		nullTime(ride.CompletedAt),
	)
	if err != nil {
		return err
	}

	if err := r.insertPassengers(ctx, ride.ID, ride.Passengers); err != nil {
		return err
	}
	return r.insertFares(ctx, ride.ID, &ride.Fares)
}

// GetByID retrieves a ride request by ID.
func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.RideRequest, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+rideColumns+` FROM ride_requests WHERE id = $1`, id)

	ride, err := scanRide(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	if err := r.loadChildren(ctx, ride); err != nil {
		return nil, err
	}
	return ride, nil
}

// ListByUser retrieves the ride history for a passenger or driver, newest
// first.
func (r *RideRepository) ListByUser(ctx context.Context, userID string, userType domain.UserType, limit int) ([]*domain.RideRequest, error) {
	var query string
	if userType == domain.UserTypeDriver {
		query = `SELECT ` + rideColumns + ` FROM ride_requests
			WHERE driver_id = $1 ORDER BY created_at DESC LIMIT $2`
	} else {
		query = `SELECT ` + rideColumns + ` FROM ride_requests
			WHERE id IN (SELECT ride_id FROM ride_passengers WHERE passenger_id = $1)
			ORDER BY created_at DESC LIMIT $2`
	}

	return r.queryRides(ctx, query, userID, limit)
}

// AssignDriver atomically commits a driver acceptance. The status condition
// makes concurrent acceptance attempts race cleanly: exactly one update
// matches the row.
func (r *RideRepository) AssignDriver(ctx context.Context, rideID string, driver *domain.Driver, driverNumber string, finalPrice float64, finalType domain.VehicleType) (bool, error) {
	query := `
		UPDATE ride_requests
		SET status = $1, driver_id = $2, driver_name = $3, driver_image = $4,
		    driver_number = $5, final_price = $6, final_vehicle_type = $7
		WHERE id = $8 AND status IN ($9, $10)
	`

	result, err := r.q.ExecContext(ctx, query,
		domain.RideStatusAccepted,
		driver.ID,
		driver.Username,
		driver.ProfileURL,
		driverNumber,
		finalPrice,
		finalType,
		rideID,
		domain.RideStatusPending,
		domain.RideStatusPendingPool,
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

// UpdateStatus moves the ride to a new status only if its current status is
// one of the expected ones.
func (r *RideRepository) UpdateStatus(ctx context.Context, rideID string, from []domain.RideStatus, to domain.RideStatus) (bool, error) {
	fromStrs := make([]string, len(from))
	for i, s := range from {
		fromStrs[i] = string(s)
	}

	query := `
		UPDATE ride_requests
		SET status = $1,
		    completed_at = CASE WHEN $1 = 'COMPLETED' THEN NOW() ELSE completed_at END
		WHERE id = $2 AND status = ANY($3)
	`

	result, err := r.q.ExecContext(ctx, query, to, rideID, pq.Array(fromStrs))
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// UpdatePool persists a pooling join: passenger list, passenger count and
// the re-split fare matrix. Callers run this inside a transaction.
func (r *RideRepository) UpdatePool(ctx context.Context, ride *domain.RideRequest) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE ride_requests SET current_passengers = $1, final_price = $2 WHERE id = $3`,
		ride.CurrentPassengers, nullFloat(ride.FinalPrice), ride.ID,
	)
	if err != nil {
		return err
	}

	if _, err := r.q.ExecContext(ctx, `DELETE FROM ride_passengers WHERE ride_id = $1`, ride.ID); err != nil {
		return err
	}
	if err := r.insertPassengers(ctx, ride.ID, ride.Passengers); err != nil {
		return err
	}

	if _, err := r.q.ExecContext(ctx, `DELETE FROM ride_fares WHERE ride_id = $1`, ride.ID); err != nil {
		return err
	}
	return r.insertFares(ctx, ride.ID, &ride.Fares)
}

// SetNotifiedDrivers records which drivers received the dispatch offer.
func (r *RideRepository) SetNotifiedDrivers(ctx context.Context, rideID string, driverIDs []string) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE ride_requests SET notified_drivers = $1 WHERE id = $2`,
		pq.Array(driverIDs), rideID,
	)
	return err
}

// SetFeedback attaches feedback once. The feedback_rating IS NULL condition
// rejects a second submission.
func (r *RideRepository) SetFeedback(ctx context.Context, rideID string, fb domain.Feedback) (bool, error) {
	query := `
		UPDATE ride_requests
		SET feedback_rating = $1, feedback_comment = $2
		WHERE id = $3 AND status = $4 AND feedback_rating IS NULL
	`

	result, err := r.q.ExecContext(ctx, query, fb.Rating, fb.Comment, rideID, domain.RideStatusCompleted)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// SetPaymentCompleted marks the ride as settled.
func (r *RideRepository) SetPaymentCompleted(ctx context.Context, rideID string) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE ride_requests SET payment_status = $1 WHERE id = $2`,
		domain.PaymentStatusCompleted, rideID,
	)
	return err
}

// FindExpired returns rides still pending past their expiry deadline.
func (r *RideRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]*domain.RideRequest, error) {
	query := `SELECT ` + rideColumns + ` FROM ride_requests
		WHERE status IN ('PENDING', 'PENDING_POOL') AND expires_at <= $1
		ORDER BY expires_at LIMIT $2`

	return r.queryRides(ctx, query, now, limit)
}

// FindPoolCandidates returns shareable rides of the given type that still
// have seats. Accepted rides stay joinable; the assigned driver is kept.
func (r *RideRepository) FindPoolCandidates(ctx context.Context, vehicleType domain.VehicleType, limit int) ([]*domain.RideRequest, error) {
	query := `SELECT ` + rideColumns + ` FROM ride_requests
		WHERE shareable AND status IN ('PENDING_POOL', 'ACCEPTED')
		  AND vehicle_type = $1 AND current_passengers < max_passengers
		ORDER BY created_at LIMIT $2`

	return r.queryRides(ctx, query, vehicleType, limit)
}

func (r *RideRepository) queryRides(ctx context.Context, query string, args ...any) ([]*domain.RideRequest, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []*domain.RideRequest
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, ride)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, ride := range rides {
		if err := r.loadChildren(ctx, ride); err != nil {
			return nil, err
		}
	}
	return rides, nil
}

func (r *RideRepository) loadChildren(ctx context.Context, ride *domain.RideRequest) error {
	rows, err := r.q.QueryContext(ctx, `
		SELECT passenger_id, name, image_url, mobile
		FROM ride_passengers WHERE ride_id = $1 ORDER BY position`, ride.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	ride.Passengers = nil
	for rows.Next() {
		var p domain.RidePassenger
		if err := rows.Scan(&p.ID, &p.Name, &p.ImageURL, &p.Mobile); err != nil {
			return err
		}
		ride.Passengers = append(ride.Passengers, p)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	fareRows, err := r.q.QueryContext(ctx, `
		SELECT vehicle_type, base_price, discounted_price, per_passenger_price
		FROM ride_fares WHERE ride_id = $1`, ride.ID)
	if err != nil {
		return err
	}
	defer fareRows.Close()

	for fareRows.Next() {
		var vt domain.VehicleType
		var fare domain.Fare
		if err := fareRows.Scan(&vt, &fare.Base, &fare.Discounted, &fare.PerPassenger); err != nil {
			return err
		}
		ride.Fares.Set(vt, fare)
	}
	return fareRows.Err()
}

func (r *RideRepository) insertPassengers(ctx context.Context, rideID string, passengers []domain.RidePassenger) error {
	for i, p := range passengers {
		_, err := r.q.ExecContext(ctx, `
			INSERT INTO ride_passengers (ride_id, position, passenger_id, name, image_url, mobile)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			rideID, i, p.ID, p.Name, p.ImageURL, p.Mobile,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *RideRepository) insertFares(ctx context.Context, rideID string, fares *domain.FareMatrix) error {
	for _, vt := range fares.Types() {
		fare, _ := fares.Get(vt)
		_, err := r.q.ExecContext(ctx, `
			INSERT INTO ride_fares (ride_id, vehicle_type, base_price, discounted_price, per_passenger_price)
			VALUES ($1, $2, $3, $4, $5)`,
			rideID, vt, fare.Base, fare.Discounted, fare.PerPassenger,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanRide.
type scanner interface {
	Scan(dest ...any) error
}

func scanRide(s scanner) (*domain.RideRequest, error) {
	var ride domain.RideRequest
	var driverID, driverName, driverImage, driverNumber sql.NullString
	var finalPrice sql.NullFloat64
	var finalType sql.NullString
	var notified pq.StringArray
	var fbRating sql.NullInt64
	var fbComment sql.NullString
	var completedAt sql.NullTime

	err := s.Scan(
		&ride.ID,
		&ride.VehicleType,
		&ride.PickupLocation.Lat,
		&ride.PickupLocation.Lng,
		&ride.PickupLocation.Address,
		&ride.DropLocation.Lat,
		&ride.DropLocation.Lng,
		&ride.DropLocation.Address,
		&ride.PreferredGender,
		&ride.DistanceKm,
		&ride.DiscountPct,
		&ride.Status,
		&ride.PaymentStatus,
		&ride.PaymentMethod,
		&driverID,
		&driverName,
		&driverImage,
		&driverNumber,
		&finalPrice,
		&finalType,
		&ride.Shareable,
		&ride.CurrentPassengers,
		&ride.MaxPassengers,
		&notified,
		&fbRating,
		&fbComment,
		&ride.CreatedAt,
		&ride.ExpiresAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	ride.DriverID = driverID.String
	ride.DriverName = driverName.String
	ride.DriverImageURL = driverImage.String
	ride.DriverNumber = driverNumber.String
	ride.FinalPrice = finalPrice.Float64
	ride.FinalVehicleType = domain.VehicleType(finalType.String)
	ride.NotifiedDrivers = notified
	if fbRating.Valid {
		ride.Feedback = &domain.Feedback{Rating: int(fbRating.Int64), Comment: fbComment.String}
	}
	if completedAt.Valid {
		ride.CompletedAt = completedAt.Time
	}

	return &ride, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullFloat(f float64) sql.NullFloat64 {
	if f == 0 {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

func feedbackRating(fb *domain.Feedback) sql.NullInt64 {
	if fb == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(fb.Rating), Valid: true}
}

func feedbackComment(fb *domain.Feedback) sql.NullString {
	if fb == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: fb.Comment, Valid: true}
}

var _ repository.RideRepository = (*RideRepository)(nil)
