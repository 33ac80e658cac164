package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"hail/internal/domain"
	"hail/internal/repository"
)

// PriceRepository is a PostgreSQL implementation of repository.PriceRepository.
type PriceRepository struct {
	q Querier
}

// NewPriceRepository creates a new PostgreSQL price repository.
func NewPriceRepository(db *sql.DB) *PriceRepository {
	return &PriceRepository{q: db}
}

// Upsert creates or replaces the rate for a vehicle type.
func (r *PriceRepository) Upsert(ctx context.Context, price domain.Price) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO prices (vehicle_type, per_km) VALUES ($1, $2)
		ON CONFLICT (vehicle_type) DO UPDATE SET per_km = EXCLUDED.per_km`,
		price.VehicleType, price.PerKm,
	)
	return err
}

// Get retrieves the rate for one vehicle type.
func (r *PriceRepository) Get(ctx context.Context, vehicleType domain.VehicleType) (domain.Price, error) {
	var price domain.Price
	err := r.q.QueryRowContext(ctx,
		`SELECT vehicle_type, per_km FROM prices WHERE vehicle_type = $1`, vehicleType,
	).Scan(&price.VehicleType, &price.PerKm)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Price{}, repository.ErrNotFound
		}
		return domain.Price{}, err
	}
	return price, nil
}

// List retrieves the rates for the given types.
func (r *PriceRepository) List(ctx context.Context, vehicleTypes []domain.VehicleType) ([]domain.Price, error) {
	types := make([]string, len(vehicleTypes))
	for i, t := range vehicleTypes {
		types[i] = string(t)
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT vehicle_type, per_km FROM prices WHERE vehicle_type = ANY($1)`, pq.Array(types))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prices []domain.Price
	for rows.Next() {
		var price domain.Price
		if err := rows.Scan(&price.VehicleType, &price.PerKm); err != nil {
			return nil, err
		}
		prices = append(prices, price)
	}
	return prices, rows.Err()
}

// DiscountRepository is a PostgreSQL implementation of repository.DiscountRepository.
type DiscountRepository struct {
	db *sql.DB
}

// NewDiscountRepository creates a new PostgreSQL discount repository.
func NewDiscountRepository(db *sql.DB) *DiscountRepository {
	return &DiscountRepository{db: db}
}

// Activate stores a new discount as the single active one. Deactivation of
// the others and insertion happen in one transaction.
func (r *DiscountRepository) Activate(ctx context.Context, discount *domain.Discount) error {
	return WithinTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE discounts SET is_active = FALSE WHERE is_active`); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO discounts (id, code, percentage, valid_from, valid_to, is_active)
			VALUES ($1, $2, $3, $4, $5, TRUE)`,
			discount.ID, discount.Code, discount.Percentage, discount.ValidFrom, discount.ValidTo,
		)
		return err
	})
}

// GetActive returns the currently active discount.
func (r *DiscountRepository) GetActive(ctx context.Context) (*domain.Discount, error) {
	var d domain.Discount
	err := r.db.QueryRowContext(ctx, `
		SELECT id, code, percentage, valid_from, valid_to, is_active
		FROM discounts WHERE is_active LIMIT 1`,
	).Scan(&d.ID, &d.Code, &d.Percentage, &d.ValidFrom, &d.ValidTo, &d.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

var (
	_ repository.PriceRepository    = (*PriceRepository)(nil)
	_ repository.DiscountRepository = (*DiscountRepository)(nil)
)
