package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	checkin "flightline-cloud/internal/checkin/domain"
)

const defaultChargeRatesTable = "charge_rates"

// ChargeRateRepository loads charge-rate configurations for aircraft and
// instructors by flight type.
type ChargeRateRepository struct {
	db    DBTX
	table string
}

// ChargeRateOption configures the repository.
type ChargeRateOption func(*ChargeRateRepository)

// WithChargeRatesTable overrides the default table name.
func WithChargeRatesTable(table string) ChargeRateOption {
	return func(repo *ChargeRateRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// NewChargeRateRepository constructs a repository.
func NewChargeRateRepository(db DBTX, opts ...ChargeRateOption) *ChargeRateRepository {
	repo := &ChargeRateRepository{db: db, table: defaultChargeRatesTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// GetChargeRate returns the rate config for a chargeable (aircraft or
// instructor) on a flight type, or nil when none is configured. The data
// layer occasionally holds several rows for the same pair; the newest row
// wins here so the engine always receives a single canonical config.
func (r *ChargeRateRepository) GetChargeRate(ctx context.Context, chargeableID, flightTypeID string) (*checkin.ChargeRateConfig, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("charge rate repo: nil db")
	}
	if chargeableID == "" || flightTypeID == "" {
		return nil, nil
	}

	query := fmt.Sprintf(`
SELECT id, chargeable_id, flight_type_id, rate_per_hour,
       COALESCE(charge_hobbs, FALSE), COALESCE(charge_tacho, FALSE), COALESCE(charge_airswitch, FALSE)
FROM %s
WHERE chargeable_id = $1 AND flight_type_id = $2
ORDER BY updated_at DESC
LIMIT 1`, r.table)

	var cfg checkin.ChargeRateConfig
	if err := r.db.QueryRowContext(ctx, query, chargeableID, flightTypeID).Scan(
		&cfg.ID,
		&cfg.ChargeableID,
		&cfg.FlightTypeID,
		&cfg.RatePerHour,
		&cfg.ChargeHobbs,
		&cfg.ChargeTacho,
		&cfg.ChargeAirswitch,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &cfg, nil
}
