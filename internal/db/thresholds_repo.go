package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"floodwatch/internal/types"
)

// ThresholdRepository provides data access for per-parameter threshold
// ladders. An unconfigured parameter is a NotFound condition, never a
// zero-valued ladder.
type ThresholdRepository struct {
	db DBTX
}

// NewThresholdRepository creates a ThresholdRepository backed by the given
// database connection.
func NewThresholdRepository(db DBTX) *ThresholdRepository {
	return &ThresholdRepository{db: db}
}

const thresholdColumns = `parameter, unit, advisory_threshold, watch_threshold,
	warning_threshold, emergency_threshold, catastrophic_threshold, updated_at`

func scanThresholdSet(row pgx.Row) (*types.ThresholdSet, error) {
	var ts types.ThresholdSet
	err := row.Scan(
		&ts.Parameter,
		&ts.Unit,
		&ts.Advisory,
		&ts.Watch,
		&ts.Warning,
		&ts.Emergency,
		&ts.Catastrophic,
		&ts.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

// Get returns the ladder for one parameter, or not_found_threshold when the
// parameter is unconfigured.
func (r *ThresholdRepository) Get(ctx context.Context, parameter types.Parameter) (*types.ThresholdSet, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+thresholdColumns+` FROM threshold_settings WHERE parameter = $1`,
		string(parameter),
	)

	ts, err := scanThresholdSet(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppErrorWithDetails(
				types.ErrCodeNotFoundThreshold,
				"no threshold configured for parameter",
				nil,
				map[string]any{"parameter": string(parameter)},
			)
		}
		return nil, storeErr("failed to retrieve threshold set", err)
	}
	return ts, nil
}

// List returns every configured ladder ordered by parameter name.
func (r *ThresholdRepository) List(ctx context.Context) ([]types.ThresholdSet, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+thresholdColumns+` FROM threshold_settings ORDER BY parameter`)
	if err != nil {
		return nil, storeErr("failed to list threshold sets", err)
	}
	defer rows.Close()

	var sets []types.ThresholdSet
	for rows.Next() {
		ts, err := scanThresholdSet(rows)
		if err != nil {
			return nil, storeErr("failed to scan threshold set", err)
		}
		sets = append(sets, *ts)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("failed to iterate threshold sets", err)
	}
	return sets, nil
}

// Upsert writes a ladder after validating monotonicity. Non-monotonic
// ladders are rejected before touching the database.
func (r *ThresholdRepository) Upsert(ctx context.Context, ts *types.ThresholdSet) error {
	if err := ts.Validate(); err != nil {
		return err
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO threshold_settings (
			parameter, unit, advisory_threshold, watch_threshold,
			warning_threshold, emergency_threshold, catastrophic_threshold, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (parameter) DO UPDATE SET
			unit = EXCLUDED.unit,
			advisory_threshold = EXCLUDED.advisory_threshold,
			watch_threshold = EXCLUDED.watch_threshold,
			warning_threshold = EXCLUDED.warning_threshold,
			emergency_threshold = EXCLUDED.emergency_threshold,
			catastrophic_threshold = EXCLUDED.catastrophic_threshold,
			updated_at = NOW()`,
		string(ts.Parameter),
		ts.Unit,
		ts.Advisory,
		ts.Watch,
		ts.Warning,
		ts.Emergency,
		ts.Catastrophic,
	)
	if err != nil {
		return storeErr("failed to upsert threshold set", err)
	}
	return nil
}
