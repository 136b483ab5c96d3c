package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"floodwatch/internal/types"
)

// ReadingRepository provides data access for sensor readings. Readings are
// append-only: there are no update or delete operations. Location scoping is
// resolved through the sensors table (foreign-key association, not geometry).
type ReadingRepository struct {
	db DBTX
}

// NewReadingRepository creates a ReadingRepository backed by the given
// database connection (pool or transaction).
func NewReadingRepository(db DBTX) *ReadingRepository {
	return &ReadingRepository{db: db}
}

// scopeClause renders the location filter for a query that joins sensors as
// "s". It returns the SQL fragment (possibly empty) and appends any bind
// arguments, starting at index argOffset+1.
func scopeClause(scope types.LocationScope, argOffset int, args []any) (string, []any) {
	switch scope.Kind {
	case types.ScopeMunicipality:
		return fmt.Sprintf(" AND s.municipality_id = $%d", argOffset+1), append(args, scope.MunicipalityID)
	case types.ScopeArea:
		return fmt.Sprintf(" AND s.area_id = $%d", argOffset+1), append(args, scope.AreaID)
	}
	return "", args
}

// Insert appends a new reading. The sensor must exist; a foreign-key
// violation is surfaced as not_found_sensor.
func (r *ReadingRepository) Insert(ctx context.Context, reading *types.Reading) error {
	row := r.db.QueryRow(ctx,
		`INSERT INTO readings (sensor_id, value, timestamp)
		 VALUES ($1, $2, COALESCE($3, NOW()))
		 RETURNING id, timestamp`,
		reading.SensorID,
		reading.Value,
		nilIfZeroTime(reading.Timestamp),
	)
	if err := row.Scan(&reading.ID, &reading.Timestamp); err != nil {
		if strings.Contains(err.Error(), "violates foreign key constraint") {
			return types.NewAppError(types.ErrCodeNotFoundSensor, "sensor does not exist", err)
		}
		return storeErr("failed to insert reading", err)
	}
	return nil
}

// WindowStats computes sum/avg/max/count over readings of one parameter
// within [start, end], optionally narrowed by scope. An empty window yields
// WindowStats{Count: 0}; the zero statistics are not written so callers can
// distinguish "no data" from a true zero.
func (r *ReadingRepository) WindowStats(ctx context.Context, parameter types.Parameter, start, end time.Time, scope types.LocationScope) (types.WindowStats, error) {
	args := []any{string(parameter), start, end}
	filter, args := scopeClause(scope, len(args), args)

	row := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(r.value), 0), COALESCE(AVG(r.value), 0),
		        COALESCE(MAX(r.value), 0), COUNT(r.id)
		 FROM readings r
		 JOIN sensors s ON s.id = r.sensor_id
		 WHERE s.sensor_type = $1 AND r.timestamp >= $2 AND r.timestamp <= $3`+filter,
		args...,
	)

	var sum, avg, max float64
	var count int
	if err := row.Scan(&sum, &avg, &max, &count); err != nil {
		return types.WindowStats{}, storeErr("failed to aggregate readings", err)
	}
	if count == 0 {
		return types.WindowStats{}, nil
	}
	return types.WindowStats{Sum: sum, Avg: avg, Max: max, Count: count}, nil
}

// Latest returns the most recent reading for a parameter within scope, or a
// NoData error when none exists.
func (r *ReadingRepository) Latest(ctx context.Context, parameter types.Parameter, scope types.LocationScope) (*types.Reading, error) {
	args := []any{string(parameter)}
	filter, args := scopeClause(scope, len(args), args)

	row := r.db.QueryRow(ctx,
		`SELECT r.id, r.sensor_id, s.sensor_type, r.value, r.timestamp
		 FROM readings r
		 JOIN sensors s ON s.id = r.sensor_id
		 WHERE s.sensor_type = $1`+filter+`
		 ORDER BY r.timestamp DESC
		 LIMIT 1`,
		args...,
	)

	var reading types.Reading
	if err := row.Scan(&reading.ID, &reading.SensorID, &reading.Parameter, &reading.Value, &reading.Timestamp); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNoData, "no readings recorded for parameter", nil)
		}
		return nil, storeErr("failed to query latest reading", err)
	}
	return &reading, nil
}

// LatestBefore returns the most recent reading at or before the cutoff, used
// to reconstruct the water level as of 24 hours ago. Returns NoData when no
// reading predates the cutoff.
func (r *ReadingRepository) LatestBefore(ctx context.Context, parameter types.Parameter, cutoff time.Time, scope types.LocationScope) (*types.Reading, error) {
	args := []any{string(parameter), cutoff}
	filter, args := scopeClause(scope, len(args), args)

	row := r.db.QueryRow(ctx,
		`SELECT r.id, r.sensor_id, s.sensor_type, r.value, r.timestamp
		 FROM readings r
		 JOIN sensors s ON s.id = r.sensor_id
		 WHERE s.sensor_type = $1 AND r.timestamp <= $2`+filter+`
		 ORDER BY r.timestamp DESC
		 LIMIT 1`,
		args...,
	)

	var reading types.Reading
	if err := row.Scan(&reading.ID, &reading.SensorID, &reading.Parameter, &reading.Value, &reading.Timestamp); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNoData, "no readings recorded before cutoff", nil)
		}
		return nil, storeErr("failed to query reading before cutoff", err)
	}
	return &reading, nil
}

// HighWaterSensorAreas returns the distinct area IDs of sensors that reported
// a value at or above min since the given time. Used by the affected-area
// resolver's sensor-proximity fallback.
func (r *ReadingRepository) HighWaterSensorAreas(ctx context.Context, parameter types.Parameter, min float64, since time.Time, scope types.LocationScope) ([]string, error) {
	args := []any{string(parameter), min, since}
	filter, args := scopeClause(scope, len(args), args)

	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT s.area_id
		 FROM readings r
		 JOIN sensors s ON s.id = r.sensor_id
		 WHERE s.sensor_type = $1 AND r.value >= $2 AND r.timestamp >= $3
		   AND s.area_id IS NOT NULL`+filter,
		args...,
	)
	if err != nil {
		return nil, storeErr("failed to query high-water sensor areas", err)
	}
	defer rows.Close()

	var areaIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storeErr("failed to scan sensor area id", err)
		}
		areaIDs = append(areaIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("failed to iterate sensor areas", err)
	}
	return areaIDs, nil
}

// ListParams defines filtering for reading listings.
type ListParams struct {
	Parameter types.Parameter
	SensorID  string
	Start     time.Time
	End       time.Time
	Scope     types.LocationScope
	Limit     int
}

// List returns readings newest-first, filtered by the given parameters.
func (r *ReadingRepository) List(ctx context.Context, p ListParams) ([]types.Reading, error) {
	var sb strings.Builder
	sb.WriteString(
		`SELECT r.id, r.sensor_id, s.sensor_type, r.value, r.timestamp
		 FROM readings r
		 JOIN sensors s ON s.id = r.sensor_id
		 WHERE 1=1`)

	var args []any
	if p.Parameter != "" {
		args = append(args, string(p.Parameter))
		fmt.Fprintf(&sb, " AND s.sensor_type = $%d", len(args))
	}
	if p.SensorID != "" {
		args = append(args, p.SensorID)
		fmt.Fprintf(&sb, " AND r.sensor_id = $%d", len(args))
	}
	if !p.Start.IsZero() {
		args = append(args, p.Start)
		fmt.Fprintf(&sb, " AND r.timestamp >= $%d", len(args))
	}
	if !p.End.IsZero() {
		args = append(args, p.End)
		fmt.Fprintf(&sb, " AND r.timestamp <= $%d", len(args))
	}
	var filter string
	filter, args = scopeClause(p.Scope, len(args), args)
	sb.WriteString(filter)

	sb.WriteString(" ORDER BY r.timestamp DESC")
	limit := p.Limit
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	args = append(args, limit)
	fmt.Fprintf(&sb, " LIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, storeErr("failed to list readings", err)
	}
	defer rows.Close()

	var readings []types.Reading
	for rows.Next() {
		var reading types.Reading
		if err := rows.Scan(&reading.ID, &reading.SensorID, &reading.Parameter, &reading.Value, &reading.Timestamp); err != nil {
			return nil, storeErr("failed to scan reading", err)
		}
		readings = append(readings, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("failed to iterate readings", err)
	}
	return readings, nil
}

// GetSensor returns one sensor by ID, or not_found_sensor.
func (r *ReadingRepository) GetSensor(ctx context.Context, id string) (*types.Sensor, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, name, sensor_type, unit, latitude, longitude,
		        COALESCE(municipality_id, ''), COALESCE(area_id, ''), active
		 FROM sensors WHERE id = $1`,
		id,
	)

	var s types.Sensor
	if err := row.Scan(&s.ID, &s.Name, &s.Type, &s.Unit, &s.Lat, &s.Lon, &s.MunicipalityID, &s.AreaID, &s.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundSensor, "sensor not found", nil)
		}
		return nil, storeErr("failed to retrieve sensor", err)
	}
	return &s, nil
}

// ListActiveSensors returns every active sensor, optionally narrowed to one
// sensor type. Used by the weather poller to know which stations to refresh.
func (r *ReadingRepository) ListActiveSensors(ctx context.Context, sensorType types.Parameter) ([]types.Sensor, error) {
	query := `SELECT id, name, sensor_type, unit, latitude, longitude,
	                 COALESCE(municipality_id, ''), COALESCE(area_id, ''), active
	          FROM sensors WHERE active = TRUE`
	var args []any
	if sensorType != "" {
		args = append(args, string(sensorType))
		query += ` AND sensor_type = $1`
	}
	query += ` ORDER BY id`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr("failed to list sensors", err)
	}
	defer rows.Close()

	var sensors []types.Sensor
	for rows.Next() {
		var s types.Sensor
		if err := rows.Scan(&s.ID, &s.Name, &s.Type, &s.Unit, &s.Lat, &s.Lon, &s.MunicipalityID, &s.AreaID, &s.Active); err != nil {
			return nil, storeErr("failed to scan sensor", err)
		}
		sensors = append(sensors, s)
	}
	return sensors, rows.Err()
}
