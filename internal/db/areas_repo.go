package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"floodwatch/internal/types"
)

// AreaRepository provides read access to municipalities and their areas.
// Both are static reference data; the core never writes them.
type AreaRepository struct {
	db DBTX
}

// NewAreaRepository creates an AreaRepository backed by the given database
// connection.
func NewAreaRepository(db DBTX) *AreaRepository {
	return &AreaRepository{db: db}
}

const areaColumns = `a.id, a.name, a.municipality_id, m.name, a.population,
	a.latitude, a.longitude, a.contact_person, a.contact_number`

func scanArea(row pgx.Row) (*types.Area, error) {
	var a types.Area
	var contactPerson, contactNumber *string
	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.MunicipalityID,
		&a.MunicipalityName,
		&a.Population,
		&a.Lat,
		&a.Lon,
		&contactPerson,
		&contactNumber,
	)
	if err != nil {
		return nil, err
	}
	if contactPerson != nil {
		a.ContactPerson = *contactPerson
	}
	if contactNumber != nil {
		a.ContactNumber = *contactNumber
	}
	return &a, nil
}

// GetMunicipality fetches a municipality by ID.
func (r *AreaRepository) GetMunicipality(ctx context.Context, id string) (*types.Municipality, error) {
	var m types.Municipality
	err := r.db.QueryRow(ctx,
		`SELECT id, name, province, is_active FROM municipalities WHERE id = $1`, id,
	).Scan(&m.ID, &m.Name, &m.Province, &m.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundMunicipality, "municipality not found", nil)
		}
		return nil, storeErr("failed to fetch municipality", err)
	}
	return &m, nil
}

// GetArea fetches an area by ID with its municipality name joined in.
func (r *AreaRepository) GetArea(ctx context.Context, id string) (*types.Area, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+areaColumns+`
		 FROM areas a JOIN municipalities m ON m.id = a.municipality_id
		 WHERE a.id = $1`, id)
	area, err := scanArea(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundArea, "area not found", nil)
		}
		return nil, storeErr("failed to fetch area", err)
	}
	return area, nil
}

// ListMunicipalities returns all active municipalities ordered by name.
func (r *AreaRepository) ListMunicipalities(ctx context.Context) ([]types.Municipality, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, province, is_active
		 FROM municipalities WHERE is_active = TRUE ORDER BY name`)
	if err != nil {
		return nil, storeErr("failed to list municipalities", err)
	}
	defer rows.Close()

	var out []types.Municipality
	for rows.Next() {
		var m types.Municipality
		if err := rows.Scan(&m.ID, &m.Name, &m.Province, &m.Active); err != nil {
			return nil, storeErr("failed to scan municipality", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListAreas returns areas under the given scope ordered by name. Name order
// is what downstream consumers rely on when truncating candidate lists, so
// it is part of the contract here rather than a presentation concern.
func (r *AreaRepository) ListAreas(ctx context.Context, scope types.LocationScope) ([]types.Area, error) {
	query := `SELECT ` + areaColumns + `
		FROM areas a JOIN municipalities m ON m.id = a.municipality_id`
	var args []any
	switch scope.Kind {
	case types.ScopeMunicipality:
		query += ` WHERE a.municipality_id = $1`
		args = append(args, scope.MunicipalityID)
	case types.ScopeArea:
		query += ` WHERE a.id = $1`
		args = append(args, scope.AreaID)
	}
	query += ` ORDER BY a.name`

	return r.queryAreas(ctx, query, args...)
}

// ListAreasByIDs fetches the named areas ordered by name. Unknown IDs are
// silently skipped.
func (r *AreaRepository) ListAreasByIDs(ctx context.Context, ids []string) ([]types.Area, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.queryAreas(ctx,
		`SELECT `+areaColumns+`
		 FROM areas a JOIN municipalities m ON m.id = a.municipality_id
		 WHERE a.id = ANY($1) ORDER BY a.name`, ids)
}

func (r *AreaRepository) queryAreas(ctx context.Context, query string, args ...any) ([]types.Area, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr("failed to list areas", err)
	}
	defer rows.Close()

	var out []types.Area
	for rows.Next() {
		area, err := scanArea(rows)
		if err != nil {
			return nil, storeErr("failed to scan area", err)
		}
		out = append(out, *area)
	}
	return out, rows.Err()
}

// TryAdvisoryLock attempts a session-scoped Postgres advisory lock. The
// weather poller uses it as a leader guard so only one replica ingests per
// cycle.
func TryAdvisoryLock(ctx context.Context, db DBTX, key int64) (bool, error) {
	var got bool
	if err := db.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, key).Scan(&got); err != nil {
		return false, storeErr("failed to acquire advisory lock", err)
	}
	return got, nil
}

// AdvisoryUnlock releases an advisory lock taken by TryAdvisoryLock.
func AdvisoryUnlock(ctx context.Context, db DBTX, key int64) error {
	if _, err := db.Exec(ctx, `SELECT pg_advisory_unlock($1)`, key); err != nil {
		return storeErr("failed to release advisory lock", err)
	}
	return nil
}
