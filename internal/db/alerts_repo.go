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

// AlertRepository provides data access for flood alerts. Alerts carry an
// explicit hazard_type column with a partial index on active rows, so the
// "one active alert per hazard" lookup is indexed rather than a title-prefix
// scan.
type AlertRepository struct {
	db DBTX
}

// NewAlertRepository creates an AlertRepository backed by the given database
// connection.
func NewAlertRepository(db DBTX) *AlertRepository {
	return &AlertRepository{db: db}
}

const alertColumns = `id, hazard_type, title, description, severity, active, issued_at, updated_at`

func scanAlert(row pgx.Row) (*types.Alert, error) {
	var a types.Alert
	err := row.Scan(
		&a.ID,
		&a.HazardType,
		&a.Title,
		&a.Description,
		&a.Severity,
		&a.Active,
		&a.IssuedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// FindActiveByHazard returns the active alert for a hazard type, or nil when
// none exists. If duplicates exist (a state the lifecycle manager never
// produces) the most recently updated one wins.
func (r *AlertRepository) FindActiveByHazard(ctx context.Context, hazard types.Parameter) (*types.Alert, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+alertColumns+`
		 FROM alerts
		 WHERE hazard_type = $1 AND active = TRUE
		 ORDER BY updated_at DESC
		 LIMIT 1`,
		string(hazard),
	)

	alert, err := scanAlert(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr("failed to find active alert", err)
	}
	return alert, nil
}

// Create inserts a new alert and its affected-area associations. The caller
// must set the ID (prefixed UUID, e.g. "alt_...").
func (r *AlertRepository) Create(ctx context.Context, alert *types.Alert) error {
	row := r.db.QueryRow(ctx,
		`INSERT INTO alerts (id, hazard_type, title, description, severity, active, issued_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		 RETURNING issued_at, updated_at`,
		alert.ID,
		string(alert.HazardType),
		alert.Title,
		alert.Description,
		int(alert.Severity),
		alert.Active,
	)
	if err := row.Scan(&alert.IssuedAt, &alert.UpdatedAt); err != nil {
		return storeErr("failed to create alert", err)
	}

	if len(alert.AffectedAreaIDs) > 0 {
		if err := r.SetAffectedAreas(ctx, alert.ID, alert.AffectedAreaIDs); err != nil {
			return err
		}
	}
	return nil
}

// Escalate raises an alert's severity and replaces its description. The
// update is conditional on the stored severity being lower, so concurrent
// escalations can never lower a tier; a stale escalation is simply a no-op.
// Returns the updated alert, or the current row unchanged when the condition
// did not hold.
func (r *AlertRepository) Escalate(ctx context.Context, id string, severity types.Tier, description string) (*types.Alert, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE alerts
		 SET severity = $2, description = $3, updated_at = NOW()
		 WHERE id = $1 AND active = TRUE AND severity < $2`,
		id, int(severity), description,
	)
	if err != nil {
		return nil, storeErr("failed to escalate alert", err)
	}
	_ = tag

	row := r.db.QueryRow(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = $1`, id)
	alert, err := scanAlert(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundAlert, "alert not found", nil)
		}
		return nil, storeErr("failed to reload alert", err)
	}
	return alert, nil
}

// SetAffectedAreas replaces the affected-area associations for an alert.
func (r *AlertRepository) SetAffectedAreas(ctx context.Context, alertID string, areaIDs []string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM alert_areas WHERE alert_id = $1`, alertID); err != nil {
		return storeErr("failed to clear alert areas", err)
	}
	for _, areaID := range areaIDs {
		if _, err := r.db.Exec(ctx,
			`INSERT INTO alert_areas (alert_id, area_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			alertID, areaID,
		); err != nil {
			return storeErr("failed to associate alert area", err)
		}
	}
	return nil
}

// RecentAlertAreaIDs returns the union of area IDs affected by alerts of at
// least minSeverity issued since the given time, narrowed by scope. Used by
// the affected-area resolver's recent-alert fallback.
func (r *AlertRepository) RecentAlertAreaIDs(ctx context.Context, minSeverity types.Tier, since time.Time, scope types.LocationScope) ([]string, error) {
	var sb strings.Builder
	sb.WriteString(
		`SELECT DISTINCT aa.area_id
		 FROM alerts a
		 JOIN alert_areas aa ON aa.alert_id = a.id
		 JOIN areas ar ON ar.id = aa.area_id
		 WHERE a.severity >= $1 AND a.issued_at >= $2`)

	args := []any{int(minSeverity), since}
	switch scope.Kind {
	case types.ScopeMunicipality:
		args = append(args, scope.MunicipalityID)
		fmt.Fprintf(&sb, " AND ar.municipality_id = $%d", len(args))
	case types.ScopeArea:
		args = append(args, scope.AreaID)
		fmt.Fprintf(&sb, " AND aa.area_id = $%d", len(args))
	}

	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, storeErr("failed to query recent alert areas", err)
	}
	defer rows.Close()

	var areaIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storeErr("failed to scan alert area id", err)
		}
		areaIDs = append(areaIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("failed to iterate alert areas", err)
	}
	return areaIDs, nil
}

// AlertListParams defines filtering for alert listings.
type AlertListParams struct {
	Active      *bool
	MinSeverity types.Tier
	Scope       types.LocationScope
	Limit       int
}

// List returns alerts newest-first with their affected-area IDs hydrated.
func (r *AlertRepository) List(ctx context.Context, p AlertListParams) ([]types.Alert, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT DISTINCT a.id, a.hazard_type, a.title, a.description,
		a.severity, a.active, a.issued_at, a.updated_at
		FROM alerts a`)

	var args []any
	var where []string
	switch p.Scope.Kind {
	case types.ScopeMunicipality:
		sb.WriteString(` JOIN alert_areas aa ON aa.alert_id = a.id
			JOIN areas ar ON ar.id = aa.area_id`)
		args = append(args, p.Scope.MunicipalityID)
		where = append(where, fmt.Sprintf("ar.municipality_id = $%d", len(args)))
	case types.ScopeArea:
		sb.WriteString(` JOIN alert_areas aa ON aa.alert_id = a.id`)
		args = append(args, p.Scope.AreaID)
		where = append(where, fmt.Sprintf("aa.area_id = $%d", len(args)))
	}
	if p.Active != nil {
		args = append(args, *p.Active)
		where = append(where, fmt.Sprintf("a.active = $%d", len(args)))
	}
	if p.MinSeverity > 0 {
		args = append(args, int(p.MinSeverity))
		where = append(where, fmt.Sprintf("a.severity >= $%d", len(args)))
	}
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY a.issued_at DESC")

	limit := p.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit)
	fmt.Fprintf(&sb, " LIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, storeErr("failed to list alerts", err)
	}
	defer rows.Close()

	var alerts []types.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, storeErr("failed to scan alert", err)
		}
		alerts = append(alerts, *alert)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("failed to iterate alerts", err)
	}

	for i := range alerts {
		ids, err := r.affectedAreaIDs(ctx, alerts[i].ID)
		if err != nil {
			return nil, err
		}
		alerts[i].AffectedAreaIDs = ids
	}
	return alerts, nil
}

func (r *AlertRepository) affectedAreaIDs(ctx context.Context, alertID string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT area_id FROM alert_areas WHERE alert_id = $1 ORDER BY area_id`, alertID)
	if err != nil {
		return nil, storeErr("failed to query alert areas", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storeErr("failed to scan alert area", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
