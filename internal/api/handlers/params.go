package handlers

import (
	"net/http"
	"strconv"
	"time"

	"floodwatch/internal/types"
)

// scopeFromQuery builds a LocationScope from the standard query parameters.
// area_id wins over municipality_id when both are present; neither means
// global.
func scopeFromQuery(r *http.Request) types.LocationScope {
	q := r.URL.Query()
	if areaID := q.Get("area_id"); areaID != "" {
		return types.AreaScope(areaID)
	}
	if munID := q.Get("municipality_id"); munID != "" {
		return types.MunicipalityScope(munID)
	}
	return types.GlobalScope()
}

// intQuery parses an optional integer query parameter, returning def when the
// parameter is absent or malformed.
func intQuery(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// timeQuery parses an optional RFC3339 query parameter. A malformed value is
// an error; an absent one returns the zero time with nil error.
func timeQuery(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, types.NewAppError(
			types.ErrCodeValidationInvalidValue,
			name+" must be a valid RFC3339 timestamp",
			nil,
		)
	}
	return t.UTC(), nil
}

// parameterFromString validates a parameter name from the URL or query.
func parameterFromString(raw string) (types.Parameter, error) {
	p := types.Parameter(raw)
	if !p.Valid() {
		return "", types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidParameter,
			"unknown parameter "+raw,
			nil,
			map[string]any{"valid_parameters": types.KnownParameters},
		)
	}
	return p, nil
}
