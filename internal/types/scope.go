package types

import "fmt"

// ScopeKind discriminates the LocationScope variants.
type ScopeKind string

const (
	ScopeGlobal       ScopeKind = "global"
	ScopeMunicipality ScopeKind = "municipality"
	ScopeArea         ScopeKind = "area"
)

// LocationScope is an explicit sum type for location filtering. Query
// construction dispatches on Kind instead of conditionally assembling filter
// maps: Global matches everything, Municipality narrows to one municipality's
// sensors and areas, Area narrows to a single area.
type LocationScope struct {
	Kind           ScopeKind
	MunicipalityID string // set when Kind == ScopeMunicipality
	AreaID         string // set when Kind == ScopeArea
}

// GlobalScope returns the scope that matches all locations.
func GlobalScope() LocationScope {
	return LocationScope{Kind: ScopeGlobal}
}

// MunicipalityScope returns a scope narrowed to one municipality.
func MunicipalityScope(id string) LocationScope {
	return LocationScope{Kind: ScopeMunicipality, MunicipalityID: id}
}

// AreaScope returns a scope narrowed to a single area.
func AreaScope(id string) LocationScope {
	return LocationScope{Kind: ScopeArea, AreaID: id}
}

// IsGlobal reports whether the scope matches everything.
func (s LocationScope) IsGlobal() bool {
	return s.Kind == ScopeGlobal || s.Kind == ""
}

// Validate checks that the discriminator and its payload agree.
func (s LocationScope) Validate() error {
	switch s.Kind {
	case ScopeGlobal, "":
		return nil
	case ScopeMunicipality:
		if s.MunicipalityID == "" {
			return fmt.Errorf("municipality scope requires a municipality id")
		}
		return nil
	case ScopeArea:
		if s.AreaID == "" {
			return fmt.Errorf("area scope requires an area id")
		}
		return nil
	}
	return fmt.Errorf("unknown scope kind %q", s.Kind)
}

// String renders the scope for log output.
func (s LocationScope) String() string {
	switch s.Kind {
	case ScopeMunicipality:
		return "municipality:" + s.MunicipalityID
	case ScopeArea:
		return "area:" + s.AreaID
	}
	return "global"
}
