package models

// Provenance is the tier at which a rate was resolved.
type Provenance string

const (
	// ProvenanceExplicit means a ProjectRate for the exact board triple matched.
	ProvenanceExplicit Provenance = "explicit"
	// ProvenanceDefault means the role's DefaultRoleRate was used.
	ProvenanceDefault Provenance = "default"
	// ProvenanceNone means no rate exists at any tier; the rate is 0.
	ProvenanceNone Provenance = "none"
)

// String returns the string representation of a Provenance.
func (p Provenance) String() string {
	return string(p)
}

// Resolved reports whether a rate was found at a real tier.
func (p Provenance) Resolved() bool {
	return p == ProvenanceExplicit || p == ProvenanceDefault
}

// Resolution is the outcome of rate resolution. It always carries a usable rate.
type Resolution struct {
	RoleID     string     `json:"role_id"`
	Rate       int        `json:"rate"`
	Label      string     `json:"label"`
	Provenance Provenance `json:"provenance"`
}

// RoleResolution pairs a board-visible role with its resolution.
type RoleResolution struct {
	RoleID     string     `json:"role_id"`
	RoleName   string     `json:"role_name"`
	Rate       int        `json:"rate"`
	Provenance Provenance `json:"provenance"`
}

// BoardValidity describes whether a board can be reported on.
type BoardValidity struct {
	ProjectID string `json:"project_id"`
	BoardID   string `json:"board_id"`
	Title     string `json:"title"`
	// Valid is true when every board role resolves explicitly or by default.
	Valid bool `json:"valid"`
	// AutoRates is true when at least one role fell back to its default rate.
	AutoRates bool             `json:"auto_rates"`
	Roles     []RoleResolution `json:"roles"`
	// MissingRoles lists roles that resolved to provenance none.
	MissingRoles []string `json:"missing_roles,omitempty"`
}

// ProjectValidity aggregates board validity for one project.
type ProjectValidity struct {
	ProjectID string          `json:"project_id"`
	Title     string          `json:"title"`
	HasRates  bool            `json:"has_rates"`
	Boards    []BoardValidity `json:"boards"`
}

// ReportableBoards returns the boards that are valid for reporting.
func (p ProjectValidity) ReportableBoards() []BoardValidity {
	var out []BoardValidity
	for _, b := range p.Boards {
		if b.Valid {
			out = append(out, b)
		}
	}
	return out
}
