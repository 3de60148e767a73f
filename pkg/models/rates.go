// Package models contains domain types for kaiten-billing.
package models

import "time"

// DefaultRoleRate is the company-wide fallback rate for a role.
type DefaultRoleRate struct {
	ID          int64     `json:"id"`
	RoleID      string    `json:"role_id"`
	RoleName    string    `json:"role_name"`
	DefaultRate *int      `json:"default_rate"`
	LastSync    time.Time `json:"last_sync"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProjectRate is an explicit rate for one (project, board, role) triple.
type ProjectRate struct {
	ID           int64     `json:"id"`
	ProjectID    string    `json:"project_id"`
	BoardID      string    `json:"board_id"`
	RoleID       string    `json:"role_id"`
	ProjectTitle string    `json:"project_title"`
	BoardTitle   string    `json:"board_title"`
	RoleName     string    `json:"role_name"`
	Rate         *int      `json:"rate"`
	LastSync     time.Time `json:"last_sync"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BoardKey identifies the rate scope of a board.
type BoardKey struct {
	ProjectID string
	BoardID   string
}

// RoleOverride forces every time-log of one Kaiten user to be billed under
// OverrideRoleID. Overrides are operator-managed and never pruned by sync.
type RoleOverride struct {
	ID             int64     `json:"id"`
	KaitenUserID   string    `json:"kaiten_user_id"`
	Email          string    `json:"email"`
	OverrideRoleID string    `json:"override_role_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// RateUpdate is one operator edit: the role it targets and the new value.
// A nil Rate clears the stored value.
type RateUpdate struct {
	RoleID string `json:"role_id"`
	Rate   *int   `json:"rate"`
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }
