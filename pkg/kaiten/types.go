package kaiten

import (
	"encoding/json"

	"github.com/lecap-inc/kaiten-billing/pkg/jsonutil"
)

// UnassignedRoleID is the sentinel role Kaiten reports for "no role".
const UnassignedRoleID = "-1"

// ID is a Kaiten identifier. Kaiten returns ids as numbers in most endpoints
// and as strings in a few; both decode to the same decimal string.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	*id = ID(jsonutil.FlexibleStringValue(data))
	return nil
}

// String returns the id as a plain string.
func (id ID) String() string { return string(id) }

// Minutes is a duration in minutes that tolerates strings, null and garbage.
type Minutes float64

// UnmarshalJSON implements json.Unmarshaler. Unparseable values become 0.
func (m *Minutes) UnmarshalJSON(data []byte) error {
	*m = Minutes(jsonutil.FlexibleFloatValue(data))
	return nil
}

// Hours converts minutes to fractional hours.
func (m Minutes) Hours() float64 { return float64(m) / 60.0 }

// Project is a Kaiten space.
type Project struct {
	ID    ID     `json:"id"`
	Title string `json:"title"`
}

// Board belongs to a project.
type Board struct {
	ID    ID     `json:"id"`
	Title string `json:"title"`
}

// Role is either a company-wide role or a board-scoped one.
type Role struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// User is a Kaiten company member.
type User struct {
	ID       ID     `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// Card is a task. Only fields the billing report needs are decoded.
type Card struct {
	ID      ID     `json:"id"`
	Title   string `json:"title"`
	BoardID ID     `json:"board_id"`
	SpaceID ID     `json:"space_id"`
}

// Author identifies who logged time.
type Author struct {
	ID       ID     `json:"id"`
	FullName string `json:"full_name"`
}

// TimeLog is one time-log entry of a card.
type TimeLog struct {
	ID        ID      `json:"id"`
	CardID    ID      `json:"card_id"`
	UserID    ID      `json:"user_id"`
	Author    *Author `json:"author"`
	RoleID    ID      `json:"role_id"`
	Created   string  `json:"created"`
	ForDate   string  `json:"for_date"`
	TimeSpent Minutes `json:"time_spent"`
	Comment   string  `json:"comment"`
}

// AuthorID returns the author id, falling back to user_id.
func (l TimeLog) AuthorID() string {
	if l.Author != nil && l.Author.ID != "" {
		return string(l.Author.ID)
	}
	return string(l.UserID)
}

// AuthorName returns the author's full name or "" when absent.
func (l TimeLog) AuthorName() string {
	if l.Author == nil {
		return ""
	}
	return l.Author.FullName
}

// SelectValue is one option of a select-type custom property.
type SelectValue struct {
	ID      ID     `json:"id"`
	Name    string `json:"value"`
	Deleted bool   `json:"deleted"`
}

// Column is a board status column.
type Column struct {
	ID    ID     `json:"id"`
	Title string `json:"title"`
}

// UnmarshalJSON accepts either "name" or "title" for the column label.
func (c *Column) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID    ID     `json:"id"`
		Name  string `json:"name"`
		Title string `json:"title"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.ID = raw.ID
	c.Title = raw.Name
	if c.Title == "" {
		c.Title = raw.Title
	}
	return nil
}

// Lane is a board swimlane.
type Lane struct {
	ID    ID     `json:"id"`
	Title string `json:"title"`
}

// UnmarshalJSON accepts either "title" or "name" for the lane label.
func (l *Lane) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID    ID     `json:"id"`
		Name  string `json:"name"`
		Title string `json:"title"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	l.ID = raw.ID
	l.Title = raw.Title
	if l.Title == "" {
		l.Title = raw.Name
	}
	return nil
}
