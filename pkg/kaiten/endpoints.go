package kaiten

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// CardPageSize is the page size used when listing cards.
const CardPageSize = 1000

// CardQuery selects the cards of one project.
type CardQuery struct {
	ProjectID string
	// BoardID, when set, keeps only cards that live on this board.
	BoardID string
	// Filter is an encoded card filter (see BillingFilter); empty means none.
	Filter string
}

// Projects lists spaces visible to the token.
func (c *Client) Projects(ctx context.Context) ([]Project, error) {
	var out []Project
	if err := c.getJSON(ctx, "/spaces", nil, "projects", 0, "array of projects", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Boards lists the boards of a project.
func (c *Client) Boards(ctx context.Context, projectID string) ([]Board, error) {
	p := fmt.Sprintf("/spaces/%s/boards", url.PathEscape(projectID))
	var out []Board
	if err := c.getJSON(ctx, p, nil, "boards", 0, "array of boards", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// BoardRoles lists the roles scoped to a board.
func (c *Client) BoardRoles(ctx context.Context, projectID, boardID string) ([]Role, error) {
	p := fmt.Sprintf("/spaces/%s/boards/%s/roles", url.PathEscape(projectID), url.PathEscape(boardID))
	var out []Role
	if err := c.getJSON(ctx, p, nil, "board_roles", c.lookupTimeout, "array of roles", &out); err != nil {
		return nil, err
	}
	return withoutUnassigned(out), nil
}

// Roles lists company-wide roles, without the "unassigned" sentinel.
func (c *Client) Roles(ctx context.Context) ([]Role, error) {
	var out []Role
	if err := c.getJSON(ctx, "/user-roles", nil, "roles", 0, "array of roles", &out); err != nil {
		return nil, err
	}
	return withoutUnassigned(out), nil
}

// Users lists company users. Kaiten answers either with a bare array or with
// an object wrapping it under "users".
func (c *Client) Users(ctx context.Context) ([]User, error) {
	const p = "/users"
	resp, err := c.Do(ctx, Call{Method: http.MethodGet, Path: p, Endpoint: "users", Timeout: c.lookupTimeout})
	if err != nil {
		return nil, err
	}

	var list []User
	if err := json.Unmarshal(resp.Body, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Users []User `json:"users"`
	}
	if err := resp.Decode(p, "array of users or {users: [...]}", &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Users, nil
}

// Cards lists every card of a project, walking pages until a short page.
func (c *Client) Cards(ctx context.Context, q CardQuery) ([]Card, error) {
	var all []Card
	for offset := 0; ; offset += CardPageSize {
		query := url.Values{}
		query.Set("space_id", q.ProjectID)
		query.Set("offset", strconv.Itoa(offset))
		query.Set("limit", strconv.Itoa(CardPageSize))
		if q.Filter != "" {
			query.Set("filter", q.Filter)
		}

		var page []Card
		if err := c.getJSON(ctx, "/cards", query, "cards", 0, "array of cards", &page); err != nil {
			return nil, err
		}
		for _, card := range page {
			if q.BoardID != "" && string(card.BoardID) != q.BoardID {
				continue
			}
			all = append(all, card)
		}
		if len(page) < CardPageSize {
			break
		}
	}
	return all, nil
}

// TimeLogs lists the time-log entries of a card.
func (c *Client) TimeLogs(ctx context.Context, cardID string) ([]TimeLog, error) {
	p := fmt.Sprintf("/cards/%s/time-logs", url.PathEscape(cardID))
	var out []TimeLog
	if err := c.getJSON(ctx, p, nil, "time_logs", 0, "array of time logs", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SelectValues lists the live options of a select custom property.
func (c *Client) SelectValues(ctx context.Context, propertyID string) ([]SelectValue, error) {
	p := fmt.Sprintf("/company/custom-properties/%s/select-values", url.PathEscape(propertyID))
	var raw []SelectValue
	if err := c.getJSON(ctx, p, nil, "select_values", c.lookupTimeout, "array of select values", &raw); err != nil {
		return nil, err
	}
	out := make([]SelectValue, 0, len(raw))
	for _, v := range raw {
		if v.Deleted {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// Columns lists the status columns of a board.
func (c *Client) Columns(ctx context.Context, boardID string) ([]Column, error) {
	p := fmt.Sprintf("/boards/%s/columns", url.PathEscape(boardID))
	var out []Column
	if err := c.getJSON(ctx, p, nil, "columns", c.lookupTimeout, "array of columns", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Lanes lists the swimlanes of a board.
func (c *Client) Lanes(ctx context.Context, boardID string) ([]Lane, error) {
	p := fmt.Sprintf("/boards/%s/lanes", url.PathEscape(boardID))
	var out []Lane
	if err := c.getJSON(ctx, p, nil, "lanes", c.lookupTimeout, "array of lanes", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// getJSON issues a GET and decodes the body into v. A zero timeout means the
// client default.
func (c *Client) getJSON(ctx context.Context, p string, query url.Values, endpoint string, timeout time.Duration, expected string, v interface{}) error {
	call := Call{Method: http.MethodGet, Path: p, Query: query, Endpoint: endpoint, Timeout: timeout}
	resp, err := c.Do(ctx, call)
	if err != nil {
		return err
	}
	return resp.Decode(p, expected, v)
}

func withoutUnassigned(roles []Role) []Role {
	out := make([]Role, 0, len(roles))
	for _, r := range roles {
		if string(r.ID) == UnassignedRoleID {
			continue
		}
		out = append(out, r)
	}
	return out
}
