package users

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Project is an opaque project document. Its shape is owned by the upstream
// API and is not interpreted here.
type Project map[string]any

// User is a single record of the upstream users API.
type User struct {
	ID                     string    `json:"id"`
	Name                   *string   `json:"name,omitempty"`
	Image                  *string   `json:"image,omitempty"`
	CreatedAt              string    `json:"createdAt"`
	Projects               []Project `json:"projects"`
	PurchasedProgressHours float64   `json:"purchasedProgressHours"`
	TotalShellsSpent       float64   `json:"totalShellsSpent"`
	AdminShellAdjustment   float64   `json:"adminShellAdjustment"`
}

// Data is the render-time context of the users page.
type Data struct {
	Users []User `json:"users"`
}

type wireUser struct {
	ID                     *string         `json:"id"`
	Name                   *string         `json:"name"`
	Image                  *string         `json:"image"`
	CreatedAt              *string         `json:"createdAt"`
	Projects               json.RawMessage `json:"projects"`
	PurchasedProgressHours *float64        `json:"purchasedProgressHours"`
	TotalShellsSpent       *float64        `json:"totalShellsSpent"`
	AdminShellAdjustment   *float64        `json:"adminShellAdjustment"`
}

var jsonNull = []byte("null")

// UnmarshalJSON decodes and validates a single user object. Errors are
// *ValidationError with Index set to -1; DecodeUsers fills in the position.
func (u *User) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return &ValidationError{Index: -1, Reason: "expected a JSON object"}
	}

	var w wireUser
	if err := json.Unmarshal(data, &w); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return &ValidationError{
				Index:  -1,
				Field:  typeErr.Field,
				Reason: fmt.Sprintf("got JSON %s, want %s", typeErr.Value, typeErr.Type),
			}
		}
		return err
	}

	if w.ID == nil || *w.ID == "" {
		return &ValidationError{Index: -1, Field: "id", Reason: "required"}
	}
	if w.CreatedAt == nil || *w.CreatedAt == "" {
		return &ValidationError{Index: -1, Field: "createdAt", Reason: "required"}
	}

	projects, err := decodeProjects(w.Projects)
	if err != nil {
		return err
	}

	*u = User{
		ID:        *w.ID,
		Name:      w.Name,
		Image:     w.Image,
		CreatedAt: *w.CreatedAt,
		Projects:  projects,
	}
	if w.PurchasedProgressHours != nil {
		u.PurchasedProgressHours = *w.PurchasedProgressHours
	}
	if w.TotalShellsSpent != nil {
		u.TotalShellsSpent = *w.TotalShellsSpent
	}
	if w.AdminShellAdjustment != nil {
		u.AdminShellAdjustment = *w.AdminShellAdjustment
	}
	return nil
}

func decodeProjects(raw json.RawMessage) ([]Project, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, jsonNull) {
		return nil, nil
	}
	if raw[0] != '[' {
		return nil, &ValidationError{Index: -1, Field: "projects", Reason: "expected a JSON array"}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}

	projects := make([]Project, 0, len(items))
	for i, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '{' {
			return nil, &ValidationError{
				Index:  -1,
				Field:  fmt.Sprintf("projects[%d]", i),
				Reason: "expected a JSON object",
			}
		}
		var p Project
		if err := json.Unmarshal(item, &p); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, nil
}

// DecodeUsers parses a users API response body. The body must be a JSON
// array of user objects; an empty array yields an empty, non-nil slice.
func DecodeUsers(body []byte) ([]User, error) {
	if !json.Valid(body) {
		var v any
		err := json.Unmarshal(body, &v)
		if err == nil {
			err = errors.New("invalid JSON")
		}
		return nil, &DecodeError{Err: err}
	}

	body = bytes.TrimSpace(body)
	if body[0] != '[' {
		return nil, &ValidationError{Index: -1, Reason: "expected a JSON array"}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, &DecodeError{Err: err}
	}

	users := make([]User, len(items))
	for i, item := range items {
		if err := json.Unmarshal(item, &users[i]); err != nil {
			var vErr *ValidationError
			if errors.As(err, &vErr) {
				vErr.Index = i
				return nil, vErr
			}
			return nil, &DecodeError{Err: err}
		}
	}
	return users, nil
}

// DisplayName returns the user's name, or fallback when it is unset or blank.
func (u User) DisplayName(fallback string) string {
	if u.Name == nil || *u.Name == "" {
		return fallback
	}
	return *u.Name
}

// ImageURL returns the avatar URL, or "" when unset.
func (u User) ImageURL() string {
	if u.Image == nil {
		return ""
	}
	return *u.Image
}

// Joined parses CreatedAt as an RFC 3339 timestamp.
func (u User) Joined() (time.Time, error) {
	return time.Parse(time.RFC3339, u.CreatedAt)
}
