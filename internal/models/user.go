// Package models defines the user and session types shared by the auth
// helpers, the route guard and the CLI.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// ID accepts both JSON strings and numbers.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid id %s", string(b))
	}
	*id = ID(n.String())
	return nil
}

// Names is a list of role or permission names. It decodes from an array of
// strings or an array of objects carrying a "name" field.
type Names []string

func (n *Names) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(Names, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
			continue
		}
		var obj struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(item, &obj); err != nil {
			return fmt.Errorf("invalid name entry %s", string(item))
		}
		if obj.Name != "" {
			out = append(out, obj.Name)
		}
	}
	*n = out
	return nil
}

// Has reports whether name is present, compared case-insensitively.
func (n Names) Has(name string) bool {
	return slices.ContainsFunc(n, func(s string) bool { return strings.EqualFold(s, name) })
}

type User struct {
	ID          ID             `json:"id"`
	Name        string         `json:"name,omitempty"`
	Email       string         `json:"email,omitempty"`
	Roles       Names          `json:"roles"`
	Permissions Names          `json:"permissions"`
	Attributes  map[string]any `json:"attributes,omitempty"`
}

func (u *User) HasRole(role string) bool {
	return u != nil && u.Roles.Has(role)
}

func (u *User) HasPermission(perm string) bool {
	return u != nil && u.Permissions.Has(perm)
}

// DisplayName is Name, falling back to Email and then ID.
func (u *User) DisplayName() string {
	switch {
	case u == nil:
		return ""
	case u.Name != "":
		return u.Name
	case u.Email != "":
		return u.Email
	}
	return string(u.ID)
}

// UserFromAny decodes a generic JSON value into a User.
func UserFromAny(v any) (*User, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode user: %w", err)
	}
	var u User
	if err := json.Unmarshal(b, &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &u, nil
}
