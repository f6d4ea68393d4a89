package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_Decode(t *testing.T) {
	var u User
	err := json.Unmarshal([]byte(`{
		"id": 42,
		"name": "Ada",
		"roles": ["admin", {"name": "Editor"}],
		"permissions": [{"name": "posts.edit", "guard": "web"}]
	}`), &u)
	require.NoError(t, err)

	assert.Equal(t, ID("42"), u.ID)
	assert.Equal(t, Names{"admin", "Editor"}, u.Roles)
	assert.True(t, u.HasRole("editor"))
	assert.False(t, u.HasRole("owner"))
	assert.True(t, u.HasPermission("posts.edit"))
	assert.Equal(t, "Ada", u.DisplayName())
}

func TestID_Variants(t *testing.T) {
	for in, want := range map[string]ID{`"abc"`: "abc", `7`: "7", `null`: "", `1.5`: "1.5"} {
		var id ID
		require.NoError(t, json.Unmarshal([]byte(in), &id), in)
		assert.Equal(t, want, id)
	}
	var id ID
	assert.Error(t, json.Unmarshal([]byte(`{}`), &id))
}

func TestNames_Invalid(t *testing.T) {
	var n Names
	assert.Error(t, json.Unmarshal([]byte(`[1]`), &n))
	assert.Error(t, json.Unmarshal([]byte(`"admin"`), &n))
}

func TestUserFromAny(t *testing.T) {
	u, err := UserFromAny(map[string]any{"id": int64(1), "email": "a@b.c", "roles": []any{"user"}})
	require.NoError(t, err)
	assert.Equal(t, ID("1"), u.ID)
	assert.Equal(t, "a@b.c", u.DisplayName())

	u, err = UserFromAny(nil)
	require.NoError(t, err)
	assert.Nil(t, u)

	var nilUser *User
	assert.False(t, nilUser.HasRole("x"))
	assert.Equal(t, "", nilUser.DisplayName())
}
