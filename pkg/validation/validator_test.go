package validation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

type signup struct {
	Email  string   `json:"email" binding:"required,email"`
	Passwd string   `json:"passwd" binding:"required,pwd"`
	Groups []string `json:"groups" binding:"max=2"`
}

func TestEmail(t *testing.T) {
	assert.True(t, Email("bob@example.com"))
	assert.False(t, Email("bob"))
	assert.False(t, Email(""))
}

func TestToDetails(t *testing.T) {
	err := standalone.Struct(struct {
		Email  string   `json:"email" validate:"required,email"`
		Passwd string   `json:"passwd" validate:"pwd"`
		Groups []string `json:"groups" validate:"max=2"`
	}{Email: "nope", Passwd: "123", Groups: []string{"a", "b", "c"}})

	d := ToDetails(err)
	assert.Equal(t, "must be a valid email", d["email"])
	assert.Equal(t, "must be at least 6 characters", d["passwd"])
	assert.Equal(t, "must contain at most 2 items", d["groups"])
	assert.Equal(t, "email must be a valid email; groups must contain at most 2 items; passwd must be at least 6 characters", Message(err))
}

func TestToDetailsBadJSON(t *testing.T) {
	var v signup
	err := json.Unmarshal([]byte(`{"email": 1}`), &v)
	assert.Equal(t, map[string]string{"payload": "invalid json"}, ToDetails(err))
	assert.Nil(t, ToDetails(nil))
}
