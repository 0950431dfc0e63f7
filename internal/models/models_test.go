package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRole(t *testing.T) {
	cases := map[string]UserRole{
		"admin":     RoleAdmin,
		" Manager ": RoleManager,
		"sales":     RoleSales,
		"":          RoleSales,
		"superuser": RoleSales,
		"engineer":  RoleSales,
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeRole(in), "input %q", in)
	}
}

func TestParseStage(t *testing.T) {
	for _, s := range Stages {
		got, ok := ParseStage(string(s))
		assert.True(t, ok)
		assert.Equal(t, s, got)
	}
	_, ok := ParseStage("won")
	assert.False(t, ok)
	_, ok = ParseStage("CLOSED_WON")
	assert.False(t, ok)
}

func TestParseActivityType(t *testing.T) {
	got, ok := ParseActivityType(" meeting ")
	assert.True(t, ok)
	assert.Equal(t, ActivityMeeting, got)

	_, ok = ParseActivityType("sms")
	assert.False(t, ok)
}

func TestDisplayName(t *testing.T) {
	name := "Alice Doe"
	assert.Equal(t, "Alice Doe", User{Username: "alice", FullName: &name}.DisplayName())
	assert.Equal(t, "alice", User{Username: "alice"}.DisplayName())
	empty := ""
	assert.Equal(t, "alice", User{Username: "alice", FullName: &empty}.DisplayName())
}

func TestFoldIdentifier(t *testing.T) {
	assert.Equal(t, "alice", FoldIdentifier("  ALICE "))
	assert.Equal(t, "a@b.io", FoldIdentifier("A@B.io"))
}
