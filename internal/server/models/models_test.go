package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	for in, want := range map[string]Role{
		"":        RoleRegular,
		"admin":   RoleAdmin,
		"regular": RoleRegular,
		"guest":   RoleGuest,
	} {
		got, err := ParseRole(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseRole("root")
	assert.Error(t, err)
}

func TestParsePermission(t *testing.T) {
	for in, want := range map[string]Permission{
		"":         PermissionView,
		"view":     PermissionView,
		"download": PermissionDownload,
	} {
		got, err := ParsePermission(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParsePermission("edit")
	assert.Error(t, err)
}

func TestAction_String(t *testing.T) {
	assert.Equal(t, "preview", ActionPreview.String())
	assert.Equal(t, "download", ActionDownload.String())
	assert.Equal(t, "action(9)", Action(9).String())
}
