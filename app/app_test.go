package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandsRegistered(t *testing.T) {
	app := Get()

	for _, name := range []string{
		"daemon", "status", "today", "watch", "stats", "projects", "sync", "toggle",
		"pause", "resume", "focus", "language", "login", "reset-today",
		"reset-project", "import", "edit-config", "dev-server",
	} {
		assert.NotNil(t, app.Command(name), name)
	}
}

func TestParseFocus(t *testing.T) {
	for _, in := range []string{"on", "ON", " true ", "1"} {
		got, err := parseFocus(in)
		require.NoError(t, err)
		assert.True(t, got, in)
	}

	for _, in := range []string{"off", "false", "0"} {
		got, err := parseFocus(in)
		require.NoError(t, err)
		assert.False(t, got, in)
	}

	_, err := parseFocus("maybe")
	assert.ErrorIs(t, err, errInvalidFocus)
}

func TestFirstNonEmptyString(t *testing.T) {
	assert.Equal(t, "b", firstNonEmptyString("", "b", "c"))
	assert.Empty(t, firstNonEmptyString("", ""))
}

func TestEditorCommand(t *testing.T) {
	t.Setenv("VISUAL", "")
	t.Setenv("EDITOR", `code --wait "--user-data-dir=/tmp/a b"`)

	args, err := editorCommand()
	require.NoError(t, err)
	assert.Equal(t, []string{"code", "--wait", "--user-data-dir=/tmp/a b"}, args)

	t.Setenv("VISUAL", "vim")

	args, err = editorCommand()
	require.NoError(t, err)
	assert.Equal(t, []string{"vim"}, args)
}

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, validateUsername("ayo@example.com"))
	assert.Error(t, validateUsername("  "))
}
