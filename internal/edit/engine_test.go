package edit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectEngineDefaultsToDirect(t *testing.T) {
	for _, name := range []string{"", "direct", "none"} {
		engine, err := SelectEngine(name, "")
		require.NoError(t, err)
		assert.Equal(t, "direct", engine.Name())
		assert.False(t, engine.Interactive())
	}
}

func TestSelectEngineAssistants(t *testing.T) {
	claude, err := SelectEngine("claude", "sonnet")
	require.NoError(t, err)
	assert.True(t, claude.Interactive())

	codex, err := SelectEngine("codex", "")
	require.NoError(t, err)
	assert.False(t, codex.Interactive())
}

func TestSelectEngineUnknownErrors(t *testing.T) {
	_, err := SelectEngine("hal9000", "")
	assert.Error(t, err)
}
