package db

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrapScriptSizesEmbeddingColumn(t *testing.T) {
	script, err := bootstrapScript(768)
	require.NoError(t, err)
	assert.Contains(t, script, "VECTOR(768)")
	assert.NotContains(t, script, "__EMBED_DIM__", "every placeholder must be substituted")
	assert.True(t, strings.Contains(script, "CREATE EXTENSION IF NOT EXISTS vector"))

	script, err = bootstrapScript(1536)
	require.NoError(t, err)
	assert.Contains(t, script, "VECTOR(1536)")
}
