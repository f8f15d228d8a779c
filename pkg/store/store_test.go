package store

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsTerminal(t *testing.T) {
	for _, status := range []string{StatusComplete, StatusFailed, StatusCancelled} {
		assert.True(t, IsTerminal(status), "expected %s to be terminal", status)
	}
	for _, status := range []string{StatusPending, StatusRunning, StatusPaused, StatusAwaitingInput} {
		assert.False(t, IsTerminal(status), "expected %s to be non-terminal", status)
	}
}

func TestVectorLiteral(t *testing.T) {
	assert.Equal(t, "[0.5,-1,0.25]", vectorLiteral([]float32{0.5, -1, 0.25}))
	assert.Equal(t, "[]", vectorLiteral(nil))

	big := vectorLiteral(make([]float32, 1536))
	assert.Equal(t, 1535, strings.Count(big, ","), "expected 1536 components")
}

func TestTruncateChars(t *testing.T) {
	assert.Equal(t, "hello", truncateChars("hello", 10), "short input passes through")
	assert.Equal(t, "hello", truncateChars("hello world", 5))

	// Multi-byte input whose byte length exceeds the cap but whose rune
	// count does not must survive intact.
	accented := strings.Repeat("é", 10)
	assert.Equal(t, accented, truncateChars(accented, 10))

	// Cutting inside a multi-byte sequence would produce invalid UTF-8;
	// the cap counts characters instead.
	got := truncateChars(accented, 7)
	assert.Equal(t, 7, utf8.RuneCountInString(got))
	assert.True(t, utf8.ValidString(got))
}

func TestMarshalMetadata(t *testing.T) {
	got, err := marshalMetadata(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", got, "nil metadata should marshal to an empty object")

	got, err = marshalMetadata(map[string]any{"source": "agent"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"source":"agent"}`, got)
}
