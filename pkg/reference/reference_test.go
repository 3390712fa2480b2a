package reference

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratorNext(t *testing.T) {
	gen, err := NewGenerator(1, "")
	require.NoError(t, err)

	at := time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		ref := gen.Next(at)
		require.True(t, strings.HasPrefix(ref, "OR-2025-"), ref)
		_, dup := seen[ref]
		require.False(t, dup, "duplicate reference %s", ref)
		seen[ref] = struct{}{}
	}
}

func TestParse(t *testing.T) {
	gen, err := NewGenerator(3, "ar")
	require.NoError(t, err)

	ref := gen.Next(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))
	prefix, year, id, err := Parse(ref)
	require.NoError(t, err)
	assert.Equal(t, "AR", prefix)
	assert.Equal(t, 2026, year)
	assert.Positive(t, id)

	_, _, _, err = Parse("OR-2026")
	assert.Error(t, err)
	_, _, _, err = Parse("OR-twenty-1")
	assert.Error(t, err)
}

func TestNewGeneratorRejectsInvalidNode(t *testing.T) {
	_, err := NewGenerator(5000, "OR")
	assert.Error(t, err)
}
