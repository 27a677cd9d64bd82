package replhistory

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndRecentRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	h, err := Open(path)
	require.NoError(t, err)
	defer h.Close()

	require.NoError(t, h.Append("print 1;", "1"))
	require.NoError(t, h.Append("print 2;", "2"))
	require.NoError(t, h.Append("print 3;", "3"))

	entries, err := h.Recent(2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "print 2;", entries[0].Line, "Recent returns oldest-first within the window")
	assert.Equal(t, "print 3;", entries[1].Line)
}

func TestRecentOnEmptyHistoryReturnsNoRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	h, err := Open(path)
	require.NoError(t, err)
	defer h.Close()

	entries, err := h.Recent(5)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOpenCreatesSchemaIdempotently(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	h1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, h1.Append("var x = 1;", ""))
	require.NoError(t, h1.Close())

	h2, err := Open(path)
	require.NoError(t, err)
	defer h2.Close()

	entries, err := h2.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "var x = 1;", entries[0].Line)
}
