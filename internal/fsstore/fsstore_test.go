package fsstore

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadWriteJSONAtomic(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "state.json")
	type payload struct {
		Name string `json:"name"`
	}

	require.NoError(t, WriteJSONAtomic(path, payload{Name: "alpha"}, FileOptions{}))

	var out payload
	ok, err := ReadJSON(path, &out)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "alpha", out.Name)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestReadJSON_MissingAndBlank(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var out map[string]string

	ok, err := ReadJSON(filepath.Join(dir, "nope.json"), &out)
	require.NoError(t, err)
	assert.False(t, ok)

	blank := filepath.Join(dir, "blank.json")
	require.NoError(t, os.WriteFile(blank, []byte("  \n"), 0o600))
	ok, err = ReadJSON(blank, &out)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReadJSON_Corrupt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	var out map[string]string
	_, err := ReadJSON(path, &out)
	assert.ErrorIs(t, err, ErrDecodeFailed)
}

func TestWriteAtomic_NoTempLeftovers(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "data.txt")
	for _, body := range []string{"one", "two", "three"} {
		require.NoError(t, WriteAtomic(path, strings.NewReader(body), FileOptions{}))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "data.txt", entries[0].Name())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "three", string(got))
}

func TestCopyAtomic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "src.json")
	dst := filepath.Join(dir, "out", "dst.json")
	require.NoError(t, os.WriteFile(src, []byte(`{"a":1}`), 0o600))

	n, err := CopyAtomic(src, dst, FileOptions{})
	require.NoError(t, err)
	assert.EqualValues(t, 7, n)

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))

	_, err = CopyAtomic(filepath.Join(dir, "missing"), dst, FileOptions{})
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
