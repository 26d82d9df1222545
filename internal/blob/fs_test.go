package blob

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirRoundTrip(t *testing.T) {
	t.Parallel()

	d, err := NewDir(t.TempDir())
	require.NoError(t, err)

	n, err := d.Put("key-1", strings.NewReader("payload"))
	require.NoError(t, err)
	assert.Equal(t, int64(len("payload")), n)

	rc, err := d.Open("key-1")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "payload", string(data))

	require.NoError(t, d.Delete("key-1"))
	_, err = d.Open("key-1")
	assert.True(t, os.IsNotExist(err))

	// Deleting a missing key is not an error.
	assert.NoError(t, d.Delete("key-1"))
}

func TestDirConfinesKeys(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	d, err := NewDir(root)
	require.NoError(t, err)

	_, err = d.Put("../escape", strings.NewReader("x"))
	require.NoError(t, err)

	// The payload lands inside the root regardless of the key shape.
	_, err = os.Stat(filepath.Join(root, "escape"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(filepath.Dir(root), "escape"))
	assert.True(t, os.IsNotExist(err))
}
