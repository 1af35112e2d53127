package editor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "demo.flow")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestOpenAndCode(t *testing.T) {
	path := writeSource(t, "fetch = http_get(url)\n")
	s, err := Open(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "fetch = http_get(url)\n", s.Code())
	assert.Equal(t, path, s.Path())
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.flow"), nil)
	require.Error(t, err)
}

func TestSetCode_WritesThrough(t *testing.T) {
	path := writeSource(t, "old\n")
	s, err := Open(path, nil)
	require.NoError(t, err)

	require.NoError(t, s.SetCode("new\n"))
	assert.Equal(t, "new\n", s.Code())

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new\n", string(onDisk))
}

func TestReload(t *testing.T) {
	path := writeSource(t, "v1\n")
	s, err := Open(path, nil)
	require.NoError(t, err)

	changed, err := s.Reload()
	require.NoError(t, err)
	assert.False(t, changed)

	require.NoError(t, os.WriteFile(path, []byte("v2\n"), 0o644))
	changed, err = s.Reload()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "v2\n", s.Code())
}

func TestHighlightLines(t *testing.T) {
	s, err := Open(writeSource(t, "x\n"), nil)
	require.NoError(t, err)

	start, end := s.HighlightedLines()
	assert.Zero(t, start)
	assert.Zero(t, end)

	s.HighlightLines(3, 5)
	start, end = s.HighlightedLines()
	assert.Equal(t, 3, start)
	assert.Equal(t, 5, end)
}

func TestWatch_FiresOnContentChange(t *testing.T) {
	path := writeSource(t, "v1\n")
	s, err := Open(path, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, func() {
			select {
			case changes <- struct{}{}:
			default:
			}
		})
	}()

	// Give the watcher a moment to register before writing.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("v2\n"), 0o644))

	select {
	case <-changes:
	case <-time.After(3 * time.Second):
		t.Fatal("expected a change notification")
	}
	assert.Equal(t, "v2\n", s.Code())

	cancel()
	require.NoError(t, <-done)
}
