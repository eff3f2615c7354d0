package util

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "00:00:01.500", FormatDuration(1500*time.Millisecond))
	assert.Equal(t, "01:02:03.000", FormatDuration(time.Hour+2*time.Minute+3*time.Second))
}

func TestSplitFrameRate(t *testing.T) {
	num, den, err := SplitFrameRate("30000/1001")
	require.NoError(t, err)
	assert.Equal(t, int64(30000), num)
	assert.Equal(t, int64(1001), den)

	_, _, err = SplitFrameRate("25")
	assert.Error(t, err)
	_, _, err = SplitFrameRate("a/b")
	assert.Error(t, err)
}

func TestParseFrameRate(t *testing.T) {
	assert.InDelta(t, 29.97, ParseFrameRate("30000/1001"), 0.01)
	assert.Equal(t, 25.0, ParseFrameRate("25/1"))
	assert.Equal(t, 0.0, ParseFrameRate("0/0"))
	assert.Equal(t, 0.0, ParseFrameRate("garbage"))
}

func TestFlattenPath(t *testing.T) {
	assert.Equal(t, "a.b.c.mp4", FlattenPath("/media", "/media/a/b/c.mp4"))
	assert.Equal(t, "a.b.c.mp4", FlattenPath("/media/", "/media/a/b/c.mp4"))
	assert.Equal(t, "c.mp4", FlattenPath("", "/media/a/b/c.mp4"))
}

func TestRemoveIfExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x")
	require.NoError(t, os.WriteFile(path, []byte("1"), 0644))

	require.NoError(t, RemoveIfExists(path))
	assert.False(t, FileExists(path))
	assert.NoError(t, RemoveIfExists(path))
}

func TestFlattenPathOutsideRoot(t *testing.T) {
	assert.Equal(t, "other.x.mp4", FlattenPath("/media", "/other/x.mp4"))
}
