package input

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiscoverMatchSuffixesRecursive(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tmp, "a", "b"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(tmp, "x"), 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(tmp, "a", "b", "file1.osm"), []byte("<osm/>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "file2.osh"), []byte("<osh/>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "x", "data.osm.pbf"), []byte{0x00, 0x01}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "x", "readme.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "CMakeLists.txt"), []byte("x"), 0o644))

	items, warns, err := Discover(tmp)
	require.NoError(t, err)
	require.Empty(t, warns)
	require.Len(t, items, 3)

	require.Equal(t, filepath.Join("a", "b", "file1.osm"), items[0].RelPath)
	require.False(t, items[0].Packed)
	require.Equal(t, "file2.osh", items[1].RelPath)
	require.False(t, items[1].Packed)
	require.Equal(t, filepath.Join("x", "data.osm.pbf"), items[2].RelPath)
	require.True(t, items[2].Packed)
}

func TestDiscoverMissingRootIsError(t *testing.T) {
	tmp := t.TempDir()
	_, _, err := Discover(filepath.Join(tmp, "missing"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "源目录不存在")
}

func TestDiscoverRootMustBeDirectory(t *testing.T) {
	tmp := t.TempDir()
	file := filepath.Join(tmp, "plain.osm")
	require.NoError(t, os.WriteFile(file, []byte("<osm/>"), 0o644))

	_, _, err := Discover(file)
	require.Error(t, err)
	require.Contains(t, err.Error(), "不是目录")
}

func TestMatchSuffixPackedBeforeTextual(t *testing.T) {
	packed, ok := matchSuffix("data.osm.pbf")
	require.True(t, ok)
	require.True(t, packed)

	packed, ok = matchSuffix("data.osm")
	require.True(t, ok)
	require.False(t, packed)

	packed, ok = matchSuffix("history.osh")
	require.True(t, ok)
	require.False(t, packed)

	_, ok = matchSuffix("data.pbf")
	require.False(t, ok)
}
