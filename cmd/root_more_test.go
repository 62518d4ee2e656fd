package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const fakeOsmiumOK = "#!/bin/sh\n" +
	"if [ \"$1\" = \"--version\" ]; then echo 'osmium version 1.16.0'; exit 0; fi\n" +
	"out=\"\"\n" +
	"while [ $# -gt 0 ]; do\n" +
	"  if [ \"$1\" = \"-o\" ]; then out=\"$2\"; shift 2; continue; fi\n" +
	"  shift\n" +
	"done\n" +
	"mkdir -p \"$(dirname \"$out\")\"\n" +
	"printf 'pbf' > \"$out\"\n" +
	"exit 0\n"

const fakeOsmiumFail = "#!/bin/sh\n" +
	"if [ \"$1\" = \"--version\" ]; then echo 'osmium version 1.16.0'; exit 0; fi\n" +
	"echo 'osmium cat: XML parse error' 1>&2\n" +
	"exit 1\n"

func writeFakeOsmium(t *testing.T, dir, script string) string {
	t.Helper()
	path := filepath.Join(dir, "fake-osmium.sh")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func writeLibosmiumCheckout(t *testing.T, dir string) string {
	t.Helper()
	lib := filepath.Join(dir, "libosmium")
	testDir := filepath.Join(lib, "test")
	require.NoError(t, os.MkdirAll(filepath.Join(testDir, "a", "b"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(testDir, "x"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(testDir, "a", "b", "file1.osm"), []byte("<osm/>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(testDir, "x", "data.osm.pbf"), []byte{0x0a, 0x02}, 0o644))
	return lib
}

func TestSyncSuccessWithFakeOsmium(t *testing.T) {
	tmp := t.TempDir()
	lib := writeLibosmiumCheckout(t, tmp)
	osmium := writeFakeOsmium(t, tmp, fakeOsmiumOK)
	fixtures := filepath.Join(tmp, "fixtures")

	stdout := bytes.NewBuffer(nil)
	stderr := bytes.NewBuffer(nil)
	cmd := NewRootCmd(stdout, stderr)
	cmd.SetArgs([]string{lib, "--osmium-path", osmium, "-o", fixtures})

	err := cmd.Execute()
	require.NoError(t, err)
	require.Contains(t, stdout.String(), "\"event\":\"file_converted\"")
	require.Contains(t, stdout.String(), "\"event\":\"file_copied\"")
	require.Contains(t, stdout.String(), "\"event\":\"summary\"")
	require.Contains(t, stdout.String(), "\"success_count\":2")
	require.Contains(t, stdout.String(), "\"failure_count\":0")
	require.NotContains(t, stdout.String(), "\"osmium_path\"")

	preserved, rErr := os.ReadFile(filepath.Join(fixtures, "src", "a_b_file1.osm"))
	require.NoError(t, rErr)
	require.Equal(t, []byte("<osm/>"), preserved)

	converted, rErr := os.ReadFile(filepath.Join(fixtures, "a_b_file1-gen.osm.pbf"))
	require.NoError(t, rErr)
	require.Equal(t, []byte("pbf"), converted)

	copied, rErr := os.ReadFile(filepath.Join(fixtures, "x_data.osm.pbf"))
	require.NoError(t, rErr)
	require.Equal(t, []byte{0x0a, 0x02}, copied)
}

func TestSyncMirrorDirConversionOnly(t *testing.T) {
	tmp := t.TempDir()
	lib := writeLibosmiumCheckout(t, tmp)
	osmium := writeFakeOsmium(t, tmp, fakeOsmiumOK)
	fixtures := filepath.Join(tmp, "fixtures")
	mirror := filepath.Join(tmp, "mirror")

	stdout := bytes.NewBuffer(nil)
	stderr := bytes.NewBuffer(nil)
	cmd := NewRootCmd(stdout, stderr)
	cmd.SetArgs([]string{lib, "--osmium-path", osmium, "-o", fixtures, "--mirror-dir", mirror})

	err := cmd.Execute()
	require.NoError(t, err)
	require.Contains(t, stdout.String(), "\"success_count\":4")

	require.FileExists(t, filepath.Join(mirror, "a_b_file1-gen.osm.pbf"))
	require.FileExists(t, filepath.Join(mirror, "x_data.osm.pbf"))
	_, statErr := os.Stat(filepath.Join(mirror, "src"))
	require.True(t, os.IsNotExist(statErr))
}

func TestSyncConversionFailureSummary(t *testing.T) {
	tmp := t.TempDir()
	lib := writeLibosmiumCheckout(t, tmp)
	osmium := writeFakeOsmium(t, tmp, fakeOsmiumFail)
	fixtures := filepath.Join(tmp, "fixtures")

	stdout := bytes.NewBuffer(nil)
	stderr := bytes.NewBuffer(nil)
	cmd := NewRootCmd(stdout, stderr)
	cmd.SetArgs([]string{lib, "--osmium-path", osmium, "-o", fixtures})

	err := cmd.Execute()
	require.ErrorIs(t, err, errSyncFailed)
	require.Contains(t, stdout.String(), "\"event\":\"summary\"")
	require.Contains(t, stdout.String(), "\"failure_count\":1")
	require.Contains(t, stdout.String(), "\"osmium_path\"")
	require.Contains(t, stderr.String(), "\"event\":\"file_failed\"")
	require.Contains(t, stderr.String(), "XML parse error")
}

func TestSyncVerbosePrintOsmiumInfo(t *testing.T) {
	tmp := t.TempDir()
	lib := writeLibosmiumCheckout(t, tmp)
	osmium := writeFakeOsmium(t, tmp, fakeOsmiumOK)

	stdout := bytes.NewBuffer(nil)
	stderr := bytes.NewBuffer(nil)
	cmd := NewRootCmd(stdout, stderr)
	cmd.SetArgs([]string{lib, "--osmium-path", osmium, "-o", filepath.Join(tmp, "fixtures"), "--verbose"})

	err := cmd.Execute()
	require.NoError(t, err)
	require.Contains(t, stdout.String(), "\"event\":\"osmium_environment\"")
	require.Contains(t, stdout.String(), "\"osmium_version\":\"1.16.0\"")
}

func TestSyncMissingOsmiumIsTopError(t *testing.T) {
	tmp := t.TempDir()
	lib := writeLibosmiumCheckout(t, tmp)

	stdout := bytes.NewBuffer(nil)
	stderr := bytes.NewBuffer(nil)
	cmd := NewRootCmd(stdout, stderr)
	cmd.SetArgs([]string{lib, "--osmium-path", filepath.Join(tmp, "missing-osmium"), "-o", filepath.Join(tmp, "fixtures")})

	err := cmd.Execute()
	require.Error(t, err)
	require.False(t, IsReportedError(err))
	require.Contains(t, err.Error(), "未找到 osmium")
}
