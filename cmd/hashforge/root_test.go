package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/stretchr/testify/require"
	"testing"

	"github.com/studio1767/hashforge/internal/digest"
	"github.com/studio1767/hashforge/internal/ops"
	"github.com/studio1767/hashforge/internal/settings"
)

const (
	abcMD5    = "900150983CD24FB0D6963F7D28E17F72"
	abcSHA1   = "A9993E364706816ABA3E25717850C26C9CD0D89D"
	abcSHA256 = "BA7816BF8F01CFEA414140DE5DAE2223B00361A396177A9CB410FF61F20015AD"
)

// execute runs the root command with its own settings file.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))

	settingsFile := filepath.Join(t.TempDir(), "settings.yml")
	cmd.SetArgs(append([]string{"--settings", settingsFile}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func mustSet(t *testing.T, names ...string) digest.Set {
	t.Helper()
	set, err := digest.ParseSet(names...)
	require.NoError(t, err)
	return set
}

func abcFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "abc.txt")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o600))
	return path
}

func TestHashSingleFile(t *testing.T) {
	path := abcFile(t)

	out, err := execute(t, "", "-a", "md5,sha1", path)
	require.NoError(t, err)
	require.Contains(t, out, "MD5     "+abcMD5+"  "+path)
	require.Contains(t, out, "SHA1    "+abcSHA1+"  "+path)
	require.Contains(t, out, "completed: 1/1 files hashed, 0 failed")
	require.NotContains(t, out, "verify:")
}

func TestDefaultAlgorithmFromSettings(t *testing.T) {
	path := abcFile(t)
	settingsFile := filepath.Join(t.TempDir(), "settings.yml")
	require.NoError(t, settings.Save(settingsFile, settings.Settings{DefaultAlgorithm: digest.SHA1}))

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--settings", settingsFile, path})
	require.NoError(t, cmd.Execute())

	require.Contains(t, out.String(), abcSHA1)
}

func TestDefaultAlgorithmWithoutSettings(t *testing.T) {
	path := abcFile(t)

	out, err := execute(t, "", path)
	require.NoError(t, err)
	require.Contains(t, out, "SHA256  "+abcSHA256)
}

func TestVerifyAgainstExpectedFile(t *testing.T) {
	path := abcFile(t)
	sums := filepath.Join(t.TempDir(), "sums.md5")
	require.NoError(t, os.WriteFile(sums, []byte("; generated\n"+strings.ToLower(abcMD5)+" *abc.txt\n"), 0o600))

	out, err := execute(t, "", "-a", "md5", "-e", sums, path)
	require.NoError(t, err)
	require.Contains(t, out, "[match]")
	require.Contains(t, out, "verify: 1 match, 0 mismatch")
}

func TestVerifyMismatchFails(t *testing.T) {
	path := abcFile(t)

	out, err := execute(t, strings.Repeat("0", 32)+"  abc.txt\n", "-a", "md5", "-e", "-", path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "1 mismatched")
	require.Contains(t, out, "[mismatch]")
}

func TestExportFormats(t *testing.T) {
	path := abcFile(t)
	dir := t.TempDir()

	reportFile := filepath.Join(dir, "report.txt")
	_, err := execute(t, "", "-a", "sha1", "-o", reportFile, path)
	require.NoError(t, err)
	data, err := os.ReadFile(reportFile)
	require.NoError(t, err)
	require.Contains(t, string(data), "HASHFORGE REPORT")
	require.Contains(t, string(data), abcSHA1)

	checkFile := filepath.Join(dir, "sums.sha1")
	_, err = execute(t, "", "-a", "sha1", "-o", checkFile, path)
	require.NoError(t, err)
	data, err = os.ReadFile(checkFile)
	require.NoError(t, err)
	require.Contains(t, string(data), abcSHA1+" *")

	// the exported check file verifies the same file
	out, err := execute(t, "", "-a", "sha1", "-e", checkFile, path)
	require.NoError(t, err)
	require.Contains(t, out, "[match]")
}

func TestExtensionFilters(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keep.iso"), []byte("abc"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.tmp"), []byte("xyz"), 0o600))

	out, err := execute(t, "", "-a", "md5", "--exclude-ext", "tmp", dir)
	require.NoError(t, err)
	require.Contains(t, out, "keep.iso")
	require.NotContains(t, out, "skip.tmp")
}

func TestNoFilesFound(t *testing.T) {
	_, err := execute(t, "", filepath.Join(t.TempDir(), "missing"))
	var nofiles *ops.ErrNoFilesFound
	require.True(t, errors.As(err, &nofiles))
}

func TestUnknownAlgorithm(t *testing.T) {
	_, err := execute(t, "", "-a", "crc32", abcFile(t))
	require.Error(t, err)
}

func TestRemoteFlagsNeedBucket(t *testing.T) {
	path := abcFile(t)

	for _, flag := range []string{"publish", "expected-key", "expected-latest"} {
		_, err := execute(t, "", "--"+flag, "label", path)
		var nobucket *ErrBucketRequired
		require.True(t, errors.As(err, &nobucket), flag)
	}
}

func TestSettingsCommand(t *testing.T) {
	settingsFile := filepath.Join(t.TempDir(), "conf", "settings.yml")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"settings", "--settings", settingsFile, "--algorithm", "sha512", "--dark-theme=false"})
	require.NoError(t, cmd.Execute())

	require.Contains(t, out.String(), "default_algorithm: SHA512")
	require.Contains(t, out.String(), "dark_theme:        false")

	saved, err := settings.Load(settingsFile)
	require.NoError(t, err)
	require.Equal(t, "SHA512", saved.DefaultAlgorithm.String())
	require.False(t, saved.DarkTheme)
}

func TestCheckFileExt(t *testing.T) {
	require.Equal(t, "checksums", checkFileExt(mustSet(t, "md5", "sha1")))
	require.Equal(t, "sha256", checkFileExt(mustSet(t, "sha256")))
}
