package liveplot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHeader = "t/s,Cycles/1,U/mV,I/mA,Q/As,T/C\n"

func writeLogFile(t *testing.T, dir, name, content string, mod time.Time) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	require.NoError(t, os.Chtimes(path, mod, mod))
	return path
}

func TestLatestLogFileByModTime(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)
	writeLogFile(t, dir, "Battery_Tester_Logger_20240926_120000.csv", testHeader, base)
	newest := writeLogFile(t, dir, "Battery_Tester_Logger_20240101_000000.csv", testHeader, base.Add(2*time.Minute))
	writeLogFile(t, dir, "Battery_Tester_Logger_20240501_000000.csv", testHeader, base.Add(time.Minute))
	// Not matching the pattern, or not a regular file.
	writeLogFile(t, dir, "battery-tester.png", "", base.Add(time.Hour))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "Battery_Tester_Logger_dir"), 0755))

	path, err := LatestLogFile(dir)
	require.NoError(t, err)
	assert.Equal(t, newest, path)
}

func TestLatestLogFileSameModTime(t *testing.T) {
	dir := t.TempDir()
	mod := time.Now().Add(-time.Hour)
	writeLogFile(t, dir, "Battery_Tester_Logger_20240926_120000.csv", testHeader, mod)
	later := writeLogFile(t, dir, "Battery_Tester_Logger_20240926_120001.csv", testHeader, mod)

	path, err := LatestLogFile(dir)
	require.NoError(t, err)
	assert.Equal(t, later, path)
}

func TestLatestLogFileNone(t *testing.T) {
	dir := t.TempDir()
	writeLogFile(t, dir, "other.csv", testHeader, time.Now())
	_, err := LatestLogFile(dir)
	assert.ErrorIs(t, err, ErrNoLogFile)
}

func TestLatestLogFileDirWithPatternCharacters(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "bench [2] *?")
	require.NoError(t, os.Mkdir(dir, 0755))
	path := writeLogFile(t, dir, "Battery_Tester_Logger_20240926_120000.csv", testHeader, time.Now())

	latest, err := LatestLogFile(dir)
	require.NoError(t, err)
	assert.Equal(t, path, latest)
}

func TestLatestLogFileMissingDir(t *testing.T) {
	_, err := LatestLogFile(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, ErrNoLogFile)
}

func TestWaitForLogFile(t *testing.T) {
	pollInterval = 10 * time.Millisecond
	defer func() { pollInterval = time.Second }()

	dir := t.TempDir()
	_, err := waitForLogFile(dir, 0)
	assert.ErrorIs(t, err, ErrNoLogFile)

	go func() {
		time.Sleep(50 * time.Millisecond)
		os.WriteFile(filepath.Join(dir, "Battery_Tester_Logger_20240926_120000.csv"), []byte(testHeader), 0644)
	}()
	path, err := waitForLogFile(dir, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Battery_Tester_Logger_20240926_120000.csv"), path)
}

func TestLogDir(t *testing.T) {
	dir, err := logDir("/data/battery")
	require.NoError(t, err)
	assert.Equal(t, "/data/battery", dir)

	dir, err = logDir("")
	require.NoError(t, err)
	exe, err := os.Executable()
	require.NoError(t, err)
	exe, err = filepath.EvalSymlinks(exe)
	require.NoError(t, err)
	assert.Equal(t, filepath.Dir(exe), dir)
}
