package liveplot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/TheCacophonyProject/battery-tester/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ConfigFileName), []byte(`
[battery-tester-plotter]
dir = "/var/log/battery-tester"
interval = "5s"
`), 0644))

	args, err := procArgs([]string{"-c", dir, "--interval", "2s", "--http-address", ":8080"})
	require.NoError(t, err)
	conf, err := config.New(args.ConfigDir)
	require.NoError(t, err)
	pc, err := parseConfig(conf, args)
	require.NoError(t, err)

	assert.Equal(t, "/var/log/battery-tester", pc.Dir)
	assert.Equal(t, 2*time.Second, pc.Interval)
	assert.Equal(t, ":8080", pc.HTTPAddress)
	assert.Equal(t, "battery-tester.png", pc.Output)
}

func TestParseConfigBadInterval(t *testing.T) {
	args, err := procArgs([]string{"-c", t.TempDir(), "--interval=-1s"})
	require.NoError(t, err)
	conf, err := config.New(args.ConfigDir)
	require.NoError(t, err)
	_, err = parseConfig(conf, args)
	assert.Error(t, err)
}

func TestRunWithoutLogFile(t *testing.T) {
	err := Run([]string{"-c", t.TempDir(), "--dir", t.TempDir()}, "test")
	assert.ErrorIs(t, err, ErrNoLogFile)
}
