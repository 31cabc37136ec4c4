package serialhelper

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCmdline(t *testing.T, content string) {
	path := filepath.Join(t.TempDir(), "cmdline")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	old := cmdlineFile
	cmdlineFile = path
	t.Cleanup(func() { cmdlineFile = old })
}

func TestSerialInUseFromTerminal(t *testing.T) {
	writeCmdline(t, "console=tty1 console=ttyUSB0,115200 root=/dev/mmcblk0p2")
	assert.True(t, SerialInUseFromTerminal("/dev/ttyUSB0"))
	assert.False(t, SerialInUseFromTerminal("/dev/ttyACM0"))
}

func TestSerialInUseFromTerminalMissingCmdline(t *testing.T) {
	old := cmdlineFile
	cmdlineFile = filepath.Join(t.TempDir(), "missing")
	defer func() { cmdlineFile = old }()
	assert.False(t, SerialInUseFromTerminal("/dev/ttyUSB0"))
}

func TestOpenFailsWhenConsole(t *testing.T) {
	writeCmdline(t, "console=ttyS0,115200")
	_, err := Open(Config{Name: "/dev/ttyS0", Baud: 9600})
	var unavailable *SerialUnavailableError
	assert.ErrorAs(t, err, &unavailable)
}

func TestLockIsExclusive(t *testing.T) {
	device := filepath.Join(t.TempDir(), "ttyFake")
	require.NoError(t, os.WriteFile(device, nil, 0666))

	first, err := lockSerial(device, 0, time.Millisecond)
	require.NoError(t, err)

	_, err = lockSerial(device, 1, time.Millisecond)
	var unavailable *SerialUnavailableError
	require.ErrorAs(t, err, &unavailable)

	require.NoError(t, unlockSerial(first))
	second, err := lockSerial(device, 0, time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, unlockSerial(second))
}

func TestLockMissingDevice(t *testing.T) {
	_, err := lockSerial(filepath.Join(t.TempDir(), "nope"), 0, time.Millisecond)
	assert.True(t, os.IsNotExist(err))
}
