/*
battery-tester - Logs and plots samples from a battery tester
Copyright (C) 2024, The Cacophony Project

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package serialhelper

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/TheCacophonyProject/battery-tester/internal/logging"
	"github.com/tarm/serial"
)

var log = logging.NewLogger("info")

var cmdlineFile = "/proc/cmdline"

// ErrNoData is returned by Read when nothing arrived within the read timeout.
var ErrNoData = errors.New("no serial data pending")

type SerialUnavailableError struct {
	msg string
}

func (e *SerialUnavailableError) Error() string {
	return e.msg
}

func NewSerialUnavailableError(msg string) error {
	return &SerialUnavailableError{msg: msg}
}

type Config struct {
	Name string
	Baud int
	// ReadTimeout is how long a Read waits for the first byte before returning ErrNoData.
	ReadTimeout time.Duration
	// LockRetries is how many times to retry when another process holds the port.
	LockRetries int
	LockWait    time.Duration
}

// Port is an opened serial device held with an exclusive lock.
type Port struct {
	name     string
	lockFile *os.File
	port     *serial.Port
}

// SetLogger replaces the package logger, used so the log level follows the caller's args.
func SetLogger(l *logging.Logger) {
	log = l
}

// SerialInUseFromTerminal reports if the kernel was told to use the device as a console.
func SerialInUseFromTerminal(name string) bool {
	b, err := os.ReadFile(cmdlineFile)
	if err != nil {
		log.Printf("Error when reading %s: %s", cmdlineFile, err)
		return false
	}
	names := []string{filepath.Base(name)}
	if resolved, err := filepath.EvalSymlinks(name); err == nil {
		names = append(names, filepath.Base(resolved))
	}
	cmdline := string(b)
	for _, n := range names {
		if strings.Contains(cmdline, "console="+n) {
			return true
		}
	}
	return false
}

// Open takes an exclusive lock on the device and opens it.
// Close should be called to release the lock and close the port.
func Open(conf Config) (*Port, error) {
	if SerialInUseFromTerminal(conf.Name) {
		return nil, NewSerialUnavailableError(fmt.Sprintf("%s is in use by the terminal console", conf.Name))
	}

	lockFile, err := lockSerial(conf.Name, conf.LockRetries, conf.LockWait)
	if err != nil {
		return nil, err
	}

	c := &serial.Config{Name: conf.Name, Baud: conf.Baud, ReadTimeout: conf.ReadTimeout}
	port, err := serial.OpenPort(c)
	if err != nil {
		unlockSerial(lockFile)
		return nil, fmt.Errorf("failed to open %s: %w", conf.Name, err)
	}

	return &Port{
		name:     conf.Name,
		lockFile: lockFile,
		port:     port,
	}, nil
}

func lockSerial(name string, retries int, wait time.Duration) (*os.File, error) {
	serialFile, err := os.OpenFile(name, os.O_RDWR, 0666)
	if err != nil {
		return nil, err
	}
	lockAcquired := false
	defer func() {
		if !lockAcquired {
			serialFile.Close()
		}
	}()

	i := retries
	for {
		err = syscall.Flock(int(serialFile.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			lockAcquired = true
			return serialFile, nil
		}

		if errno, ok := err.(syscall.Errno); !ok || errno != syscall.EWOULDBLOCK {
			return nil, err
		}

		process, err := getLockingProcess(name)
		if err != nil {
			log.Printf("Error checking locking process: %v", err)
		} else if process != "" {
			log.Printf("Serial port is locked by process: %s", process)
		}

		if i <= 0 {
			return nil, NewSerialUnavailableError(fmt.Sprintf("failed to get lock on %s, might be in use by other process", name))
		}
		log.Printf("Serial port is locked by another process. Retrying %d more times in %s...", i, wait)
		time.Sleep(wait)
		i--
	}
}

func unlockSerial(lockFile *os.File) error {
	err := syscall.Flock(int(lockFile.Fd()), syscall.LOCK_UN)
	lockFile.Close()
	return err
}

func getLockingProcess(serialPath string) (string, error) {
	// fuser lists the processes that have the file open.
	cmd := exec.Command("fuser", serialPath)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	err := cmd.Run()
	if err != nil {
		if exitError, ok := err.(*exec.ExitError); ok && exitError.ExitCode() == 1 {
			// Exit code 1 from `fuser` means no process is using the file
			return "", nil
		}
		return "", fmt.Errorf("failed to execute fuser: %v", err)
	}
	return strings.TrimSpace(output.String()), nil
}

// Read reads whatever bytes have arrived. When the read timeout passes with no
// bytes ErrNoData is returned, unless the device has gone away.
func (p *Port) Read(b []byte) (int, error) {
	n, err := p.port.Read(b)
	if n > 0 {
		return n, nil
	}
	if err == nil || err == io.EOF {
		if _, statErr := os.Stat(p.name); statErr != nil {
			return 0, fmt.Errorf("serial device %s is gone: %w", p.name, statErr)
		}
		return 0, ErrNoData
	}
	return 0, err
}

func (p *Port) Close() error {
	err := p.port.Close()
	if unlockErr := unlockSerial(p.lockFile); err == nil {
		err = unlockErr
	}
	return err
}
