package liveplot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/TheCacophonyProject/battery-tester/samplelog"
)

var ErrNoLogFile = errors.New("no logger data file found")

var pollInterval = time.Second

// LatestLogFile returns the regular file in dir named like the logger's files
// with the newest modification time. Equal times go to the greater name.
func LatestLogFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("%w, %s does not exist", ErrNoLogFile, dir)
	}
	if err != nil {
		return "", err
	}

	latest := ""
	var latestTime time.Time
	for _, entry := range entries {
		if !samplelog.IsLogFileName(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		info, err := os.Stat(path)
		if err != nil {
			// Removed since the listing, nothing to plot there.
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		mod := info.ModTime()
		if latest == "" || mod.After(latestTime) || (mod.Equal(latestTime) && path > latest) {
			latest = path
			latestTime = mod
		}
	}
	if latest == "" {
		return "", fmt.Errorf("%w in %s", ErrNoLogFile, dir)
	}
	return latest, nil
}

// waitForLogFile polls for a log file for up to wait. With no wait it is a single lookup.
func waitForLogFile(dir string, wait time.Duration) (string, error) {
	deadline := time.Now().Add(wait)
	for {
		path, err := LatestLogFile(dir)
		if !errors.Is(err, ErrNoLogFile) || !time.Now().Before(deadline) {
			return path, err
		}
		log.Debugf("No log file in %s yet, waiting", dir)
		time.Sleep(pollInterval)
	}
}

// logDir is where to look for log files, the plotter's own folder unless configured.
func logDir(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}
