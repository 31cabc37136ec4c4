package acquire

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/TheCacophonyProject/battery-tester/samplelog"
)

// LogFile is the CSV file for one run of the logger. It is only ever appended to.
type LogFile struct {
	path  string
	file  *os.File
	w     *csv.Writer
	fsync bool
}

// CreateLogFile creates the log file named after start and writes the header.
// An existing file is never truncated, starting twice in the same second is an error.
func CreateLogFile(dir string, start time.Time, fsync bool) (*LogFile, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, samplelog.FileName(start))
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	l := &LogFile{
		path:  path,
		file:  file,
		w:     csv.NewWriter(file),
		fsync: fsync,
	}
	if err := l.write(samplelog.Header); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write header to %s: %w", path, err)
	}
	return l, nil
}

func (l *LogFile) Path() string {
	return l.path
}

// Append writes one sample. It is on disk for the plotter to read when this returns.
func (l *LogFile) Append(s samplelog.Sample) error {
	return l.write(s.Record())
}

func (l *LogFile) write(record []string) error {
	if err := l.w.Write(record); err != nil {
		return err
	}
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		return err
	}
	if l.fsync {
		return l.file.Sync()
	}
	return nil
}

func (l *LogFile) Close() error {
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		l.file.Close()
		return err
	}
	return l.file.Close()
}
