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

// Package samplelog holds the file format shared by the logger and the plotter.
// The logger only writes these files and the plotter only reads them.
package samplelog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	FilePrefix = "Battery_Tester_Logger_"
	FileExt    = ".csv"

	// WireSeparator separates fields on the serial line. The persisted file uses plain commas.
	WireSeparator = ", "
	fieldCount    = 6
	fileTimeFmt   = "20060102_150405"
)

// Header is the first row of every log file.
var Header = []string{"t/s", "Cycles/1", "U/mV", "I/mA", "Q/As", "T/C"}

var (
	ErrFieldCount   = errors.New("wrong number of fields")
	ErrBadTimestamp = errors.New("unparsable timestamp")
)

// Sample is one measurement from the tester. Fields are kept as the text
// received from the device so they are persisted without reformatting.
type Sample struct {
	Time        string
	Cycles      string
	Voltage     string
	Current     string
	Charge      string
	Temperature string

	// Seconds is Time parsed, the ordering key.
	Seconds float64
}

// FileName returns the log file name for a logger started at t.
func FileName(t time.Time) string {
	return FilePrefix + t.Format(fileTimeFmt) + FileExt
}

// IsLogFileName reports if a file name, without its folder, is one the logger writes.
func IsLogFileName(name string) bool {
	return strings.HasPrefix(name, FilePrefix)
}

// ParseWireLine parses one line as sent by the tester, e.g. "1.0, 1, 4000, 500, 0.001, 25.0".
func ParseWireLine(line string) (Sample, error) {
	fields := strings.Split(strings.TrimSpace(line), WireSeparator)
	if len(fields) != fieldCount {
		return Sample{}, fmt.Errorf("%w: got %d, expected %d", ErrFieldCount, len(fields), fieldCount)
	}
	return fromFields(fields)
}

func fromFields(fields []string) (Sample, error) {
	if len(fields) != fieldCount {
		return Sample{}, fmt.Errorf("%w: got %d, expected %d", ErrFieldCount, len(fields), fieldCount)
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
	if err != nil {
		return Sample{}, fmt.Errorf("%w '%s'", ErrBadTimestamp, fields[0])
	}
	return Sample{
		Time:        fields[0],
		Cycles:      fields[1],
		Voltage:     fields[2],
		Current:     fields[3],
		Charge:      fields[4],
		Temperature: fields[5],
		Seconds:     seconds,
	}, nil
}

// Record returns the fields in Header order.
func (s Sample) Record() []string {
	return []string{s.Time, s.Cycles, s.Voltage, s.Current, s.Charge, s.Temperature}
}
