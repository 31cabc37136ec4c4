package samplelog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

var ErrBadHeader = errors.New("unexpected header")

// Series is a whole log file, column by column.
type Series struct {
	Samples []Sample

	T           []float64
	Cycles      []float64
	Voltage     []float64
	Charge      []float64
	Current     []float64
	Temperature []float64
}

func (s *Series) Len() int {
	return len(s.Samples)
}

// ReadSeries parses a complete log file. A file that is being appended to can
// end in a partial row, in which case an error is returned and the caller
// should try again later. Values other than the timestamp that are not numbers
// are read as NaN, the logger stores them as the tester sent them.
func ReadSeries(r io.Reader) (*Series, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(Header)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file", ErrBadHeader)
	}
	if err != nil {
		return nil, err
	}
	for i, name := range Header {
		if header[i] != name {
			return nil, fmt.Errorf("%w: column %d is '%s', expected '%s'", ErrBadHeader, i, header[i], name)
		}
	}

	series := &Series{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := reader.FieldPos(0)
		if err := series.add(record); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	return series, nil
}

func (s *Series) add(record []string) error {
	sample, err := fromFields(record)
	if err != nil {
		return err
	}
	values := make([]float64, len(record))
	values[0] = sample.Seconds
	for i := 1; i < len(record); i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
		if err != nil {
			v = math.NaN()
		}
		values[i] = v
	}
	s.Samples = append(s.Samples, sample)
	s.T = append(s.T, values[0])
	s.Cycles = append(s.Cycles, values[1])
	s.Voltage = append(s.Voltage, values[2])
	s.Current = append(s.Current, values[3])
	s.Charge = append(s.Charge, values[4])
	s.Temperature = append(s.Temperature, values[5])
	return nil
}
