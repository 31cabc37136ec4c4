package acquire

import (
	"errors"
	"math"

	"github.com/TheCacophonyProject/battery-tester/samplelog"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

type Decision int

const (
	Accepted Decision = iota
	RejectEncoding
	RejectFieldCount
	RejectTimestamp
	RejectNotIncreasing
)

var decisionNames = map[Decision]string{
	Accepted:            "accepted",
	RejectEncoding:      "encoding",
	RejectFieldCount:    "field_count",
	RejectTimestamp:     "timestamp",
	RejectNotIncreasing: "not_increasing",
}

func (d Decision) String() string {
	if name, ok := decisionNames[d]; ok {
		return name
	}
	return "unknown"
}

// Decide accepts a sample only if it is later than the last accepted one.
func Decide(s samplelog.Sample, last float64) Decision {
	if math.IsNaN(s.Seconds) || math.IsInf(s.Seconds, 0) {
		return RejectTimestamp
	}
	if s.Seconds > last {
		return Accepted
	}
	return RejectNotIncreasing
}

// Filter holds the timestamp of the last sample written for this run.
// The baseline starts at 0 so the first sample needs a positive timestamp.
type Filter struct {
	last float64
}

func (f *Filter) Baseline() float64 {
	return f.last
}

// Check decodes a raw line from the tester and decides if it should be logged.
// The baseline is not moved until Commit is called.
func (f *Filter) Check(line []byte) (samplelog.Sample, Decision) {
	text, _, err := transform.Bytes(encoding.UTF8Validator, line)
	if err != nil {
		return samplelog.Sample{}, RejectEncoding
	}
	s, err := samplelog.ParseWireLine(string(text))
	switch {
	case errors.Is(err, samplelog.ErrFieldCount):
		return s, RejectFieldCount
	case err != nil:
		return s, RejectTimestamp
	}
	return s, Decide(s, f.last)
}

func (f *Filter) Commit(s samplelog.Sample) {
	f.last = s.Seconds
}
