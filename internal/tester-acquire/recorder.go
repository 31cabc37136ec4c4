package acquire

import (
	"io"
	"time"

	"github.com/TheCacophonyProject/battery-tester/internal/metrics"
)

// recorder is the single loop turning the serial stream into log file rows.
type recorder struct {
	lines          *LineReader
	file           *LogFile
	filter         Filter
	sink           sampleSink
	statusInterval int
	drainMax       time.Duration
	accepted       int
}

func newRecorder(port io.Reader, file *LogFile, sink sampleSink, statusInterval int, drainMax time.Duration) *recorder {
	return &recorder{
		lines:          NewLineReader(port),
		file:           file,
		sink:           sink,
		statusInterval: statusInterval,
		drainMax:       drainMax,
	}
}

// drain throws away data the tester sent before this run started. It gives up
// after drainMax so a tester that never pauses still gets logged.
func (r *recorder) drain() (int, error) {
	count := 0
	deadline := r.lines.now().Add(r.drainMax)
	err := r.lines.Drain(deadline, func(line []byte) {
		count++
		metrics.LinesDrained.Inc()
		log.Debugf("Cleared: %s", line)
	})
	return count, err
}

// record runs until reading from the port or writing the log file fails.
func (r *recorder) record() error {
	for {
		line, err := r.lines.ReadLine()
		if err != nil {
			return err
		}
		if err := r.handleLine(line); err != nil {
			return err
		}
	}
}

func (r *recorder) handleLine(line []byte) error {
	received := nowFn()
	log.Debugf("Received: %s", line)
	sample, decision := r.filter.Check(line)
	if decision != Accepted {
		metrics.SamplesRejected.WithLabelValues(decision.String()).Inc()
		log.Debugf("Rejected (%s), last logged t=%g", decision, r.filter.Baseline())
		return nil
	}

	if err := r.file.Append(sample); err != nil {
		return err
	}
	r.filter.Commit(sample)
	metrics.SamplesAccepted.Inc()
	if r.sink != nil {
		r.sink.Write(received, sample)
	}

	r.accepted++
	if r.statusInterval > 0 && r.accepted%r.statusInterval == 0 {
		log.Infof("Logged %d samples, t=%s s, U=%s mV, I=%s mA, T=%s C",
			r.accepted, sample.Time, sample.Voltage, sample.Current, sample.Temperature)
	}
	return nil
}
