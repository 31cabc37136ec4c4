package liveplot

import (
	"bytes"
	"os"

	"github.com/TheCacophonyProject/battery-tester/samplelog"
)

// readLogFile reads the whole file again. The logger may be part way through
// appending a row, anything after the last newline is left for the next tick.
func readLogFile(path string) (*samplelog.Series, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if i := bytes.LastIndexByte(data, '\n'); i >= 0 {
		data = data[:i+1]
	}
	return samplelog.ReadSeries(bytes.NewReader(data))
}
