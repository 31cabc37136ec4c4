package acquire

import (
	"bytes"
	"errors"
	"io"
	"time"

	"github.com/TheCacophonyProject/battery-tester/serialhelper"
)

// LineReader splits the serial stream into newline terminated lines.
// It is used instead of bufio so that a read timeout (serialhelper.ErrNoData)
// never loses a partly received line.
type LineReader struct {
	r     io.Reader
	buf   []byte
	chunk []byte
	now   func() time.Time
}

func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{r: r, chunk: make([]byte, 256), now: time.Now}
}

// next pops a complete line, without its newline, from the buffer.
func (l *LineReader) next() ([]byte, bool) {
	i := bytes.IndexByte(l.buf, '\n')
	if i < 0 {
		return nil, false
	}
	line := make([]byte, i)
	copy(line, l.buf[:i])
	l.buf = l.buf[i+1:]
	return line, true
}

func (l *LineReader) fill() error {
	n, err := l.r.Read(l.chunk)
	l.buf = append(l.buf, l.chunk[:n]...)
	return err
}

// ReadLine blocks until a full line has arrived. Read timeouts are not errors,
// a silent device blocks here for ever.
func (l *LineReader) ReadLine() ([]byte, error) {
	for {
		if line, ok := l.next(); ok {
			return line, nil
		}
		if err := l.fill(); err != nil && !errors.Is(err, serialhelper.ErrNoData) {
			return nil, err
		}
	}
}

// Drain discards everything already waiting on the port. It returns once a read
// times out with no partial line left over, or at deadline when the device never
// goes quiet. A line that was half received at that point is finished and thrown
// away too, anything after it is kept for ReadLine.
func (l *LineReader) Drain(deadline time.Time, discard func(line []byte)) error {
	for {
		l.discardLines(discard)
		if !l.now().Before(deadline) {
			return l.finishLine(discard)
		}
		err := l.fill()
		if errors.Is(err, serialhelper.ErrNoData) {
			if len(l.buf) == 0 {
				return nil
			}
			continue
		}
		if err != nil {
			return err
		}
	}
}

func (l *LineReader) discardLines(discard func(line []byte)) {
	for {
		line, ok := l.next()
		if !ok {
			return
		}
		discard(line)
	}
}

// finishLine reads until the partial line in the buffer is complete, then discards it.
func (l *LineReader) finishLine(discard func(line []byte)) error {
	for len(l.buf) > 0 {
		if line, ok := l.next(); ok {
			discard(line)
			return nil
		}
		if err := l.fill(); err != nil && !errors.Is(err, serialhelper.ErrNoData) {
			return err
		}
	}
	return nil
}
