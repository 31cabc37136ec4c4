package acquire

import (
	"errors"
	"testing"
	"time"

	"github.com/TheCacophonyProject/battery-tester/serialhelper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errPortClosed = errors.New("port closed")

type fakeRead struct {
	data string
	err  error
}

// fakePort replays reads in order and fails with errPortClosed once they run out.
type fakePort struct {
	reads []fakeRead
}

func newFakePort(reads ...fakeRead) *fakePort {
	return &fakePort{reads: reads}
}

func data(s string) fakeRead {
	return fakeRead{data: s}
}

var quiet = fakeRead{err: serialhelper.ErrNoData}

func (p *fakePort) Read(b []byte) (int, error) {
	if len(p.reads) == 0 {
		return 0, errPortClosed
	}
	r := p.reads[0]
	if r.err != nil {
		p.reads = p.reads[1:]
		return 0, r.err
	}
	n := copy(b, r.data)
	if n < len(r.data) {
		p.reads[0].data = r.data[n:]
	} else {
		p.reads = p.reads[1:]
	}
	return n, nil
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	return c.t
}

// tickingPort moves the clock on by step for every read, like a tester that never pauses.
type tickingPort struct {
	*fakePort
	clock *fakeClock
	step  time.Duration
}

func (p *tickingPort) Read(b []byte) (int, error) {
	p.clock.t = p.clock.t.Add(p.step)
	return p.fakePort.Read(b)
}

func noDeadline() time.Time {
	return time.Now().Add(time.Hour)
}

func TestReadLineAcrossReads(t *testing.T) {
	l := NewLineReader(newFakePort(
		data("1.0, 1, 40"),
		quiet,
		data("00, 500, 0.001, 25.0\r\n2.0"),
		quiet,
		quiet,
		data(", 2\n"),
	))

	line, err := l.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "1.0, 1, 4000, 500, 0.001, 25.0\r", string(line))

	line, err = l.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "2.0, 2", string(line))

	_, err = l.ReadLine()
	assert.ErrorIs(t, err, errPortClosed)
}

func TestReadLineLongLine(t *testing.T) {
	long := make([]byte, 1000)
	for i := range long {
		long[i] = 'a'
	}
	l := NewLineReader(newFakePort(data(string(long) + "\n")))
	line, err := l.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, long, line)
}

func TestDrainStopsWhenQuiet(t *testing.T) {
	l := NewLineReader(newFakePort(
		data("old 1\nold 2\n"),
		quiet,
		data("new\n"),
	))
	var cleared []string
	require.NoError(t, l.Drain(noDeadline(), func(line []byte) { cleared = append(cleared, string(line)) }))
	assert.Equal(t, []string{"old 1", "old 2"}, cleared)

	line, err := l.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "new", string(line))
}

func TestDrainFinishesPartialLine(t *testing.T) {
	l := NewLineReader(newFakePort(
		data("old 1\nold"),
		quiet,
		data(" 2\nnew"),
		quiet,
		data("\n"),
		quiet,
	))
	var cleared []string
	require.NoError(t, l.Drain(noDeadline(), func(line []byte) { cleared = append(cleared, string(line)) }))
	assert.Equal(t, []string{"old 1", "old 2", "new"}, cleared)
}

func TestDrainReadError(t *testing.T) {
	l := NewLineReader(newFakePort(data("old\n")))
	err := l.Drain(noDeadline(), func([]byte) {})
	assert.ErrorIs(t, err, errPortClosed)
}

func TestDrainStopsAtDeadline(t *testing.T) {
	clock := &fakeClock{t: testStart}
	port := &tickingPort{fakePort: newFakePort(
		data("old 1\n"),
		data("old 2\nol"),
		data("d 3\nnew 1\n"),
		data("new 2\n"),
	), clock: clock, step: 20 * time.Millisecond}
	l := NewLineReader(port)
	l.now = clock.now

	var cleared []string
	require.NoError(t, l.Drain(testStart.Add(40*time.Millisecond), func(line []byte) { cleared = append(cleared, string(line)) }))
	assert.Equal(t, []string{"old 1", "old 2", "old 3"}, cleared)

	line, err := l.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "new 1", string(line))
	line, err = l.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "new 2", string(line))
}

func TestDrainAtDeadlineWithEmptyBuffer(t *testing.T) {
	clock := &fakeClock{t: testStart}
	l := NewLineReader(newFakePort(data("new\n")))
	l.now = clock.now

	var cleared []string
	require.NoError(t, l.Drain(testStart, func(line []byte) { cleared = append(cleared, string(line)) }))
	assert.Empty(t, cleared)

	line, err := l.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "new", string(line))
}
