package config

import (
	"errors"
	"os"

	"github.com/google/go-cmp/cmp"
	"github.com/rjeczalik/notify"
)

// ErrChanged is returned by Watch once the config file has relevant changes.
var ErrChanged = errors.New("config changed")

type watcher struct {
	path   string
	events chan notify.EventInfo
}

func newWatcher(path string) (*watcher, error) {
	w := &watcher{path: path, events: make(chan notify.EventInfo, 1)}
	if err := notify.Watch(path, w.events, notify.InCloseWrite, notify.InMovedTo); err != nil {
		return nil, err
	}
	return w, nil
}

// wait blocks until load returns something that differs from current.
// onDiff is given the diff of every reload, empty when nothing relevant changed.
func (w *watcher) wait(current interface{}, load func() (interface{}, error), onDiff func(string, error)) error {
	defer notify.Stop(w.events)
	for {
		<-w.events
		next, err := load()
		if err != nil {
			onDiff("", err)
			continue
		}
		diff := cmp.Diff(current, next)
		onDiff(diff, nil)
		if diff != "" {
			return ErrChanged
		}
	}
}

// Watch compares the config from when first loaded to a new config each time the
// config file is written. It returns ErrChanged when they differ so the process can
// exit and be restarted by systemd with the new config.
// Nothing is watched when there is no config file.
func Watch(c *Config, current interface{}, load func() (interface{}, error), onDiff func(string, error)) error {
	if _, err := os.Stat(c.Path()); os.IsNotExist(err) {
		return nil
	}
	w, err := newWatcher(c.Path())
	if err != nil {
		return err
	}
	return w.wait(current, load, onDiff)
}
