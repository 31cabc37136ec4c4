package liveplot

import (
	"sync"
	"time"

	"github.com/TheCacophonyProject/battery-tester/internal/metrics"
)

// Plotter redraws the chart of the newest log file on every tick. The log
// file is looked up again each tick so a restarted logger is followed.
type Plotter struct {
	dir    string
	output string
	chart  Chart

	current string

	mu       sync.Mutex
	png      []byte
	pngFile  string
	rendered time.Time
}

func newPlotter(dir, output string, chart Chart) *Plotter {
	return &Plotter{dir: dir, output: output, chart: chart}
}

// loop ticks every interval until dying is closed. A tick that takes longer than
// the interval delays the next one, ticks never overlap.
func (p *Plotter) loop(dying <-chan struct{}, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	p.tick()
	for {
		select {
		case <-dying:
			return nil
		case <-ticker.C:
			p.tick()
		}
	}
}

func (p *Plotter) tick() {
	start := time.Now()
	count, err := p.render()
	if err != nil {
		metrics.Ticks.WithLabelValues("skipped").Inc()
		log.Warn("Skipping this tick: ", err)
		return
	}
	metrics.Ticks.WithLabelValues("rendered").Inc()
	metrics.RenderSeconds.Observe(time.Since(start).Seconds())
	metrics.PlottedSamples.Set(float64(count))
	log.Debugf("Plotted %d samples in %s", count, time.Since(start))
}

func (p *Plotter) render() (int, error) {
	path, err := LatestLogFile(p.dir)
	if err != nil {
		return 0, err
	}
	if path != p.current {
		log.Info("Latest logger data file found: ", path)
		p.current = path
	}

	series, err := readLogFile(path)
	if err != nil {
		return 0, err
	}
	img, err := p.chart.Render(series)
	if err != nil {
		return 0, err
	}
	if p.output != "" {
		if err := writeFileAtomic(p.output, img); err != nil {
			return 0, err
		}
	}

	p.mu.Lock()
	p.png = img
	p.pngFile = path
	p.rendered = time.Now()
	p.mu.Unlock()
	return series.Len(), nil
}

// lastRender returns the most recent chart, nil before the first successful tick.
func (p *Plotter) lastRender() ([]byte, string, time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.png, p.pngFile, p.rendered
}
