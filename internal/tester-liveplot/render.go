package liveplot

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/TheCacophonyProject/battery-tester/samplelog"
	"golang.org/x/image/colornames"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

const timeLabel = "t / s"

type panel struct {
	label  string
	color  color.Color
	values func(*samplelog.Series) []float64
}

// panels are drawn left to right, top to bottom.
var panels = []panel{
	{"battery voltage U / mV", colornames.Blue, func(s *samplelog.Series) []float64 { return s.Voltage }},
	{"transferred charge Q / As", colornames.Green, func(s *samplelog.Series) []float64 { return s.Charge }},
	{"current I / mA", colornames.Red, func(s *samplelog.Series) []float64 { return s.Current }},
	{"temperature T / °C", colornames.Magenta, func(s *samplelog.Series) []float64 { return s.Temperature }},
}

type Chart struct {
	Width  int
	Height int
}

// Render draws the four panels from scratch as a PNG of Width x Height pixels.
func (c Chart) Render(series *samplelog.Series) ([]byte, error) {
	plots := make([][]*plot.Plot, 2)
	for i, pan := range panels {
		p, err := newPanel(pan, series)
		if err != nil {
			return nil, fmt.Errorf("failed to plot %s: %w", pan.label, err)
		}
		plots[i/2] = append(plots[i/2], p)
	}

	img := vgimg.NewWith(vgimg.UseWH(vg.Points(float64(c.Width)), vg.Points(float64(c.Height))), vgimg.UseDPI(72))
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      2,
		Cols:      2,
		PadX:      vg.Points(20),
		PadY:      vg.Points(20),
		PadTop:    vg.Points(10),
		PadBottom: vg.Points(10),
		PadLeft:   vg.Points(10),
		PadRight:  vg.Points(10),
	}
	canvases := plot.Align(plots, tiles, dc)
	for row := range plots {
		for col := range plots[row] {
			plots[row][col].Draw(canvases[row][col])
		}
	}

	var buf bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func newPanel(pan panel, series *samplelog.Series) (*plot.Plot, error) {
	p := plot.New()
	p.X.Label.Text = timeLabel
	p.Y.Label.Text = pan.label
	p.Add(plotter.NewGrid())

	values := pan.values(series)
	xys := make(plotter.XYs, 0, series.Len())
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		xys = append(xys, plotter.XY{X: series.T[i], Y: v})
	}
	if len(xys) == 0 {
		return p, nil
	}
	line, err := plotter.NewLine(xys)
	if err != nil {
		return nil, err
	}
	line.LineStyle.Width = vg.Points(2)
	line.LineStyle.Color = pan.color
	p.Add(line)
	return p, nil
}

// writeFileAtomic replaces path so viewers never see a half written image.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
