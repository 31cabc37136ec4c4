package liveplot

import (
	"html/template"
	"math"
	"net/http"
	"path/filepath"
	"time"

	"github.com/TheCacophonyProject/battery-tester/internal/metrics"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta http-equiv="refresh" content="{{.Refresh}}">
<title>Battery tester</title>
</head>
<body>
{{if .File}}<p>{{.File}}, updated {{.Rendered.Format "15:04:05"}}</p>
<img src="chart.png" alt="battery tester chart">{{else}}<p>Waiting for data</p>{{end}}
</body>
</html>
`))

// handler serves an auto refreshing page with the last chart, the chart itself and metrics.
func (p *Plotter) handler(interval time.Duration) http.Handler {
	refresh := int(math.Max(1, math.Round(interval.Seconds())))

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		_, file, rendered := p.lastRender()
		if file != "" {
			file = filepath.Base(file)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		err := pageTemplate.Execute(w, struct {
			Refresh  int
			File     string
			Rendered time.Time
		}{refresh, file, rendered})
		if err != nil {
			log.Error("Error writing page: ", err)
		}
	})
	mux.HandleFunc("/chart.png", func(w http.ResponseWriter, r *http.Request) {
		img, _, _ := p.lastRender()
		if img == nil {
			http.Error(w, "no chart rendered yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		w.Write(img)
	})
	mux.Handle("/metrics", metrics.Handler())
	return mux
}
