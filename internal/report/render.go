package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"math"
	"sort"

	"github.com/KaramelBytes/profiloom/internal/analysis"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

//go:embed templates/report.html.tmpl
var templateFS embed.FS

var reportTmpl = template.Must(template.New("report.html.tmpl").Funcs(template.FuncMap{
	"num": func(f float64) string { return fmt.Sprintf("%.4g", f) },
	"pct": func(f float64) string { return fmt.Sprintf("%.1f%%", f) },
	"corr": func(f float64) string { return fmt.Sprintf("%.2f", f) },
	// heat maps |r| to one of five CSS buckets.
	"heat": func(f float64) int { return int(math.Min(4, math.Floor(math.Abs(f)*5))) },
}).ParseFS(templateFS, "templates/report.html.tmpl"))

type page struct {
	*Artifact
	Theme       string
	Generated   string
	MissingPct  float64
	Kinds       []kindCount
	Variables   []variable
	Missing     []missingRow
	TopPairs    []analysis.PairCorr
	Columns     []string
	Notes       []string
	Interaction bool
}

type kindCount struct {
	Kind  string
	Count int
}

type variable struct {
	analysis.ColumnSummary
	Chart template.HTML
}

type missingRow struct {
	Name    string
	Missing int
	Pct     float64
}

func render(a *Artifact) ([]byte, error) {
	p := buildPage(a)
	var buf bytes.Buffer
	if err := reportTmpl.Execute(&buf, p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func buildPage(a *Artifact) page {
	rep := a.Profile
	p := page{
		Artifact:  a,
		Theme:     "light",
		Generated: a.GeneratedAt.Format("2006-01-02 15:04:05 MST"),
		Notes:     append([]string(nil), rep.Warnings...),
	}
	if a.Settings.DarkMode {
		p.Theme = "dark"
	}
	if cells := rep.Rows * len(rep.Cols); cells > 0 {
		p.MissingPct = float64(rep.MissingCells) * 100 / float64(cells)
	}
	counts := map[string]int{}
	for _, c := range rep.Cols {
		counts[c.Kind]++
		p.Columns = append(p.Columns, c.Name)
		v := variable{ColumnSummary: c}
		if len(c.Histogram) > 0 {
			svg, err := histogramSVG(c, a.Settings.DarkMode)
			if err != nil {
				p.Notes = append(p.Notes, fmt.Sprintf("histogram for %s unavailable: %v", c.Name, err))
			}
			v.Chart = svg
		}
		p.Variables = append(p.Variables, v)
		if c.Missing > 0 {
			p.Missing = append(p.Missing, missingRow{Name: c.Name, Missing: c.Missing, Pct: c.MissingPct()})
		}
	}
	for k, n := range counts {
		p.Kinds = append(p.Kinds, kindCount{Kind: k, Count: n})
	}
	sort.Slice(p.Kinds, func(i, j int) bool { return p.Kinds[i].Kind < p.Kinds[j].Kind })
	sort.SliceStable(p.Missing, func(i, j int) bool { return p.Missing[i].Missing > p.Missing[j].Missing })
	p.TopPairs = rep.Corr.TopPairs(10)
	for _, g := range rep.Groups {
		if len(g.Metrics) > 0 || len(g.CorrPairs) > 0 {
			p.Interaction = true
			break
		}
	}
	return p
}

// histogramSVG draws the column's bins as an inline SVG bar chart.
// Columns whose bins are all empty produce no chart.
func histogramSVG(c analysis.ColumnSummary, dark bool) (template.HTML, error) {
	peak := 0
	bars := make([]chart.Value, 0, len(c.Histogram))
	fg, bg, bar := "#1f2937", "#ffffff", "#4f7cac"
	if dark {
		fg, bg, bar = "#e5e7eb", "#111827", "#7aa2f7"
	}
	for _, b := range c.Histogram {
		peak = max(peak, b.Count)
		bars = append(bars, chart.Value{
			Label: fmt.Sprintf("%.3g", b.Lo),
			Value: float64(b.Count),
			Style: chart.Style{FillColor: drawing.ColorFromHex(bar), StrokeColor: drawing.ColorFromHex(bar)},
		})
	}
	if peak == 0 {
		return "", nil
	}
	text := chart.Style{FontColor: drawing.ColorFromHex(fg), StrokeColor: drawing.ColorFromHex(fg), FontSize: 7}
	ch := chart.BarChart{
		Width:      420,
		Height:     220,
		BarWidth:   28,
		Background: chart.Style{FillColor: drawing.ColorFromHex(bg), Padding: chart.Box{Top: 14, Left: 8, Right: 8, Bottom: 8}},
		Canvas:     chart.Style{FillColor: drawing.ColorFromHex(bg)},
		XAxis:      text,
		YAxis: chart.YAxis{
			Style: text,
			Range: &chart.ContinuousRange{Min: 0, Max: float64(peak)},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		Bars: bars,
	}
	var buf bytes.Buffer
	if err := ch.Render(chart.SVG, &buf); err != nil {
		return "", err
	}
	// The SVG is generated locally from numeric labels only.
	return template.HTML(buf.String()), nil
}
