package report

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/KaramelBytes/profiloom/internal/analysis"
	"github.com/KaramelBytes/profiloom/internal/dataset"
)

func loadIris(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.ReadFile(filepath.Join("..", "catalog", "data", "iris.csv"), dataset.ReadOptions{})
	if err != nil {
		t.Fatalf("read iris: %v", err)
	}
	ds.Name = "Iris"
	return ds
}

func fixedClock() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

func TestTitle(t *testing.T) {
	if got := Title("Iris"); got != "Iris Profiling Report" {
		t.Fatalf("Title = %q", got)
	}
	if got := Title(""); got != "Uploaded Data Profiling Report" {
		t.Fatalf("Title(empty) = %q", got)
	}
}

func TestOptionsFollowSettings(t *testing.T) {
	p := NewProfiler()
	p.Bins = 20

	minimal := p.Options(Settings{Minimal: true, Explorative: true})
	if minimal.Correlations || minimal.Histograms || minimal.Quantiles || minimal.Outliers || minimal.Duplicates || minimal.AutoGroupBy || minimal.CorrPerGroup {
		t.Fatalf("minimal options enable optional sections: %+v", minimal)
	}
	full := p.Options(Settings{})
	if !full.Correlations || !full.Histograms || !full.Quantiles || !full.Outliers || !full.Duplicates {
		t.Fatalf("full options missing sections: %+v", full)
	}
	if full.AutoGroupBy || full.CorrPerGroup {
		t.Fatalf("non-explorative options should not group")
	}
	exp := p.Options(Settings{Explorative: true})
	if !exp.AutoGroupBy || !exp.CorrPerGroup || exp.Bins != 20 || exp.MaxRows != 0 || exp.DecimalSeparator != 0 {
		t.Fatalf("explorative options = %+v", exp)
	}

	p.GroupBy = []string{"species"}
	p.MaxRows = 50
	p.DecimalSeparator = ','
	p.ThousandsSeparator = '.'
	grouped := p.Options(Settings{Explorative: true})
	if grouped.AutoGroupBy || len(grouped.GroupBy) != 1 || grouped.GroupBy[0] != "species" {
		t.Fatalf("explicit group-by = %v auto=%v", grouped.GroupBy, grouped.AutoGroupBy)
	}
	if grouped.MaxRows != 50 || grouped.DecimalSeparator != ',' || grouped.ThousandsSeparator != '.' {
		t.Fatalf("parse options not applied: %+v", grouped)
	}
	if plain := p.Options(Settings{}); len(plain.GroupBy) != 0 {
		t.Fatalf("non-explorative report grouped by %v", plain.GroupBy)
	}
}

func TestGenerateHonoursProfilerParsing(t *testing.T) {
	ds := dataset.New("eu.csv", []string{"city", "amount"}, [][]string{
		{"Lyon", "1.234,5"}, {"Lyon", "2.000,0"}, {"Nice", "750,25"},
	})
	p := NewProfiler()
	p.Now = fixedClock
	p.DecimalSeparator = ','
	p.ThousandsSeparator = '.'
	p.GroupBy = []string{"city"}
	p.MaxRows = 2
	a, err := p.Generate(context.Background(), ds, Settings{Explorative: true})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	rep := a.Profile
	if rep.Processed != 2 || rep.Rows != 3 {
		t.Fatalf("processed %d of %d rows", rep.Processed, rep.Rows)
	}
	amount := rep.Cols[1]
	if amount.Kind != analysis.KindNumeric || amount.Max != 2000 || amount.Min != 1234.5 {
		t.Fatalf("amount = %+v", amount)
	}
	if len(rep.Groups) != 1 || rep.Groups[0].Key != "city=Lyon" {
		t.Fatalf("groups = %+v", rep.Groups)
	}
	if !strings.Contains(string(a.HTML), "processed only 2/3 rows") {
		t.Fatalf("report does not mention the row cap")
	}
}

func TestGenerateFullReport(t *testing.T) {
	p := NewProfiler()
	p.Now = fixedClock
	a, err := p.Generate(context.Background(), loadIris(t), Settings{Explorative: true})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if a.Title != "Iris Profiling Report" || a.SampleRows != 150 || a.Profile.Rows != 150 {
		t.Fatalf("unexpected artifact: %q rows=%d", a.Title, a.SampleRows)
	}
	html := string(a.HTML)
	for _, want := range []string{
		"<title>Iris Profiling Report</title>",
		`class="theme-light"`,
		`id="overview"`,
		`id="variables"`,
		`id="missing"`,
		`id="correlations"`,
		`id="interactions"`,
		"species=setosa",
		"<svg",
		"2025-03-01 12:00:00 UTC",
		a.ID.String(),
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("report missing %q", want)
		}
	}
	if a.Profile.Duplicates < 0 {
		t.Fatalf("duplicates should be computed in full mode")
	}
}

func TestGenerateMinimalAndDarkMode(t *testing.T) {
	a, err := NewProfiler().Generate(context.Background(), loadIris(t), Settings{Minimal: true, DarkMode: true, Title: "Custom"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	html := string(a.HTML)
	if !strings.Contains(html, `class="theme-dark"`) {
		t.Fatalf("dark theme class missing")
	}
	if strings.Contains(html, `id="correlations"`) || strings.Contains(html, "<svg") || strings.Contains(html, `id="interactions"`) {
		t.Fatalf("minimal report contains optional sections")
	}
	if a.Title != "Custom" || !strings.Contains(html, "<h1>Custom</h1>") {
		t.Fatalf("explicit title not used")
	}
}

func TestGenerateEscapesCellsAndHandlesMissing(t *testing.T) {
	ds := dataset.New("Uploaded Data", []string{"<b>name</b>", "score"}, [][]string{
		{"<script>alert(1)</script>", "1"},
		{"ok", ""},
		{"ok", "3"},
	})
	a, err := NewProfiler().Generate(context.Background(), ds, Settings{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	html := string(a.HTML)
	if strings.Contains(html, "<script>alert(1)</script>") || strings.Contains(html, "<b>name</b>") {
		t.Fatalf("cell values must be escaped")
	}
	if !strings.Contains(html, "&lt;script&gt;") {
		t.Fatalf("escaped value missing")
	}
	if !strings.Contains(html, "<td>score</td><td>1</td>") {
		t.Fatalf("missing-values table should list score")
	}
}

func TestGenerateHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewProfiler().Generate(ctx, loadIris(t), Settings{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := NewProfiler().Generate(context.Background(), nil, Settings{}); err == nil {
		t.Fatalf("expected error for nil dataset")
	}
}

func TestArtifactExports(t *testing.T) {
	a, err := NewProfiler().Generate(context.Background(), loadIris(t), Settings{Minimal: true})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	var buf bytes.Buffer
	n, err := a.WriteTo(&buf)
	if err != nil || n != int64(len(a.HTML)) || !bytes.Equal(buf.Bytes(), a.HTML) {
		t.Fatalf("WriteTo wrote %d bytes, err %v", n, err)
	}
	path := filepath.Join(t.TempDir(), "out", Filename)
	if err := a.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil || !bytes.Equal(b, a.HTML) {
		t.Fatalf("file content mismatch: %v", err)
	}
	md := a.Markdown()
	if !strings.HasPrefix(md, "# Iris Profiling Report\n") || !strings.Contains(md, "[SCHEMA]") {
		t.Fatalf("unexpected markdown: %s", md)
	}
}

func TestHistogramSkipsEmptyBins(t *testing.T) {
	svg, err := histogramSVG(analysisColumnWithBins(0, 0), false)
	if err != nil || svg != "" {
		t.Fatalf("empty bins should yield no chart, got %q %v", svg, err)
	}
	svg, err = histogramSVG(analysisColumnWithBins(3, 1), true)
	if err != nil {
		t.Fatalf("histogramSVG: %v", err)
	}
	if !strings.HasPrefix(string(svg), "<svg") {
		t.Fatalf("expected inline svg, got %.40q", svg)
	}
}

func analysisColumnWithBins(counts ...int) analysis.ColumnSummary {
	c := analysis.ColumnSummary{Name: "v", Kind: analysis.KindNumeric}
	for i, n := range counts {
		c.Histogram = append(c.Histogram, analysis.Bin{Lo: float64(i), Hi: float64(i + 1), Count: n})
	}
	return c
}
