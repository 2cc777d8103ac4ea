// Package report turns a dataset into a self-contained HTML profiling report.
package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/KaramelBytes/profiloom/internal/analysis"
	"github.com/KaramelBytes/profiloom/internal/dataset"
	"github.com/KaramelBytes/profiloom/internal/utils"
	"github.com/google/uuid"
)

// Export names for the report artifact.
const (
	Filename    = "profile_report.html"
	ContentType = "text/html"
)

// UploadLabel titles reports built from uploaded files.
const UploadLabel = "Uploaded Data"

// Settings are the user-facing report switches.
type Settings struct {
	Title       string `json:"title"`
	Minimal     bool   `json:"minimal"`
	Explorative bool   `json:"explorative"`
	DarkMode    bool   `json:"dark_mode"`
}

// Title builds the report title for a dataset label.
func Title(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		label = UploadLabel
	}
	return label + " Profiling Report"
}

// Generator builds a report artifact from a dataset.
type Generator interface {
	Generate(ctx context.Context, ds *dataset.Dataset, s Settings) (*Artifact, error)
}

// Artifact is one rendered report. A new artifact is produced for every configuration change.
type Artifact struct {
	ID          uuid.UUID
	Title       string
	Settings    Settings
	Profile     *analysis.Report
	HTML        []byte
	GeneratedAt time.Time
	SampleRows  int
}

// WriteTo writes the HTML document.
func (a *Artifact) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(a.HTML)
	return int64(n), err
}

// WriteFile writes the HTML document atomically.
func (a *Artifact) WriteFile(path string) error {
	if err := utils.SafeWriteFile(path, a.HTML); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// Markdown renders the profile as plain Markdown under the report title.
func (a *Artifact) Markdown() string {
	return "# " + a.Title + "\n\n" + a.Profile.Markdown()
}

// Profiler is the default Generator, backed by the analysis engine.
type Profiler struct {
	Bins             int
	OutlierThreshold float64
	// GroupBy overrides the automatic interaction column in explorative reports.
	GroupBy []string
	// MaxRows caps the rows profiled; 0 profiles the whole sample.
	MaxRows int
	// Numeric parsing; see analysis.Options.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// Now defaults to time.Now.
	Now func() time.Time
}

// NewProfiler returns a Profiler with 10 histogram bins and a 3.5 outlier threshold.
func NewProfiler() *Profiler {
	return &Profiler{Bins: 10, OutlierThreshold: 3.5}
}

// Options maps report settings to analysis options. Minimal skips every
// optional section. Explorative adds group-by interactions on GroupBy, or on
// an automatically picked column when GroupBy is empty.
func (p *Profiler) Options(s Settings) analysis.Options {
	opt := analysis.DefaultOptions()
	opt.MaxRows = p.MaxRows
	opt.SampleRows = 10
	opt.DecimalSeparator = p.DecimalSeparator
	opt.ThousandsSeparator = p.ThousandsSeparator
	if p.Bins > 0 {
		opt.Bins = p.Bins
	}
	if p.OutlierThreshold > 0 {
		opt.OutlierThreshold = p.OutlierThreshold
	}
	if s.Minimal {
		return opt
	}
	opt.Correlations = true
	opt.Histograms = true
	opt.Quantiles = true
	opt.Outliers = true
	opt.Duplicates = true
	if s.Explorative {
		opt.GroupBy = p.GroupBy
		opt.AutoGroupBy = len(p.GroupBy) == 0
		opt.CorrPerGroup = true
	}
	return opt
}

// Generate profiles ds and renders the HTML report.
func (p *Profiler) Generate(ctx context.Context, ds *dataset.Dataset, s Settings) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ds == nil {
		return nil, errors.New("generate report: no dataset")
	}
	if s.Title == "" {
		s.Title = Title(ds.Name)
	}
	rep := analysis.Analyze(ds, p.Options(s))
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	a := &Artifact{
		ID:          uuid.New(),
		Title:       s.Title,
		Settings:    s,
		Profile:     rep,
		GeneratedAt: now().UTC(),
		SampleRows:  ds.Len(),
	}
	html, err := render(a)
	if err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	a.HTML = html
	return a, nil
}
