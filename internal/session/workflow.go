package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/KaramelBytes/profiloom/internal/analysis"
	"github.com/KaramelBytes/profiloom/internal/catalog"
	"github.com/KaramelBytes/profiloom/internal/dataset"
	"github.com/KaramelBytes/profiloom/internal/metrics"
	"github.com/KaramelBytes/profiloom/internal/report"
	"github.com/KaramelBytes/profiloom/internal/sampler"
)

// Loader resolves catalog names. *catalog.Catalog implements it.
type Loader interface {
	Load(ctx context.Context, name string) (*dataset.Dataset, error)
}

// Workflow drives sessions through the dashboard states.
// Every method expects the caller to hold the session (see Session.Do).
type Workflow struct {
	Catalog   Loader
	Generator report.Generator
	Seed      int64
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

func (w *Workflow) log() *slog.Logger {
	if w.Logger == nil {
		return slog.Default()
	}
	return w.Logger
}

// Select resolves the selection and loads its dataset. Switching source mode
// or picking another dataset discards the previous dataset and report.
// An upload selection without a file yields ErrAwaitingUpload with the session
// left in NoDataset. A named file with no content is a load error.
func (w *Workflow) Select(ctx context.Context, s *Session, sel Selection) error {
	s.reset()
	s.Selection = sel
	var (
		ds    *dataset.Dataset
		label string
		err   error
	)
	switch v := sel.(type) {
	case CatalogSelection:
		ds, err = w.Catalog.Load(ctx, v.Name)
		if e, ok := catalog.Lookup(v.Name); ok {
			label = e.Name
		}
	case UploadSelection:
		if v.Filename == "" && len(v.Data) == 0 {
			err = ErrAwaitingUpload
			break
		}
		ds, err = dataset.Read(bytes.NewReader(v.Data), v.Filename, dataset.ReadOptions{})
		label = report.UploadLabel
	default:
		err = fmt.Errorf("unsupported selection %T", sel)
	}
	source := s.Mode()
	switch {
	case errors.Is(err, ErrAwaitingUpload):
		w.Metrics.ObserveLoad(source, metrics.StatusAwaiting)
		s.Notice = Notice{Level: NoticeInfo, Message: "Please upload a CSV file to begin analysis"}
		return err
	case err != nil:
		w.Metrics.ObserveLoad(source, metrics.StatusError)
		w.log().Warn("dataset load failed", "mode", source, "error", err)
		if source == ModeUpload {
			s.Notice = Notice{Level: NoticeError, Message: fmt.Sprintf("Error loading file: %v", err)}
		} else {
			s.Notice = Notice{Level: NoticeError, Message: fmt.Sprintf("Error loading dataset: %v", err)}
		}
		return err
	}
	w.Metrics.ObserveLoad(source, metrics.StatusOK)
	s.Dataset = ds
	s.Label = label
	s.State = DatasetLoaded
	s.Config.SampleSize = sampler.DefaultSize(ds.Len())
	if source == ModeUpload {
		s.Stats = columnStats(ds)
		s.Notice = Notice{Level: NoticeSuccess, Message: fmt.Sprintf("Uploaded file with %d rows", ds.Len())}
	} else {
		s.Notice = Notice{Level: NoticeSuccess, Message: fmt.Sprintf("Loaded %s dataset with %d rows", label, ds.Len())}
	}
	w.log().Info("dataset loaded", "mode", source, "dataset", label, "rows", ds.Len(), "columns", ds.Width())
	return nil
}

// columnStats summarizes every column once per load.
func columnStats(ds *dataset.Dataset) []ColumnStat {
	rep := analysis.Analyze(ds, analysis.Options{})
	stats := make([]ColumnStat, 0, len(rep.Cols))
	for _, c := range rep.Cols {
		stats = append(stats, ColumnStat{Name: c.Name, Kind: c.Kind, Missing: c.Missing})
	}
	return stats
}

// ClearUpload forgets the uploaded file and returns to NoDataset.
func (w *Workflow) ClearUpload(s *Session) {
	s.reset()
	s.Selection = UploadSelection{}
	s.Notice = Notice{Level: NoticeInfo, Message: "Please upload a CSV file to begin analysis"}
}

// Configure stores cfg, clamping the sample size into the dataset's bounds.
func (w *Workflow) Configure(s *Session, cfg Config) error {
	if s.Dataset == nil {
		return ErrNoDataset
	}
	cfg.SampleSize = sampler.Clamp(cfg.SampleSize, s.Dataset.Len())
	s.Config = cfg
	s.State = Configured
	s.Artifact = nil
	return nil
}

// Generate samples the dataset and builds a fresh report. Generator errors are
// returned unchanged and leave the session in Configured.
func (w *Workflow) Generate(ctx context.Context, s *Session) (*report.Artifact, error) {
	if s.Dataset == nil {
		return nil, ErrNoDataset
	}
	if s.State == DatasetLoaded {
		if err := w.Configure(s, s.Config); err != nil {
			return nil, err
		}
	}
	s.Sample = sampler.Sample(s.Dataset, s.Config.SampleSize, w.Seed)
	w.Metrics.ObserveSample(s.Sample.Len())
	settings := report.Settings{
		Title:       report.Title(s.Label),
		Minimal:     s.Config.Minimal,
		Explorative: s.Config.Explorative,
		DarkMode:    s.Config.DarkMode,
	}
	start := time.Now()
	a, err := w.Generator.Generate(ctx, s.Sample, settings)
	if err != nil {
		w.Metrics.ObserveReport(metrics.StatusError, time.Since(start).Seconds())
		s.Notice = Notice{Level: NoticeError, Message: fmt.Sprintf("Error generating report: %v", err)}
		return nil, err
	}
	w.Metrics.ObserveReport(metrics.StatusOK, time.Since(start).Seconds())
	s.Artifact = a
	s.State = ReportGenerated
	w.log().Info("report generated", "title", a.Title, "rows", s.Sample.Len(), "duration", time.Since(start).String())
	return a, nil
}

// Apply stores a new configuration and regenerates the report.
func (w *Workflow) Apply(ctx context.Context, s *Session, cfg Config) (*report.Artifact, error) {
	if err := w.Configure(s, cfg); err != nil {
		return nil, err
	}
	return w.Generate(ctx, s)
}

// ExportReport writes the current report HTML.
func (w *Workflow) ExportReport(s *Session, out io.Writer) error {
	if s.Artifact == nil {
		return ErrNoReport
	}
	_, err := s.Artifact.WriteTo(out)
	return err
}

// ExportSample writes the current sample as CSV without an index column.
func (w *Workflow) ExportSample(s *Session, out io.Writer) error {
	if s.Sample == nil {
		return ErrNoReport
	}
	return s.Sample.WriteCSV(out)
}
