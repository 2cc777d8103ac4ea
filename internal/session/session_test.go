package session

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/KaramelBytes/profiloom/internal/catalog"
	"github.com/KaramelBytes/profiloom/internal/dataset"
	"github.com/KaramelBytes/profiloom/internal/logging"
	"github.com/KaramelBytes/profiloom/internal/metrics"
	"github.com/KaramelBytes/profiloom/internal/report"
	"github.com/KaramelBytes/profiloom/internal/sampler"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// fakeGenerator records calls and returns a canned artifact or error.
type fakeGenerator struct {
	err      error
	calls    int
	settings report.Settings
	rows     int
}

func (f *fakeGenerator) Generate(ctx context.Context, ds *dataset.Dataset, s report.Settings) (*report.Artifact, error) {
	f.calls++
	f.settings = s
	f.rows = ds.Len()
	if f.err != nil {
		return nil, f.err
	}
	return &report.Artifact{ID: uuid.New(), Title: s.Title, Settings: s, HTML: []byte("<html>" + s.Title + "</html>"), SampleRows: ds.Len()}, nil
}

func newWorkflow(gen report.Generator) *Workflow {
	return &Workflow{
		Catalog:   catalog.New(catalog.Options{Logger: logging.Discard()}),
		Generator: gen,
		Seed:      sampler.DefaultSeed,
		Metrics:   metrics.New(),
		Logger:    logging.Discard(),
	}
}

func csvRows(n int) []byte {
	var b strings.Builder
	b.WriteString("id,score,group\n")
	for i := 0; i < n; i++ {
		b.WriteString(strings.Join([]string{strconv.Itoa(i), strconv.Itoa(i * 2), "g" + strconv.Itoa(i%3)}, ","))
		b.WriteString("\n")
	}
	return []byte(b.String())
}

func TestStateStrings(t *testing.T) {
	want := map[State]string{NoDataset: "no_dataset", DatasetLoaded: "dataset_loaded", Configured: "configured", ReportGenerated: "report_generated", State(9): "unknown"}
	for s, w := range want {
		if s.String() != w {
			t.Fatalf("%d.String() = %q, want %q", s, s.String(), w)
		}
	}
	var st State
	if err := st.UnmarshalText([]byte("configured")); err != nil || st != Configured {
		t.Fatalf("UnmarshalText = %v, %v", st, err)
	}
	if err := st.UnmarshalText([]byte("bogus")); err == nil {
		t.Fatalf("expected error for unknown state")
	}
}

func TestCatalogFlowThroughStates(t *testing.T) {
	gen := &fakeGenerator{}
	w := newWorkflow(gen)
	s := New(DefaultConfig(0))
	ctx := context.Background()

	if s.State != NoDataset {
		t.Fatalf("new session state = %v", s.State)
	}
	if err := w.Select(ctx, s, CatalogSelection{Name: "Iris"}); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if s.State != DatasetLoaded || s.Dataset.Len() != 150 || s.Label != "Iris" || s.Stats != nil {
		t.Fatalf("after select: state=%v label=%q stats=%v", s.State, s.Label, s.Stats)
	}
	if s.Config.SampleSize != 150 || s.Notice.Level != NoticeSuccess || s.Notice.Message != "Loaded Iris dataset with 150 rows" {
		t.Fatalf("unexpected config/notice: %+v %+v", s.Config, s.Notice)
	}

	a, err := w.Generate(ctx, s)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if s.State != ReportGenerated || gen.settings.Title != "Iris Profiling Report" || !gen.settings.Explorative {
		t.Fatalf("after generate: state=%v settings=%+v", s.State, gen.settings)
	}

	cfg := s.Config
	cfg.Minimal = true
	cfg.DarkMode = true
	cfg.SampleSize = 120
	b, err := w.Apply(ctx, s, cfg)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if b.ID == a.ID || gen.calls != 2 || gen.rows != 120 || !gen.settings.Minimal || !gen.settings.DarkMode {
		t.Fatalf("config change did not regenerate: calls=%d rows=%d", gen.calls, gen.rows)
	}

	var out bytes.Buffer
	if err := w.ExportReport(s, &out); err != nil || out.String() != "<html>Iris Profiling Report</html>" {
		t.Fatalf("ExportReport = %q, %v", out.String(), err)
	}
	out.Reset()
	if err := w.ExportSample(s, &out); err != nil {
		t.Fatalf("ExportSample: %v", err)
	}
	back, err := dataset.ReadCSV(&out, "sample", ',')
	if err != nil || back.Len() != 120 || back.Width() != 5 {
		t.Fatalf("exported sample shape wrong: %v", err)
	}

	if got := testutil.ToFloat64(w.Metrics.DatasetLoads.WithLabelValues(ModeCatalog, metrics.StatusOK)); got != 1 {
		t.Fatalf("catalog load metric = %v", got)
	}
}

func TestSwitchingModeResetsToNoDataset(t *testing.T) {
	w := newWorkflow(&fakeGenerator{})
	s := New(DefaultConfig(0))
	ctx := context.Background()
	if err := w.Select(ctx, s, CatalogSelection{Name: "iris"}); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if _, err := w.Generate(ctx, s); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	err := w.Select(ctx, s, UploadSelection{})
	if !errors.Is(err, ErrAwaitingUpload) {
		t.Fatalf("expected ErrAwaitingUpload, got %v", err)
	}
	if s.State != NoDataset || s.Artifact != nil || s.Sample != nil || s.Mode() != ModeUpload {
		t.Fatalf("mode switch must reset the session: %+v", s.Snapshot())
	}
	if s.Notice.Level != NoticeInfo {
		t.Fatalf("awaiting upload should be informational, got %+v", s.Notice)
	}
	if err := w.ExportReport(s, &bytes.Buffer{}); !errors.Is(err, ErrNoReport) {
		t.Fatalf("expected ErrNoReport, got %v", err)
	}
}

func TestUploadFlow(t *testing.T) {
	gen := &fakeGenerator{}
	w := newWorkflow(gen)
	s := New(DefaultConfig(0))
	ctx := context.Background()

	if err := w.Select(ctx, s, UploadSelection{Filename: "data.csv", Data: csvRows(2500)}); err != nil {
		t.Fatalf("Select upload: %v", err)
	}
	if s.Label != report.UploadLabel || s.Notice.Message != "Uploaded file with 2500 rows" {
		t.Fatalf("unexpected upload state: %q %+v", s.Label, s.Notice)
	}
	if s.Config.SampleSize != 1000 {
		t.Fatalf("default sample size = %d, want 1000", s.Config.SampleSize)
	}
	if lo, hi := s.Bounds(); lo != 100 || hi != 2500 {
		t.Fatalf("bounds = %d,%d", lo, hi)
	}
	wantStats := []ColumnStat{
		{Name: "id", Kind: "numeric"},
		{Name: "score", Kind: "numeric"},
		{Name: "group", Kind: "categorical"},
	}
	if len(s.Stats) != len(wantStats) {
		t.Fatalf("stats = %+v", s.Stats)
	}
	for i, want := range wantStats {
		if s.Stats[i] != want {
			t.Fatalf("stats[%d] = %+v, want %+v", i, s.Stats[i], want)
		}
	}
	if _, err := w.Generate(ctx, s); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if gen.rows != 1000 || gen.settings.Title != "Uploaded Data Profiling Report" {
		t.Fatalf("generated from %d rows titled %q", gen.rows, gen.settings.Title)
	}

	w.ClearUpload(s)
	if s.State != NoDataset || s.Dataset != nil || s.Stats != nil || s.Mode() != ModeUpload {
		t.Fatalf("clear upload did not reset: %+v", s.Snapshot())
	}
}

func TestMalformedUploadIsCaught(t *testing.T) {
	w := newWorkflow(&fakeGenerator{})
	s := New(DefaultConfig(0))
	err := w.Select(context.Background(), s, UploadSelection{Filename: "img.csv", Data: []byte{0x89, 'P', 'N', 'G', 0x00, 0xff}})
	var pe *dataset.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if s.State != NoDataset || s.Notice.Level != NoticeError || !strings.HasPrefix(s.Notice.Message, "Error loading file: ") {
		t.Fatalf("unexpected session after parse error: %+v", s.Snapshot())
	}
	if got := testutil.ToFloat64(w.Metrics.DatasetLoads.WithLabelValues(ModeUpload, metrics.StatusError)); got != 1 {
		t.Fatalf("upload error metric = %v", got)
	}
}

func TestEmptyUploadIsLoadError(t *testing.T) {
	w := newWorkflow(&fakeGenerator{})
	s := New(DefaultConfig(0))
	err := w.Select(context.Background(), s, UploadSelection{Filename: "empty.csv"})
	var pe *dataset.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if errors.Is(err, ErrAwaitingUpload) {
		t.Fatalf("an empty named file is not an awaiting upload")
	}
	if s.State != NoDataset || s.Notice.Level != NoticeError || !strings.Contains(s.Notice.Message, "no columns to parse from input") {
		t.Fatalf("unexpected session after empty upload: %+v", s.Snapshot())
	}
	if got := testutil.ToFloat64(w.Metrics.DatasetLoads.WithLabelValues(ModeUpload, metrics.StatusError)); got != 1 {
		t.Fatalf("upload error metric = %v", got)
	}
}

func TestUnknownCatalogName(t *testing.T) {
	w := newWorkflow(&fakeGenerator{})
	s := New(DefaultConfig(0))
	err := w.Select(context.Background(), s, CatalogSelection{Name: "Planets"})
	if !errors.Is(err, catalog.ErrUnknownDataset) || s.State != NoDataset {
		t.Fatalf("expected unknown dataset in NoDataset, got %v / %v", err, s.State)
	}
	if err := w.Configure(s, DefaultConfig(0)); !errors.Is(err, ErrNoDataset) {
		t.Fatalf("configure without dataset = %v", err)
	}
	if _, err := w.Generate(context.Background(), s); !errors.Is(err, ErrNoDataset) {
		t.Fatalf("generate without dataset = %v", err)
	}
}

func TestGeneratorErrorPropagatesUnchanged(t *testing.T) {
	boom := errors.New("profiling exploded")
	w := newWorkflow(&fakeGenerator{err: boom})
	s := New(DefaultConfig(0))
	if err := w.Select(context.Background(), s, CatalogSelection{Name: "Iris"}); err != nil {
		t.Fatalf("Select: %v", err)
	}
	_, err := w.Generate(context.Background(), s)
	if err != boom {
		t.Fatalf("expected the generator's error unchanged, got %v", err)
	}
	if s.State != Configured || s.Artifact != nil {
		t.Fatalf("failed generation should stay Configured, got %v", s.State)
	}
}

func TestConfigureClampsSampleSize(t *testing.T) {
	w := newWorkflow(&fakeGenerator{})
	s := New(DefaultConfig(0))
	if err := w.Select(context.Background(), s, UploadSelection{Filename: "d.csv", Data: csvRows(500)}); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if err := w.Configure(s, Config{SampleSize: 5}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if s.Config.SampleSize != 100 || s.State != Configured {
		t.Fatalf("clamped size = %d state=%v", s.Config.SampleSize, s.State)
	}
	if err := w.Configure(s, Config{SampleSize: 9999}); err != nil || s.Config.SampleSize != 500 {
		t.Fatalf("upper clamp = %d, %v", s.Config.SampleSize, err)
	}
}

func TestStoreLifecycle(t *testing.T) {
	st := NewStore(Config{Explorative: true, DarkMode: true})
	s, created := st.GetOrCreate("not-a-uuid")
	if !created || !s.Config.DarkMode {
		t.Fatalf("expected new session with defaults")
	}
	again, created := st.GetOrCreate(s.ID.String())
	if created || again != s {
		t.Fatalf("expected existing session")
	}
	other := st.Create()
	if st.Len() != 2 {
		t.Fatalf("len = %d", st.Len())
	}
	_ = other.Do(func(*Session) error { return nil })
	s.mu.Lock()
	s.UpdatedAt = time.Now().Add(-2 * time.Hour)
	s.mu.Unlock()
	if n := st.Prune(time.Hour, time.Now()); n != 1 {
		t.Fatalf("pruned %d, want 1", n)
	}
	if _, ok := st.Get(s.ID.String()); ok {
		t.Fatalf("stale session still present")
	}
	if _, ok := st.Get(other.ID.String()); !ok {
		t.Fatalf("active session pruned")
	}
}

func TestSessionDoSerializes(t *testing.T) {
	s := New(DefaultConfig(0))
	done := make(chan struct{})
	counter := 0
	for i := 0; i < 50; i++ {
		go func() {
			_ = s.Do(func(s *Session) error {
				counter++
				return nil
			})
			done <- struct{}{}
		}()
	}
	for i := 0; i < 50; i++ {
		<-done
	}
	if counter != 50 {
		t.Fatalf("counter = %d", counter)
	}
}
