// Package session holds per-user dashboard state and the workflow that moves
// it from dataset selection to an exported report.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/KaramelBytes/profiloom/internal/dataset"
	"github.com/KaramelBytes/profiloom/internal/report"
	"github.com/KaramelBytes/profiloom/internal/sampler"
	"github.com/google/uuid"
)

// State is the dashboard lifecycle position.
type State int

const (
	NoDataset State = iota
	DatasetLoaded
	Configured
	ReportGenerated
)

func (s State) String() string {
	switch s {
	case NoDataset:
		return "no_dataset"
	case DatasetLoaded:
		return "dataset_loaded"
	case Configured:
		return "configured"
	case ReportGenerated:
		return "report_generated"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(b []byte) error {
	for st := NoDataset; st <= ReportGenerated; st++ {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", b)
}

// Source modes.
const (
	ModeCatalog = "catalog"
	ModeUpload  = "upload"
)

// Selection is either a CatalogSelection or an UploadSelection.
type Selection interface {
	Mode() string
	isSelection()
}

// CatalogSelection picks a built-in dataset by name.
type CatalogSelection struct {
	Name string
}

func (CatalogSelection) Mode() string { return ModeCatalog }
func (CatalogSelection) isSelection() {}

// UploadSelection carries an uploaded file. Empty Data means nothing was uploaded yet.
type UploadSelection struct {
	Filename string
	Data     []byte
}

func (UploadSelection) Mode() string { return ModeUpload }
func (UploadSelection) isSelection() {}

var (
	// ErrAwaitingUpload halts the workflow until a file is uploaded. It is informational.
	ErrAwaitingUpload = errors.New("please upload a CSV file to begin analysis")
	// ErrNoDataset is returned by operations that need a loaded dataset.
	ErrNoDataset = errors.New("no dataset loaded")
	// ErrNoReport is returned when exporting before a report exists.
	ErrNoReport = errors.New("no report generated")
)

// Config holds the report switches and sample size.
type Config struct {
	Minimal     bool `json:"minimal"`
	DarkMode    bool `json:"dark_mode"`
	Explorative bool `json:"explorative"`
	SampleSize  int  `json:"sample_size"`
}

// DefaultConfig returns the initial configuration for a dataset of n rows.
func DefaultConfig(n int) Config {
	return Config{Explorative: true, SampleSize: sampler.DefaultSize(n)}
}

// Notice levels.
const (
	NoticeSuccess = "success"
	NoticeInfo    = "info"
	NoticeError   = "error"
)

// Notice is the status message shown above the dashboard.
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// ColumnStat is the per-column overview shown for uploaded files.
type ColumnStat struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Missing int    `json:"missing"`
}

// Session is one user's dashboard context. Callers must hold the session via
// Do while reading or mutating fields.
type Session struct {
	ID        uuid.UUID
	State     State
	Selection Selection
	Dataset   *dataset.Dataset
	Label     string
	Stats     []ColumnStat
	Config    Config
	Sample    *dataset.Dataset
	Artifact  *report.Artifact
	Notice    Notice
	UpdatedAt time.Time

	mu sync.Mutex
}

// New creates a session in the NoDataset state.
func New(def Config) *Session {
	return &Session{
		ID:        uuid.New(),
		State:     NoDataset,
		Selection: CatalogSelection{},
		Config:    def,
		UpdatedAt: time.Now(),
	}
}

// Do runs fn with the session locked, serializing interactions on one session.
func (s *Session) Do(fn func(*Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { s.UpdatedAt = time.Now() }()
	return fn(s)
}

// Mode returns the current source mode.
func (s *Session) Mode() string {
	if s.Selection == nil {
		return ModeCatalog
	}
	return s.Selection.Mode()
}

// Bounds returns the sample-size range for the loaded dataset.
func (s *Session) Bounds() (lo, hi int) {
	return sampler.Bounds(s.Dataset.Len())
}

// reset drops everything derived from a dataset.
func (s *Session) reset() {
	s.State = NoDataset
	s.Dataset = nil
	s.Label = ""
	s.Stats = nil
	s.Sample = nil
	s.Artifact = nil
}

// Snapshot is the JSON view of a session.
type Snapshot struct {
	ID       string   `json:"id"`
	State    State    `json:"state"`
	Mode     string   `json:"mode"`
	Dataset  string   `json:"dataset,omitempty"`
	Rows     int      `json:"rows"`
	Columns  []string `json:"columns,omitempty"`
	Config   Config   `json:"config"`
	MinSize  int      `json:"min_sample_size"`
	MaxSize  int      `json:"max_sample_size"`
	ReportID string   `json:"report_id,omitempty"`
	Notice   Notice   `json:"notice"`
}

// Snapshot captures the session for the JSON API. The caller must hold the session.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		ID:     s.ID.String(),
		State:  s.State,
		Mode:   s.Mode(),
		Config: s.Config,
		Notice: s.Notice,
	}
	if s.Dataset != nil {
		snap.Dataset = s.Label
		snap.Rows = s.Dataset.Len()
		snap.Columns = s.Dataset.Columns
		snap.MinSize, snap.MaxSize = s.Bounds()
	}
	if s.Artifact != nil {
		snap.ReportID = s.Artifact.ID.String()
	}
	return snap
}
