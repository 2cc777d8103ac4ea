package http

import (
	"net/http"
	"time"

	"github.com/KaramelBytes/profiloom/internal/catalog"
	"github.com/KaramelBytes/profiloom/internal/session"
	"github.com/go-chi/render"
)

// APIError represents a structured API error response.
type APIError struct {
	StatusCode int    `json:"status_code"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string { return e.Message }

// Render implements the render.Renderer interface for chi/render.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// ErrNotFound builds a 404 APIError.
func ErrNotFound(msg string) *APIError {
	return &APIError{StatusCode: http.StatusNotFound, ErrorCode: "NOT_FOUND", Message: msg}
}

type catalogItem struct {
	catalog.Entry
	Available bool `json:"available"`
}

func (s *Server) handleAPICatalog(w http.ResponseWriter, r *http.Request) {
	entries := catalog.Entries()
	out := make([]catalogItem, len(entries))
	for i, e := range entries {
		out[i] = catalogItem{Entry: e, Available: s.catalog != nil && s.catalog.Available(e)}
	}
	render.JSON(w, r, out)
}

func (s *Server) handleAPISession(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	var snap session.Snapshot
	_ = sess.Do(func(sess *session.Session) error {
		snap = sess.Snapshot()
		return nil
	})
	render.JSON(w, r, snap)
}

// reportSummary is the JSON form of the current report. Statistics travel as
// markdown since correlations may be NaN.
type reportSummary struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	GeneratedAt time.Time       `json:"generated_at"`
	SampleRows  int             `json:"sample_rows"`
	Columns     []columnSummary `json:"columns"`
	Markdown    string          `json:"markdown"`
}

type columnSummary struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Missing int    `json:"missing"`
	Unique  int    `json:"unique"`
}

func (s *Server) handleAPIReport(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	var out *reportSummary
	_ = sess.Do(func(sess *session.Session) error {
		if a := sess.Artifact; a != nil {
			out = &reportSummary{ID: a.ID.String(), Title: a.Title, GeneratedAt: a.GeneratedAt, SampleRows: a.SampleRows, Markdown: a.Markdown()}
			for _, c := range a.Profile.Cols {
				out.Columns = append(out.Columns, columnSummary{Name: c.Name, Kind: c.Kind, Missing: c.Missing, Unique: c.Unique})
			}
		}
		return nil
	})
	if out == nil {
		_ = render.Render(w, r, ErrNotFound(session.ErrNoReport.Error()))
		return
	}
	render.JSON(w, r, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status":   "ok",
		"sessions": s.store.Len(),
		"uptime":   time.Since(s.started).Round(time.Second).String(),
	})
}
