package http

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/KaramelBytes/profiloom/internal/catalog"
	"github.com/KaramelBytes/profiloom/internal/dataset"
	"github.com/KaramelBytes/profiloom/internal/session"
)

//go:embed templates/dashboard.html.tmpl
var dashboardSrc string

var dashboardTmpl = template.Must(template.New("dashboard").Parse(dashboardSrc))

// headRows is the size of the dataset preview.
const headRows = 5

type dashboardView struct {
	Session     session.Snapshot
	Entries     []catalog.Entry
	Selected    string
	Description string
	UploadName  string
	Head        *dataset.Dataset
	QuickStats  []session.ColumnStat
	HasReport   bool
	HasSample   bool
	MaxUploadMB int64
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	var v dashboardView
	_ = sess.Do(func(sess *session.Session) error {
		v = s.buildView(sess)
		return nil
	})
	var buf bytes.Buffer
	if err := dashboardTmpl.Execute(&buf, v); err != nil {
		s.log.Error("render dashboard", "error", err)
		http.Error(w, "render dashboard: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// buildView snapshots what the dashboard shows. The caller holds the session.
func (s *Server) buildView(sess *session.Session) dashboardView {
	v := dashboardView{
		Session:     sess.Snapshot(),
		Entries:     catalog.Entries(),
		MaxUploadMB: s.maxUpload >> 20,
		HasReport:   sess.Artifact != nil,
		HasSample:   sess.Sample != nil,
	}
	switch sel := sess.Selection.(type) {
	case session.CatalogSelection:
		v.Selected = sel.Name
		if e, ok := catalog.Lookup(sel.Name); ok {
			v.Selected = e.Name
			v.Description = e.Description
		}
	case session.UploadSelection:
		v.UploadName = sel.Filename
	}
	if sess.Dataset == nil {
		return v
	}
	v.Head = sess.Dataset.Head(headRows)
	v.QuickStats = sess.Stats
	return v
}

// load selects a dataset and, once loaded, builds its first report.
// Load failures are reported through the session notice; only generation
// errors are returned.
func (s *Server) load(ctx context.Context, sess *session.Session, sel session.Selection) error {
	if err := s.workflow.Select(ctx, sess, sel); err != nil {
		return nil
	}
	_, err := s.workflow.Generate(ctx, sess)
	return err
}

func (s *Server) handleSource(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form: "+err.Error(), http.StatusBadRequest)
		return
	}
	mode := r.PostFormValue("mode")
	name := r.PostFormValue("dataset")
	sess := s.session(w, r)
	err := sess.Do(func(sess *session.Session) error {
		if mode == session.ModeUpload {
			if sess.Mode() == session.ModeUpload {
				return nil
			}
			_ = s.workflow.Select(r.Context(), sess, session.UploadSelection{})
			return nil
		}
		if name == "" {
			name = catalog.Names()[0]
		}
		if cur, ok := sess.Selection.(session.CatalogSelection); ok && cur.Name == name && sess.Dataset != nil {
			return nil
		}
		return s.load(r.Context(), sess, session.CatalogSelection{Name: name})
	})
	s.finish(w, r, err)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	sess := s.session(w, r)

	var sel session.UploadSelection
	var formErr error
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			formErr = fmt.Errorf("file exceeds the %d MB upload limit", s.maxUpload>>20)
		} else {
			formErr = err
		}
	} else {
		file, hdr, err := r.FormFile("file")
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			formErr = err
		case !dataset.Supported(hdr.Filename):
			_ = file.Close()
			formErr = fmt.Errorf("unsupported file type %q (use .csv, .tsv or .xlsx)", filepath.Ext(hdr.Filename))
		default:
			data, rerr := io.ReadAll(file)
			_ = file.Close()
			if rerr != nil {
				formErr = rerr
			}
			sel = session.UploadSelection{Filename: hdr.Filename, Data: data}
		}
	}

	err := sess.Do(func(sess *session.Session) error {
		if formErr != nil {
			s.workflow.ClearUpload(sess)
			sess.Notice = session.Notice{Level: session.NoticeError, Message: fmt.Sprintf("Error loading file: %v", formErr)}
			return nil
		}
		return s.load(r.Context(), sess, sel)
	})
	s.finish(w, r, err)
}

func (s *Server) handleClearUpload(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	_ = sess.Do(func(sess *session.Session) error {
		s.workflow.ClearUpload(sess)
		return nil
	})
	s.finish(w, r, nil)
}

func (s *Server) handleConfigure(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form: "+err.Error(), http.StatusBadRequest)
		return
	}
	sess := s.session(w, r)
	err := sess.Do(func(sess *session.Session) error {
		if sess.Dataset == nil {
			return nil
		}
		cfg := session.Config{
			Minimal:     checked(r, "minimal"),
			DarkMode:    checked(r, "dark_mode"),
			Explorative: checked(r, "explorative"),
			SampleSize:  sess.Config.SampleSize,
		}
		if n, err := strconv.Atoi(r.PostFormValue("sample_size")); err == nil {
			cfg.SampleSize = n
		}
		_, err := s.workflow.Apply(r.Context(), sess, cfg)
		return err
	})
	s.finish(w, r, err)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	var html []byte
	_ = sess.Do(func(sess *session.Session) error {
		if sess.Artifact != nil {
			html = sess.Artifact.HTML
		}
		return nil
	})
	if html == nil {
		http.Error(w, session.ErrNoReport.Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(html)
}

// finish redirects back to the dashboard, or answers 500 when report generation failed.
func (s *Server) finish(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		s.log.Error("report generation failed", "path", r.URL.Path, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func checked(r *http.Request, name string) bool {
	switch r.PostFormValue(name) {
	case "on", "true", "1":
		return true
	}
	return false
}
