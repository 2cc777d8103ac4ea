package http

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/KaramelBytes/profiloom/internal/report"
	"github.com/KaramelBytes/profiloom/internal/session"
)

// SampleFilename is the download name of the sampled rows.
const SampleFilename = "sampled_data.csv"

func (s *Server) handleExportReport(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, report.ContentType, report.Filename, s.workflow.ExportReport)
}

func (s *Server) handleExportSample(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, "text/csv", SampleFilename, s.workflow.ExportSample)
}

// export buffers the download under the session lock, then streams it as an attachment.
func (s *Server) export(w http.ResponseWriter, r *http.Request, contentType, filename string, write func(*session.Session, io.Writer) error) {
	sess := s.session(w, r)
	var buf bytes.Buffer
	err := sess.Do(func(sess *session.Session) error {
		return write(sess, &buf)
	})
	switch {
	case errors.Is(err, session.ErrNoReport):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		s.log.Error("export failed", "file", filename, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	_, _ = w.Write(buf.Bytes())
}
