package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/MalithGihan/research-extractor/internal/extract"
	"github.com/MalithGihan/research-extractor/internal/render"
	"github.com/MalithGihan/research-extractor/internal/schema"
)

// pageFailure is the banner shown when extraction fails.
const pageFailure = extract.FailureMessage + ". Please try again."

var errNoFile = errors.New("please choose a file to upload")

// view feeds templates/index.html.
type view struct {
	FileName string
	SizeKB   string
	Markdown string
	Preview  template.HTML
	Error    string
}

type extractResponse struct {
	RequestID string `json:"requestId"`
	FileName  string `json:"fileName,omitempty"`
	Markdown  string `json:"markdown,omitempty"`
	HTML      string `json:"html,omitempty"`
	Error     string `json:"error,omitempty"`
	Kind      string `json:"kind,omitempty"`
}

// outcome of one extraction request. On failure only err and kind are set;
// no Markdown is produced.
type outcome struct {
	markdown string
	html     string
	err      error
	kind     extract.Kind
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.renderPage(w, http.StatusOK, view{})
}

func (s *Server) handleExtractPage(w http.ResponseWriter, r *http.Request) {
	doc, code, err := s.readUpload(w, r)
	if err != nil {
		s.renderPage(w, code, view{Error: err.Error()})
		return
	}

	out := s.process(r, doc)
	v := view{
		FileName: doc.Name,
		SizeKB:   fmt.Sprintf("%.2f", float64(len(doc.Data))/1024),
	}
	if out.err != nil {
		v.Error = pageFailure
		s.renderPage(w, statusFor(out.kind), v)
		return
	}
	v.Markdown = out.markdown
	v.Preview = template.HTML(out.html) // sanitized by render.PreviewHTML
	s.renderPage(w, http.StatusOK, v)
}

func (s *Server) handleExtractJSON(w http.ResponseWriter, r *http.Request) {
	resp := extractResponse{RequestID: RequestID(r.Context())}

	doc, code, err := s.readUpload(w, r)
	if err != nil {
		resp.Error = err.Error()
		writeJSON(w, code, resp)
		return
	}
	resp.FileName = doc.Name

	out := s.process(r, doc)
	if out.err != nil {
		resp.Error = extract.FailureMessage
		resp.Kind = string(out.kind)
		writeJSON(w, statusFor(out.kind), resp)
		return
	}
	resp.Markdown = out.markdown
	resp.HTML = out.html
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSchema(w http.ResponseWriter, _ *http.Request) {
	b, err := schema.Definition()
	if err != nil {
		s.logger.Error("schema unavailable", "error", err)
		http.Error(w, "schema unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/schema+json")
	w.Write(b)
}

// readUpload takes the single "file" part of a multipart form.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (extract.Document, int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return extract.Document{}, http.StatusRequestEntityTooLarge,
				fmt.Errorf("file is larger than %s", sizeLimit(s.maxUpload))
		}
		return extract.Document{}, http.StatusBadRequest, errNoFile
	}
	defer r.MultipartForm.RemoveAll()

	f, hdr, err := r.FormFile("file")
	if err != nil {
		return extract.Document{}, http.StatusBadRequest, errNoFile
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return extract.Document{}, http.StatusBadRequest, fmt.Errorf("reading %s: %w", hdr.Filename, err)
	}
	return extract.Document{Name: hdr.Filename, Data: b}, http.StatusOK, nil
}

// process runs extraction and rendering. Failures are logged here with
// their cause; the caller only gets the normalized kind.
func (s *Server) process(r *http.Request, doc extract.Document) outcome {
	id := RequestID(r.Context())
	start := time.Now()

	data, err := s.extractor.Extract(r.Context(), doc)
	if err != nil {
		cause := err
		var e *extract.Error
		if errors.As(err, &e) {
			cause = e.Cause()
		}
		kind := extract.KindOf(err)
		s.logger.Error("extraction failed",
			"request_id", id, "file", doc.Name, "bytes", len(doc.Data),
			"kind", kind, "error", cause, "elapsed", time.Since(start))
		return outcome{err: err, kind: kind}
	}

	md := render.Markdown(data)
	s.logger.Info("extraction finished",
		"request_id", id, "file", doc.Name, "bytes", len(doc.Data),
		"markdown_bytes", len(md), "elapsed", time.Since(start))
	return outcome{markdown: md, html: render.PreviewHTML(md)}
}

// sizeLimit formats an upload limit, rounding up so it never reads as 0.
func sizeLimit(n int64) string {
	if n < 1<<20 {
		return fmt.Sprintf("%d KB", (n+1<<10-1)>>10)
	}
	return fmt.Sprintf("%d MB", (n+1<<20-1)>>20)
}

func statusFor(kind extract.Kind) int {
	switch kind {
	case extract.KindTransient:
		return http.StatusBadGateway
	case extract.KindPermanent:
		return http.StatusUnprocessableEntity
	case extract.KindConfiguration:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) renderPage(w http.ResponseWriter, code int, v view) {
	var buf bytes.Buffer
	if err := pageTmpl.ExecuteTemplate(&buf, "index.html", v); err != nil {
		s.logger.Error("rendering page", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	buf.WriteTo(w)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
