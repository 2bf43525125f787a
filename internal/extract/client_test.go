package extract

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MalithGihan/research-extractor/internal/render"
	"github.com/MalithGihan/research-extractor/pkg/types"
)

const testKey = "llx-test-key"

const sampleData = `{
	"title": "  Attention Is All You Need ",
	"authors": [{"name": "Ashish Vaswani", "affiliation": "Google Brain"}, {"name": "  "}],
	"abstract": "We propose the Transformer.",
	"keywords": ["attention", "", "transformer"],
	"mainFindings": ["Self-attention suffices."],
	"methodology": {"approach": " ", "methods": []},
	"results": [{"finding": "28.4 BLEU on WMT14 En-De"}, {"significance": ""}],
	"references": [{"title": "Sequence to Sequence Learning", "authors": "Sutskever et al.", "year": "2014"}],
	"publication": {"journal": "NeurIPS", "year": "2017"}
}`

// fakeLlama mimics the subset of the LlamaCloud API the client uses.
type fakeLlama struct {
	mu sync.Mutex

	pending    int    // polls answered with PENDING before the final status
	final      string // status after the pending polls
	jobError   string
	result     string // raw body of the result endpoint
	failPath   string // route pattern that answers failCode
	failCode   int
	uploads    int
	polls      int
	gotRun     runRequest
	gotFile    []byte
	gotName    string
	gotType    string
	authFailed bool
}

func newFakeLlama() *fakeLlama {
	return &fakeLlama{
		final:  StatusSuccess,
		result: `{"data": ` + sampleData + `, "extraction_metadata": {"field_metadata": {}}}`,
	}
}

func (f *fakeLlama) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.Header.Get("Authorization") != "Bearer "+testKey {
				f.mu.Lock()
				f.authFailed = true
				f.mu.Unlock()
				http.Error(w, `{"detail":"Invalid API key"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Post("/api/v1/files", f.guard("files", func(w http.ResponseWriter, req *http.Request) {
		fh, hdr, err := req.FormFile("upload_file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer fh.Close()
		b, _ := io.ReadAll(fh)
		f.mu.Lock()
		f.uploads++
		f.gotFile = b
		f.gotName = hdr.Filename
		f.gotType = hdr.Header.Get("Content-Type")
		f.mu.Unlock()
		writeJSON(w, map[string]any{"id": "file-123", "name": hdr.Filename})
	}))

	r.Post("/api/v1/extraction/run", f.guard("run", func(w http.ResponseWriter, req *http.Request) {
		var rr runRequest
		if err := json.NewDecoder(req.Body).Decode(&rr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.gotRun = rr
		f.mu.Unlock()
		writeJSON(w, job{ID: "job-42", Status: StatusPending})
	}))

	r.Get("/api/v1/extraction/jobs/{id}", f.guard("job", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.polls++
		status := f.final
		if f.polls <= f.pending {
			status = StatusPending
		}
		writeJSON(w, job{ID: chi.URLParam(req, "id"), Status: status, Error: f.jobError})
	}))

	r.Get("/api/v1/extraction/jobs/{id}/result", f.guard("result", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, f.result)
	}))
	return r
}

func (f *fakeLlama) guard(name string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if f.failPath == name {
			http.Error(w, `{"detail":"forced failure"}`, f.failCode)
			return
		}
		h(w, req)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, srvURL string, mutate ...func(*Options)) *Client {
	t.Helper()
	opts := Options{
		APIKey:       testKey,
		BaseURL:      srvURL,
		PollInterval: time.Millisecond,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, m := range mutate {
		m(&opts)
	}
	c, err := New(opts)
	require.NoError(t, err)
	return c
}

func pdfDoc() Document {
	return Document{Name: "paper.pdf", Data: []byte("%PDF-1.7 fake")}
}

func TestExtractSuccess(t *testing.T) {
	fake := newFakeLlama()
	fake.pending = 2
	srv := httptest.NewServer(fake.routes())
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	got, err := c.Extract(context.Background(), pdfDoc())
	require.NoError(t, err)

	want := &types.ResearchData{
		Title:        "Attention Is All You Need",
		Authors:      []types.Author{{Name: "Ashish Vaswani", Affiliation: "Google Brain"}, {}},
		Abstract:     "We propose the Transformer.",
		Keywords:     []string{"attention", "transformer"},
		MainFindings: []string{"Self-attention suffices."},
		Methodology:  &types.Methodology{Methods: []string{}},
		Results:      []types.Result{{Finding: "28.4 BLEU on WMT14 En-De"}, {}},
		References:   []types.Reference{{Title: "Sequence to Sequence Learning", Authors: "Sutskever et al.", Year: "2014"}},
		Publication:  &types.Publication{Journal: "NeurIPS", Year: "2017"},
	}
	assert.Equal(t, want, got)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, 1, fake.uploads)
	assert.Equal(t, 3, fake.polls)
	assert.Equal(t, []byte("%PDF-1.7 fake"), fake.gotFile)
	assert.Equal(t, "paper.pdf", fake.gotName)
	assert.Equal(t, "application/pdf", fake.gotType)
	assert.Equal(t, "file-123", fake.gotRun.FileID)
	assert.Contains(t, string(fake.gotRun.DataSchema), `"mainFindings"`)
	assert.False(t, fake.authFailed)
}

func TestExtractKeepsEmptyElements(t *testing.T) {
	fake := newFakeLlama()
	fake.result = `{"data": {
		"title": "T",
		"authors": [{"name": "A"}, {"name": ""}],
		"abstract": "Abs",
		"mainFindings": ["F1"],
		"methodology": {},
		"results": [{"finding": "a"}, {}, {"finding": "c"}],
		"discussion": {"limitations": [" "]},
		"references": [{"title": "", "authors": ""}, {"title": "R2", "authors": "Y"}],
		"publication": {"year": ""}
	}}`
	srv := httptest.NewServer(fake.routes())
	defer srv.Close()

	got, err := newTestClient(t, srv.URL).Extract(context.Background(), pdfDoc())
	require.NoError(t, err)
	assert.Len(t, got.Authors, 2)
	assert.Len(t, got.Results, 3)
	assert.Len(t, got.References, 2)
	assert.NotNil(t, got.Methodology)
	assert.NotNil(t, got.Discussion)
	assert.NotNil(t, got.Publication)

	md := render.Markdown(got)
	assert.Contains(t, md, "## Methodology")
	assert.Contains(t, md, "## Discussion")
	assert.Contains(t, md, "## Publication")
	assert.Contains(t, md, "### Result 2\n\n### Result 3\n- **Finding:** c")
	assert.Contains(t, md, "**[2]** R2 — *Y*")
}

func TestExtractSendsConfig(t *testing.T) {
	fake := newFakeLlama()
	srv := httptest.NewServer(fake.routes())
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Extract(context.Background(), pdfDoc())
	require.NoError(t, err)
	fake.mu.Lock()
	assert.Equal(t, Config{}, fake.gotRun.Config)
	fake.mu.Unlock()

	c = newTestClient(t, srv.URL, func(o *Options) {
		o.Config = Config{ExtractionMode: "BALANCED"}
		o.Schema = json.RawMessage(`{"type":"object"}`)
	})
	_, err = c.Extract(context.Background(), pdfDoc())
	require.NoError(t, err)
	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, "BALANCED", fake.gotRun.Config.ExtractionMode)
	assert.JSONEq(t, `{"type":"object"}`, string(fake.gotRun.DataSchema))
}

func TestExtractPartialSuccess(t *testing.T) {
	fake := newFakeLlama()
	fake.final = StatusPartialSuccess
	srv := httptest.NewServer(fake.routes())
	defer srv.Close()

	got, err := newTestClient(t, srv.URL).Extract(context.Background(), pdfDoc())
	require.NoError(t, err)
	assert.Equal(t, "Attention Is All You Need", got.Title)
}

func TestExtractFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fakeLlama)
		key   string
		kind  Kind
	}{
		{"missing data", func(f *fakeLlama) { f.result = `{"extraction_metadata": {}}` }, testKey, KindPermanent},
		{"null data", func(f *fakeLlama) { f.result = `{"data": null}` }, testKey, KindPermanent},
		{"data of wrong shape", func(f *fakeLlama) { f.result = `{"data": {"title": 7}}` }, testKey, KindPermanent},
		{"result not json", func(f *fakeLlama) { f.result = `<html>oops</html>` }, testKey, KindPermanent},
		{"job error", func(f *fakeLlama) { f.final = StatusError; f.jobError = "unsupported file" }, testKey, KindPermanent},
		{"job cancelled", func(f *fakeLlama) { f.final = StatusCancelled }, testKey, KindPermanent},
		{"upload rejected", func(f *fakeLlama) { f.failPath, f.failCode = "files", http.StatusBadRequest }, testKey, KindPermanent},
		{"run unavailable", func(f *fakeLlama) { f.failPath, f.failCode = "run", http.StatusServiceUnavailable }, testKey, KindTransient},
		{"poll rate limited", func(f *fakeLlama) { f.failPath, f.failCode = "job", http.StatusTooManyRequests }, testKey, KindTransient},
		{"result forbidden", func(f *fakeLlama) { f.failPath, f.failCode = "result", http.StatusForbidden }, testKey, KindConfiguration},
		{"bad key", func(*fakeLlama) {}, "llx-wrong", KindConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeLlama()
			tt.setup(fake)
			srv := httptest.NewServer(fake.routes())
			defer srv.Close()

			c := newTestClient(t, srv.URL, func(o *Options) { o.APIKey = tt.key })
			got, err := c.Extract(context.Background(), pdfDoc())
			require.Error(t, err)
			assert.Nil(t, got)
			assert.Equal(t, FailureMessage, err.Error())
			assert.ErrorIs(t, err, ErrExtraction)
			assert.Equal(t, tt.kind, KindOf(err))

			var e *Error
			require.ErrorAs(t, err, &e)
			assert.NotNil(t, e.Cause())
			assert.Equal(t, tt.kind == KindTransient, e.Retryable())
		})
	}
}

func TestExtractNoDataCause(t *testing.T) {
	fake := newFakeLlama()
	fake.result = `{"data": null}`
	srv := httptest.NewServer(fake.routes())
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Extract(context.Background(), pdfDoc())
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.ErrorIs(t, e.Cause(), ErrNoData)
}

func TestExtractServiceDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestClient(t, url).Extract(context.Background(), pdfDoc())
	require.Error(t, err)
	assert.Equal(t, KindTransient, KindOf(err))
}

func TestExtractEmptyDocument(t *testing.T) {
	fake := newFakeLlama()
	srv := httptest.NewServer(fake.routes())
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Extract(context.Background(), Document{Name: "empty.pdf"})
	require.Error(t, err)
	assert.Equal(t, KindPermanent, KindOf(err))
	fake.mu.Lock()
	assert.Zero(t, fake.uploads)
	fake.mu.Unlock()

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.ErrorIs(t, e.Cause(), ErrEmptyDocument)
}

func TestExtractCancelledWhilePolling(t *testing.T) {
	fake := newFakeLlama()
	fake.pending = 1 << 30
	srv := httptest.NewServer(fake.routes())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := newTestClient(t, srv.URL).Extract(ctx, pdfDoc())
	require.Error(t, err)
	assert.Equal(t, KindTransient, KindOf(err))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestExtractTimeoutOption(t *testing.T) {
	fake := newFakeLlama()
	fake.pending = 1 << 30
	srv := httptest.NewServer(fake.routes())
	defer srv.Close()

	c := newTestClient(t, srv.URL, func(o *Options) { o.Timeout = 30 * time.Millisecond })
	_, err := c.Extract(context.Background(), pdfDoc())
	require.Error(t, err)

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.True(t, errors.Is(e.Cause(), context.DeadlineExceeded), e.Cause().Error())
}

func TestNewRequiresAPIKey(t *testing.T) {
	c, err := New(Options{APIKey: "  "})
	require.Error(t, err)
	assert.Nil(t, c)
	assert.Equal(t, KindConfiguration, KindOf(err))
}

func TestNewDefaults(t *testing.T) {
	c, err := New(Options{APIKey: testKey})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, time.Second, c.pollInterval)
	assert.Same(t, http.DefaultClient, c.httpClient)
	assert.Contains(t, string(c.schema), `"properties"`)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}
