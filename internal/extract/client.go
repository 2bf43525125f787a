// Package extract talks to the LlamaCloud structured extraction API: it
// uploads a document, runs a stateless extraction job against the research
// paper schema, waits for the job, and decodes the result.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/MalithGihan/research-extractor/internal/schema"
	"github.com/MalithGihan/research-extractor/pkg/types"
)

const DefaultBaseURL = "https://api.cloud.llamaindex.ai"

// Job statuses reported by the service.
const (
	StatusPending        = "PENDING"
	StatusRunning        = "RUNNING"
	StatusSuccess        = "SUCCESS"
	StatusPartialSuccess = "PARTIAL_SUCCESS"
	StatusError          = "ERROR"
	StatusCancelled      = "CANCELLED"
)

// Config is sent as the job's extraction config. Empty fields are left
// out, so the zero value sends {} and the service uses its defaults.
type Config struct {
	ExtractionMode   string `json:"extraction_mode,omitempty"`   // FAST|BALANCED|MULTIMODAL|PREMIUM
	ExtractionTarget string `json:"extraction_target,omitempty"` // PER_DOC|PER_PAGE
}

type Options struct {
	APIKey       string
	BaseURL      string       // DefaultBaseURL when empty
	HTTPClient   *http.Client // http.DefaultClient when nil
	PollInterval time.Duration
	Timeout      time.Duration // 0 = no limit beyond the caller's context
	Config       Config
	Schema       json.RawMessage // schema.Definition() when nil
	Logger       *slog.Logger
}

// Client is safe for concurrent use; it holds no per-request state.
type Client struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	pollInterval time.Duration
	timeout      time.Duration
	config       Config
	schema       json.RawMessage
	logger       *slog.Logger
}

func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fail(ErrNoAPIKey)
	}
	c := &Client{
		apiKey:       opts.APIKey,
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		httpClient:   opts.HTTPClient,
		pollInterval: opts.PollInterval,
		timeout:      opts.Timeout,
		config:       opts.Config,
		schema:       opts.Schema,
		logger:       opts.Logger,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	if c.pollInterval <= 0 {
		c.pollInterval = time.Second
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.schema == nil {
		s, err := schema.Definition()
		if err != nil {
			return nil, fmt.Errorf("loading schema: %w", err)
		}
		c.schema = s
	}
	return c, nil
}

// Extract runs one document through the service. Every failure comes back
// as an *Error; the data is sanitized before it is returned.
func (c *Client) Extract(ctx context.Context, doc Document) (*types.ResearchData, error) {
	if len(doc.Data) == 0 {
		return nil, fail(ErrEmptyDocument)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	data, err := c.extract(ctx, doc)
	if err != nil {
		return nil, fail(err)
	}
	return data, nil
}

func (c *Client) extract(ctx context.Context, doc Document) (*types.ResearchData, error) {
	fileID, err := c.upload(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("uploading %s: %w", doc.filename(), err)
	}
	c.logger.Debug("file uploaded", "file", doc.filename(), "file_id", fileID, "bytes", len(doc.Data))

	j, err := c.run(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("starting extraction: %w", err)
	}
	c.logger.Debug("extraction job started", "job_id", j.ID, "status", j.Status)

	if err := c.wait(ctx, &j); err != nil {
		return nil, fmt.Errorf("waiting for job %s: %w", j.ID, err)
	}

	data, err := c.result(ctx, j.ID)
	if err != nil {
		return nil, fmt.Errorf("fetching result of job %s: %w", j.ID, err)
	}
	c.logger.Debug("extraction finished", "job_id", j.ID, "status", j.Status)
	return data, nil
}

type file struct {
	ID string `json:"id"`
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func (c *Client) upload(ctx context.Context, doc Document) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="upload_file"; filename="%s"`, quoteEscaper.Replace(doc.filename())))
	h.Set("Content-Type", doc.ContentType())
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(doc.Data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	var f file
	if err := c.do(ctx, http.MethodPost, "/api/v1/files", &body, mw.FormDataContentType(), &f); err != nil {
		return "", err
	}
	if f.ID == "" {
		return "", fmt.Errorf("upload response has no file id")
	}
	return f.ID, nil
}

type runRequest struct {
	DataSchema json.RawMessage `json:"data_schema"`
	Config     Config          `json:"config"`
	FileID     string          `json:"file_id"`
}

type job struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (c *Client) run(ctx context.Context, fileID string) (job, error) {
	b, err := json.Marshal(runRequest{DataSchema: c.schema, Config: c.config, FileID: fileID})
	if err != nil {
		return job{}, err
	}
	var j job
	if err := c.do(ctx, http.MethodPost, "/api/v1/extraction/run", bytes.NewReader(b), "application/json", &j); err != nil {
		return job{}, err
	}
	if j.ID == "" {
		return job{}, fmt.Errorf("run response has no job id")
	}
	return j, nil
}

// wait polls the job until it leaves the pending states.
func (c *Client) wait(ctx context.Context, j *job) error {
	id := j.ID
	t := time.NewTicker(c.pollInterval)
	defer t.Stop()

	for {
		switch j.Status {
		case StatusSuccess, StatusPartialSuccess:
			return nil
		case StatusPending, StatusRunning, "":
		default:
			if j.Error != "" {
				return fmt.Errorf("job ended with status %s: %s", j.Status, j.Error)
			}
			return fmt.Errorf("job ended with status %s", j.Status)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}

		var next job
		if err := c.do(ctx, http.MethodGet, "/api/v1/extraction/jobs/"+url.PathEscape(id), nil, "", &next); err != nil {
			return err
		}
		next.ID = id
		*j = next
		c.logger.Debug("extraction job polled", "job_id", id, "status", j.Status)
	}
}

type resultResponse struct {
	Data     json.RawMessage `json:"data"`
	Metadata json.RawMessage `json:"extraction_metadata,omitempty"`
}

func (c *Client) result(ctx context.Context, jobID string) (*types.ResearchData, error) {
	var res resultResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/extraction/jobs/"+url.PathEscape(jobID)+"/result", nil, "", &res); err != nil {
		return nil, err
	}
	if len(res.Data) == 0 || string(res.Data) == "null" {
		return nil, ErrNoData
	}
	var d types.ResearchData
	if err := json.Unmarshal(res.Data, &d); err != nil {
		return nil, fmt.Errorf("decoding data: %w", err)
	}
	sanitize(&d)
	return &d, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &statusError{Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
