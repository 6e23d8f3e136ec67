// Package tracker talks to the remote issue tracker that carries ingest
// threads.
//
// Only the Client interface is load-bearing for the pipeline; the bundled
// implementation is a thin bearer-token REST client with bounded timeouts.
package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/CJohnsonADAH/adpn-cli/internal/adpnerr"
	"github.com/CJohnsonADAH/adpn-cli/internal/logging"
)

// Issue is one tracker issue: the head of an ingest thread.
type Issue struct {
	ID          int    `json:"iid"`
	Title       string `json:"title"`
	Description string `json:"description"`
	WebURL      string `json:"web_url"`
}

// Note is one comment on an issue thread.
type Note struct {
	ID        int       `json:"id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Client is the tracker surface the pipeline depends on. Notes are returned
// oldest first, matching the thread's natural chronological order.
type Client interface {
	Issue(ctx context.Context, issueID int) (Issue, error)
	Notes(ctx context.Context, issueID int) ([]Note, error)
	PostNote(ctx context.Context, issueID int, body string) error
}

// Config describes the REST endpoint.
type Config struct {
	BaseURL string // e.g. https://gitlab.example.edu
	Project string // project identifier or URL-encoded path
	Token   string
	Timeout time.Duration
}

// HTTPClient implements Client against a GitLab-style REST API.
type HTTPClient struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

// NewHTTPClient builds a tracker client with a bounded request timeout.
func NewHTTPClient(cfg Config, logger *slog.Logger) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logging.NewComponentLogger(logger, "tracker"),
	}
}

// IssueResource returns the API resource path for an issue, used as packet
// provenance.
func (c *HTTPClient) IssueResource(issueID int) string {
	return fmt.Sprintf("projects/%s/issues/%d", url.PathEscape(c.cfg.Project), issueID)
}

// Issue fetches one issue.
func (c *HTTPClient) Issue(ctx context.Context, issueID int) (Issue, error) {
	var issue Issue
	if err := c.get(ctx, c.IssueResource(issueID), &issue); err != nil {
		return Issue{}, err
	}
	return issue, nil
}

// Notes fetches the issue's comments oldest first.
func (c *HTTPClient) Notes(ctx context.Context, issueID int) ([]Note, error) {
	var notes []Note
	resource := c.IssueResource(issueID) + "/notes?sort=asc&order_by=created_at"
	if err := c.get(ctx, resource, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// PostNote appends a comment to the issue thread. Used by the commit step to
// notify the originating carrier after a successful ingest.
func (c *HTTPClient) PostNote(ctx context.Context, issueID int, body string) error {
	payload, err := json.Marshal(map[string]string{"body": body})
	if err != nil {
		return fmt.Errorf("encode note: %w", err)
	}

	resource := c.IssueResource(issueID) + "/notes"
	req, err := c.newRequest(ctx, http.MethodPost, resource, strings.NewReader(string(payload)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return adpnerr.Wrap(adpnerr.ErrUpstream, "tracker", "post note", "request failed", err)
	}
	defer resp.Body.Close()
	if err := statusError(resp.StatusCode, "post note", resource); err != nil {
		return err
	}
	c.logger.Debug("posted note", logging.Int("issue", issueID))
	return nil
}

func (c *HTTPClient) get(ctx context.Context, resource string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, resource, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return adpnerr.Wrap(adpnerr.ErrUpstream, "tracker", "get", resource, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode, "get", resource); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return adpnerr.Wrap(adpnerr.ErrUpstream, "tracker", "get", resource, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return adpnerr.Wrap(adpnerr.ErrParse, "tracker", "get", resource, err)
	}
	return nil
}

func (c *HTTPClient) newRequest(ctx context.Context, method, resource string, body io.Reader) (*http.Request, error) {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/api/v4/" + resource
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	return req, nil
}

func statusError(code int, operation, resource string) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return adpnerr.Wrap(adpnerr.ErrNotFound, "tracker", operation, resource, nil)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return adpnerr.Wrap(adpnerr.ErrAccessDenied, "tracker", operation, resource, nil)
	default:
		return adpnerr.Wrap(adpnerr.ErrUpstream, "tracker", operation, fmt.Sprintf("%s: HTTP %d", resource, code), nil)
	}
}
