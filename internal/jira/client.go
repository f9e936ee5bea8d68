// Package jira is a stateless adapter for the Jira REST v2 API.
//
// Every method normalizes its failure into a plain error with a
// human-readable message: timeouts, refused connections, non-2xx
// statuses, and malformed bodies all come back as errors the batch
// processor can record verbatim against an item. Nothing in this
// package panics or leaks transport internals past its boundary.
package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"exceltojira/internal/core"
)

// DefaultTimeout is the per-call ceiling for remote requests.
const DefaultTimeout = 30 * time.Second

// maxErrorBodyLen caps how much of a remote error body is kept in the
// normalized message.
const maxErrorBodyLen = 2048

// Config holds the credentials and call settings for one Jira instance.
// Loaded once at process start; the client never mutates it.
type Config struct {
	BaseURL    string
	Email      string
	APIToken   string
	ProjectKey string
	Timeout    time.Duration
}

// Client performs authenticated calls against a Jira instance.
// It is safe for concurrent use.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a client for the given instance. A zero Timeout
// falls back to DefaultTimeout.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}
}

// issueTypeNames maps validated lowercase tokens to the names Jira
// expects. Unknown tokens fall back to Task: the Validator already
// guarantees known values, so the fallback only matters for schema
// drift, and creating a Task beats failing the whole row.
var issueTypeNames = map[string]string{
	"bug":     "Bug",
	"task":    "Task",
	"story":   "Story",
	"epic":    "Epic",
	"subtask": "Sub-task",
}

// priorityNames maps lowercase priority tokens to Jira priority names,
// with Medium as the drift fallback.
var priorityNames = map[string]string{
	"low":      "Low",
	"medium":   "Medium",
	"high":     "High",
	"critical": "Critical",
	"highest":  "Highest",
}

// CreateTicket creates one issue and returns its key and id.
func (c *Client) CreateTicket(ctx context.Context, rec core.TicketRecord) (core.TicketRef, error) {
	payload := c.buildCreatePayload(rec)

	var resp struct {
		Key string `json:"key"`
		ID  string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/rest/api/2/issue", payload, &resp); err != nil {
		return core.TicketRef{}, err
	}
	if resp.Key == "" {
		return core.TicketRef{}, errors.New("malformed response: issue key missing")
	}
	return core.TicketRef{Key: resp.Key, ID: resp.ID}, nil
}

// buildCreatePayload maps a validated record onto the Jira issue fields.
// Assignee is sent only when non-blank, labels only when at least one
// token survives splitting, and a missing project_key falls back to the
// configured default project.
func (c *Client) buildCreatePayload(rec core.TicketRecord) map[string]any {
	projectKey := strings.TrimSpace(rec.ProjectKey)
	if projectKey == "" {
		projectKey = c.cfg.ProjectKey
	}

	issueType, ok := issueTypeNames[strings.ToLower(strings.TrimSpace(rec.IssueType))]
	if !ok {
		issueType = "Task"
	}
	priority, ok := priorityNames[strings.ToLower(strings.TrimSpace(rec.Priority))]
	if !ok {
		priority = "Medium"
	}

	fields := map[string]any{
		"project":     map[string]string{"key": projectKey},
		"summary":     strings.TrimSpace(rec.Summary),
		"description": strings.TrimSpace(rec.Description),
		"issuetype":   map[string]string{"name": issueType},
		"priority":    map[string]string{"name": priority},
	}

	if assignee := strings.TrimSpace(rec.Assignee); assignee != "" {
		fields["assignee"] = map[string]string{"name": assignee}
	}
	if labels := core.SplitLabels(rec.Labels); len(labels) > 0 {
		fields["labels"] = labels
	}

	return map[string]any{"fields": fields}
}

// GetTicket fetches the raw issue JSON for a key.
func (c *Client) GetTicket(ctx context.Context, key string) (map[string]any, error) {
	var out map[string]any
	if err := c.do(ctx, http.MethodGet, "/rest/api/2/issue/"+key, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SearchTickets runs a JQL search and returns the raw search result.
func (c *Client) SearchTickets(ctx context.Context, jql string, maxResults int) (map[string]any, error) {
	body := map[string]any{
		"jql":        jql,
		"maxResults": maxResults,
		"fields":     []string{"summary", "description", "status", "priority", "assignee", "created", "updated"},
	}

	var out map[string]any
	if err := c.do(ctx, http.MethodPost, "/rest/api/2/search", body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TestConnection verifies the credentials against /myself and returns
// the authenticated identity.
func (c *Client) TestConnection(ctx context.Context) (core.Identity, error) {
	var resp struct {
		AccountID    string `json:"accountId"`
		DisplayName  string `json:"displayName"`
		EmailAddress string `json:"emailAddress"`
	}
	if err := c.do(ctx, http.MethodGet, "/rest/api/2/myself", nil, &resp); err != nil {
		return core.Identity{}, err
	}
	return core.Identity{
		AccountID:   resp.AccountID,
		DisplayName: resp.DisplayName,
		Email:       resp.EmailAddress,
	}, nil
}

// do performs one authenticated request and decodes a 2xx JSON body
// into out (which may be nil). All failure paths are normalized here.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.cfg.Email, c.cfg.APIToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return normalizeTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
		msg := strings.TrimSpace(string(data))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, msg)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("malformed response: %v", err)
	}
	return nil
}

// normalizeTransportError collapses the transport error zoo into the
// two messages operators actually act on.
func normalizeTransportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errors.New("request timeout")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.New("request timeout")
	}
	if errors.Is(err, context.Canceled) {
		return errors.New("request cancelled")
	}
	return errors.New("connection error - check Jira URL and network")
}
