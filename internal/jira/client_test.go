package jira

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"exceltojira/internal/core"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL:    srv.URL + "/", // trailing slash must be tolerated
		Email:      "bot@company.com",
		APIToken:   "token",
		ProjectKey: "DEF",
		Timeout:    2 * time.Second,
	})
}

func decodeFields(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var payload struct {
		Fields map[string]any `json:"fields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		t.Fatalf("decode request payload: %v", err)
	}
	return payload.Fields
}

func nameOf(t *testing.T, fields map[string]any, key string) string {
	t.Helper()
	obj, ok := fields[key].(map[string]any)
	if !ok {
		t.Fatalf("field %s = %v, want object", key, fields[key])
	}
	name, _ := obj["name"].(string)
	if name == "" {
		name, _ = obj["key"].(string)
	}
	return name
}

func TestCreateTicket_PayloadMapping(t *testing.T) {
	var fields map[string]any
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/2/issue" || r.Method != http.MethodPost {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if user, pass, ok := r.BasicAuth(); !ok || user != "bot@company.com" || pass != "token" {
			t.Error("basic auth credentials missing or wrong")
		}
		fields = decodeFields(t, r)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"key": "PROJ-7", "id": "10007"})
	})

	ref, err := client.CreateTicket(context.Background(), core.TicketRecord{
		Summary:     "Fix login",
		Description: "SSO broken",
		IssueType:   "Subtask",
		Priority:    "HIGHEST",
		ProjectKey:  "PROJ",
		Assignee:    "jane.doe",
		Labels:      "backend, auth",
	})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if ref.Key != "PROJ-7" || ref.ID != "10007" {
		t.Errorf("ref = %+v", ref)
	}

	if got := nameOf(t, fields, "project"); got != "PROJ" {
		t.Errorf("project = %q, want PROJ", got)
	}
	if got := nameOf(t, fields, "issuetype"); got != "Sub-task" {
		t.Errorf("issuetype = %q, want Sub-task", got)
	}
	if got := nameOf(t, fields, "priority"); got != "Highest" {
		t.Errorf("priority = %q, want Highest", got)
	}
	if got := nameOf(t, fields, "assignee"); got != "jane.doe" {
		t.Errorf("assignee = %q", got)
	}
	labels, _ := fields["labels"].([]any)
	if len(labels) != 2 || labels[0] != "backend" || labels[1] != "auth" {
		t.Errorf("labels = %v, want [backend auth]", labels)
	}
}

func TestCreateTicket_DefaultsAndOmissions(t *testing.T) {
	var fields map[string]any
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fields = decodeFields(t, r)
		json.NewEncoder(w).Encode(map[string]string{"key": "DEF-1", "id": "1"})
	})

	_, err := client.CreateTicket(context.Background(), core.TicketRecord{
		Summary:     "Minimal",
		Description: "d",
		IssueType:   "mystery",
		Priority:    "unknown",
	})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	// Missing project key falls back to the configured default.
	if got := nameOf(t, fields, "project"); got != "DEF" {
		t.Errorf("project = %q, want configured default DEF", got)
	}
	// Unknown enums fall back rather than failing the row.
	if got := nameOf(t, fields, "issuetype"); got != "Task" {
		t.Errorf("issuetype = %q, want fallback Task", got)
	}
	if got := nameOf(t, fields, "priority"); got != "Medium" {
		t.Errorf("priority = %q, want fallback Medium", got)
	}
	if _, present := fields["assignee"]; present {
		t.Error("blank assignee was sent")
	}
	if _, present := fields["labels"]; present {
		t.Error("empty labels were sent")
	}
}

func TestCreateTicket_HTTPErrorNormalized(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"errors":{"summary":"required"}}`))
	})

	_, err := client.CreateTicket(context.Background(), core.TicketRecord{Summary: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.HasPrefix(err.Error(), "HTTP 400: ") {
		t.Errorf("error = %q, want HTTP 400 prefix", err)
	}
	if !strings.Contains(err.Error(), "summary") {
		t.Errorf("error = %q, want remote body included", err)
	}
}

func TestCreateTicket_MissingKeyRejected(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "1"})
	})

	_, err := client.CreateTicket(context.Background(), core.TicketRecord{Summary: "x"})
	if err == nil || !strings.Contains(err.Error(), "issue key missing") {
		t.Errorf("error = %v, want malformed response", err)
	}
}

func TestClient_TimeoutNormalized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(Config{
		BaseURL:  srv.URL,
		Email:    "e",
		APIToken: "t",
		Timeout:  20 * time.Millisecond,
	})

	_, err := client.CreateTicket(context.Background(), core.TicketRecord{Summary: "x"})
	if err == nil || err.Error() != "request timeout" {
		t.Errorf("error = %v, want %q", err, "request timeout")
	}
}

func TestClient_ConnectionErrorNormalized(t *testing.T) {
	client := NewClient(Config{
		BaseURL:  "http://127.0.0.1:1", // nothing listens here
		Email:    "e",
		APIToken: "t",
		Timeout:  time.Second,
	})

	_, err := client.TestConnection(context.Background())
	if err == nil || err.Error() != "connection error - check Jira URL and network" {
		t.Errorf("error = %v, want normalized connection error", err)
	}
}

func TestGetTicket(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/2/issue/PROJ-42" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{"key": "PROJ-42", "fields": map[string]any{"summary": "Found"}})
	})

	ticket, err := client.GetTicket(context.Background(), "PROJ-42")
	if err != nil {
		t.Fatalf("GetTicket: %v", err)
	}
	if ticket["key"] != "PROJ-42" {
		t.Errorf("key = %v", ticket["key"])
	}
}

func TestSearchTickets(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/2/search" || r.Method != http.MethodPost {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["jql"] != "project = PROJ" {
			t.Errorf("jql = %v", body["jql"])
		}
		if body["maxResults"] != float64(25) {
			t.Errorf("maxResults = %v, want 25", body["maxResults"])
		}
		json.NewEncoder(w).Encode(map[string]any{"total": 1})
	})

	result, err := client.SearchTickets(context.Background(), "project = PROJ", 25)
	if err != nil {
		t.Fatalf("SearchTickets: %v", err)
	}
	if result["total"] != float64(1) {
		t.Errorf("total = %v", result["total"])
	}
}

func TestTestConnection(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/2/myself" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"accountId":    "abc123",
			"displayName":  "Bot User",
			"emailAddress": "bot@company.com",
		})
	})

	identity, err := client.TestConnection(context.Background())
	if err != nil {
		t.Fatalf("TestConnection: %v", err)
	}
	if identity.DisplayName != "Bot User" || identity.AccountID != "abc123" {
		t.Errorf("identity = %+v", identity)
	}
}
