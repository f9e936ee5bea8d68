package core

import (
	"context"
	"strings"
	"time"
)

// Row is one spreadsheet row keyed by column header.
type Row map[string]string

// TicketRecord is a validated spreadsheet row ready for submission.
// Records are immutable once built; the batch processor never mutates them.
type TicketRecord struct {
	Summary     string `json:"summary"`
	Description string `json:"description"`
	IssueType   string `json:"issue_type"`
	Priority    string `json:"priority"`
	ProjectKey  string `json:"project_key,omitempty"`
	Assignee    string `json:"assignee,omitempty"`
	Labels      string `json:"labels,omitempty"`
}

// RecordFromRow builds a TicketRecord from a parsed spreadsheet row.
// All cells are trimmed; missing columns become empty strings.
func RecordFromRow(row Row) TicketRecord {
	return TicketRecord{
		Summary:     strings.TrimSpace(row["summary"]),
		Description: strings.TrimSpace(row["description"]),
		IssueType:   strings.TrimSpace(row["issue_type"]),
		Priority:    strings.TrimSpace(row["priority"]),
		ProjectKey:  strings.TrimSpace(row["project_key"]),
		Assignee:    strings.TrimSpace(row["assignee"]),
		Labels:      strings.TrimSpace(row["labels"]),
	}
}

// TicketRef identifies a ticket created in the remote tracker.
type TicketRef struct {
	Key string `json:"key"`
	ID  string `json:"id"`
}

// Identity describes the authenticated Jira user, as reported by the
// connection test endpoint.
type Identity struct {
	AccountID   string `json:"account_id,omitempty"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
}

// TicketCreator creates a single ticket in the remote tracker.
// Implementations must normalize every failure into the returned error;
// the batch processor treats any non-nil error as a per-item failure.
type TicketCreator interface {
	CreateTicket(ctx context.Context, rec TicketRecord) (TicketRef, error)
}

// RemoteClient is the full surface the service needs from the remote
// issue tracker. Satisfied by *jira.Client.
type RemoteClient interface {
	TicketCreator
	GetTicket(ctx context.Context, key string) (map[string]any, error)
	SearchTickets(ctx context.Context, jql string, maxResults int) (map[string]any, error)
	TestConnection(ctx context.Context) (Identity, error)
}

// OperationStatus is the lifecycle state of a batch operation.
type OperationStatus string

const (
	// StatusProcessing is set when the operation starts.
	StatusProcessing OperationStatus = "processing"
	// StatusCompleted is set once every item has been attempted,
	// regardless of how many succeeded.
	StatusCompleted OperationStatus = "completed"
	// StatusFailed is set only when the batch could not begin at all,
	// e.g. the remote service was unreachable. Item-level failures do
	// not put the operation into this state.
	StatusFailed OperationStatus = "failed"
)

// Terminal reports whether the status is a terminal state.
func (s OperationStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ItemOutcome is the per-row result of a batch operation.
type ItemOutcome string

const (
	OutcomePending ItemOutcome = "pending"
	OutcomeCreated ItemOutcome = "created"
	OutcomeFailed  ItemOutcome = "failed"
)

// ItemResult records the outcome for a single row of a batch.
type ItemResult struct {
	Index     int         `json:"index"`
	Summary   string      `json:"summary"`
	Outcome   ItemOutcome `json:"outcome"`
	TicketKey string      `json:"ticket_key,omitempty"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// OperationSnapshot is an immutable view of an operation's progress,
// safe to hand to concurrent pollers.
type OperationSnapshot struct {
	OperationID string          `json:"operation_id"`
	Status      OperationStatus `json:"status"`
	Total       int             `json:"total_tickets"`
	Completed   int             `json:"completed"`
	Failed      int             `json:"failed"`
	Items       []ItemResult    `json:"items"`
	Error       string          `json:"error,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// PreviewSet holds validated rows awaiting confirmation. It is created
// once on upload and never mutated afterwards.
type PreviewSet struct {
	ID        string    `json:"preview_id"`
	Rows      []Row     `json:"data"`
	Columns   []string  `json:"columns"`
	TotalRows int       `json:"total_rows"`
	Warnings  []string  `json:"warnings,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// BatchResult summarizes a completed batch run.
type BatchResult struct {
	Total      int          `json:"total"`
	Successful int          `json:"successful"`
	Failed     int          `json:"failed"`
	Items      []ItemResult `json:"items"`
}
