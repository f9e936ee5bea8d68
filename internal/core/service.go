package core

// service.go orchestrates the pipeline: upload -> validate -> preview,
// then preview -> operation -> background batch, plus the read-only
// lookup and search passthroughs.
//
// The batch task is launched through an injectable launcher so tests can
// run it synchronously. The launched task gets a fresh background
// context on purpose: once a batch starts it is not interruptible, not
// even by the request that triggered it going away.

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"exceltojira/internal/config"
)

var ticketKeyPattern = regexp.MustCompile(`^[A-Z]+-\d+$`)

// Service wires the validator, stores, batch processor, and remote
// client into the operations exposed to the HTTP layer.
type Service struct {
	cfg      *config.Config
	client   RemoteClient
	previews *PreviewStore
	tracker  *OperationTracker
	batch    *BatchProcessor
	limiter  *UploadLimiter

	// launch runs the batch task; tests replace it to run synchronously.
	launch func(task func())
}

// NewService builds a fully wired service. release may be nil; when set
// it is invoked for every preview removed by a sweep so the upload
// collaborator can free the backing file.
func NewService(cfg *config.Config, client RemoteClient, release ReleaseFunc) *Service {
	tracker := NewOperationTracker()
	return &Service{
		cfg:      cfg,
		client:   client,
		previews: NewPreviewStore(release),
		tracker:  tracker,
		batch:    NewBatchProcessor(client, tracker, cfg.Batch.ItemDelay),
		limiter:  NewUploadLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		launch:   func(task func()) { go task() },
	}
}

// UploadOutcome is returned for an accepted upload.
type UploadOutcome struct {
	PreviewID string   `json:"preview_id"`
	Columns   []string `json:"columns"`
	Rows      []Row    `json:"data"`
	TotalRows int      `json:"total_rows"`
	Message   string   `json:"message"`
	Warnings  []string `json:"warnings,omitempty"`
}

// SubmitOutcome is returned when a batch is accepted for processing.
type SubmitOutcome struct {
	OperationID  string `json:"operation_id"`
	TotalTickets int    `json:"total_tickets"`
}

// ProcessUpload validates parsed rows and, on success, parks them in the
// preview store. A failed validation returns *ValidationError carrying
// the full per-row detail; warnings alone never reject an upload.
func (s *Service) ProcessUpload(ctx context.Context, columns []string, rows []Row, fileSize int64) (*UploadOutcome, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	res := Validate(columns, rows, fileSize)
	if !res.OK {
		return nil, &ValidationError{Result: res}
	}

	set := s.previews.Store(rows, columns, res.Warnings)
	slog.Info("upload accepted",
		"preview_id", set.ID,
		"rows", set.TotalRows,
		"warnings", len(res.Warnings),
	)

	return &UploadOutcome{
		PreviewID: set.ID,
		Columns:   set.Columns,
		Rows:      set.Rows,
		TotalRows: set.TotalRows,
		Message:   res.Message,
		Warnings:  res.Warnings,
	}, nil
}

// SubmitBatch starts asynchronous ticket creation for a stored preview.
// The Jira configuration is checked eagerly so a misconfigured server
// fails the submission, not the background task; the connection itself
// is tested by the task, which marks the operation failed if the remote
// is unreachable. The caller gets the operation id back immediately.
func (s *Service) SubmitBatch(ctx context.Context, previewID string) (*SubmitOutcome, error) {
	set, ok := s.previews.Get(previewID)
	if !ok {
		return nil, ErrPreviewNotFound
	}

	if err := s.cfg.Jira.Check(); err != nil {
		return nil, &ConfigError{Reason: err.Error()}
	}

	records := make([]TicketRecord, len(set.Rows))
	summaries := make([]string, len(set.Rows))
	for i, row := range set.Rows {
		records[i] = RecordFromRow(row)
		summaries[i] = records[i].Summary
	}

	operationID := s.tracker.Start(len(records), summaries)
	slog.Info("batch submission accepted",
		"operation_id", operationID,
		"preview_id", previewID,
		"total", len(records),
	)

	s.launch(func() {
		s.runBatch(context.Background(), operationID, records)
	})

	return &SubmitOutcome{OperationID: operationID, TotalTickets: len(records)}, nil
}

// runBatch is the background task body. A connection failure before the
// first create marks the whole operation failed; anything after that is
// per-item bookkeeping inside the batch processor.
func (s *Service) runBatch(ctx context.Context, operationID string, records []TicketRecord) {
	if _, err := s.client.TestConnection(ctx); err != nil {
		slog.Error("batch aborted, remote unreachable", "operation_id", operationID, "error", err)
		s.tracker.Fail(operationID, fmt.Sprintf("jira connection failed: %v", err))
		return
	}
	s.batch.CreateMany(ctx, operationID, records)
}

// PollStatus returns the current snapshot for an operation, or
// ErrOperationNotFound.
func (s *Service) PollStatus(operationID string) (OperationSnapshot, error) {
	return s.tracker.Get(operationID)
}

// LookupTicket fetches one ticket by key. Keys are uppercased and must
// look like PROJ-123 before the remote is asked at all.
func (s *Service) LookupTicket(ctx context.Context, key string) (map[string]any, error) {
	key = strings.ToUpper(strings.TrimSpace(key))
	if !ticketKeyPattern.MatchString(key) {
		return nil, fmt.Errorf("%w: ticket key %q must look like PROJ-123", ErrInvalidInput, key)
	}
	return s.client.GetTicket(ctx, key)
}

// Search query bounds.
const (
	MaxJQLLen        = 1000
	MaxSearchResults = 100
)

// SearchTickets runs a JQL search. maxResults <= 0 defaults to 50 and
// is capped at MaxSearchResults.
func (s *Service) SearchTickets(ctx context.Context, jql string, maxResults int) (map[string]any, error) {
	jql = strings.TrimSpace(jql)
	if jql == "" {
		return nil, fmt.Errorf("%w: JQL query is required", ErrInvalidInput)
	}
	if len(jql) > MaxJQLLen {
		return nil, fmt.Errorf("%w: JQL query too long (max %d characters)", ErrInvalidInput, MaxJQLLen)
	}
	if maxResults <= 0 {
		maxResults = 50
	}
	if maxResults > MaxSearchResults {
		maxResults = MaxSearchResults
	}
	return s.client.SearchTickets(ctx, jql, maxResults)
}

// TestConnection checks the Jira configuration and credentials.
func (s *Service) TestConnection(ctx context.Context) (Identity, error) {
	if err := s.cfg.Jira.Check(); err != nil {
		return Identity{}, &ConfigError{Reason: err.Error()}
	}
	return s.client.TestConnection(ctx)
}

// Sweep removes expired previews and operations, returning how many of
// each were dropped. Callable on demand and from the scheduler.
func (s *Service) Sweep() (previews, operations int) {
	previews = s.previews.SweepExpired(s.cfg.Retention.PreviewMaxAge)
	operations = s.tracker.SweepExpired(s.cfg.Retention.OperationMaxAge)
	return previews, operations
}
