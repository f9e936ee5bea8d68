package core

// batch.go runs the ticket-creation loop for one operation.
//
// The loop is strictly sequential: one remote call at a time, each
// followed by a short fixed pause to stay under the remote tracker's
// rate limits. The pause is a throttle, not a backoff; failed items are
// never retried, and a failure never aborts the rest of the batch. There
// is no rollback either: a ticket accepted by the remote stays created
// even if every later item fails.

import (
	"context"
	"log/slog"
	"time"
)

// DefaultItemDelay is the pause between consecutive create calls.
const DefaultItemDelay = 500 * time.Millisecond

// BatchProcessor creates tickets one by one, pushing each outcome into
// the operation tracker as it lands so pollers see live progress.
type BatchProcessor struct {
	client  TicketCreator
	tracker *OperationTracker
	delay   time.Duration

	// sleep is swapped out in tests to avoid real waits.
	sleep func(time.Duration)
}

// NewBatchProcessor wires a processor to its ticket creator and tracker.
// delay <= 0 falls back to DefaultItemDelay.
func NewBatchProcessor(client TicketCreator, tracker *OperationTracker, delay time.Duration) *BatchProcessor {
	if delay <= 0 {
		delay = DefaultItemDelay
	}
	return &BatchProcessor{
		client:  client,
		tracker: tracker,
		delay:   delay,
		sleep:   time.Sleep,
	}
}

// CreateMany submits every record in input order and returns the final
// summary. It always runs over the whole slice; per-item errors are
// recorded against the operation and counted, nothing more.
func (p *BatchProcessor) CreateMany(ctx context.Context, operationID string, records []TicketRecord) BatchResult {
	result := BatchResult{Total: len(records)}
	logger := slog.With("operation_id", operationID, "total", len(records))
	logger.Info("batch started")

	for i, rec := range records {
		item := ItemResult{Index: i, Summary: rec.Summary}

		ref, err := p.client.CreateTicket(ctx, rec)
		if err != nil {
			item.Outcome = OutcomeFailed
			item.Error = err.Error()
			result.Failed++
			logger.Warn("ticket creation failed", "index", i, "error", err)
		} else {
			item.Outcome = OutcomeCreated
			item.TicketKey = ref.Key
			item.TicketID = ref.ID
			result.Successful++
			logger.Info("ticket created", "index", i, "key", ref.Key)
		}
		result.Items = append(result.Items, item)

		if recErr := p.tracker.RecordItemResult(operationID, i, item.Outcome, ref, item.Error); recErr != nil {
			logger.Error("failed to record item result", "index", i, "error", recErr)
		}

		// Throttle between calls; the last item skips the pause so the
		// terminal snapshot is visible immediately.
		if i < len(records)-1 {
			p.sleep(p.delay)
		}
	}

	logger.Info("batch completed", "successful", result.Successful, "failed", result.Failed)
	return result
}
