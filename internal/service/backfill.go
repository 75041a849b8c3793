package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Khushalgogia/joke-manager-v12/internal/domain"
	"github.com/Khushalgogia/joke-manager-v12/internal/logger"
	"golang.org/x/sync/errgroup"
)

const backfillPreviewChars = 80

// BackfillItem is one joke that received a bridge.
type BackfillItem struct {
	ID     int64  `json:"id"`
	Bridge string `json:"bridge"`
}

// BackfillError is one joke the backfill could not fill.
type BackfillError struct {
	ID    int64  `json:"id"`
	Error string `json:"error"`
}

// BackfillReport summarizes one FillMissingBridges run.
type BackfillReport struct {
	Success      bool            `json:"success"`
	Processed    int             `json:"processed"`
	Errors       int             `json:"errors"`
	Remaining    int64           `json:"remaining"`
	// NextAfterID is the last id this run looked at. Passing it to the next
	// run moves past jokes that keep failing.
	NextAfterID  int64           `json:"next_after_id"`
	Results      []BackfillItem  `json:"results"`
	ErrorDetails []BackfillError `json:"error_details"`
	Message      string          `json:"message"`
}

type backfillOutcome struct {
	item *BackfillItem
	err  error
}

// FillMissingBridges generates bridges for up to batchSize jokes whose
// bridge_content is NULL and id is above afterID, lowest id first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - afterID: resume cursor, 0 starts from the first joke.
//   - batchSize: jokes to process; <= 0 uses the configured batch size.
// Returns:
//   - *BackfillReport: per-joke results and the remaining count, in id order.
//   - error: non-nil only when the store cannot be read. Per-joke failures
//     are listed in ErrorDetails.
func (s *JokeService) FillMissingBridges(ctx context.Context, afterID int64, batchSize int) (*BackfillReport, error) {
	if batchSize <= 0 {
		batchSize = s.backfill.BatchSize
	}
	start := time.Now()

	jokes, err := s.store.ListMissingBridge(ctx, afterID, batchSize)
	if err != nil {
		return nil, err
	}
	if len(jokes) == 0 {
		report := &BackfillReport{
			Success:     true,
			Results:     []BackfillItem{},
			NextAfterID: afterID,
			Message:     "All jokes have bridges! Nothing to fill.",
		}
		if afterID > 0 {
			report.Remaining, err = s.store.CountMissingBridge(ctx)
			if err != nil {
				return nil, err
			}
			report.Message = fmt.Sprintf("No jokes missing a bridge after id %d. %d still remaining.", afterID, report.Remaining)
		}
		return report, nil
	}

	outcomes := make([]backfillOutcome, len(jokes))
	var group errgroup.Group
	group.SetLimit(s.backfill.Workers)
	for i := range jokes {
		group.Go(func() error {
			outcomes[i] = s.fillOne(ctx, &jokes[i])
			return nil
		})
	}
	_ = group.Wait()

	report := &BackfillReport{
		Success:     true,
		Results:     []BackfillItem{},
		NextAfterID: jokes[len(jokes)-1].ID,
	}
	for i, outcome := range outcomes {
		if outcome.err != nil {
			report.ErrorDetails = append(report.ErrorDetails, BackfillError{ID: jokes[i].ID, Error: outcome.err.Error()})
			continue
		}
		report.Results = append(report.Results, *outcome.item)
	}
	report.Processed = len(report.Results)
	report.Errors = len(report.ErrorDetails)

	remaining, err := s.store.CountMissingBridge(ctx)
	if err != nil {
		return nil, err
	}
	report.Remaining = remaining
	report.Message = fmt.Sprintf("Filled %d bridges. %d still remaining.", report.Processed, remaining)

	logger.With(logger.Fields{
		"processed": report.Processed,
		"errors":    report.Errors,
		"remaining": remaining,
	}).WithDuration(time.Since(start)).Info(ctx, "Missing bridges filled")

	return report, nil
}

func (s *JokeService) fillOne(ctx context.Context, joke *domain.JokeRecord) backfillOutcome {
	ctx = logger.SetJokeID(ctx, joke.ID)

	text := strings.TrimSpace(joke.SearchableText)
	if text == "" {
		return backfillOutcome{err: fmt.Errorf("no searchable text")}
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return backfillOutcome{err: err}
		}
	}

	enrichment, err := s.enricher.Enrich(ctx, text)
	if err != nil {
		return backfillOutcome{err: err}
	}
	if !enrichment.HasBridge() {
		return backfillOutcome{err: domain.ErrNoBridge}
	}

	if err := s.store.UpdateBridge(ctx, joke.ID, enrichment.BridgeContent, enrichment.BridgeEmbedding); err != nil {
		return backfillOutcome{err: err}
	}
	return backfillOutcome{item: &BackfillItem{
		ID:     joke.ID,
		Bridge: truncateRunes(enrichment.BridgeContent, backfillPreviewChars),
	}}
}
