package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Khushalgogia/joke-manager-v12/internal/config"
	"github.com/Khushalgogia/joke-manager-v12/internal/domain"
	"github.com/Khushalgogia/joke-manager-v12/internal/logger"
	"github.com/segmentio/ksuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// NoMatchesMessage is reported for a campaign with zero candidates.
const NoMatchesMessage = "No matching jokes found in database."

type themeExpander interface {
	ExpandWithFallback(ctx context.Context, headline string) (themes string, degraded bool)
}

type candidateSearcher interface {
	SimilaritySearch(ctx context.Context, query []float32, k int) ([]domain.JokeMatch, error)
}

type transplanter interface {
	Transplant(ctx context.Context, referenceJoke, newTopic string) (*domain.TransplantResult, error)
}

type campaignArchiver interface {
	Archive(ctx context.Context, result *domain.CampaignResult) (string, error)
}

// CampaignOptions tunes the campaign worker pool.
type CampaignOptions struct {
	DefaultCount int
	MaxCount     int
	Workers      int
	// CallTimeout bounds each external call; a timed-out call is a failed call.
	CallTimeout time.Duration
	// RateLimit caps transplant calls per second across workers; 0 disables it.
	RateLimit    float64
	PreviewChars int
}

// CampaignOptionsFromConfig converts the campaign config section.
func CampaignOptionsFromConfig(cfg *config.CampaignConfig) CampaignOptions {
	return CampaignOptions{
		DefaultCount: cfg.DefaultCount,
		MaxCount:     cfg.MaxCount,
		Workers:      cfg.Workers,
		CallTimeout:  cfg.CallTimeout,
		RateLimit:    cfg.RateLimit,
		PreviewChars: cfg.PreviewChars,
	}
}

func (o CampaignOptions) withDefaults() CampaignOptions {
	if o.DefaultCount <= 0 {
		o.DefaultCount = 5
	}
	if o.MaxCount <= 0 {
		o.MaxCount = 20
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = 60 * time.Second
	}
	if o.PreviewChars <= 0 {
		o.PreviewChars = 150
	}
	return o
}

// CampaignGenerator drives headline → themes → embedding → retrieval →
// per-candidate transplant. It never writes to the store.
type CampaignGenerator struct {
	themes      themeExpander
	embedder    embedder
	searcher    candidateSearcher
	transplants transplanter
	archiver    campaignArchiver
	opts        CampaignOptions
	limiter     *rate.Limiter
}

// NewCampaignGenerator wires the generator. archiver may be nil.
func NewCampaignGenerator(themes themeExpander, embedder embedder, searcher candidateSearcher, transplants transplanter, archiver campaignArchiver, opts CampaignOptions) *CampaignGenerator {
	opts = opts.withDefaults()
	g := &CampaignGenerator{
		themes:      themes,
		embedder:    embedder,
		searcher:    searcher,
		transplants: transplants,
		archiver:    archiver,
		opts:        opts,
	}
	if opts.RateLimit > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	return g
}

// ClampCount applies the default and maximum candidate counts.
func (g *CampaignGenerator) ClampCount(count int) int {
	if count <= 0 {
		return g.opts.DefaultCount
	}
	if count > g.opts.MaxCount {
		return g.opts.MaxCount
	}
	return count
}

type candidateOutcome struct {
	joke *domain.GeneratedJoke
	err  error
}

// Generate runs one campaign.
// Parameters:
//   - ctx: request context.
//   - headline: new topic for every generated joke.
//   - count: number of candidates to retrieve; clamped by ClampCount.
// Returns:
//   - *domain.CampaignResult: always non-nil. Success is false only on a hard failure.
//   - error: the classified hard failure, nil otherwise. Per-candidate
//     failures are reported in the result, not here.
func (g *CampaignGenerator) Generate(ctx context.Context, headline string, count int) (*domain.CampaignResult, error) {
	headline = strings.TrimSpace(headline)
	if headline == "" {
		err := domain.NewError(domain.KindValidation, "campaign", fmt.Errorf("headline: %w", domain.ErrEmptyText))
		return domain.FailedCampaign(headline, err), err
	}
	count = g.ClampCount(count)

	id := ksuid.New().String()
	ctx = logger.SetCampaignID(ctx, id)
	ctx = logger.WithField(ctx, logger.FieldHeadline, headline)
	start := time.Now()

	// a missing key stays a config error so callers can tell it from an outage
	fail := func(op string, err error) (*domain.CampaignResult, error) {
		kind := domain.KindHardStep
		if domain.KindOf(err) == domain.KindConfig {
			kind = domain.KindConfig
		}
		err = domain.NewError(kind, op, err)
		logger.With(logger.Fields{logger.FieldFailureKind: kind}).
			WithError(err).
			WithDuration(time.Since(start)).
			Error(ctx, "Campaign generation failed")
		result := domain.FailedCampaign(headline, err)
		result.ID = id
		return result, err
	}

	themes, degraded := g.themes.ExpandWithFallback(ctx, headline)

	embedCtx, cancel := context.WithTimeout(ctx, g.opts.CallTimeout)
	query, err := g.embedder.Embed(embedCtx, themes)
	cancel()
	if err != nil {
		return fail("embed themes", err)
	}

	candidates, err := g.searcher.SimilaritySearch(ctx, query, count)
	if err != nil {
		return fail("similarity search", err)
	}

	result := &domain.CampaignResult{
		ID:             id,
		Success:        true,
		Headline:       headline,
		Themes:         themes,
		ThemesDegraded: degraded,
		TotalAttempted: len(candidates),
		Jokes:          []domain.GeneratedJoke{},
		GeneratedAt:    time.Now().UTC(),
	}

	if len(candidates) == 0 {
		result.Message = NoMatchesMessage
		logger.With(logger.Fields{logger.FieldCount: 0}).Info(ctx, "Campaign found no matching jokes")
		return result, nil
	}

	outcomes := g.transplantAll(ctx, headline, candidates)

	for i, outcome := range outcomes {
		if outcome.err != nil {
			result.Failures = append(result.Failures, domain.CandidateFailure{
				OriginalID: candidates[i].ID,
				Rank:       i + 1,
				Kind:       domain.KindOf(outcome.err),
				Error:      outcome.err.Error(),
			})
			continue
		}
		result.Jokes = append(result.Jokes, *outcome.joke)
	}
	result.TotalGenerated = len(result.Jokes)

	logger.With(logger.Fields{
		"attempted":  result.TotalAttempted,
		"generated":  result.TotalGenerated,
		"failed":     len(result.Failures),
		"degraded":   degraded,
		"candidates": count,
	}).WithDuration(time.Since(start)).Info(ctx, "Campaign generated")

	g.archive(ctx, result)
	return result, nil
}

// transplantAll runs one transplant per candidate on the worker pool. The
// returned slice is indexed like candidates regardless of completion order.
func (g *CampaignGenerator) transplantAll(ctx context.Context, headline string, candidates []domain.JokeMatch) []candidateOutcome {
	outcomes := make([]candidateOutcome, len(candidates))

	var group errgroup.Group
	group.SetLimit(g.opts.Workers)

	for i := range candidates {
		group.Go(func() error {
			outcomes[i] = g.transplantOne(ctx, i, candidates[i], headline)
			return nil
		})
	}
	_ = group.Wait()

	return outcomes
}

func (g *CampaignGenerator) transplantOne(ctx context.Context, index int, candidate domain.JokeMatch, headline string) candidateOutcome {
	ctx = logger.WithFields(ctx, logger.Fields{
		logger.FieldCandidateRank: index + 1,
		logger.FieldJokeID:        candidate.ID,
	})

	candidateFailed := func(err error) candidateOutcome {
		logger.With(logger.Fields{
			logger.FieldFailureKind: domain.KindCandidate,
			"cause_kind":            domain.KindOf(err),
		}).WithError(err).Warn(ctx, "Candidate dropped from campaign")
		return candidateOutcome{err: err}
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return candidateFailed(domain.NewError(domain.KindTransient, "transplant", err))
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, g.opts.CallTimeout)
	defer cancel()

	res, err := g.transplants.Transplant(callCtx, candidate.SearchableText, headline)
	if err != nil {
		return candidateFailed(err)
	}

	return candidateOutcome{joke: &domain.GeneratedJoke{
		OriginalID:       candidate.ID,
		ReferenceJoke:    truncatePreview(candidate.SearchableText, g.opts.PreviewChars),
		BridgeContent:    candidate.BridgeContent,
		Similarity:       roundTo(candidate.Similarity, 3),
		Engine:           res.EngineSelected,
		Reasoning:        res.Reasoning,
		Brainstorming:    res.Brainstorming,
		SelectedStrategy: res.SelectedStrategy,
		Joke:             res.DraftJoke,
	}}
}

func (g *CampaignGenerator) archive(ctx context.Context, result *domain.CampaignResult) {
	if g.archiver == nil {
		return
	}
	key, err := g.archiver.Archive(ctx, result)
	if err != nil {
		logger.With(nil).WithError(err).Warn(ctx, "Failed to archive campaign")
		return
	}
	logger.With(logger.Fields{"key": key}).Debug(ctx, "Campaign archived")
}
