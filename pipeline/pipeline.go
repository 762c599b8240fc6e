// Package pipeline runs brands through resolve, fetch, parse and persist.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/gofrs/uuid"

	"github.com/aluiziolira/go-scrape-stock/ledger"
	"github.com/aluiziolira/go-scrape-stock/models"
	"github.com/aluiziolira/go-scrape-stock/parser"
	"github.com/aluiziolira/go-scrape-stock/scraper"
)

// Resolver maps a brand name to its storefront.
type Resolver interface {
	Resolve(name string) models.BrandEntry
}

// Fetcher retrieves a storefront page body.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Parser turns a page body into records.
type Parser interface {
	Parse(brand, storefrontURL string, body []byte) ([]models.ProductRecord, error)
}

// Ledger persists and queries records.
type Ledger interface {
	Append(ctx context.Context, records []models.ProductRecord) error
	Query(ctx context.Context, brand string, filter ledger.StatusFilter) ([]models.ProductRecord, error)
}

// Orchestrator processes brands one at a time in the order given. A
// failing brand never stops its siblings.
type Orchestrator struct {
	resolver Resolver
	fetcher  Fetcher
	parser   Parser
	ledger   Ledger
	filter   ledger.StatusFilter

	Metrics *scraper.Metrics
	stats   stats
	newID   func() string
}

// NewOrchestrator wires the collaborators of a run.
func NewOrchestrator(resolver Resolver, fetcher Fetcher, p Parser, l Ledger, filter ledger.StatusFilter) *Orchestrator {
	return &Orchestrator{
		resolver: resolver,
		fetcher:  fetcher,
		parser:   p,
		ledger:   l,
		filter:   filter,
		stats:    newStats(),
		newID:    newRunID,
	}
}

// Run processes brands sequentially, then queries the ledger for each
// brand's unavailable listings across its whole history. Outcomes are
// returned in input order.
func (o *Orchestrator) Run(ctx context.Context, brands []string) []models.BrandOutcome {
	if ctx == nil {
		ctx = context.Background()
	}
	runID := o.newID()
	logger := slog.With(slog.String("run_id", runID))
	logger.Info("run started", slog.Int("brands", len(brands)))

	outcomes := make([]models.BrandOutcome, 0, len(brands))
	counts := make(map[string]int)
	for _, brand := range brands {
		outcome := o.process(ctx, logger, runID, brand)
		o.stats.add(outcome)
		counts[string(outcome.Status)]++
		o.Metrics.IncOutcome(string(outcome.Status), string(outcome.Failure))
		outcomes = append(outcomes, outcome)
	}

	for i := range outcomes {
		unavailable, err := o.ledger.Query(ctx, outcomes[i].Brand, o.filter)
		if err != nil {
			outcomes[i].QueryError = err.Error()
			logger.Error("out-of-stock query failed", slog.String("brand", outcomes[i].Brand), slog.Any("error", err))
			continue
		}
		outcomes[i].OutOfStock = unavailable
	}

	logger.Info("run finished", slog.Any("outcomes", counts))
	return outcomes
}

func (o *Orchestrator) process(ctx context.Context, logger *slog.Logger, runID, brand string) models.BrandOutcome {
	logger = logger.With(slog.String("brand", brand))
	out := models.BrandOutcome{RunID: runID, Brand: brand, State: models.StatePending}

	entry := o.resolver.Resolve(brand)
	out.URL = entry.StorefrontURL
	advance(logger, &out, models.StateURLResolved)

	// cancellation only stops brands that have not started fetching
	if err := ctx.Err(); err != nil {
		return o.fail(logger, out, models.FailureTransport, err)
	}

	body, err := o.fetcher.Fetch(ctx, entry.StorefrontURL)
	if err != nil {
		return o.fail(logger, out, failureKind(err), err)
	}
	advance(logger, &out, models.StateFetched)

	records, err := o.parser.Parse(brand, entry.StorefrontURL, body)
	if err != nil {
		return o.fail(logger, out, models.FailureParse, err)
	}
	advance(logger, &out, models.StateParsed)
	o.Metrics.AddRecords(len(records))

	if len(records) == 0 {
		advance(logger, &out, models.StateEmpty)
		out.Status = models.StatusEmpty
		out.Detail = parser.EmptyWarning
		logger.Warn(parser.EmptyWarning, slog.String("url", out.URL))
		return out
	}

	partial := 0
	for _, r := range records {
		if len(parser.MissingFields(r)) > 0 {
			partial++
		}
	}
	if partial > 0 {
		logger.Debug("records with sentinel fields", slog.Int("partial", partial), slog.Int("records", len(records)))
	}

	if err := o.ledger.Append(ctx, records); err != nil {
		return o.fail(logger, out, models.FailurePersistence, err)
	}
	o.Metrics.AddLedgerRows(len(records))
	o.stats.addRecords(len(records))

	advance(logger, &out, models.StatePersisted)
	out.Status = models.StatusSuccess
	out.Count = len(records)
	logger.Info("brand persisted", slog.Int("records", out.Count))
	return out
}

func (o *Orchestrator) fail(logger *slog.Logger, out models.BrandOutcome, kind models.FailureKind, err error) models.BrandOutcome {
	advance(logger, &out, models.StateFailed)
	out.Status = models.StatusFailed
	out.Failure = kind
	out.Detail = err.Error()
	logger.Error("brand failed",
		slog.String("brand", out.Brand),
		slog.String("kind", string(kind)),
		slog.Any("error", err),
	)
	return out
}

// GetMetrics returns counters accumulated over every run of the orchestrator.
func (o *Orchestrator) GetMetrics() map[string]interface{} {
	return o.stats.snapshot()
}

func advance(logger *slog.Logger, out *models.BrandOutcome, next models.BrandState) {
	if !out.State.CanTransition(next) {
		logger.Error("invalid state transition", slog.String("from", string(out.State)), slog.String("to", string(next)))
	}
	logger.Debug("state", slog.String("from", string(out.State)), slog.String("to", string(next)))
	out.State = next
}

func failureKind(err error) models.FailureKind {
	if fe, ok := scraper.AsFetchError(err); ok {
		switch fe.Kind {
		case scraper.KindTimeout:
			return models.FailureTimeout
		case scraper.KindHTTPStatus:
			return models.FailureHTTPStatus
		default:
			return models.FailureTransport
		}
	}
	var perr *ledger.PersistenceError
	if errors.As(err, &perr) {
		return models.FailurePersistence
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return models.FailureTimeout
	}
	return models.FailureTransport
}

func newRunID() string {
	id, err := uuid.NewV4()
	if err != nil {
		return "unknown"
	}
	return id.String()
}

type stats struct {
	mu       sync.Mutex
	records  int64
	outcomes map[string]int
}

func newStats() stats {
	return stats{outcomes: make(map[string]int)}
}

func (s *stats) add(outcome models.BrandOutcome) {
	s.mu.Lock()
	s.outcomes[string(outcome.Status)]++
	s.mu.Unlock()
}

func (s *stats) addRecords(n int) {
	s.mu.Lock()
	s.records += int64(n)
	s.mu.Unlock()
}

func (s *stats) snapshot() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	outcomes := make(map[string]int, len(s.outcomes))
	for k, v := range s.outcomes {
		outcomes[k] = v
	}
	return map[string]interface{}{
		"persisted_records": s.records,
		"outcomes":          outcomes,
	}
}
