// =============================================================================
// WFC Ingest - Ingest Coordinator
// =============================================================================
//
// The coordinator runs one ingest pass:
//
//   1. List candidate files and pick one file per quarter
//   2. Read the quarters already recorded for the source tag
//   3. Convert every file whose quarter is not recorded yet
//   4. Append all new records in one batch
//
// A quarter already in the store is never converted again, so a run with no
// new files writes nothing. A run is single-threaded; the optional Locker
// keeps two overlapping runs from ingesting the same quarter.
//
// =============================================================================

package ingest

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ginjaninja78/wfc-ingest/internal/config"
	"github.com/ginjaninja78/wfc-ingest/internal/converter"
	"github.com/ginjaninja78/wfc-ingest/internal/observability"
	"github.com/ginjaninja78/wfc-ingest/internal/quarter"
	"github.com/ginjaninja78/wfc-ingest/internal/types"
)

// ErrLocked is returned when another run holds the lock.
var ErrLocked = errors.New("another ingest run holds the lock")

// =============================================================================
// COLLABORATORS
// =============================================================================

// Discovery lists and fetches candidate exports.
type Discovery interface {
	ListFiles(ctx context.Context) ([]types.SourceFile, error)
	FetchCSV(ctx context.Context, id string) ([]byte, error)
}

// Store is the append-only record store.
type Store interface {
	Query(ctx context.Context, source string) ([]types.IngestedRecord, error)
	Append(ctx context.Context, records []types.IngestedRecord) error
}

// Locker serializes runs. Acquire returns ErrLocked when the lock is held.
type Locker interface {
	Acquire(ctx context.Context) (release func(context.Context) error, err error)
}

// =============================================================================
// SUMMARY
// =============================================================================

// FileFailure is a file that was not ingested.
type FileFailure struct {
	File    string
	Quarter string
	Kind    types.ErrorKind
	Err     error
}

// Summary describes the outcome of a run.
type Summary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	DryRun     bool

	// FilesListed is the number of files the discovery source returned.
	FilesListed int

	// NewQuarters are the quarters ingested by this run, in order.
	NewQuarters []string

	// SkippedQuarters were already in the store.
	SkippedQuarters []string

	// NewRecords is the number of records appended (or that would have been,
	// on a dry run).
	NewRecords int

	// Records are the appended records.
	Records []types.IngestedRecord

	Failures []FileFailure
	Warnings []types.DataQualityWarning
}

// =============================================================================
// COORDINATOR
// =============================================================================

// Options tune a Coordinator.
type Options struct {
	// SourceTag scopes the "already ingested" query. Default "WFC".
	SourceTag string

	// FileErrorPolicy is config.PolicySkip or config.PolicyAbort.
	FileErrorPolicy string

	// DryRun converts files but does not append.
	DryRun bool
}

// Coordinator runs ingest passes.
type Coordinator struct {
	discovery Discovery
	store     Store
	locker    Locker
	converter *converter.Converter
	metrics   *observability.Metrics
	logger    *zap.Logger
	options   Options
	now       func() time.Time
}

// Option configures optional collaborators.
type Option func(*Coordinator)

// WithLocker wraps every run in the given lock.
func WithLocker(l Locker) Option {
	return func(c *Coordinator) { c.locker = l }
}

// WithMetrics records run counters.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithLogger sets the logger. The default discards.
func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithClock overrides the run clock used for summary timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(d Discovery, s Store, conv *converter.Converter, opts Options, options ...Option) *Coordinator {
	if opts.SourceTag == "" {
		opts.SourceTag = "WFC"
	}
	if opts.FileErrorPolicy == "" {
		opts.FileErrorPolicy = config.PolicySkip
	}
	c := &Coordinator{
		discovery: d,
		store:     s,
		converter: conv,
		logger:    zap.NewNop(),
		options:   opts,
		now:       time.Now,
	}
	for _, o := range options {
		o(c)
	}
	return c
}

// Run executes one ingest pass.
//
// RETURNS:
//   - The summary, also populated when the run fails part way.
//   - A transport-kind error from discovery or the store, the first file
//     error under the abort policy, or ErrLocked.
func (c *Coordinator) Run(ctx context.Context) (summary Summary, err error) {
	summary = Summary{
		RunID:     uuid.NewString(),
		StartedAt: c.now(),
		DryRun:    c.options.DryRun,
	}
	log := c.logger.With(zap.String("run_id", summary.RunID))

	defer func() {
		summary.FinishedAt = c.now()
		result := "ok"
		switch {
		case errors.Is(err, ErrLocked):
			result = "locked"
		case err != nil:
			result = "failed"
		}
		c.metrics.RunFinished(result, summary.FinishedAt.Sub(summary.StartedAt).Seconds())
		c.metrics.Warnings(len(summary.Warnings))
	}()

	if c.locker != nil {
		release, lockErr := c.locker.Acquire(ctx)
		if lockErr != nil {
			return summary, lockErr
		}
		defer func() {
			if relErr := release(context.WithoutCancel(ctx)); relErr != nil {
				log.Warn("release run lock", zap.Error(relErr))
			}
		}()
	}

	// =========================================================================
	// STEP 1: DISCOVER
	// =========================================================================

	files, err := c.discovery.ListFiles(ctx)
	if err != nil {
		return summary, transport("list files", err)
	}
	summary.FilesListed = len(files)

	candidates, failures := Select(files)
	for _, f := range failures {
		if err := c.fail(&summary, f, log); err != nil {
			return summary, err
		}
	}

	// =========================================================================
	// STEP 2: READ RECORDED QUARTERS
	// =========================================================================

	existing, err := c.store.Query(ctx, c.options.SourceTag)
	if err != nil {
		return summary, transport("query store", err)
	}
	recorded := make(map[string]struct{}, len(existing))
	for _, r := range existing {
		recorded[r.Quarter] = struct{}{}
	}

	// =========================================================================
	// STEP 3: CONVERT PENDING FILES
	// =========================================================================

	var records []types.IngestedRecord
	for _, cand := range candidates {
		if _, done := recorded[cand.Quarter]; done {
			summary.SkippedQuarters = append(summary.SkippedQuarters, cand.Quarter)
			c.metrics.FileProcessed("skipped")
			log.Debug("quarter already ingested", zap.String("quarter", cand.Quarter), zap.String("file", cand.File.Name))
			continue
		}

		payload, err := c.discovery.FetchCSV(ctx, cand.File.ID)
		if err != nil {
			if !types.IsFileScoped(err) {
				return summary, transport("fetch "+cand.File.Name, err)
			}
			kind, _ := types.KindOf(err)
			if ferr := c.fail(&summary, FileFailure{
				File: cand.File.Name, Quarter: cand.Quarter, Kind: kind, Err: err,
			}, log); ferr != nil {
				return summary, ferr
			}
			continue
		}

		result, err := c.converter.Run(cand.File.Name, cand.Quarter, payload)
		summary.Warnings = append(summary.Warnings, result.Warnings...)
		if err != nil {
			kind, _ := types.KindOf(err)
			if ferr := c.fail(&summary, FileFailure{
				File: cand.File.Name, Quarter: cand.Quarter, Kind: kind, Err: err,
			}, log); ferr != nil {
				return summary, ferr
			}
			continue
		}

		records = append(records, result.Records...)
		summary.NewQuarters = append(summary.NewQuarters, cand.Quarter)
		c.metrics.FileProcessed("ingested")
	}

	// =========================================================================
	// STEP 4: APPEND
	// =========================================================================

	summary.NewRecords = len(records)
	summary.Records = records
	if len(records) == 0 || c.options.DryRun {
		log.Info("run finished",
			zap.Int("new_records", summary.NewRecords),
			zap.Bool("dry_run", c.options.DryRun),
			zap.Strings("skipped_quarters", summary.SkippedQuarters),
			zap.Int("failures", len(summary.Failures)),
		)
		return summary, nil
	}

	if err := c.store.Append(ctx, records); err != nil {
		return summary, transport("append records", err)
	}
	c.metrics.RecordsAppended(len(records))

	log.Info("run finished",
		zap.Int("new_records", summary.NewRecords),
		zap.Strings("new_quarters", summary.NewQuarters),
		zap.Strings("skipped_quarters", summary.SkippedQuarters),
		zap.Int("failures", len(summary.Failures)),
		zap.Int("warnings", len(summary.Warnings)),
	)
	return summary, nil
}

// fail records a file failure. Under the abort policy it returns the error
// that ends the run.
func (c *Coordinator) fail(summary *Summary, f FileFailure, log *zap.Logger) error {
	summary.Failures = append(summary.Failures, f)
	c.metrics.FileProcessed("failed")
	c.metrics.FileFailed(string(f.Kind))

	log.Warn("file rejected",
		zap.String("file", f.File),
		zap.String("quarter", f.Quarter),
		zap.String("kind", string(f.Kind)),
		zap.Error(f.Err),
	)

	if c.options.FileErrorPolicy == config.PolicyAbort {
		return f.Err
	}
	return nil
}

func transport(op string, err error) error {
	return types.NewPipelineError(types.KindTransport, "", errors.Wrap(err, op))
}

// =============================================================================
// FILE SELECTION
// =============================================================================

// Candidate is a file chosen to represent its quarter.
type Candidate struct {
	File    types.SourceFile
	Quarter string
}

// Select drops trashed files and copies, labels the rest and keeps the
// earliest-created file for each quarter. Ties are broken by name. Files
// whose name carries no date are returned as parse failures. Candidates are
// ordered by quarter.
func Select(files []types.SourceFile) ([]Candidate, []FileFailure) {
	var failures []FileFailure
	best := make(map[string]types.SourceFile)

	for _, f := range files {
		if f.Trashed || strings.Contains(f.Name, "Copy of") {
			continue
		}
		label, err := quarter.LabelFor(f.Name)
		if err != nil {
			kind, _ := types.KindOf(err)
			failures = append(failures, FileFailure{File: f.Name, Kind: kind, Err: err})
			continue
		}
		cur, ok := best[label]
		if !ok || earlier(f, cur) {
			best[label] = f
		}
	}

	candidates := make([]Candidate, 0, len(best))
	for label, f := range best {
		candidates = append(candidates, Candidate{File: f, Quarter: label})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return quarter.Less(candidates[i].Quarter, candidates[j].Quarter)
	})
	return candidates, failures
}

func earlier(a, b types.SourceFile) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.Name < b.Name
}

