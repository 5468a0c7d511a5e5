package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tagscout/tagscout/internal/identity"
	"go.uber.org/zap"
)

const (
	// DefaultMatchDelay is the pause after each confirmed match.
	DefaultMatchDelay = time.Second
	// DefaultProgressEvery is the scanned-member interval between progress updates.
	DefaultProgressEvery = 50
)

var (
	// ErrScanInProgress is returned when a scan is requested while one is running.
	ErrScanInProgress = errors.New("scan already in progress")
	// ErrCommunityPanic wraps a panic recovered while scanning a community.
	ErrCommunityPanic = errors.New("panic while scanning community")
)

// Phase is the orchestrator state.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseScanning
)

// String returns the phase name.
func (p Phase) String() string {
	if p == PhaseScanning {
		return "scanning"
	}

	return "idle"
}

// Config holds the orchestrator tunables.
type Config struct {
	MatchDelay      time.Duration
	ProgressEvery   int64
	EnrichComposite bool
}

// Orchestrator drives sequential scans over every community and member.
// It owns the counters and the dedup cache; everything else observes events.
type Orchestrator struct {
	source     MemberSource
	notifier   Notifier
	reporter   Reporter
	cache      DedupCache
	classifier *identity.Classifier
	metrics    *Metrics
	config     Config
	logger     *zap.Logger
	now        func() time.Time
	sleep      func(time.Duration)

	// unsaved holds matches the dedup cache failed to store.
	unsaved *MemoryCache

	mu      sync.Mutex
	phase   Phase
	current string
	wg      sync.WaitGroup

	totalScanned atomic.Int64
	totalFound   atomic.Int64
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClassifier replaces the default classifier.
func WithClassifier(c *identity.Classifier) Option {
	return func(o *Orchestrator) {
		o.classifier = c
	}
}

// WithMetrics records scan metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithClock overrides the time source used for account age and timing.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// WithSleep overrides the function used for the post-match pause.
func WithSleep(sleep func(time.Duration)) Option {
	return func(o *Orchestrator) {
		o.sleep = sleep
	}
}

// NewOrchestrator creates an idle orchestrator.
func NewOrchestrator(
	source MemberSource, notifier Notifier, reporter Reporter, cache DedupCache,
	config Config, logger *zap.Logger, opts ...Option,
) *Orchestrator {
	if config.ProgressEvery <= 0 {
		config.ProgressEvery = DefaultProgressEvery
	}

	if config.MatchDelay < 0 {
		config.MatchDelay = 0
	}

	if reporter == nil {
		reporter = Reporters(nil)
	}

	o := &Orchestrator{
		source:   source,
		notifier: notifier,
		reporter: reporter,
		cache:    cache,
		config:   config,
		logger:   logger.Named("scan_orchestrator"),
		unsaved:  NewMemoryCache(),
		now:      time.Now,
		sleep:    time.Sleep,
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.classifier == nil {
		o.classifier = identity.NewClassifier(identity.WithClock(o.now))
	}

	if o.metrics == nil {
		o.metrics = NewMetrics(nil)
	}

	return o
}

// Phase returns the current phase.
func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.phase
}

// CurrentCommunity returns the name of the community being scanned, or "" when none.
func (o *Orchestrator) CurrentCommunity() string {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.current
}

// Counters returns the global counters. Found is read before scanned so the
// pair always satisfies found <= scanned; the lock keeps the read from
// straddling the reset in begin.
func (o *Orchestrator) Counters() Counters {
	o.mu.Lock()
	found := o.totalFound.Load()
	scanned := o.totalScanned.Load()
	o.mu.Unlock()

	return Counters{TotalScanned: scanned, TotalFound: found}
}

// Toggle starts a scan in the background when idle. While a scan is running
// the request is logged and ignored.
func (o *Orchestrator) Toggle(ctx context.Context) ToggleResult {
	if !o.begin() {
		o.logger.Warn("Scan toggle ignored, scan already in progress")
		return ToggleResult{Success: true, Message: "Scan already in progress"}
	}

	o.logger.Info("Scan started via control surface")

	// Scans are not cancellable.
	scanCtx := context.WithoutCancel(ctx)

	o.wg.Add(1)

	go func() {
		defer o.wg.Done()

		o.scan(scanCtx)
	}()

	return ToggleResult{Success: true, Message: "Scan started"}
}

// Run performs a full scan synchronously.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	if !o.begin() {
		return nil, ErrScanInProgress
	}

	return o.scan(ctx), nil
}

// Wait blocks until any background scan started by Toggle has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// begin moves Idle to Scanning and resets the counters.
func (o *Orchestrator) begin() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.phase == PhaseScanning {
		return false
	}

	o.phase = PhaseScanning
	o.totalFound.Store(0)
	o.totalScanned.Store(0)
	o.metrics.Scanning.Set(1)

	return true
}

// finish moves Scanning back to Idle.
func (o *Orchestrator) finish() {
	o.mu.Lock()
	o.phase = PhaseIdle
	o.current = ""
	o.mu.Unlock()

	o.metrics.Scanning.Set(0)
	o.reporter.Report(CurrentServerChanged{})
	o.reporter.Report(ScanningChanged{Scanning: false, Counters: o.Counters()})
}

func (o *Orchestrator) setCurrent(name string) {
	o.mu.Lock()
	o.current = name
	o.mu.Unlock()

	o.reporter.Report(CurrentServerChanged{Name: name})
}

// scan iterates every community in order. Must be called after begin.
func (o *Orchestrator) scan(ctx context.Context) *Summary {
	summary := &Summary{
		ScanID:    uuid.New(),
		StartedAt: o.now(),
	}
	logger := o.logger.With(zap.String("scanID", summary.ScanID.String()))

	o.reporter.Report(ScanningChanged{Scanning: true, Counters: o.Counters()})

	communities, err := o.source.Communities(ctx)
	if err != nil {
		logger.Error("Failed to list communities", zap.Error(err))
	} else {
		o.reporter.Report(ServersSet{Servers: ServerInfos(communities)})
	}

	logger.Info("Scanning communities", zap.Int("count", len(communities)))

	for i, community := range communities {
		result := o.scanCommunity(ctx, summary.ScanID, community)
		summary.Communities = append(summary.Communities, result)

		if result.Err != nil {
			o.metrics.CommunityFailures.Inc()
			logger.Error("Failed to scan community",
				zap.String("community", community.Name),
				zap.Uint64("communityID", uint64(community.ID)),
				zap.Error(result.Err))
		} else {
			logger.Info("Community scanned",
				zap.String("community", community.Name),
				zap.Int("scanned", result.Scanned),
				zap.Int("found", result.Found))
		}

		o.reporter.Report(CommunityFinished{Result: result, Index: i, Total: len(communities)})
	}

	summary.Counters = o.Counters()
	summary.Duration = o.now().Sub(summary.StartedAt)
	o.metrics.ScanDuration.Observe(summary.Duration.Seconds())

	o.finish()

	logger.Info("Scan complete",
		zap.Int64("totalScanned", summary.Counters.TotalScanned),
		zap.Int64("totalFound", summary.Counters.TotalFound),
		zap.Duration("duration", summary.Duration))

	return summary
}

// scanCommunity scans one community. Any failure, including a panic, turns the
// local result into zero scanned and zero found; global counters are kept.
func (o *Orchestrator) scanCommunity(ctx context.Context, scanID uuid.UUID, community Community) (result CommunityResult) {
	result.Community = community

	defer func() {
		if r := recover(); r != nil {
			result = CommunityResult{
				Community: community,
				Err:       fmt.Errorf("%w: %v", ErrCommunityPanic, r),
			}
		}
	}()

	o.setCurrent(community.Name)

	for member, err := range o.source.Members(ctx, community) {
		if err != nil {
			return CommunityResult{Community: community, Err: err}
		}

		// Automated accounts are neither counted nor cached.
		if member.Bot || member.Snapshot == nil {
			continue
		}

		found, err := o.processMember(ctx, scanID, community, member)
		if err != nil {
			return CommunityResult{Community: community, Err: err}
		}

		result.Scanned++
		if found {
			result.Found++
		}
	}

	return result
}

// processMember runs one member through dedup, classification and reporting.
// It reports whether the member produced a confirmed match.
func (o *Orchestrator) processMember(
	ctx context.Context, scanID uuid.UUID, community Community, member Member,
) (bool, error) {
	scanned := o.totalScanned.Add(1)
	o.metrics.MembersScanned.Inc()

	found, err := o.evaluate(ctx, scanID, community, member)

	if scanned%o.config.ProgressEvery == 0 {
		o.reporter.Report(ProgressUpdated{TotalScanned: scanned})
	}

	return found, err
}

func (o *Orchestrator) evaluate(
	ctx context.Context, scanID uuid.UUID, community Community, member Member,
) (bool, error) {
	snapshot := member.Snapshot

	if seen, _ := o.unsaved.Contains(ctx, snapshot.ID); seen {
		return false, nil
	}

	seen, err := o.cache.Contains(ctx, snapshot.ID)
	if err != nil {
		return false, fmt.Errorf("failed to check dedup cache: %w", err)
	}

	if seen {
		return false, nil
	}

	result := o.classifier.Classify(snapshot)

	if result == nil && o.config.EnrichComposite && !snapshot.Enriched &&
		len(identity.CompositeIndicators(snapshot, o.now())) > 0 {
		snapshot = o.enrich(ctx, snapshot)
		result = o.classifier.Classify(snapshot)
	}

	if result == nil {
		return false, nil
	}

	if !result.IsHigh() {
		o.metrics.MediumResults.Inc()
		o.logger.Debug("Medium confidence result",
			zap.String("community", community.Name),
			zap.Uint64("memberID", uint64(snapshot.ID)),
			zap.String("username", snapshot.Username),
			zap.String("evidence", result.Evidence.Summary()))

		return false, nil
	}

	if !snapshot.Enriched {
		snapshot = o.enrich(ctx, snapshot)
	}

	o.recordMatch(ctx, scanID, community, member, snapshot, result)

	return true, nil
}

// enrich fetches extended profile data. Failures degrade to the original snapshot.
func (o *Orchestrator) enrich(ctx context.Context, snapshot *identity.MemberSnapshot) *identity.MemberSnapshot {
	enriched, err := o.source.Enrich(ctx, snapshot)
	if err != nil || enriched == nil {
		o.metrics.EnrichmentFailures.Inc()
		o.logger.Debug("Profile enrichment failed",
			zap.Uint64("memberID", uint64(snapshot.ID)),
			zap.Error(err))

		return snapshot
	}

	return enriched
}

func (o *Orchestrator) recordMatch(
	ctx context.Context, scanID uuid.UUID, community Community, member Member,
	snapshot *identity.MemberSnapshot, result *identity.Result,
) {
	o.totalFound.Add(1)

	if err := o.cache.Add(ctx, snapshot.ID); err != nil {
		_ = o.unsaved.Add(ctx, snapshot.ID)
		o.metrics.DedupFailures.Inc()
		o.logger.Error("Failed to add member to dedup cache, keeping it in memory",
			zap.Uint64("memberID", uint64(snapshot.ID)),
			zap.Error(err))
	}

	now := o.now()
	match := &Match{
		ScanID:          scanID,
		Community:       community,
		Member:          member,
		Snapshot:        snapshot,
		Result:          result,
		AccountAgeYears: snapshot.AccountAgeYears(now),
		Counters:        o.Counters(),
		FoundAt:         now,
	}

	o.metrics.MatchesFound.WithLabelValues(result.Type.String()).Inc()
	o.logger.Info("Gamertag found",
		zap.String("community", community.Name),
		zap.Uint64("memberID", uint64(snapshot.ID)),
		zap.String("username", snapshot.Username),
		zap.String("gamertag", result.Gamertag),
		zap.String("type", result.Type.String()),
		zap.String("evidence", result.Evidence.Summary()))

	if o.notifier != nil {
		if err := o.notifier.Notify(ctx, match); err != nil {
			o.metrics.NotifyFailures.Inc()
			o.logger.Error("Failed to send match notification",
				zap.Uint64("memberID", uint64(snapshot.ID)),
				zap.Error(err))
		}
	}

	o.reporter.Report(MatchFound{Record: NewMatchRecord(match), Counters: match.Counters})

	o.sleep(o.config.MatchDelay)
}
