package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ohbang/internal/domain"
	"ohbang/internal/metrics"
	"ohbang/internal/models"

	"github.com/rs/zerolog"
)

// Result describes one synchronization pass.
type Result struct {
	Cleared  bool
	Fetched  bool
	Items    int
	Duration time.Duration
	Err      error
}

type Option func(*Synchronizer)

// WithProbe makes every fetch conditional on the probe reporting connectivity.
func WithProbe(p domain.NetworkProbe) Option {
	return func(s *Synchronizer) { s.probe = p }
}

func WithPolicy(policy string) Option {
	return func(s *Synchronizer) {
		if policy != "" {
			s.policy = policy
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Synchronizer) { s.now = now }
}

// Synchronizer fills the local store from the remote menu.
type Synchronizer struct {
	store  domain.MenuStore
	source domain.MenuSource
	probe  domain.NetworkProbe
	policy string
	logger *zerolog.Logger
	now    func() time.Time

	running sync.Mutex

	mu     sync.RWMutex
	status models.SyncStatus

	ready     chan struct{}
	readyOnce sync.Once
}

func New(store domain.MenuStore, source domain.MenuSource, logger *zerolog.Logger, opts ...Option) *Synchronizer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	s := &Synchronizer{
		store:  store,
		source: source,
		policy: models.SyncPolicyAlways,
		logger: logger,
		now:    time.Now,
		status: models.SyncStatus{State: models.SyncStateLoading},
		ready:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run performs one pass and calls onComplete exactly once, whatever the
// outcome. Failures are reported through the Result and Status rather than
// aborting silently. A Run that overlaps another returns ErrSyncInProgress.
func (s *Synchronizer) Run(ctx context.Context, onComplete func(Result)) (res Result) {
	if !s.running.TryLock() {
		res = Result{Err: domain.ErrSyncInProgress}
		s.logger.Warn().Err(res.Err).Msg("sync rejected")
		s.notify(onComplete, res)
		return res
	}
	defer s.running.Unlock()

	start := s.now()
	s.begin(start)

	var once sync.Once
	finish := func() {
		once.Do(func() {
			res.Duration = s.now().Sub(start)
			s.finish(res)
			s.notify(onComplete, res)
		})
	}

	defer func() {
		if r := recover(); r != nil {
			if res.Err == nil {
				res.Err = fmt.Errorf("sync panic: %v", r)
			}
		}
		finish()
	}()

	if err := s.pass(ctx, &res, finish); err != nil {
		res.Err = err
	}
	return res
}

// notify runs the completion callback. A panic in the callback is logged and
// does not change the outcome of the pass.
func (s *Synchronizer) notify(onComplete func(Result), res Result) {
	if onComplete == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Msg("sync completion callback panicked")
		}
	}()
	onComplete(res)
}

// pass is the linear clear, check, fetch, insert, signal sequence. It
// returns on the first error without calling signal, so callers must
// guarantee completion themselves.
func (s *Synchronizer) pass(ctx context.Context, res *Result, signal func()) error {
	if s.policy == models.SyncPolicyAlways {
		if err := s.store.ClearAll(ctx); err != nil {
			return storeErr("clear", err)
		}
		res.Cleared = true
	}

	// after an unconditional clear the store is empty by construction
	due := true
	if s.policy == models.SyncPolicyWhenEmpty {
		empty, err := s.store.IsEmpty(ctx)
		if err != nil {
			return storeErr("check empty", err)
		}
		due = empty
	}

	if due {
		if s.probe != nil && !s.probe.Available(ctx) {
			return domain.ErrNetworkUnavailable
		}

		items, err := s.source.FetchMenu(ctx)
		if err != nil {
			return fmt.Errorf("fetch menu: %w", err)
		}
		res.Fetched = true

		records := models.ToRecords(items)
		if err := s.store.InsertAll(ctx, records); err != nil {
			return storeErr("insert", err)
		}
		res.Items = len(records)
	}

	signal()
	return nil
}

func storeErr(op string, err error) error {
	if errors.Is(err, domain.ErrStore) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrStore, op, err)
}

func (s *Synchronizer) begin(start time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = models.SyncStatus{State: models.SyncStateLoading, StartedAt: &start}
}

func (s *Synchronizer) finish(res Result) {
	completed := s.now()

	s.mu.Lock()
	s.status.Items = res.Items
	s.status.Fetched = res.Fetched
	s.status.CompletedAt = &completed
	if res.Err != nil {
		s.status.State = models.SyncStateFailed
		s.status.Error = res.Err.Error()
	} else {
		s.status.State = models.SyncStateReady
		s.status.Error = ""
	}
	s.mu.Unlock()

	outcome := metrics.OutcomeSuccess
	switch {
	case res.Err != nil:
		outcome = metrics.OutcomeFailure
		s.logger.Error().Err(res.Err).Dur("took", res.Duration).Msg("menu sync failed")
	case !res.Fetched:
		outcome = metrics.OutcomeSkipped
		s.logger.Info().Str("policy", s.policy).Msg("menu sync skipped, store already populated")
	default:
		s.logger.Info().Int("items", res.Items).Dur("took", res.Duration).Msg("menu synced")
	}
	metrics.ObserveSync(outcome, res.Duration, res.Items)

	s.readyOnce.Do(func() { close(s.ready) })
}

// Status returns a copy of the latest pass status.
func (s *Synchronizer) Status() models.SyncStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Done is closed when the first pass completes, successfully or not.
func (s *Synchronizer) Done() <-chan struct{} {
	return s.ready
}
