package repository

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"ohbang/internal/domain"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverPreferenceRepository serves from primary until it fails, then
// from fallback, probing primary again once per recoveryInterval.
type FailoverPreferenceRepository struct {
	primary   domain.PreferenceRepository
	fallback  domain.PreferenceRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
	now       func() time.Time
}

func NewFailoverPreferenceRepository(primary, fallback domain.PreferenceRepository, logger *zerolog.Logger) *FailoverPreferenceRepository {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &FailoverPreferenceRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

func (r *FailoverPreferenceRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary preference repository failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck.Store(r.now().UnixNano())
}

// usePrimary reports whether the call should go to primary: either it is up
// or the recovery interval has passed.
func (r *FailoverPreferenceRepository) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	last := time.Unix(0, r.lastCheck.Load())
	return r.now().Sub(last) > recoveryInterval
}

func (r *FailoverPreferenceRepository) recovered() {
	if r.isDown.CompareAndSwap(true, false) {
		r.logger.Info().Msg("Primary preference repository recovered")
	}
}

func (r *FailoverPreferenceRepository) Get(ctx context.Context, key string) (string, error) {
	if r.usePrimary() {
		val, err := r.primary.Get(ctx, key)
		if err == nil {
			r.recovered()
			return val, nil
		}
		if errors.Is(err, domain.ErrPreferenceNotFound) {
			r.recovered()
			return r.promote(ctx, key)
		}
		r.markDown(err)
	}
	return r.fallback.Get(ctx, key)
}

// promote serves a value written to fallback during an outage and copies it
// back to primary.
func (r *FailoverPreferenceRepository) promote(ctx context.Context, key string) (string, error) {
	val, err := r.fallback.Get(ctx, key)
	if err != nil {
		return "", domain.ErrPreferenceNotFound
	}
	if err := r.primary.Set(ctx, key, val); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("failed to copy preference back to primary")
		return val, nil
	}
	_ = r.fallback.Delete(ctx, key)
	return val, nil
}

func (r *FailoverPreferenceRepository) Set(ctx context.Context, key, value string) error {
	if r.usePrimary() {
		err := r.primary.Set(ctx, key, value)
		if err == nil {
			r.recovered()
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.Set(ctx, key, value)
}

func (r *FailoverPreferenceRepository) Delete(ctx context.Context, key string) error {
	if r.usePrimary() {
		err := r.primary.Delete(ctx, key)
		if err == nil {
			r.recovered()
			// a copy left from an outage must not resurface
			return r.fallback.Delete(ctx, key)
		}
		r.markDown(err)
	}
	return r.fallback.Delete(ctx, key)
}
