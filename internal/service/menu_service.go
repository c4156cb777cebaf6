package service

import (
	"context"
	"time"

	"ohbang/internal/domain"
	"ohbang/internal/models"
	"ohbang/internal/store"
	"ohbang/internal/syncer"

	"github.com/rs/zerolog"
)

// MenuService is the presentation-facing facade: it owns the startup sync
// and exposes the store queries to the HTTP layer.
type MenuService struct {
	store  *store.MenuStore
	syncer *syncer.Synchronizer
	prefs  domain.PreferenceRepository
	logger *zerolog.Logger
	now    func() time.Time
}

func NewMenuService(st *store.MenuStore, sy *syncer.Synchronizer, prefs domain.PreferenceRepository, logger *zerolog.Logger) *MenuService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &MenuService{
		store:  st,
		syncer: sy,
		prefs:  prefs,
		logger: logger,
		now:    time.Now,
	}
}

// Load runs one synchronization pass. On success the completion time is
// stored under PrefLastSyncAt before onComplete is called.
func (s *MenuService) Load(ctx context.Context, onComplete func(syncer.Result)) syncer.Result {
	return s.syncer.Run(ctx, func(res syncer.Result) {
		if res.Err == nil && res.Fetched && s.prefs != nil {
			stamp := s.now().UTC().Format(time.RFC3339)
			// context may already be canceled at shutdown
			if err := s.prefs.Set(context.WithoutCancel(ctx), models.PrefLastSyncAt, stamp); err != nil {
				s.logger.Warn().Err(err).Msg("failed to record last sync time")
			}
		}
		if onComplete != nil {
			onComplete(res)
		}
	})
}

func (s *MenuService) Status() models.SyncStatus {
	return s.syncer.Status()
}

// Ready is closed once the first sync has completed.
func (s *MenuService) Ready() <-chan struct{} {
	return s.syncer.Done()
}

func (s *MenuService) MenuItems(ctx context.Context) ([]models.MenuItemRecord, error) {
	return s.store.All(ctx)
}

func (s *MenuService) Filtered(ctx context.Context, namePattern, category string) ([]models.MenuItemRecord, error) {
	return s.store.Filtered(ctx, namePattern, category)
}

func (s *MenuService) ItemByID(ctx context.Context, id int64) ([]models.MenuItemRecord, error) {
	return s.store.ByID(ctx, id)
}

func (s *MenuService) Categories(ctx context.Context) ([]string, error) {
	return s.store.Categories(ctx)
}

func (s *MenuService) WatchMenu(ctx context.Context) *store.Watch {
	return s.store.WatchAll(ctx)
}

func (s *MenuService) WatchFiltered(ctx context.Context, namePattern, category string) *store.Watch {
	return s.store.WatchFiltered(ctx, namePattern, category)
}

func (s *MenuService) WatchItem(ctx context.Context, id int64) *store.Watch {
	return s.store.WatchByID(ctx, id)
}

func (s *MenuService) Preferences() domain.PreferenceRepository {
	return s.prefs
}
