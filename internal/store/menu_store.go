package store

import (
	"context"

	"ohbang/internal/domain"
	"ohbang/internal/events"
	"ohbang/internal/models"

	"github.com/rs/zerolog"
)

const menuTable = "menu_items"

// MenuStore is the local menu store. Writes go to the repository and are
// announced on the event bus so that watches re-run their queries.
type MenuStore struct {
	repo   domain.MenuRepository
	bus    *events.EventBus
	logger *zerolog.Logger
}

func NewMenuStore(repo domain.MenuRepository, bus *events.EventBus, logger *zerolog.Logger) *MenuStore {
	if bus == nil {
		bus = events.NewEventBus()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &MenuStore{repo: repo, bus: bus, logger: logger}
}

func (s *MenuStore) ClearAll(ctx context.Context) error {
	if err := s.repo.ClearAll(ctx); err != nil {
		return err
	}
	s.publish(events.EventMenuCleared, 0)
	return nil
}

func (s *MenuStore) InsertAll(ctx context.Context, records []models.MenuItemRecord) error {
	if err := s.repo.InsertAll(ctx, records); err != nil {
		return err
	}
	s.publish(events.EventMenuInserted, len(records))
	return nil
}

func (s *MenuStore) IsEmpty(ctx context.Context) (bool, error) {
	return s.repo.IsEmpty(ctx)
}

func (s *MenuStore) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

func (s *MenuStore) All(ctx context.Context) ([]models.MenuItemRecord, error) {
	return s.repo.GetAll(ctx)
}

func (s *MenuStore) Filtered(ctx context.Context, namePattern, category string) ([]models.MenuItemRecord, error) {
	return s.repo.GetFiltered(ctx, namePattern, category)
}

func (s *MenuStore) ByID(ctx context.Context, id int64) ([]models.MenuItemRecord, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *MenuStore) Categories(ctx context.Context) ([]string, error) {
	return s.repo.GetCategories(ctx)
}

func (s *MenuStore) WatchAll(ctx context.Context) *Watch {
	return s.watch(ctx, "all", s.repo.GetAll)
}

func (s *MenuStore) WatchFiltered(ctx context.Context, namePattern, category string) *Watch {
	return s.watch(ctx, "filtered", func(ctx context.Context) ([]models.MenuItemRecord, error) {
		return s.repo.GetFiltered(ctx, namePattern, category)
	})
}

func (s *MenuStore) WatchByID(ctx context.Context, id int64) *Watch {
	return s.watch(ctx, "by_id", func(ctx context.Context) ([]models.MenuItemRecord, error) {
		return s.repo.GetByID(ctx, id)
	})
}

func (s *MenuStore) publish(eventType string, rows int) {
	payload := events.MenuChangedPayload{Table: menuTable, Rows: rows}
	if err := s.bus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event", eventType).Msg("publish menu change")
	}
}
