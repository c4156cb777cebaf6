package domain

import (
	"context"

	"ohbang/internal/models"
)

// MenuRepository is the raw persistence contract for menu rows.
type MenuRepository interface {
	ClearAll(ctx context.Context) error
	InsertAll(ctx context.Context, records []models.MenuItemRecord) error
	IsEmpty(ctx context.Context) (bool, error)
	Count(ctx context.Context) (int, error)
	GetAll(ctx context.Context) ([]models.MenuItemRecord, error)
	GetFiltered(ctx context.Context, namePattern, category string) ([]models.MenuItemRecord, error)
	GetByID(ctx context.Context, id int64) ([]models.MenuItemRecord, error)
	GetCategories(ctx context.Context) ([]string, error)
}

// MenuStore is the store surface the synchronizer writes through.
type MenuStore interface {
	ClearAll(ctx context.Context) error
	InsertAll(ctx context.Context, records []models.MenuItemRecord) error
	IsEmpty(ctx context.Context) (bool, error)
}

type MenuSource interface {
	FetchMenu(ctx context.Context) ([]models.MenuItem, error)
}

type NetworkProbe interface {
	Available(ctx context.Context) bool
}

type PreferenceRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
