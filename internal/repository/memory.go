package repository

import (
	"context"
	"sync"

	"ohbang/internal/domain"
)

// MemoryPreferenceRepository keeps preferences for the lifetime of the process.
type MemoryPreferenceRepository struct {
	values sync.Map
}

func NewMemoryPreferenceRepository() *MemoryPreferenceRepository {
	return &MemoryPreferenceRepository{}
}

func (r *MemoryPreferenceRepository) Get(_ context.Context, key string) (string, error) {
	val, ok := r.values.Load(key)
	if !ok {
		return "", domain.ErrPreferenceNotFound
	}
	return val.(string), nil
}

func (r *MemoryPreferenceRepository) Set(_ context.Context, key, value string) error {
	r.values.Store(key, value)
	return nil
}

func (r *MemoryPreferenceRepository) Delete(_ context.Context, key string) error {
	r.values.Delete(key)
	return nil
}
