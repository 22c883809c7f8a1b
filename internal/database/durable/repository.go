// Package durable provides the SQLite-backed identity-keyed storage slots.
//
// This package implements the storage.Durable interface consumed by the
// favorites store.
//
// # Interface Implementation
//
//	var _ storage.Durable = (*Repository)(nil)
//
// # Usage
//
//	repo := durable.NewRepository(db)
//	value, found, err := repo.Get(ctx, storage.FavoritesKey("a@x.com"))
package durable

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/bookfinder/internal/entities"
	"github.com/mrlokans/bookfinder/internal/storage"
)

// Repository handles all durable record database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new durable records repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Get returns the value stored under key.
func (r *Repository) Get(ctx context.Context, key storage.Key) (string, bool, error) {
	var record entities.DurableRecord
	err := r.db.WithContext(ctx).
		Where("namespace = ? AND identity = ?", key.Namespace, key.Identity).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return record.Value, true, nil
}

// Set upserts the whole value of a slot in a single statement.
func (r *Repository) Set(ctx context.Context, key storage.Key, value string) error {
	record := entities.DurableRecord{
		Namespace: key.Namespace,
		Identity:  key.Identity,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}, {Name: "identity"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&record).Error
}

// Keys lists every populated slot in the namespace, ordered by identity.
func (r *Repository) Keys(ctx context.Context, namespace string) ([]storage.Key, error) {
	var identities []string
	err := r.db.WithContext(ctx).Model(&entities.DurableRecord{}).
		Where("namespace = ?", namespace).
		Order("identity ASC").
		Pluck("identity", &identities).Error
	if err != nil {
		return nil, err
	}

	keys := make([]storage.Key, 0, len(identities))
	for _, id := range identities {
		keys = append(keys, storage.Key{Namespace: namespace, Identity: id})
	}
	return keys, nil
}

// Count returns the number of populated slots in a namespace.
func (r *Repository) Count(ctx context.Context, namespace string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.DurableRecord{}).
		Where("namespace = ?", namespace).
		Count(&count).Error
	return count, err
}

var _ storage.Durable = (*Repository)(nil)
