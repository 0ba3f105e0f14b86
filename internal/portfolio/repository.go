package portfolio

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNotFound indicates the record does not exist or is not visible to the caller.
	ErrNotFound = errors.New("portfolio.not_found")
)

// Scope narrows a query.
type Scope func(*gorm.DB) *gorm.DB

// Repository performs gorm CRUD for a single model type.
type Repository[T any] struct {
	db      *gorm.DB
	name    string
	preload []string
}

// NewRepository binds a repository to db; name labels wrapped errors.
func NewRepository[T any](db *gorm.DB, name string, preload ...string) Repository[T] {
	return Repository[T]{db: db, name: name, preload: preload}
}

func (repository Repository[T]) query(ctx context.Context) *gorm.DB {
	query := repository.db.WithContext(ctx)
	for _, association := range repository.preload {
		query = query.Preload(association)
	}
	return query
}

// List returns every record matching scopes, newest first.
func (repository Repository[T]) List(ctx context.Context, scopes ...Scope) ([]T, error) {
	records := make([]T, 0)
	query := repository.query(ctx)
	for _, scope := range scopes {
		query = scope(query)
	}
	if err := query.Order("created_at DESC").Order("id DESC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("portfolio.%s.list: %w", repository.name, err)
	}
	return records, nil
}

// ListByOwner returns the records owned by userID.
func (repository Repository[T]) ListByOwner(ctx context.Context, userID uint, scopes ...Scope) ([]T, error) {
	return repository.List(ctx, append([]Scope{OwnedBy(userID)}, scopes...)...)
}

// Get loads a record by primary key.
func (repository Repository[T]) Get(ctx context.Context, id uint) (T, error) {
	var record T
	err := repository.query(ctx).Where("id = ?", id).Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return record, fmt.Errorf("portfolio.%s.get: %w", repository.name, ErrNotFound)
		}
		return record, fmt.Errorf("portfolio.%s.get: %w", repository.name, err)
	}
	return record, nil
}

// Create inserts record without touching associations.
func (repository Repository[T]) Create(ctx context.Context, record *T) error {
	if err := repository.db.WithContext(ctx).Omit(clause.Associations).Create(record).Error; err != nil {
		return fmt.Errorf("portfolio.%s.create: %w", repository.name, err)
	}
	return nil
}

// Save writes every column of record without touching associations.
func (repository Repository[T]) Save(ctx context.Context, record *T) error {
	if err := repository.db.WithContext(ctx).Omit(clause.Associations).Save(record).Error; err != nil {
		return fmt.Errorf("portfolio.%s.save: %w", repository.name, err)
	}
	return nil
}

// Upsert inserts record, or updates columns of the row that already holds the
// same value in the unique column conflict.
func (repository Repository[T]) Upsert(ctx context.Context, record *T, conflict string, columns ...string) error {
	err := repository.db.WithContext(ctx).Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: conflict}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(record).Error
	if err != nil {
		return fmt.Errorf("portfolio.%s.upsert: %w", repository.name, err)
	}
	return nil
}

// Delete removes record.
func (repository Repository[T]) Delete(ctx context.Context, record *T) error {
	if err := repository.db.WithContext(ctx).Delete(record).Error; err != nil {
		return fmt.Errorf("portfolio.%s.delete: %w", repository.name, err)
	}
	return nil
}

// Reload refreshes record and its preloaded associations.
func (repository Repository[T]) Reload(ctx context.Context, record *T) error {
	if len(repository.preload) == 0 {
		return nil
	}
	if err := repository.query(ctx).Take(record).Error; err != nil {
		return fmt.Errorf("portfolio.%s.reload: %w", repository.name, err)
	}
	return nil
}

// Exists reports whether a row with id exists.
func (repository Repository[T]) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	var model T
	if err := repository.db.WithContext(ctx).Model(&model).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("portfolio.%s.exists: %w", repository.name, err)
	}
	return count > 0, nil
}

// OwnedBy restricts a query to userID's records.
func OwnedBy(userID uint) Scope {
	return func(query *gorm.DB) *gorm.DB {
		return query.Where("user_id = ?", userID)
	}
}

// Where applies a literal condition.
func Where(condition string, arguments ...any) Scope {
	return func(query *gorm.DB) *gorm.DB {
		return query.Where(condition, arguments...)
	}
}
