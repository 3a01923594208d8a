package postgres

import (
	"context"

	"github.com/dom/institutional-site/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// applyUpdates writes the non-empty update set to the row with the given id.
// An empty set only checks that the row exists.
func applyUpdates(ctx context.Context, db *gorm.DB, model interface{}, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		var count int64
		if err := db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
			return translate(err)
		}
		if count == 0 {
			return domain.ErrNotFound
		}
		return nil
	}

	result := db.WithContext(ctx).Model(model).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func deleteByID(ctx context.Context, db *gorm.DB, model interface{}, id uuid.UUID) error {
	result := db.WithContext(ctx).Delete(model, "id = ?", id)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
