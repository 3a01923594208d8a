package postgres

import (
	"context"

	"github.com/dom/institutional-site/internal/domain"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type commemorativeDateRepository struct {
	db *gorm.DB
}

func NewCommemorativeDateRepository(db *gorm.DB) *commemorativeDateRepository {
	return &commemorativeDateRepository{db: db}
}

func (r *commemorativeDateRepository) Create(ctx context.Context, d *domain.CommemorativeDate) error {
	return translate(r.db.WithContext(ctx).Create(d).Error)
}

func (r *commemorativeDateRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.CommemorativeDate, error) {
	var d domain.CommemorativeDate
	if err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (r *commemorativeDateRepository) List(ctx context.Context, filter domain.CalendarFilter) ([]*domain.CommemorativeDate, error) {
	query := r.db.WithContext(ctx).Model(&domain.CommemorativeDate{})
	if filter.Year > 0 {
		query = query.Where("EXTRACT(YEAR FROM date) = ?", filter.Year)
	}
	if filter.Month > 0 {
		query = query.Where("EXTRACT(MONTH FROM date) = ?", int(filter.Month))
	}

	var dates []*domain.CommemorativeDate
	if err := query.Order("date ASC").Find(&dates).Error; err != nil {
		return nil, err
	}
	return dates, nil
}

func (r *commemorativeDateRepository) Update(ctx context.Context, id uuid.UUID, patch domain.CommemorativeDatePatch) (*domain.CommemorativeDate, error) {
	updates := map[string]interface{}{}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.Date != nil {
		updates["date"] = datatypes.Date(*patch.Date)
	}
	if err := applyUpdates(ctx, r.db, &domain.CommemorativeDate{}, id, updates); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *commemorativeDateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, r.db, &domain.CommemorativeDate{}, id)
}
