package postgres

import (
	"context"

	"github.com/dom/institutional-site/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type testimonialRepository struct {
	db *gorm.DB
}

func NewTestimonialRepository(db *gorm.DB) *testimonialRepository {
	return &testimonialRepository{db: db}
}

func (r *testimonialRepository) Create(ctx context.Context, t *domain.Testimonial) error {
	return translate(r.db.WithContext(ctx).Create(t).Error)
}

func (r *testimonialRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Testimonial, error) {
	var t domain.Testimonial
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *testimonialRepository) GetPublishedByID(ctx context.Context, id uuid.UUID) (*domain.Testimonial, error) {
	var t domain.Testimonial
	err := r.db.WithContext(ctx).First(&t, "id = ? AND is_published = ?", id, true).Error
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *testimonialRepository) ListPublished(ctx context.Context, page domain.Page) ([]*domain.Testimonial, int64, error) {
	var (
		items []*domain.Testimonial
		total int64
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.Testimonial{}).Where("is_published = ?", true).Count(&total).Error; err != nil {
			return err
		}
		return tx.Where("is_published = ?", true).
			Order("date DESC").
			Offset(page.Offset()).
			Limit(page.Limit).
			Find(&items).Error
	})
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *testimonialRepository) Update(ctx context.Context, id uuid.UUID, patch domain.TestimonialPatch) (*domain.Testimonial, error) {
	updates := map[string]interface{}{}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Content != nil {
		updates["content"] = *patch.Content
	}
	if patch.Date != nil {
		updates["date"] = *patch.Date
	}
	if patch.IsPublished != nil {
		updates["is_published"] = *patch.IsPublished
	}
	if err := applyUpdates(ctx, r.db, &domain.Testimonial{}, id, updates); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *testimonialRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, r.db, &domain.Testimonial{}, id)
}
