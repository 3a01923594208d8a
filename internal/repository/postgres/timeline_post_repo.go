package postgres

import (
	"context"

	"github.com/dom/institutional-site/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type timelinePostRepository struct {
	db *gorm.DB
}

func NewTimelinePostRepository(db *gorm.DB) *timelinePostRepository {
	return &timelinePostRepository{db: db}
}

func (r *timelinePostRepository) Create(ctx context.Context, p *domain.TimelinePost) error {
	return translate(r.db.WithContext(ctx).Create(p).Error)
}

func (r *timelinePostRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.TimelinePost, error) {
	var p domain.TimelinePost
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *timelinePostRepository) GetPublishedByID(ctx context.Context, id uuid.UUID) (*domain.TimelinePost, error) {
	var p domain.TimelinePost
	err := r.db.WithContext(ctx).First(&p, "id = ? AND is_published = ?", id, true).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *timelinePostRepository) ListPublished(ctx context.Context, page domain.Page) ([]*domain.TimelinePost, int64, error) {
	var (
		posts []*domain.TimelinePost
		total int64
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.TimelinePost{}).Where("is_published = ?", true).Count(&total).Error; err != nil {
			return err
		}
		return tx.Where("is_published = ?", true).
			Order("post_date DESC").
			Offset(page.Offset()).
			Limit(page.Limit).
			Find(&posts).Error
	})
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *timelinePostRepository) Update(ctx context.Context, id uuid.UUID, patch domain.TimelinePostPatch) (*domain.TimelinePost, error) {
	updates := map[string]interface{}{}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.PostDate != nil {
		updates["post_date"] = *patch.PostDate
	}
	if patch.IsPublished != nil {
		updates["is_published"] = *patch.IsPublished
	}
	if patch.ImageURL != nil {
		updates["image_url"] = *patch.ImageURL
	}
	if patch.ImageKey != nil {
		updates["image_key"] = *patch.ImageKey
	}
	if err := applyUpdates(ctx, r.db, &domain.TimelinePost{}, id, updates); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *timelinePostRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, r.db, &domain.TimelinePost{}, id)
}
