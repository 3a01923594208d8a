package repository

import (
	"context"
	"time"

	"github.com/dom/institutional-site/internal/domain"
	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	SetResetToken(ctx context.Context, id int64, token string, expiry time.Time) error
	// GetByResetToken returns the user whose reset token matches and is unexpired at now.
	GetByResetToken(ctx context.Context, token string, now time.Time) (*domain.User, error)
	// ConsumeResetToken replaces the password and clears both reset fields in a
	// single statement, only if the token still matches and is unexpired at now.
	// It returns domain.ErrNotFound when no row qualified.
	ConsumeResetToken(ctx context.Context, token string, now time.Time, passwordHash string) error
}

type TestimonialRepository interface {
	Create(ctx context.Context, t *domain.Testimonial) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Testimonial, error)
	GetPublishedByID(ctx context.Context, id uuid.UUID) (*domain.Testimonial, error)
	ListPublished(ctx context.Context, page domain.Page) ([]*domain.Testimonial, int64, error)
	Update(ctx context.Context, id uuid.UUID, patch domain.TestimonialPatch) (*domain.Testimonial, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type CommemorativeDateRepository interface {
	Create(ctx context.Context, d *domain.CommemorativeDate) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.CommemorativeDate, error)
	List(ctx context.Context, filter domain.CalendarFilter) ([]*domain.CommemorativeDate, error)
	Update(ctx context.Context, id uuid.UUID, patch domain.CommemorativeDatePatch) (*domain.CommemorativeDate, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type TimelinePostRepository interface {
	Create(ctx context.Context, p *domain.TimelinePost) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.TimelinePost, error)
	GetPublishedByID(ctx context.Context, id uuid.UUID) (*domain.TimelinePost, error)
	ListPublished(ctx context.Context, page domain.Page) ([]*domain.TimelinePost, int64, error)
	Update(ctx context.Context, id uuid.UUID, patch domain.TimelinePostPatch) (*domain.TimelinePost, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type Repositories struct {
	User              UserRepository
	Testimonial       TestimonialRepository
	CommemorativeDate CommemorativeDateRepository
	TimelinePost      TimelinePostRepository
}
