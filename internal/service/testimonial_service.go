package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dom/institutional-site/internal/domain"
	"github.com/dom/institutional-site/internal/repository"
	"github.com/google/uuid"
)

var ErrTestimonialNotFound = errors.New("testimonial not found")

const (
	testimonialNameMin    = 3
	testimonialContentMin = 10
)

type TestimonialService struct {
	repo repository.TestimonialRepository
	now  func() time.Time
}

func NewTestimonialService(repo repository.TestimonialRepository) *TestimonialService {
	return &TestimonialService{repo: repo, now: time.Now}
}

type CreateTestimonialInput struct {
	Name    string
	Content string
	// Date defaults to now when empty.
	Date string
}

// UpdateTestimonialInput carries a partial update. Nil fields are left alone.
type UpdateTestimonialInput struct {
	Name        *string
	Content     *string
	Date        *string
	IsPublished *bool
}

func (s *TestimonialService) Create(ctx context.Context, input CreateTestimonialInput) (*domain.Testimonial, error) {
	if err := domain.RequireMinLength("name", input.Name, testimonialNameMin); err != nil {
		return nil, err
	}
	if err := domain.RequireMinLength("content", input.Content, testimonialContentMin); err != nil {
		return nil, err
	}

	date := s.now()
	if strings.TrimSpace(input.Date) != "" {
		parsed, err := domain.ParseDate("date", input.Date)
		if err != nil {
			return nil, err
		}
		date = parsed
	}

	t := &domain.Testimonial{
		Name:        strings.TrimSpace(input.Name),
		Content:     strings.TrimSpace(input.Content),
		Date:        date,
		IsPublished: true,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// ListPublished returns published testimonials, newest first.
func (s *TestimonialService) ListPublished(ctx context.Context, page domain.Page) (*domain.Paginated[*domain.Testimonial], error) {
	items, total, err := s.repo.ListPublished(ctx, page)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*domain.Testimonial{}
	}
	return &domain.Paginated[*domain.Testimonial]{Data: items, Meta: domain.NewPageMeta(page, total)}, nil
}

func (s *TestimonialService) GetPublished(ctx context.Context, id uuid.UUID) (*domain.Testimonial, error) {
	t, err := s.repo.GetPublishedByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrTestimonialNotFound
	}
	return t, err
}

func (s *TestimonialService) Update(ctx context.Context, id uuid.UUID, input UpdateTestimonialInput) (*domain.Testimonial, error) {
	var patch domain.TestimonialPatch
	if input.Name != nil {
		if err := domain.RequireMinLength("name", *input.Name, testimonialNameMin); err != nil {
			return nil, err
		}
		name := strings.TrimSpace(*input.Name)
		patch.Name = &name
	}
	if input.Content != nil {
		if err := domain.RequireMinLength("content", *input.Content, testimonialContentMin); err != nil {
			return nil, err
		}
		content := strings.TrimSpace(*input.Content)
		patch.Content = &content
	}
	if input.Date != nil {
		date, err := domain.ParseDate("date", *input.Date)
		if err != nil {
			return nil, err
		}
		patch.Date = &date
	}
	patch.IsPublished = input.IsPublished

	t, err := s.repo.Update(ctx, id, patch)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrTestimonialNotFound
	}
	return t, err
}

func (s *TestimonialService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return ErrTestimonialNotFound
	}
	return err
}
