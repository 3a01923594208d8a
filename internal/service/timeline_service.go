package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dom/institutional-site/internal/domain"
	"github.com/dom/institutional-site/internal/repository"
	"github.com/dom/institutional-site/internal/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var ErrTimelinePostNotFound = errors.New("timeline post not found")

const (
	timelineTitleMin       = 5
	timelineDescriptionMin = 10
	timelineImagePrefix    = "timeline-posts"
)

// ImageUpload is an image received from a client.
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type TimelineService struct {
	repo   repository.TimelinePostRepository
	images storage.ImageStore
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewTimelineService(repo repository.TimelinePostRepository, images storage.ImageStore, log logrus.FieldLogger) *TimelineService {
	return &TimelineService{
		repo:   repo,
		images: images,
		log:    log.WithField("component", "timeline"),
		now:    time.Now,
	}
}

type CreateTimelinePostInput struct {
	Title       string
	Description string
	Image       *ImageUpload
}

type UpdateTimelinePostInput struct {
	Title       *string
	Description *string
	IsPublished *bool
	Image       *ImageUpload
}

func (s *TimelineService) Create(ctx context.Context, input CreateTimelinePostInput) (*domain.TimelinePost, error) {
	if err := domain.RequireMinLength("title", input.Title, timelineTitleMin); err != nil {
		return nil, err
	}
	if err := domain.RequireMinLength("description", input.Description, timelineDescriptionMin); err != nil {
		return nil, err
	}
	if input.Image == nil {
		return nil, domain.NewValidationError("image", "is required")
	}

	img, err := s.saveImage(ctx, input.Image)
	if err != nil {
		return nil, err
	}

	post := &domain.TimelinePost{
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		ImageURL:    img.URL,
		ImageKey:    img.Key,
		PostDate:    s.now(),
		IsPublished: true,
	}
	if err := s.repo.Create(ctx, post); err != nil {
		s.discardImage(img.Key)
		return nil, err
	}
	return post, nil
}

// ListPublished returns published posts, most recent first.
func (s *TimelineService) ListPublished(ctx context.Context, page domain.Page) (*domain.Paginated[*domain.TimelinePost], error) {
	items, total, err := s.repo.ListPublished(ctx, page)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*domain.TimelinePost{}
	}
	return &domain.Paginated[*domain.TimelinePost]{Data: items, Meta: domain.NewPageMeta(page, total)}, nil
}

func (s *TimelineService) GetPublished(ctx context.Context, id uuid.UUID) (*domain.TimelinePost, error) {
	post, err := s.repo.GetPublishedByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrTimelinePostNotFound
	}
	return post, err
}

// Update applies a partial update. A new image replaces the stored one, which
// is removed once the record points at its successor.
func (s *TimelineService) Update(ctx context.Context, id uuid.UUID, input UpdateTimelinePostInput) (*domain.TimelinePost, error) {
	var patch domain.TimelinePostPatch
	if input.Title != nil {
		if err := domain.RequireMinLength("title", *input.Title, timelineTitleMin); err != nil {
			return nil, err
		}
		title := strings.TrimSpace(*input.Title)
		patch.Title = &title
	}
	if input.Description != nil {
		if err := domain.RequireMinLength("description", *input.Description, timelineDescriptionMin); err != nil {
			return nil, err
		}
		description := strings.TrimSpace(*input.Description)
		patch.Description = &description
	}
	patch.IsPublished = input.IsPublished

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrTimelinePostNotFound
		}
		return nil, err
	}

	var replaced string
	if input.Image != nil {
		img, err := s.saveImage(ctx, input.Image)
		if err != nil {
			return nil, err
		}
		patch.ImageURL = &img.URL
		patch.ImageKey = &img.Key
		replaced = existing.ImageKey
	}

	post, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		if patch.ImageKey != nil {
			s.discardImage(*patch.ImageKey)
		}
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrTimelinePostNotFound
		}
		return nil, err
	}

	if replaced != "" {
		s.discardImage(replaced)
	}
	return post, nil
}

func (s *TimelineService) Delete(ctx context.Context, id uuid.UUID) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrTimelinePostNotFound
		}
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrTimelinePostNotFound
		}
		return err
	}
	if existing.ImageKey != "" {
		s.discardImage(existing.ImageKey)
	}
	return nil
}

func (s *TimelineService) saveImage(ctx context.Context, upload *ImageUpload) (storage.StoredImage, error) {
	if upload.Body == nil || upload.Size == 0 {
		return storage.StoredImage{}, domain.NewValidationError("image", "is required")
	}
	if !strings.HasPrefix(upload.ContentType, "image/") {
		return storage.StoredImage{}, domain.NewValidationError("image", "must be an image file")
	}
	img, err := s.images.Save(ctx, timelineImagePrefix, upload.Filename, upload.ContentType, upload.Body, upload.Size)
	if err != nil {
		return storage.StoredImage{}, fmt.Errorf("store image: %w", err)
	}
	return img, nil
}

// discardImage removes an orphaned image. It outlives the request context.
func (s *TimelineService) discardImage(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.images.Delete(ctx, key); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("failed to delete image")
	}
}
