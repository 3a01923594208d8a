package service

import (
	"context"
	"errors"
	"strings"

	"github.com/dom/institutional-site/internal/domain"
	"github.com/dom/institutional-site/internal/repository"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

var ErrCommemorativeDateNotFound = errors.New("commemorative date not found")

const (
	commemorativeNameMin        = 3
	commemorativeDescriptionMin = 10
)

type CommemorativeDateService struct {
	repo repository.CommemorativeDateRepository
}

func NewCommemorativeDateService(repo repository.CommemorativeDateRepository) *CommemorativeDateService {
	return &CommemorativeDateService{repo: repo}
}

type CreateCommemorativeDateInput struct {
	Name        string
	Description string
	Date        string
}

type UpdateCommemorativeDateInput struct {
	Name        *string
	Description *string
	Date        *string
}

func (s *CommemorativeDateService) Create(ctx context.Context, input CreateCommemorativeDateInput) (*domain.CommemorativeDate, error) {
	if err := domain.RequireMinLength("name", input.Name, commemorativeNameMin); err != nil {
		return nil, err
	}
	if err := domain.RequireMinLength("description", input.Description, commemorativeDescriptionMin); err != nil {
		return nil, err
	}
	date, err := domain.ParseDate("date", input.Date)
	if err != nil {
		return nil, err
	}

	d := &domain.CommemorativeDate{
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Date:        datatypes.Date(date),
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// List returns the calendar in date order, optionally narrowed to a year or month.
func (s *CommemorativeDateService) List(ctx context.Context, filter domain.CalendarFilter) ([]*domain.CommemorativeDate, error) {
	if filter.Month < 0 || filter.Month > 12 {
		return nil, domain.NewValidationError("month", "must be between 1 and 12")
	}
	if filter.Year < 0 {
		return nil, domain.NewValidationError("year", "must be positive")
	}
	dates, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if dates == nil {
		dates = []*domain.CommemorativeDate{}
	}
	return dates, nil
}

func (s *CommemorativeDateService) Get(ctx context.Context, id uuid.UUID) (*domain.CommemorativeDate, error) {
	d, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrCommemorativeDateNotFound
	}
	return d, err
}

func (s *CommemorativeDateService) Update(ctx context.Context, id uuid.UUID, input UpdateCommemorativeDateInput) (*domain.CommemorativeDate, error) {
	var patch domain.CommemorativeDatePatch
	if input.Name != nil {
		if err := domain.RequireMinLength("name", *input.Name, commemorativeNameMin); err != nil {
			return nil, err
		}
		name := strings.TrimSpace(*input.Name)
		patch.Name = &name
	}
	if input.Description != nil {
		if err := domain.RequireMinLength("description", *input.Description, commemorativeDescriptionMin); err != nil {
			return nil, err
		}
		description := strings.TrimSpace(*input.Description)
		patch.Description = &description
	}
	if input.Date != nil {
		date, err := domain.ParseDate("date", *input.Date)
		if err != nil {
			return nil, err
		}
		patch.Date = &date
	}

	d, err := s.repo.Update(ctx, id, patch)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrCommemorativeDateNotFound
	}
	return d, err
}

func (s *CommemorativeDateService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return ErrCommemorativeDateNotFound
	}
	return err
}
