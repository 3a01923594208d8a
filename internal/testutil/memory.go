package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dom/institutional-site/internal/domain"
	"github.com/dom/institutional-site/internal/repository"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MemoryRepositories is an in-process stand-in for the postgres repositories,
// used by service and handler tests that do not need a container.
type MemoryRepositories struct {
	User              *MemoryUserRepository
	Testimonial       *MemoryTestimonialRepository
	CommemorativeDate *MemoryCommemorativeDateRepository
	TimelinePost      *MemoryTimelinePostRepository
}

func NewMemoryRepositories() *MemoryRepositories {
	return &MemoryRepositories{
		User:              NewMemoryUserRepository(),
		Testimonial:       &MemoryTestimonialRepository{items: map[uuid.UUID]domain.Testimonial{}},
		CommemorativeDate: &MemoryCommemorativeDateRepository{items: map[uuid.UUID]domain.CommemorativeDate{}},
		TimelinePost:      &MemoryTimelinePostRepository{items: map[uuid.UUID]domain.TimelinePost{}},
	}
}

func (m *MemoryRepositories) Repositories() *repository.Repositories {
	return &repository.Repositories{
		User:              m.User,
		Testimonial:       m.Testimonial,
		CommemorativeDate: m.CommemorativeDate,
		TimelinePost:      m.TimelinePost,
	}
}

type MemoryUserRepository struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]domain.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: map[int64]domain.User{}}
}

func (r *MemoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Username == user.Username {
			return domain.ErrAlreadyExists
		}
		if user.Email != nil && u.Email != nil && *u.Email == *user.Email {
			return domain.ErrAlreadyExists
		}
	}
	r.nextID++
	now := time.Now()
	user.ID = r.nextID
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (r *MemoryUserRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Username == username })
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Email != nil && *u.Email == email })
}

func (r *MemoryUserRepository) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	return r.mutate(id, func(u *domain.User) { u.PasswordHash = passwordHash })
}

func (r *MemoryUserRepository) SetResetToken(_ context.Context, id int64, token string, expiry time.Time) error {
	return r.mutate(id, func(u *domain.User) {
		u.ResetToken = &token
		u.ResetTokenExpiry = &expiry
	})
}

func (r *MemoryUserRepository) GetByResetToken(_ context.Context, token string, now time.Time) (*domain.User, error) {
	return r.find(func(u domain.User) bool {
		return u.ResetToken != nil && *u.ResetToken == token && u.HasPendingReset(now)
	})
}

func (r *MemoryUserRepository) ConsumeResetToken(_ context.Context, token string, now time.Time, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, u := range r.users {
		if u.ResetToken != nil && *u.ResetToken == token && u.HasPendingReset(now) {
			u.PasswordHash = passwordHash
			u.ResetToken = nil
			u.ResetTokenExpiry = nil
			u.UpdatedAt = now
			r.users[id] = u
			return nil
		}
	}
	return domain.ErrNotFound
}

// Delete removes a user. Tests use it to simulate an account deleted
// while its session token is still valid.
func (r *MemoryUserRepository) Delete(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
}

func (r *MemoryUserRepository) find(match func(domain.User) bool) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			found := u
			return &found, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MemoryUserRepository) mutate(id int64, fn func(*domain.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	fn(&u)
	u.UpdatedAt = time.Now()
	r.users[id] = u
	return nil
}

type MemoryTestimonialRepository struct {
	mu    sync.Mutex
	items map[uuid.UUID]domain.Testimonial
}

func (r *MemoryTestimonialRepository) Create(_ context.Context, t *domain.Testimonial) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = uuid.New()
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	r.items[t.ID] = *t
	return nil
}

func (r *MemoryTestimonialRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Testimonial, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &t, nil
}

func (r *MemoryTestimonialRepository) GetPublishedByID(ctx context.Context, id uuid.UUID) (*domain.Testimonial, error) {
	t, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.IsPublished {
		return nil, domain.ErrNotFound
	}
	return t, nil
}

func (r *MemoryTestimonialRepository) ListPublished(_ context.Context, page domain.Page) ([]*domain.Testimonial, int64, error) {
	r.mu.Lock()
	var published []*domain.Testimonial
	for _, t := range r.items {
		if t.IsPublished {
			item := t
			published = append(published, &item)
		}
	}
	r.mu.Unlock()

	sort.Slice(published, func(i, j int) bool { return published[i].Date.After(published[j].Date) })
	return paginate(published, page), int64(len(published)), nil
}

func (r *MemoryTestimonialRepository) Update(_ context.Context, id uuid.UUID, patch domain.TestimonialPatch) (*domain.Testimonial, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if patch.Name != nil {
		t.Name = *patch.Name
	}
	if patch.Content != nil {
		t.Content = *patch.Content
	}
	if patch.Date != nil {
		t.Date = *patch.Date
	}
	if patch.IsPublished != nil {
		t.IsPublished = *patch.IsPublished
	}
	t.UpdatedAt = time.Now()
	r.items[id] = t
	return &t, nil
}

func (r *MemoryTestimonialRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

type MemoryCommemorativeDateRepository struct {
	mu    sync.Mutex
	items map[uuid.UUID]domain.CommemorativeDate
}

func (r *MemoryCommemorativeDateRepository) Create(_ context.Context, d *domain.CommemorativeDate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	r.items[d.ID] = *d
	return nil
}

func (r *MemoryCommemorativeDateRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.CommemorativeDate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &d, nil
}

func (r *MemoryCommemorativeDateRepository) List(_ context.Context, filter domain.CalendarFilter) ([]*domain.CommemorativeDate, error) {
	r.mu.Lock()
	var out []*domain.CommemorativeDate
	for _, d := range r.items {
		date := time.Time(d.Date)
		if filter.Year != 0 && date.Year() != filter.Year {
			continue
		}
		if filter.Month != 0 && date.Month() != filter.Month {
			continue
		}
		item := d
		out = append(out, &item)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return time.Time(out[i].Date).Before(time.Time(out[j].Date)) })
	return out, nil
}

func (r *MemoryCommemorativeDateRepository) Update(_ context.Context, id uuid.UUID, patch domain.CommemorativeDatePatch) (*domain.CommemorativeDate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if patch.Name != nil {
		d.Name = *patch.Name
	}
	if patch.Description != nil {
		d.Description = *patch.Description
	}
	if patch.Date != nil {
		d.Date = datatypes.Date(*patch.Date)
	}
	d.UpdatedAt = time.Now()
	r.items[id] = d
	return &d, nil
}

func (r *MemoryCommemorativeDateRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

type MemoryTimelinePostRepository struct {
	mu    sync.Mutex
	items map[uuid.UUID]domain.TimelinePost
	// FailCreate makes Create fail with the given error.
	FailCreate error
}

func (r *MemoryTimelinePostRepository) Create(_ context.Context, p *domain.TimelinePost) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailCreate != nil {
		return r.FailCreate
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	r.items[p.ID] = *p
	return nil
}

func (r *MemoryTimelinePostRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.TimelinePost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (r *MemoryTimelinePostRepository) GetPublishedByID(ctx context.Context, id uuid.UUID) (*domain.TimelinePost, error) {
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsPublished {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (r *MemoryTimelinePostRepository) ListPublished(_ context.Context, page domain.Page) ([]*domain.TimelinePost, int64, error) {
	r.mu.Lock()
	var published []*domain.TimelinePost
	for _, p := range r.items {
		if p.IsPublished {
			item := p
			published = append(published, &item)
		}
	}
	r.mu.Unlock()

	sort.Slice(published, func(i, j int) bool { return published[i].PostDate.After(published[j].PostDate) })
	return paginate(published, page), int64(len(published)), nil
}

func (r *MemoryTimelinePostRepository) Update(_ context.Context, id uuid.UUID, patch domain.TimelinePostPatch) (*domain.TimelinePost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.PostDate != nil {
		p.PostDate = *patch.PostDate
	}
	if patch.IsPublished != nil {
		p.IsPublished = *patch.IsPublished
	}
	if patch.ImageURL != nil {
		p.ImageURL = *patch.ImageURL
	}
	if patch.ImageKey != nil {
		p.ImageKey = *patch.ImageKey
	}
	p.UpdatedAt = time.Now()
	r.items[id] = p
	return &p, nil
}

func (r *MemoryTimelinePostRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func paginate[T any](items []T, page domain.Page) []T {
	start := page.Offset()
	if start >= len(items) {
		return nil
	}
	end := start + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
