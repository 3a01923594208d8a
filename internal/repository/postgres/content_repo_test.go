package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/dom/institutional-site/internal/domain"
	"github.com/dom/institutional-site/internal/repository/postgres"
	"github.com/dom/institutional-site/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestTestimonialRepository_ListPublished(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewTestimonialRepository(testDB.DB)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, &domain.Testimonial{
			Name:        "Person",
			Content:     "A heartfelt testimonial",
			Date:        base.AddDate(0, 0, i),
			IsPublished: i != 4,
		}))
	}

	items, total, err := repo.ListPublished(ctx, domain.NewPage(1, 3))
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	require.Len(t, items, 3)
	assert.True(t, items[0].Date.After(items[1].Date), "newest first")

	items, _, err = repo.ListPublished(ctx, domain.NewPage(2, 3))
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestTestimonialRepository_UpdateAndDelete(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewTestimonialRepository(testDB.DB)
	ctx := context.Background()

	item := &domain.Testimonial{Name: "Maria", Content: "Great institution", Date: time.Now(), IsPublished: true}
	require.NoError(t, repo.Create(ctx, item))

	hidden := false
	name := "Maria S."
	updated, err := repo.Update(ctx, item.ID, domain.TestimonialPatch{Name: &name, IsPublished: &hidden})
	require.NoError(t, err)
	assert.Equal(t, "Maria S.", updated.Name)
	assert.False(t, updated.IsPublished)

	_, err = repo.GetPublishedByID(ctx, item.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.Update(ctx, uuid.New(), domain.TestimonialPatch{Name: &name})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.Delete(ctx, item.ID))
	assert.ErrorIs(t, repo.Delete(ctx, item.ID), domain.ErrNotFound)
}

func TestCommemorativeDateRepository_ListFilters(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewCommemorativeDateRepository(testDB.DB)
	ctx := context.Background()

	dates := []time.Time{
		time.Date(2025, time.March, 21, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.August, 28, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.August, 21, 0, 0, 0, 0, time.UTC),
	}
	for _, d := range dates {
		require.NoError(t, repo.Create(ctx, &domain.CommemorativeDate{
			Name:        "Awareness day",
			Description: "A day worth remembering",
			Date:        datatypes.Date(d),
		}))
	}

	all, err := repo.List(ctx, domain.CalendarFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 2024, time.Time(all[0].Date).Year(), "ascending by date")

	august, err := repo.List(ctx, domain.CalendarFilter{Month: time.August})
	require.NoError(t, err)
	assert.Len(t, august, 2)

	august2025, err := repo.List(ctx, domain.CalendarFilter{Year: 2025, Month: time.August})
	require.NoError(t, err)
	assert.Len(t, august2025, 1)
}

func TestTimelinePostRepository_Crud(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewTimelinePostRepository(testDB.DB)
	ctx := context.Background()

	post := &domain.TimelinePost{
		Title:       "Thirty years",
		Description: "Celebrating thirty years of work",
		ImageURL:    "/uploads/timeline-posts/a.png",
		ImageKey:    "timeline-posts/a.png",
		PostDate:    time.Now(),
		IsPublished: true,
	}
	require.NoError(t, repo.Create(ctx, post))

	got, err := repo.GetPublishedByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "timeline-posts/a.png", got.ImageKey)

	url := "/uploads/timeline-posts/b.png"
	key := "timeline-posts/b.png"
	updated, err := repo.Update(ctx, post.ID, domain.TimelinePostPatch{ImageURL: &url, ImageKey: &key})
	require.NoError(t, err)
	assert.Equal(t, url, updated.ImageURL)

	posts, total, err := repo.ListPublished(ctx, domain.NewPage(1, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, posts, 1)

	require.NoError(t, repo.Delete(ctx, post.ID))
	_, err = repo.GetByID(ctx, post.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
