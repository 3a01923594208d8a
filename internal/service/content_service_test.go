package service_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dom/institutional-site/internal/domain"
	"github.com/dom/institutional-site/internal/logs"
	"github.com/dom/institutional-site/internal/mailer"
	"github.com/dom/institutional-site/internal/service"
	"github.com/dom/institutional-site/internal/storage"
	"github.com/dom/institutional-site/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestTestimonialService_CreateAndList(t *testing.T) {
	repos := testutil.NewMemoryRepositories()
	svc := service.NewTestimonialService(repos.Testimonial)
	ctx := context.Background()

	tests := []struct {
		name     string
		input    service.CreateTestimonialInput
		validate bool
	}{
		{name: "valid", input: service.CreateTestimonialInput{Name: "Maria", Content: "The program changed my life.", Date: "2024-03-01"}},
		{name: "defaults date", input: service.CreateTestimonialInput{Name: "João", Content: "Great volunteers all around."}},
		{name: "short name", input: service.CreateTestimonialInput{Name: "Al", Content: "Great volunteers all around."}, validate: true},
		{name: "short content", input: service.CreateTestimonialInput{Name: "Maria", Content: "Nice"}, validate: true},
		{name: "bad date", input: service.CreateTestimonialInput{Name: "Maria", Content: "Great volunteers all around.", Date: "03/01/2024"}, validate: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Create(ctx, tt.input)
			if tt.validate {
				assert.True(t, domain.IsValidation(err), "expected validation error, got %v", err)
				return
			}
			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, got.ID)
			assert.True(t, got.IsPublished)
		})
	}

	page, err := svc.ListPublished(ctx, domain.NewPage(1, 10))
	require.NoError(t, err)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "João", page.Data[0].Name, "newest first")
	assert.Equal(t, int64(2), page.Meta.TotalItems)
	assert.Equal(t, 1, page.Meta.TotalPages)
}

func TestTestimonialService_UpdateHidesUnpublished(t *testing.T) {
	repos := testutil.NewMemoryRepositories()
	svc := service.NewTestimonialService(repos.Testimonial)
	ctx := context.Background()

	created, err := svc.Create(ctx, service.CreateTestimonialInput{Name: "Maria", Content: "The program changed my life."})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, service.UpdateTestimonialInput{
		Content:     ptr("An updated story worth telling."),
		IsPublished: ptr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, "Maria", updated.Name, "untouched fields survive a partial update")
	assert.Equal(t, "An updated story worth telling.", updated.Content)

	_, err = svc.GetPublished(ctx, created.ID)
	assert.ErrorIs(t, err, service.ErrTestimonialNotFound)

	page, err := svc.ListPublished(ctx, domain.NewPage(1, 10))
	require.NoError(t, err)
	assert.Empty(t, page.Data)

	_, err = svc.Update(ctx, created.ID, service.UpdateTestimonialInput{Name: ptr("Al")})
	assert.True(t, domain.IsValidation(err))

	_, err = svc.Update(ctx, uuid.New(), service.UpdateTestimonialInput{Name: ptr("Somebody")})
	assert.ErrorIs(t, err, service.ErrTestimonialNotFound)

	require.NoError(t, svc.Delete(ctx, created.ID))
	assert.ErrorIs(t, svc.Delete(ctx, created.ID), service.ErrTestimonialNotFound)
}

func TestCommemorativeDateService(t *testing.T) {
	repos := testutil.NewMemoryRepositories()
	svc := service.NewCommemorativeDateService(repos.CommemorativeDate)
	ctx := context.Background()

	for _, in := range []service.CreateCommemorativeDateInput{
		{Name: "Founding Day", Description: "Anniversary of the institute.", Date: "2024-09-12"},
		{Name: "Volunteer Day", Description: "International volunteer day.", Date: "2024-12-05"},
		{Name: "Earth Day", Description: "Environmental awareness day.", Date: "2025-04-22"},
	} {
		_, err := svc.Create(ctx, in)
		require.NoError(t, err)
	}

	_, err := svc.Create(ctx, service.CreateCommemorativeDateInput{Name: "Day", Description: "Too short"})
	assert.True(t, domain.IsValidation(err))
	_, err = svc.Create(ctx, service.CreateCommemorativeDateInput{Name: "Missing date", Description: "Has no date at all."})
	assert.True(t, domain.IsValidation(err))

	all, err := svc.List(ctx, domain.CalendarFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Founding Day", all[0].Name, "ascending by date")
	assert.Equal(t, "Earth Day", all[2].Name)

	y2024, err := svc.List(ctx, domain.CalendarFilter{Year: 2024})
	require.NoError(t, err)
	assert.Len(t, y2024, 2)

	december, err := svc.List(ctx, domain.CalendarFilter{Month: time.December})
	require.NoError(t, err)
	require.Len(t, december, 1)
	assert.Equal(t, "Volunteer Day", december[0].Name)

	_, err = svc.List(ctx, domain.CalendarFilter{Month: 13})
	assert.True(t, domain.IsValidation(err))

	updated, err := svc.Update(ctx, all[0].ID, service.UpdateCommemorativeDateInput{Date: ptr("2025-09-12")})
	require.NoError(t, err)
	assert.Equal(t, 2025, time.Time(updated.Date).Year())
	assert.Equal(t, "Founding Day", updated.Name)

	require.NoError(t, svc.Delete(ctx, all[0].ID))
	_, err = svc.Get(ctx, all[0].ID)
	assert.ErrorIs(t, err, service.ErrCommemorativeDateNotFound)
}

func newTimelineFixture(t *testing.T) (*service.TimelineService, *testutil.MemoryRepositories, *storage.DiskStore) {
	t.Helper()
	repos := testutil.NewMemoryRepositories()
	store, err := storage.NewDiskStore(t.TempDir(), "/uploads")
	require.NoError(t, err)
	return service.NewTimelineService(repos.TimelinePost, store, logs.Discard()), repos, store
}

func pngUpload() *service.ImageUpload {
	return &service.ImageUpload{
		Filename:    "photo.PNG",
		ContentType: "image/png",
		Size:        int64(len(testutil.PNG)),
		Body:        bytes.NewReader(testutil.PNG),
	}
}

func imageExists(store *storage.DiskStore, key string) bool {
	_, err := os.Stat(filepath.Join(store.Root(), filepath.FromSlash(key)))
	return err == nil
}

func TestTimelineService_Lifecycle(t *testing.T) {
	svc, _, store := newTimelineFixture(t)
	ctx := context.Background()

	post, err := svc.Create(ctx, service.CreateTimelinePostInput{
		Title:       "Community garden",
		Description: "We planted forty trees this spring.",
		Image:       pngUpload(),
	})
	require.NoError(t, err)
	assert.True(t, post.IsPublished)
	assert.Regexp(t, `^/uploads/timeline-posts/[0-9a-f-]{36}\.png$`, post.ImageURL)
	assert.WithinDuration(t, time.Now(), post.PostDate, time.Minute)
	firstKey := post.ImageKey
	require.True(t, imageExists(store, firstKey))

	updated, err := svc.Update(ctx, post.ID, service.UpdateTimelinePostInput{Title: ptr("Community garden, year two")})
	require.NoError(t, err)
	assert.Equal(t, firstKey, updated.ImageKey, "image kept without a new upload")

	updated, err = svc.Update(ctx, post.ID, service.UpdateTimelinePostInput{Image: pngUpload()})
	require.NoError(t, err)
	assert.NotEqual(t, firstKey, updated.ImageKey)
	assert.False(t, imageExists(store, firstKey), "replaced image is removed")
	assert.True(t, imageExists(store, updated.ImageKey))

	page, err := svc.ListPublished(ctx, domain.NewPage(1, 10))
	require.NoError(t, err)
	assert.Len(t, page.Data, 1)

	require.NoError(t, svc.Delete(ctx, post.ID))
	assert.False(t, imageExists(store, updated.ImageKey))
	assert.ErrorIs(t, svc.Delete(ctx, post.ID), service.ErrTimelinePostNotFound)
}

func TestTimelineService_Validation(t *testing.T) {
	svc, _, _ := newTimelineFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input service.CreateTimelinePostInput
	}{
		{name: "missing image", input: service.CreateTimelinePostInput{Title: "Community garden", Description: "We planted forty trees."}},
		{name: "short title", input: service.CreateTimelinePostInput{Title: "Tree", Description: "We planted forty trees.", Image: pngUpload()}},
		{name: "short description", input: service.CreateTimelinePostInput{Title: "Community garden", Description: "Trees", Image: pngUpload()}},
		{name: "not an image", input: service.CreateTimelinePostInput{
			Title: "Community garden", Description: "We planted forty trees.",
			Image: &service.ImageUpload{Filename: "notes.txt", ContentType: "text/plain", Size: 4, Body: bytes.NewReader([]byte("text"))},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.input)
			assert.True(t, domain.IsValidation(err), "expected validation error, got %v", err)
		})
	}
}

func TestTimelineService_CreateFailureRemovesImage(t *testing.T) {
	svc, repos, store := newTimelineFixture(t)
	repos.TimelinePost.FailCreate = errors.New("db down")

	_, err := svc.Create(context.Background(), service.CreateTimelinePostInput{
		Title:       "Community garden",
		Description: "We planted forty trees this spring.",
		Image:       pngUpload(),
	})
	require.Error(t, err)

	entries, err := os.ReadDir(filepath.Join(store.Root(), "timeline-posts"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestContactService_Send(t *testing.T) {
	ctx := context.Background()
	valid := service.ContactInput{
		Name:    "Ana",
		Email:   "ana@example.org",
		Subject: "Volunteering",
		Message: "How can I help?",
		Attachment: &mailer.Attachment{
			Filename: "cv.pdf",
			Content:  []byte("%PDF-1.4"),
		},
	}

	t.Run("delivers", func(t *testing.T) {
		m := &testutil.RecordingMailer{}
		svc := service.NewContactService(m, logs.Discard())
		require.NoError(t, svc.Send(ctx, valid))
		require.Len(t, m.Contacts, 1)
		assert.Equal(t, "cv.pdf", m.Contacts[0].Attachment.Filename)
	})

	t.Run("no mailer", func(t *testing.T) {
		svc := service.NewContactService(nil, logs.Discard())
		assert.ErrorIs(t, svc.Send(ctx, valid), service.ErrMailerUnavailable)
	})

	t.Run("missing fields", func(t *testing.T) {
		svc := service.NewContactService(&testutil.RecordingMailer{}, logs.Discard())
		err := svc.Send(ctx, service.ContactInput{Name: "Ana"})
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("oversized attachment", func(t *testing.T) {
		svc := service.NewContactService(&testutil.RecordingMailer{}, logs.Discard())
		in := valid
		in.Attachment = &mailer.Attachment{Filename: "big.bin", Content: make([]byte, service.MaxAttachmentBytes+1)}
		assert.True(t, domain.IsValidation(svc.Send(ctx, in)))
	})
}
