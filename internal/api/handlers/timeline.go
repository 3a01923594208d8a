package handlers

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/dom/institutional-site/internal/api/respond"
	"github.com/dom/institutional-site/internal/domain"
	"github.com/dom/institutional-site/internal/service"
)

const (
	maxUploadBytes = 10 << 20
	sniffLen       = 512
)

type TimelineHandler struct {
	timelineService *service.TimelineService
}

func NewTimelineHandler(timelineService *service.TimelineService) *TimelineHandler {
	return &TimelineHandler{timelineService: timelineService}
}

func (h *TimelineHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.timelineService.ListPublished(r.Context(), pageFromQuery(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, page)
}

func (h *TimelineHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	post, err := h.timelineService.GetPublished(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, post)
}

// Create expects multipart/form-data with title, description and an image file.
func (h *TimelineHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := parseMultipart(w, r); err != nil {
		writeError(w, r, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	image, err := formImage(r, "image")
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer closeImage(image)

	post, err := h.timelineService.Create(r.Context(), service.CreateTimelinePostInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Image:       image,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, post)
}

// Update accepts the same form as Create; every part is optional.
func (h *TimelineHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := parseMultipart(w, r); err != nil {
		writeError(w, r, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	input := service.UpdateTimelinePostInput{
		Title:       formField(r, "title"),
		Description: formField(r, "description"),
	}
	if v := formField(r, "isPublished"); v != nil {
		published, err := strconv.ParseBool(*v)
		if err != nil {
			writeError(w, r, domain.NewValidationError("isPublished", "must be true or false"))
			return
		}
		input.IsPublished = &published
	}
	if input.Image, err = formImage(r, "image"); err != nil {
		writeError(w, r, err)
		return
	}
	defer closeImage(input.Image)

	post, err := h.timelineService.Update(r.Context(), id, input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, post)
}

func (h *TimelineHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.timelineService.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	respond.NoContent(w)
}

func parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.NewValidationError("", "upload exceeds %d bytes", maxUploadBytes)
		}
		return domain.NewValidationError("", "expected multipart/form-data body")
	}
	return nil
}

// formField returns nil when the field was not sent.
func formField(r *http.Request, name string) *string {
	values, ok := r.MultipartForm.Value[name]
	if !ok || len(values) == 0 {
		return nil
	}
	return &values[0]
}

// formImage returns nil when no file was sent under name. The content type is
// sniffed from the bytes rather than trusted from the client.
func formImage(r *http.Request, name string) (*service.ImageUpload, error) {
	file, header, err := r.FormFile(name)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewValidationError(name, "could not be read")
	}

	head, contentType, err := sniff(file)
	if err != nil {
		file.Close()
		return nil, domain.NewValidationError(name, "could not be read")
	}

	return &service.ImageUpload{
		Filename:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Body:        uploadBody{Reader: io.MultiReader(bytes.NewReader(head), file), Closer: file},
	}, nil
}

type uploadBody struct {
	io.Reader
	io.Closer
}

func closeImage(image *service.ImageUpload) {
	if image == nil {
		return
	}
	if c, ok := image.Body.(io.Closer); ok {
		c.Close()
	}
}

func sniff(file multipart.File) ([]byte, string, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, "", err
	}
	head = head[:n]
	return head, http.DetectContentType(head), nil
}
