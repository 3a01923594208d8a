package handlers

import (
	"net/http"

	"github.com/dom/institutional-site/internal/api/respond"
	"github.com/dom/institutional-site/internal/service"
)

type TestimonialHandler struct {
	testimonialService *service.TestimonialService
}

func NewTestimonialHandler(testimonialService *service.TestimonialService) *TestimonialHandler {
	return &TestimonialHandler{testimonialService: testimonialService}
}

type CreateTestimonialRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	Date    string `json:"date"`
}

// UpdateTestimonialRequest fields are optional; absent ones stay unchanged.
type UpdateTestimonialRequest struct {
	Name        *string `json:"name"`
	Content     *string `json:"content"`
	Date        *string `json:"date"`
	IsPublished *bool   `json:"isPublished"`
}

func (h *TestimonialHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.testimonialService.ListPublished(r.Context(), pageFromQuery(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, page)
}

func (h *TestimonialHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	t, err := h.testimonialService.GetPublished(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, t)
}

func (h *TestimonialHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTestimonialRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	t, err := h.testimonialService.Create(r.Context(), service.CreateTestimonialInput{
		Name:    req.Name,
		Content: req.Content,
		Date:    req.Date,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, t)
}

func (h *TestimonialHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req UpdateTestimonialRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	t, err := h.testimonialService.Update(r.Context(), id, service.UpdateTestimonialInput{
		Name:        req.Name,
		Content:     req.Content,
		Date:        req.Date,
		IsPublished: req.IsPublished,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, t)
}

func (h *TestimonialHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.testimonialService.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	respond.NoContent(w)
}
