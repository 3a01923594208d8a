package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dom/institutional-site/internal/api/respond"
	"github.com/dom/institutional-site/internal/domain"
	"github.com/dom/institutional-site/internal/service"
)

type CommemorativeDateHandler struct {
	dateService *service.CommemorativeDateService
}

func NewCommemorativeDateHandler(dateService *service.CommemorativeDateService) *CommemorativeDateHandler {
	return &CommemorativeDateHandler{dateService: dateService}
}

type CommemorativeDateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

type UpdateCommemorativeDateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
}

// List supports optional ?year= and ?month= filters
func (h *CommemorativeDateHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := calendarFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	dates, err := h.dateService.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, dates)
}

func (h *CommemorativeDateHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	d, err := h.dateService.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, d)
}

func (h *CommemorativeDateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CommemorativeDateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	d, err := h.dateService.Create(r.Context(), service.CreateCommemorativeDateInput{
		Name:        req.Name,
		Description: req.Description,
		Date:        req.Date,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, d)
}

func (h *CommemorativeDateHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req UpdateCommemorativeDateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	d, err := h.dateService.Update(r.Context(), id, service.UpdateCommemorativeDateInput{
		Name:        req.Name,
		Description: req.Description,
		Date:        req.Date,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, d)
}

func (h *CommemorativeDateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.dateService.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	respond.NoContent(w)
}

func calendarFilter(r *http.Request) (domain.CalendarFilter, error) {
	var filter domain.CalendarFilter
	q := r.URL.Query()
	if v := q.Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			return filter, domain.NewValidationError("year", "must be a number")
		}
		filter.Year = year
	}
	if v := q.Get("month"); v != "" {
		month, err := strconv.Atoi(v)
		if err != nil {
			return filter, domain.NewValidationError("month", "must be a number")
		}
		filter.Month = time.Month(month)
	}
	return filter, nil
}
