package handlers

import (
	"net/http"

	"github.com/dom/institutional-site/internal/api/middleware"
	"github.com/dom/institutional-site/internal/api/respond"
	"github.com/dom/institutional-site/internal/service"
)

type ProfileHandler struct {
	authService *service.AuthService
}

func NewProfileHandler(authService *service.AuthService) *ProfileHandler {
	return &ProfileHandler{authService: authService}
}

// GetProfile returns the account behind the current session
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, r, service.ErrUnauthenticated)
		return
	}

	user, err := h.authService.GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, newUserResponse(user))
}
