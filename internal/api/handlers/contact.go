package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/dom/institutional-site/internal/api/respond"
	"github.com/dom/institutional-site/internal/domain"
	"github.com/dom/institutional-site/internal/mailer"
	"github.com/dom/institutional-site/internal/service"
)

type ContactHandler struct {
	contactService *service.ContactService
}

func NewContactHandler(contactService *service.ContactService) *ContactHandler {
	return &ContactHandler{contactService: contactService}
}

// Send relays a contact form (multipart, optional "attachment" file) by email.
func (h *ContactHandler) Send(w http.ResponseWriter, r *http.Request) {
	if err := parseMultipart(w, r); err != nil {
		writeError(w, r, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	attachment, err := formAttachment(r, "attachment")
	if err != nil {
		writeError(w, r, err)
		return
	}

	err = h.contactService.Send(r.Context(), service.ContactInput{
		Name:       r.FormValue("name"),
		Email:      r.FormValue("email"),
		Phone:      r.FormValue("phone"),
		Subject:    r.FormValue("subject"),
		Message:    r.FormValue("message"),
		Attachment: attachment,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	respond.Message(w, http.StatusOK, "message sent")
}

func formAttachment(r *http.Request, name string) (*mailer.Attachment, error) {
	file, header, err := r.FormFile(name)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewValidationError(name, "could not be read")
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, service.MaxAttachmentBytes+1))
	if err != nil {
		return nil, domain.NewValidationError(name, "could not be read")
	}
	return &mailer.Attachment{Filename: header.Filename, Content: content}, nil
}
