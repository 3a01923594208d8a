package service

import (
	"context"
	"errors"
	"strings"

	"github.com/dom/institutional-site/internal/domain"
	"github.com/dom/institutional-site/internal/mailer"
	"github.com/sirupsen/logrus"
)

var ErrMailerUnavailable = errors.New("email delivery is not available")

// MaxAttachmentBytes caps the contact form attachment.
const MaxAttachmentBytes = 5 << 20

type ContactService struct {
	mailer mailer.Mailer
	log    logrus.FieldLogger
}

// NewContactService accepts a nil mailer; Send then fails with ErrMailerUnavailable.
func NewContactService(m mailer.Mailer, log logrus.FieldLogger) *ContactService {
	return &ContactService{mailer: m, log: log.WithField("component", "contact")}
}

type ContactInput struct {
	Name       string
	Email      string
	Phone      string
	Subject    string
	Message    string
	Attachment *mailer.Attachment
}

func (s *ContactService) Send(ctx context.Context, input ContactInput) error {
	msg := mailer.Contact{
		Name:       strings.TrimSpace(input.Name),
		Email:      strings.TrimSpace(input.Email),
		Phone:      strings.TrimSpace(input.Phone),
		Subject:    strings.TrimSpace(input.Subject),
		Message:    strings.TrimSpace(input.Message),
		Attachment: input.Attachment,
	}
	if msg.Name == "" || msg.Email == "" || msg.Subject == "" || msg.Message == "" {
		return domain.NewValidationError("", "name, email, subject and message are required")
	}
	if !strings.Contains(msg.Email, "@") {
		return domain.NewValidationError("email", "is not a valid address")
	}
	if msg.Attachment != nil && len(msg.Attachment.Content) > MaxAttachmentBytes {
		return domain.NewValidationError("attachment", "must be at most %d bytes", MaxAttachmentBytes)
	}

	if s.mailer == nil {
		return ErrMailerUnavailable
	}
	if err := s.mailer.SendContact(ctx, msg); err != nil {
		if errors.Is(err, mailer.ErrNotConfigured) {
			return ErrMailerUnavailable
		}
		s.log.WithError(err).Error("failed to send contact message")
		return err
	}
	return nil
}
