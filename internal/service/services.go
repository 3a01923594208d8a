package service

import (
	"github.com/dom/institutional-site/internal/auth"
	"github.com/dom/institutional-site/internal/config"
	"github.com/dom/institutional-site/internal/mailer"
	"github.com/dom/institutional-site/internal/repository"
	"github.com/dom/institutional-site/internal/storage"
	"github.com/sirupsen/logrus"
)

type Services struct {
	Auth              *AuthService
	Testimonial       *TestimonialService
	CommemorativeDate *CommemorativeDateService
	Timeline          *TimelineService
	Contact           *ContactService
}

// NewServices wires every service. m may be nil when SMTP is not configured.
func NewServices(
	repos *repository.Repositories,
	tokens *auth.TokenService,
	images storage.ImageStore,
	m mailer.Mailer,
	cfg *config.Config,
	log logrus.FieldLogger,
) *Services {
	hasher := auth.NewPasswordHasher(cfg.BcryptCost)
	return &Services{
		Auth:              NewAuthService(repos.User, hasher, tokens, m, cfg, log),
		Testimonial:       NewTestimonialService(repos.Testimonial),
		CommemorativeDate: NewCommemorativeDateService(repos.CommemorativeDate),
		Timeline:          NewTimelineService(repos.TimelinePost, images, log),
		Contact:           NewContactService(m, log),
	}
}
