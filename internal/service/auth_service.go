package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dom/institutional-site/internal/auth"
	"github.com/dom/institutional-site/internal/config"
	"github.com/dom/institutional-site/internal/domain"
	"github.com/dom/institutional-site/internal/logs"
	"github.com/dom/institutional-site/internal/mailer"
	"github.com/dom/institutional-site/internal/repository"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrUnauthenticated      = errors.New("authentication required")
	ErrForbidden            = errors.New("insufficient permissions")
	ErrUsernameExists       = errors.New("username already exists")
	ErrEmailExists          = errors.New("email already exists")
	ErrUserNotFound         = errors.New("user not found")
	ErrWrongCurrentPassword = errors.New("current password is incorrect")
	ErrInvalidResetToken    = errors.New("invalid or expired token")
)

// ForgotPasswordMessage is returned for every forgot-password request.
const ForgotPasswordMessage = "If this account exists, password reset instructions have been sent."

type AuthService struct {
	userRepo  repository.UserRepository
	hasher    *auth.PasswordHasher
	tokens    *auth.TokenService
	mailer    mailer.Mailer
	cfg       *config.Config
	log       logrus.FieldLogger
	now       func() time.Time
	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService wires the credential flows. m may be nil when SMTP is not configured.
func NewAuthService(
	userRepo repository.UserRepository,
	hasher *auth.PasswordHasher,
	tokens *auth.TokenService,
	m mailer.Mailer,
	cfg *config.Config,
	log logrus.FieldLogger,
) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		hasher:   hasher,
		tokens:   tokens,
		mailer:   m,
		cfg:      cfg,
		log:      log.WithField("component", "auth"),
		now:      time.Now,
	}
}

// SetClock overrides the time source. Used by tests.
func (s *AuthService) SetClock(now func() time.Time) {
	s.now = now
}

type LoginInput struct {
	Username string
	Password string
}

type LoginResult struct {
	Token string
	User  *domain.User
}

type RegisterInput struct {
	Name     string
	Username string
	Password string
	Role     domain.UserRole
	Email    string
}

type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
}

// ForgotPasswordInput names the account by username or email. Identifier may be either.
type ForgotPasswordInput struct {
	Username   string
	Email      string
	Identifier string
}

type ForgotPasswordResult struct {
	Message string
	// Token is only set outside production when no email could be sent.
	Token string
}

type ResetPasswordInput struct {
	Token       string
	NewPassword string
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return nil, domain.NewValidationError("", "username and password are required")
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Burn the same bcrypt time as a real comparison.
			s.hasher.Verify(input.Password, s.placeholderHash())
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if !s.hasher.Verify(input.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.IssueSessionToken(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, err
	}

	return &LoginResult{Token: token, User: user}, nil
}

// Register creates an account on behalf of an authenticated admin.
func (s *AuthService) Register(ctx context.Context, requester *auth.Claims, input RegisterInput) (*domain.User, error) {
	if requester == nil {
		return nil, ErrUnauthenticated
	}
	if requester.Role != domain.UserRoleAdmin {
		return nil, ErrForbidden
	}

	name := strings.TrimSpace(input.Name)
	username := strings.TrimSpace(input.Username)
	if name == "" || username == "" || input.Password == "" || input.Role == "" {
		return nil, domain.NewValidationError("", "name, username, password and role are required")
	}
	if !input.Role.IsValid() {
		return nil, domain.NewValidationError("role", "must be ADMIN or EMPLOYEE")
	}
	if err := checkPasswordBytes("password", input.Password); err != nil {
		return nil, err
	}

	var email *string
	if e := strings.TrimSpace(input.Email); e != "" {
		if !strings.Contains(e, "@") {
			return nil, domain.NewValidationError("email", "is not a valid address")
		}
		email = &e
	}

	if _, err := s.userRepo.GetByUsername(ctx, username); err == nil {
		return nil, ErrUsernameExists
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:     username,
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         input.Role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			// Lost a race on username, or the email is taken.
			if email != nil {
				if _, lookupErr := s.userRepo.GetByEmail(ctx, *email); lookupErr == nil {
					return nil, ErrEmailExists
				}
			}
			return nil, ErrUsernameExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"user_id":    user.ID,
		"role":       user.Role,
		"created_by": requester.UserID,
	}).Info("user registered")

	return user, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID int64, input ChangePasswordInput) error {
	if input.CurrentPassword == "" || input.NewPassword == "" {
		return domain.NewValidationError("", "currentPassword and newPassword are required")
	}
	if err := s.checkNewPassword(input.NewPassword); err != nil {
		return err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("load user: %w", err)
	}

	if !s.hasher.Verify(input.CurrentPassword, user.PasswordHash) {
		return ErrWrongCurrentPassword
	}

	hash, err := s.hasher.Hash(input.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, user.ID, hash); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// ForgotPassword answers identically whether or not the account exists.
func (s *AuthService) ForgotPassword(ctx context.Context, input ForgotPasswordInput) (*ForgotPasswordResult, error) {
	result := &ForgotPasswordResult{Message: ForgotPasswordMessage}

	user, err := s.findForReset(ctx, input)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return result, nil
		}
		return nil, err
	}

	token, err := s.tokens.IssueResetToken()
	if err != nil {
		return nil, err
	}
	expiry := s.now().Add(s.cfg.ResetTokenTTL)
	if err := s.userRepo.SetResetToken(ctx, user.ID, token, expiry); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return result, nil
		}
		return nil, fmt.Errorf("store reset token: %w", err)
	}

	if s.deliverResetEmail(ctx, user, token) {
		return result, nil
	}
	if !s.cfg.IsProduction() {
		result.Token = token
	}
	return result, nil
}

func (s *AuthService) findForReset(ctx context.Context, input ForgotPasswordInput) (*domain.User, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(input.Email)
	identifier := strings.TrimSpace(input.Identifier)

	switch {
	case username != "":
		return s.userRepo.GetByUsername(ctx, username)
	case email != "":
		return s.userRepo.GetByEmail(ctx, email)
	case identifier != "":
		user, err := s.userRepo.GetByUsername(ctx, identifier)
		if errors.Is(err, domain.ErrNotFound) && strings.Contains(identifier, "@") {
			return s.userRepo.GetByEmail(ctx, identifier)
		}
		return user, err
	default:
		return nil, domain.NewValidationError("", "username or email is required")
	}
}

// deliverResetEmail reports whether the reset email went out. Failures are
// logged and never surface to the caller.
func (s *AuthService) deliverResetEmail(ctx context.Context, user *domain.User, token string) bool {
	log := s.log.WithField("user_id", user.ID)
	if s.mailer == nil {
		if s.cfg.IsProduction() {
			logs.Configuration(log).Warn("password reset requested but no mailer is configured")
		}
		return false
	}
	if user.Email == nil || *user.Email == "" {
		log.Warn("password reset requested for account without email")
		return false
	}

	err := s.mailer.SendPasswordReset(ctx, mailer.PasswordReset{
		To:       *user.Email,
		UserName: user.Name,
		ResetURL: s.resetURL(token),
		TTL:      s.cfg.ResetTokenTTL,
	})
	if err != nil {
		log.WithError(err).Error("failed to send password reset email")
		return false
	}
	return true
}

func (s *AuthService) resetURL(token string) string {
	return s.cfg.PublicBaseURL + "/reset-password?" + url.Values{"token": {token}}.Encode()
}

// ResetPassword consumes a reset token. The token is single use.
func (s *AuthService) ResetPassword(ctx context.Context, input ResetPasswordInput) error {
	token := strings.TrimSpace(input.Token)
	if token == "" || input.NewPassword == "" {
		return domain.NewValidationError("", "token and newPassword are required")
	}
	if err := s.checkNewPassword(input.NewPassword); err != nil {
		return err
	}

	now := s.now()
	user, err := s.userRepo.GetByResetToken(ctx, token, now)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("load reset token: %w", err)
	}
	if user.ResetTokenExpiry == nil || auth.IsResetTokenExpired(*user.ResetTokenExpiry, now) {
		return ErrInvalidResetToken
	}

	hash, err := s.hasher.Hash(input.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.userRepo.ConsumeResetToken(ctx, token, now, hash); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("consume reset token: %w", err)
	}

	s.log.WithField("user_id", user.ID).Info("password reset completed")
	return nil
}

func (s *AuthService) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// VerifyToken exposes session token verification to the HTTP gate.
func (s *AuthService) VerifyToken(token string) (*auth.Claims, error) {
	return s.tokens.VerifySessionToken(token)
}

// EnsureAdmin creates an ADMIN account unless the username is already taken.
// It reports whether a user was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, input RegisterInput) (bool, error) {
	input.Role = domain.UserRoleAdmin
	_, err := s.Register(ctx, &auth.Claims{Role: domain.UserRoleAdmin}, input)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrUsernameExists):
		return false, nil
	default:
		return false, err
	}
}

func (s *AuthService) checkNewPassword(password string) error {
	if len([]rune(password)) < s.cfg.PasswordMinLength {
		return domain.NewValidationError("newPassword", "must have at least %d characters", s.cfg.PasswordMinLength)
	}
	return checkPasswordBytes("newPassword", password)
}

// checkPasswordBytes rejects input bcrypt cannot hash.
func checkPasswordBytes(field, password string) error {
	if len(password) > auth.MaxPasswordBytes {
		return domain.NewValidationError(field, "must be at most %d bytes", auth.MaxPasswordBytes)
	}
	return nil
}

func (s *AuthService) placeholderHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("placeholder-password")
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}
