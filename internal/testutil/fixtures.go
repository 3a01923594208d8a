package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"sync"
	"testing"

	"github.com/dom/institutional-site/internal/domain"
	"github.com/dom/institutional-site/internal/mailer"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserBuilder creates test users with a builder pattern
type UserBuilder struct {
	username string
	name     string
	email    string
	password string
	role     domain.UserRole
}

// NewUserBuilder creates a new UserBuilder with default values
func NewUserBuilder() *UserBuilder {
	suffix := uuid.New().String()[:8]
	return &UserBuilder{
		username: "user_" + suffix,
		name:     "Test User " + suffix,
		password: "testpassword123",
		role:     domain.UserRoleEmployee,
	}
}

func (b *UserBuilder) WithUsername(username string) *UserBuilder {
	b.username = username
	return b
}

func (b *UserBuilder) WithName(name string) *UserBuilder {
	b.name = name
	return b
}

func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.email = email
	return b
}

// WithPassword sets the password
func (b *UserBuilder) WithPassword(password string) *UserBuilder {
	b.password = password
	return b
}

func (b *UserBuilder) WithRole(role domain.UserRole) *UserBuilder {
	b.role = role
	return b
}

// Admin is shorthand for WithRole(domain.UserRoleAdmin).
func (b *UserBuilder) Admin() *UserBuilder {
	return b.WithRole(domain.UserRoleAdmin)
}

func (b *UserBuilder) user(t *testing.T) *domain.User {
	t.Helper()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(b.password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &domain.User{
		Username:     b.username,
		Name:         b.name,
		PasswordHash: string(hashedPassword),
		Role:         b.role,
	}
	if b.email != "" {
		email := b.email
		user.Email = &email
	}
	return user
}

// Build creates the user in the database and returns the user with the raw password
func (b *UserBuilder) Build(t *testing.T, db *gorm.DB) (*domain.User, string) {
	t.Helper()

	user := b.user(t)
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user, b.password
}

// BuildMemory stores the user in an in-memory repository.
func (b *UserBuilder) BuildMemory(t *testing.T, repo *MemoryUserRepository) (*domain.User, string) {
	t.Helper()

	user := b.user(t)
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user, b.password
}

// BuildAndLogin stores the user in the test server and logs in through the API.
func (b *UserBuilder) BuildAndLogin(t *testing.T, ts *TestServer) (*domain.User, string) {
	t.Helper()

	user, password := b.BuildMemory(t, ts.Memory.User)
	return user, Login(t, ts, user.Username, password)
}

// Login posts credentials to the login endpoint and returns the session token.
func Login(t *testing.T, ts *TestServer, username, password string) string {
	t.Helper()

	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := http.Post(ts.APIURL("/auth/login"), "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("failed to log in: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected login status code: %d", resp.StatusCode)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode login response: %v", err)
	}
	return out.Token
}

// RecordingMailer captures outgoing mail instead of sending it.
type RecordingMailer struct {
	mu       sync.Mutex
	Resets   []mailer.PasswordReset
	Contacts []mailer.Contact
	// Err is returned from every send when set.
	Err error
}

func (m *RecordingMailer) SendPasswordReset(_ context.Context, msg mailer.PasswordReset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Resets = append(m.Resets, msg)
	return nil
}

func (m *RecordingMailer) SendContact(_ context.Context, msg mailer.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Contacts = append(m.Contacts, msg)
	return nil
}

// LastReset returns the most recent password reset email, if any.
func (m *RecordingMailer) LastReset() (mailer.PasswordReset, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Resets) == 0 {
		return mailer.PasswordReset{}, false
	}
	return m.Resets[len(m.Resets)-1], true
}

// PNG is a minimal payload that sniffs as image/png.
var PNG = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

// MultipartForm builds a multipart body from text fields and an optional file
// under the given field name.
func MultipartForm(t *testing.T, fields map[string]string, fileField, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("failed to write field %s: %v", k, err)
		}
	}
	if fileField != "" {
		part, err := w.CreateFormFile(fileField, filename)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("failed to write form file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

// AuthRequest builds a request with a bearer token.
func AuthRequest(t *testing.T, method, url, token string, body *bytes.Buffer, contentType string) *http.Request {
	t.Helper()

	var req *http.Request
	var err error
	if body == nil {
		req, err = http.NewRequest(method, url, nil)
	} else {
		req, err = http.NewRequest(method, url, body)
	}
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}
	return req
}

// JSONBody encodes v for use with AuthRequest.
func JSONBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to encode body: %v", err)
	}
	return bytes.NewBuffer(body)
}

// Do sends req with the default client.
func Do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}
