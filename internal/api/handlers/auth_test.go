package handlers_test

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dom/institutional-site/internal/auth"
	"github.com/dom/institutional-site/internal/config"
	"github.com/dom/institutional-site/internal/domain"
	"github.com/dom/institutional-site/internal/service"
	"github.com/dom/institutional-site/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthHandler_LoginRoundTrip(t *testing.T) {
	ts := testutil.NewTestServer(t)
	user, password := testutil.NewUserBuilder().
		WithUsername("jsmith").
		Admin().
		BuildMemory(t, ts.Memory.User)

	token := testutil.Login(t, ts, "jsmith", password)

	claims, err := ts.Tokens.VerifySessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, domain.UserRoleAdmin, claims.Role)

	resp := testutil.Do(t, testutil.AuthRequest(t, http.MethodGet, ts.APIURL("/users/me"), token, nil, ""))
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	var me struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
		Role     string `json:"role"`
	}
	testutil.AssertJSONResponse(t, resp, &me)
	assert.Equal(t, user.ID, me.ID)
	assert.Equal(t, "jsmith", me.Username)
	assert.Equal(t, "ADMIN", me.Role)
}

func TestAuthHandler_Login(t *testing.T) {
	ts := testutil.NewTestServer(t)
	testutil.NewUserBuilder().
		WithUsername("jsmith").
		WithPassword("correct-horse").
		BuildMemory(t, ts.Memory.User)

	tests := []struct {
		name           string
		body           any
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "wrong password",
			body:           map[string]string{"username": "jsmith", "password": "battery-staple"},
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "invalid credentials",
		},
		{
			name:           "unknown user",
			body:           map[string]string{"username": "nobody", "password": "battery-staple"},
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "invalid credentials",
		},
		{
			name:           "missing password",
			body:           map[string]string{"username": "jsmith"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "required",
		},
		{
			name:           "wrong field types",
			body:           map[string]int{"username": 1},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.AuthRequest(t, http.MethodPost, ts.APIURL("/auth/login"), "", testutil.JSONBody(t, tt.body), "application/json")
			resp := testutil.Do(t, req)
			testutil.AssertErrorResponse(t, resp, tt.expectedStatus, tt.expectedError)
		})
	}
}

func TestAuthHandler_LoginFailuresLookAlike(t *testing.T) {
	ts := testutil.NewTestServer(t)
	testutil.NewUserBuilder().WithUsername("jsmith").BuildMemory(t, ts.Memory.User)

	bodyFor := func(username string) string {
		req := testutil.AuthRequest(t, http.MethodPost, ts.APIURL("/auth/login"), "",
			testutil.JSONBody(t, map[string]string{"username": username, "password": "nope-nope"}), "application/json")
		resp := testutil.Do(t, req)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return string(raw)
	}

	assert.Equal(t, bodyFor("jsmith"), bodyFor("ghost"))
}

func TestAuthHandler_ExpiredSessionRejected(t *testing.T) {
	ts := testutil.NewTestServer(t)
	user, _ := testutil.NewUserBuilder().Admin().BuildMemory(t, ts.Memory.User)

	issuedLongAgo := func() time.Time { return time.Now().Add(-25 * time.Hour) }
	oldTokens, err := auth.NewTokenService(ts.Config.JWTSecret, ts.Config.JWTTTL(), auth.WithClock(issuedLongAgo))
	require.NoError(t, err)
	token, err := oldTokens.IssueSessionToken(user.ID, user.Username, user.Role)
	require.NoError(t, err)

	resp := testutil.Do(t, testutil.AuthRequest(t, http.MethodGet, ts.APIURL("/users/me"), token, nil, ""))
	testutil.AssertErrorResponse(t, resp, http.StatusUnauthorized, "invalid or expired token")
}

func TestAuthGate_Matrix(t *testing.T) {
	ts := testutil.NewTestServer(t)
	_, adminToken := testutil.NewUserBuilder().Admin().BuildAndLogin(t, ts)
	_, employeeToken := testutil.NewUserBuilder().BuildAndLogin(t, ts)

	forged, err := auth.NewTokenService("some-other-secret", time.Hour)
	require.NoError(t, err)
	forgedToken, err := forged.IssueSessionToken(1, "admin", domain.UserRoleAdmin)
	require.NoError(t, err)

	adminOnly := ts.APIURL("/testimonials/" + uuid.NewString())
	adminOrEmployee := ts.APIURL("/commemorative-dates/" + uuid.NewString())

	tests := []struct {
		name           string
		url            string
		token          string
		expectedStatus int
	}{
		{name: "admin on admin route", url: adminOnly, token: adminToken, expectedStatus: http.StatusNotFound},
		{name: "employee on admin route", url: adminOnly, token: employeeToken, expectedStatus: http.StatusForbidden},
		{name: "anonymous on admin route", url: adminOnly, expectedStatus: http.StatusUnauthorized},
		{name: "forged token on admin route", url: adminOnly, token: forgedToken, expectedStatus: http.StatusUnauthorized},
		{name: "garbage token on admin route", url: adminOnly, token: "not.a.jwt", expectedStatus: http.StatusUnauthorized},
		{name: "admin on staff route", url: adminOrEmployee, token: adminToken, expectedStatus: http.StatusNotFound},
		{name: "employee on staff route", url: adminOrEmployee, token: employeeToken, expectedStatus: http.StatusNotFound},
		{name: "anonymous on staff route", url: adminOrEmployee, expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := testutil.Do(t, testutil.AuthRequest(t, http.MethodDelete, tt.url, tt.token, nil, ""))
			testutil.AssertStatusCode(t, resp, tt.expectedStatus)
		})
	}
}

func TestAuthHandler_Register(t *testing.T) {
	ts := testutil.NewTestServer(t)
	_, adminToken := testutil.NewUserBuilder().Admin().BuildAndLogin(t, ts)
	_, employeeToken := testutil.NewUserBuilder().BuildAndLogin(t, ts)

	newHire := map[string]string{
		"name":     "New Hire",
		"username": "newhire",
		"password": "temp123",
		"role":     "EMPLOYEE",
	}

	t.Run("admin registers an employee", func(t *testing.T) {
		req := testutil.AuthRequest(t, http.MethodPost, ts.APIURL("/auth/register"), adminToken, testutil.JSONBody(t, newHire), "application/json")
		resp := testutil.Do(t, req)
		testutil.AssertStatusCode(t, resp, http.StatusCreated)

		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		testutil.AssertNoSecrets(t, raw)

		var body struct {
			User struct {
				ID       int64  `json:"id"`
				Username string `json:"username"`
				Role     string `json:"role"`
			} `json:"user"`
		}
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, "newhire", body.User.Username)
		assert.Equal(t, "EMPLOYEE", body.User.Role)
		assert.NotZero(t, body.User.ID)

		assert.NotEmpty(t, testutil.Login(t, ts, "newhire", "temp123"))
	})

	tests := []struct {
		name           string
		token          string
		body           map[string]string
		expectedStatus int
	}{
		{name: "duplicate username", token: adminToken, body: newHire, expectedStatus: http.StatusConflict},
		{name: "employee cannot register", token: employeeToken, body: newHire, expectedStatus: http.StatusForbidden},
		{name: "anonymous cannot register", body: newHire, expectedStatus: http.StatusUnauthorized},
		{
			name:           "invalid role",
			token:          adminToken,
			body:           map[string]string{"name": "X Y", "username": "xy", "password": "temp123", "role": "ROOT"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing fields",
			token:          adminToken,
			body:           map[string]string{"username": "xy"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "password over 72 bytes",
			token:          adminToken,
			body:           map[string]string{"name": "X Y", "username": "xy", "password": strings.Repeat("a", 73), "role": "EMPLOYEE"},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.AuthRequest(t, http.MethodPost, ts.APIURL("/auth/register"), tt.token, testutil.JSONBody(t, tt.body), "application/json")
			resp := testutil.Do(t, req)
			testutil.AssertStatusCode(t, resp, tt.expectedStatus)
		})
	}
}

func TestAuthHandler_ChangePassword(t *testing.T) {
	ts := testutil.NewTestServer(t)
	user, token := testutil.NewUserBuilder().
		WithUsername("jsmith").
		WithPassword("old-password").
		BuildAndLogin(t, ts)

	change := func(token, current, next string) *http.Response {
		body := testutil.JSONBody(t, map[string]string{"currentPassword": current, "newPassword": next})
		return testutil.Do(t, testutil.AuthRequest(t, http.MethodPost, ts.APIURL("/auth/change-password"), token, body, "application/json"))
	}

	testutil.AssertErrorResponse(t, change(token, "not-it", "new-password"), http.StatusForbidden, "current password is incorrect")
	testutil.AssertStatusCode(t, change(token, "old-password", "short"), http.StatusBadRequest)
	testutil.AssertStatusCode(t, change(token, "old-password", strings.Repeat("a", 73)), http.StatusBadRequest)
	testutil.AssertStatusCode(t, change("", "old-password", "new-password"), http.StatusUnauthorized)
	testutil.AssertStatusCode(t, change(token, "old-password", "new-password"), http.StatusOK)

	oldLogin := testutil.Do(t, testutil.AuthRequest(t, http.MethodPost, ts.APIURL("/auth/login"), "",
		testutil.JSONBody(t, map[string]string{"username": "jsmith", "password": "old-password"}), "application/json"))
	testutil.AssertStatusCode(t, oldLogin, http.StatusUnauthorized)
	assert.NotEmpty(t, testutil.Login(t, ts, "jsmith", "new-password"))

	ts.Memory.User.Delete(user.ID)
	testutil.AssertErrorResponse(t, change(token, "new-password", "newer-password"), http.StatusNotFound, "user not found")
}

func TestAuthHandler_ForgotPasswordUnknownUser(t *testing.T) {
	ts := testutil.NewTestServer(t, testutil.WithoutMailer())

	req := testutil.AuthRequest(t, http.MethodPost, ts.APIURL("/auth/forgot-password"), "",
		testutil.JSONBody(t, map[string]string{"username": "ghost"}), "application/json")
	resp := testutil.Do(t, req)
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	var body map[string]any
	testutil.AssertJSONResponse(t, resp, &body)
	assert.Equal(t, service.ForgotPasswordMessage, body["message"])
	assert.NotContains(t, body, "token")
}

func TestAuthHandler_ResetPasswordFlow(t *testing.T) {
	ts := testutil.NewTestServer(t, testutil.WithoutMailer())
	testutil.NewUserBuilder().
		WithUsername("jsmith").
		WithPassword("old-password").
		BuildMemory(t, ts.Memory.User)

	forgot := testutil.Do(t, testutil.AuthRequest(t, http.MethodPost, ts.APIURL("/auth/forgot-password"), "",
		testutil.JSONBody(t, map[string]string{"username": "jsmith"}), "application/json"))
	testutil.AssertStatusCode(t, forgot, http.StatusOK)

	var issued struct {
		Message string `json:"message"`
		Token   string `json:"token"`
	}
	testutil.AssertJSONResponse(t, forgot, &issued)
	assert.Equal(t, service.ForgotPasswordMessage, issued.Message)
	require.Len(t, issued.Token, 64)

	reset := func(token, password string) *http.Response {
		body := testutil.JSONBody(t, map[string]string{"token": token, "newPassword": password})
		return testutil.Do(t, testutil.AuthRequest(t, http.MethodPost, ts.APIURL("/auth/reset-password"), "", body, "application/json"))
	}

	testutil.AssertStatusCode(t, reset(issued.Token, strings.Repeat("a", 73)), http.StatusBadRequest)
	testutil.AssertStatusCode(t, reset(issued.Token, "brand-new-pass"), http.StatusOK)
	testutil.AssertErrorResponse(t, reset(issued.Token, "another-pass"), http.StatusBadRequest, "invalid or expired token")
	assert.NotEmpty(t, testutil.Login(t, ts, "jsmith", "brand-new-pass"))
}

func TestAuthHandler_ForgotPasswordProductionHidesToken(t *testing.T) {
	ts := testutil.NewTestServer(t, testutil.WithoutMailer(), testutil.WithConfig(func(c *config.Config) {
		c.Environment = "production"
	}))
	testutil.NewUserBuilder().WithUsername("jsmith").BuildMemory(t, ts.Memory.User)

	resp := testutil.Do(t, testutil.AuthRequest(t, http.MethodPost, ts.APIURL("/auth/forgot-password"), "",
		testutil.JSONBody(t, map[string]string{"username": "jsmith"}), "application/json"))
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	var body map[string]any
	testutil.AssertJSONResponse(t, resp, &body)
	assert.NotContains(t, body, "token")
}

func TestAuthHandler_ForgotPasswordSendsEmail(t *testing.T) {
	ts := testutil.NewTestServer(t)
	testutil.NewUserBuilder().
		WithUsername("jsmith").
		WithEmail("jsmith@example.org").
		BuildMemory(t, ts.Memory.User)

	resp := testutil.Do(t, testutil.AuthRequest(t, http.MethodPost, ts.APIURL("/auth/forgot-password"), "",
		testutil.JSONBody(t, map[string]string{"email": "jsmith@example.org"}), "application/json"))
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	sent, ok := ts.Mailer.LastReset()
	require.True(t, ok)
	assert.Equal(t, "jsmith@example.org", sent.To)
	assert.Contains(t, sent.ResetURL, ts.Config.PublicBaseURL+"/reset-password?token=")
}
