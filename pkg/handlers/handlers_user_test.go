package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"pixshare/pkg/claims"
	"pixshare/pkg/handlers"
	"pixshare/pkg/middleware"
	"pixshare/pkg/user"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) Register(ctx context.Context, name, email, password string) (*user.User, string, error) {
	args := m.Called(name, email, password)
	return args.Get(0).(*user.User), args.String(1), args.Error(2)
}

func (m *mockService) Login(ctx context.Context, email, password string) (*user.User, string, error) {
	args := m.Called(email, password)
	return args.Get(0).(*user.User), args.String(1), args.Error(2)
}

func (m *mockService) Logout(ctx context.Context, sessionID string) error {
	return m.Called(sessionID).Error(0)
}

func (m *mockService) Profile(ctx context.Context, userID string) (*user.User, error) {
	args := m.Called(userID)
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *mockService) UpdateProfile(ctx context.Context, userID, name, email string) (*user.User, error) {
	args := m.Called(userID, name, email)
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *mockService) ChangePassword(ctx context.Context, userID, current, next string) error {
	return m.Called(userID, current, next).Error(0)
}

var testIssuer = &claims.Issuer{Secret: []byte("test-secret"), TTL: time.Hour}

func TestLoginHandler(t *testing.T) {
	m := new(mockService)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))

	m.On("Login", "valid@example.com", "correct").Return(&user.User{ID: "id", Email: "valid@example.com"}, "sess", nil)
	m.On("Login", "ghost@example.com", "correct").Return((*user.User)(nil), "", user.ErrBadCredentials)
	m.On("Login", "broken@example.com", "correct").Return((*user.User)(nil), "", errors.New("db down"))

	handler := handlers.NewUserHandler(m, testIssuer, logger)

	tests := []struct {
		name           string
		body           string
		contentType    string
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "Successful login",
			body:           `{"email":"valid@example.com","password":"correct"}`,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Bad credentials",
			body:           `{"email":"ghost@example.com","password":"correct"}`,
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "Invalid email or password",
		},
		{
			name:           "Store failure",
			body:           `{"email":"broken@example.com","password":"correct"}`,
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name:           "Bad Content-Type",
			body:           `{"email":"valid@example.com","password":"correct"}`,
			contentType:    "plain/text",
			expectedStatus: http.StatusBadRequest,
			expectedError:  `{"msg":"invalid Content-Type"}`,
		},
		{
			name:           "Bad JSON",
			body:           `{"email" oops "valid@example.com"}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  `{"msg":"bad json"}`,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(test.body))
			if test.contentType != "" {
				req.Header.Set("Content-Type", test.contentType)
			} else {
				req.Header.Set("Content-Type", "application/json")
			}

			rr := httptest.NewRecorder()

			handler.Login(rr, req)

			assert.Equal(t, test.expectedStatus, rr.Code)

			if test.expectedError != "" {
				assert.Contains(t, rr.Body.String(), test.expectedError)
			}
		})
	}

	m.AssertExpectations(t)
}

func TestLoginHandler_TokenNamesSession(t *testing.T) {
	m := new(mockService)
	m.On("Login", "valid@example.com", "correct").Return(&user.User{ID: "id", Email: "valid@example.com"}, "sess-1", nil)
	handler := handlers.NewUserHandler(m, testIssuer, slog.Default())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"valid@example.com","password":"correct"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.Login(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))

	c, err := testIssuer.Verify(body.Token)
	require.NoError(t, err)
	assert.Equal(t, "id", c.User.ID)
	assert.Equal(t, "sess-1", c.Id)
}

func TestRegister(t *testing.T) {
	m := new(mockService)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))

	m.On("Register", "Ann", "ann@example.com", "secret1").Return(&user.User{ID: "id", Name: "Ann", Email: "ann@example.com"}, "sess", nil)
	m.On("Register", "Bob", "bob@example.com", "secret1").Return((*user.User)(nil), "", user.ErrExists)
	m.On("Register", "Eve", "eve@example.com", "secret1").Return((*user.User)(nil), "", errors.New("unexpected error"))

	handler := handlers.NewUserHandler(m, testIssuer, logger)

	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "Successful registration",
			body:           `{"name":"Ann","email":"ann@example.com","password":"secret1"}`,
			expectedStatus: http.StatusCreated,
			expectedError:  `"token"`,
		},
		{
			name:           "User already exists",
			body:           `{"name":"Bob","email":"bob@example.com","password":"secret1"}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "User already exists",
		},
		{
			name:           "Unexpected error",
			body:           `{"name":"Eve","email":"eve@example.com","password":"secret1"}`,
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name:           "Missing fields",
			body:           `{"email":"ann@example.com","password":"secret1"}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "are required",
		},
		{
			name:           "Short password",
			body:           `{"name":"Ann","email":"ann@example.com","password":"abc"}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "at least 6 characters",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(test.body))
			req.Header.Set("Content-Type", "application/json")

			rr := httptest.NewRecorder()

			handler.Register(rr, req)

			assert.Equal(t, test.expectedStatus, rr.Code)

			if test.expectedError != "" {
				assert.Contains(t, rr.Body.String(), test.expectedError)
			}
		})
	}

	m.AssertExpectations(t)
}

func TestLogout(t *testing.T) {
	m := new(mockService)
	m.On("Logout", "sess-1").Return(nil)
	handler := handlers.NewUserHandler(m, testIssuer, slog.Default())

	t.Run("revokes the session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
		req = req.WithContext(middleware.WithActor(req.Context(), &middleware.Actor{UserID: "id", SessionID: "sess-1"}))
		rr := httptest.NewRecorder()

		handler.Logout(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		m.AssertCalled(t, "Logout", "sess-1")
	})

	t.Run("anonymous", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.Logout(rr, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func asUser(req *http.Request, id string) *http.Request {
	return req.WithContext(middleware.WithActor(req.Context(), &middleware.Actor{UserID: id, SessionID: "sess-1"}))
}

func TestProfile(t *testing.T) {
	m := new(mockService)
	m.On("Profile", "id").Return(&user.User{ID: "id", Name: "Ann", Email: "ann@example.com"}, nil)
	m.On("Profile", "gone").Return((*user.User)(nil), user.ErrNotFound)
	handler := handlers.NewUserHandler(m, testIssuer, slog.Default())

	rr := httptest.NewRecorder()
	handler.Profile(rr, asUser(httptest.NewRequest(http.MethodGet, "/api/account/profile", nil), "id"))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"name":"Ann","email":"ann@example.com","subscription":"Free"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	handler.Profile(rr, asUser(httptest.NewRequest(http.MethodGet, "/api/account/profile", nil), "gone"))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	handler.Profile(rr, httptest.NewRequest(http.MethodGet, "/api/account/profile", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestUpdateProfile(t *testing.T) {
	m := new(mockService)
	m.On("UpdateProfile", "id", "Ann", "ann@example.com").Return(&user.User{ID: "id", Name: "Ann", Email: "ann@example.com"}, nil)
	m.On("UpdateProfile", "id", "Ann", "bob@example.com").Return((*user.User)(nil), user.ErrExists)
	handler := handlers.NewUserHandler(m, testIssuer, slog.Default())

	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedBody   string
	}{
		{"Updated", `{"name":"Ann","email":"ann@example.com"}`, http.StatusOK, `"msg":"Profile updated"`},
		{"Email in use", `{"name":"Ann","email":"bob@example.com"}`, http.StatusConflict, "Email already in use"},
		{"Missing name", `{"name":" ","email":"ann@example.com"}`, http.StatusBadRequest, "Name is required"},
		{"Bad email", `{"name":"Ann","email":"ann"}`, http.StatusBadRequest, "Invalid email"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/api/account/profile", strings.NewReader(test.body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()

			handler.UpdateProfile(rr, asUser(req, "id"))

			assert.Equal(t, test.expectedStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), test.expectedBody)
		})
	}
	m.AssertExpectations(t)
}

func TestChangePassword(t *testing.T) {
	m := new(mockService)
	m.On("ChangePassword", "id", "old-pass", "new-pass").Return(nil)
	m.On("ChangePassword", "id", "guess", "new-pass").Return(user.ErrWrongPassword)
	handler := handlers.NewUserHandler(m, testIssuer, slog.Default())

	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedBody   string
	}{
		{"Updated", `{"current":"old-pass","new":"new-pass"}`, http.StatusOK, "Password updated"},
		{"Wrong current", `{"current":"guess","new":"new-pass"}`, http.StatusBadRequest, "Current password is incorrect"},
		{"Missing", `{"current":"old-pass"}`, http.StatusBadRequest, "are required"},
		{"Too short", `{"current":"old-pass","new":"abc"}`, http.StatusBadRequest, "at least 6 characters"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/api/account/password", strings.NewReader(test.body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()

			handler.ChangePassword(rr, asUser(req, "id"))

			assert.Equal(t, test.expectedStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), test.expectedBody)
		})
	}
	m.AssertExpectations(t)
}
