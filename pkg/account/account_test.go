package account_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"pixshare/pkg/account"
	"pixshare/pkg/apperr"
	"pixshare/pkg/dispatcher"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, req dispatcher.Request, out any) error {
	args := m.Called(req)
	if raw, ok := args.Get(0).(string); ok && out != nil {
		if err := json.Unmarshal([]byte(raw), out); err != nil {
			return err
		}
	}
	return args.Error(1)
}

func TestLogin(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		s := new(mockSender)
		s.On("Send", mock.MatchedBy(func(r dispatcher.Request) bool {
			body, _ := r.Body.(map[string]string)
			return r.Path == "/auth/login" && r.Credential == "" && body["email"] == "a@b.com" && body["password"] == "x"
		})).Return(`{"token":"abc123"}`, nil)

		tok, err := account.New(s, nil).Login(context.Background(), " A@B.com ", "x")
		require.NoError(t, err)
		assert.Equal(t, "abc123", tok)
		s.AssertExpectations(t)
	})

	t.Run("missing fields stay local", func(t *testing.T) {
		s := new(mockSender)
		_, err := account.New(s, nil).Login(context.Background(), "", "x")
		assert.ErrorIs(t, err, apperr.ErrValidation)
		_, err = account.New(s, nil).Login(context.Background(), "a@b.com", "")
		assert.ErrorIs(t, err, apperr.ErrValidation)
		s.AssertNotCalled(t, "Send", mock.Anything)
	})

	t.Run("rejected", func(t *testing.T) {
		s := new(mockSender)
		s.On("Send", mock.Anything).Return(nil, &apperr.HTTPError{Status: 401, Message: "Invalid email or password", Kind: apperr.ErrUnauthorized})
		_, err := account.New(s, nil).Login(context.Background(), "a@b.com", "bad")
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})
}

func TestRegister_Validation(t *testing.T) {
	s := new(mockSender)
	c := account.New(s, nil)

	tests := []struct {
		name, email, password string
	}{
		{"", "a@b.com", "secret1"},
		{"Ann", "", "secret1"},
		{"Ann", "a@b.com", ""},
		{"Ann", "a@b.com", "12345"},
		{"Ann", "not an email", "secret1"},
	}
	for _, test := range tests {
		_, err := c.Register(context.Background(), test.name, test.email, test.password)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	}
	s.AssertNotCalled(t, "Send", mock.Anything)
}

func TestRegister(t *testing.T) {
	s := new(mockSender)
	s.On("Send", mock.MatchedBy(func(r dispatcher.Request) bool {
		body, _ := r.Body.(map[string]string)
		return r.Path == "/auth/register" && body["name"] == "Ann" && body["email"] == "ann@b.com"
	})).Return(`{"msg":"User registered","token":"fresh"}`, nil)

	tok, err := account.New(s, nil).Register(context.Background(), "Ann", "Ann@B.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok)
	s.AssertExpectations(t)
}

func TestRevoke(t *testing.T) {
	s := new(mockSender)
	s.On("Send", mock.MatchedBy(func(r dispatcher.Request) bool {
		return r.Path == "/auth/logout" && r.Credential == "abc123"
	})).Return(nil, errors.New("connection refused"))

	err := account.New(s, nil).Revoke(context.Background(), "abc123")
	assert.EqualError(t, err, "connection refused")
}

func signedIn(tok string) account.CredentialFunc {
	return func() (string, bool) { return tok, tok != "" }
}

func TestProfile(t *testing.T) {
	t.Run("signed in", func(t *testing.T) {
		s := new(mockSender)
		s.On("Send", mock.MatchedBy(func(r dispatcher.Request) bool {
			return r.Method == "GET" && r.Path == "/account/profile" && r.Credential == "abc123"
		})).Return(`{"name":"Ann","email":"ann@b.com","subscription":"Free"}`, nil)

		p, err := account.New(s, signedIn("abc123")).Profile(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Ann", p.Name)
		assert.Equal(t, "Free", p.Subscription)
		s.AssertExpectations(t)
	})

	t.Run("signed out stays local", func(t *testing.T) {
		s := new(mockSender)
		_, err := account.New(s, signedIn("")).Profile(context.Background())
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
		_, err = account.New(s, nil).Profile(context.Background())
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
		s.AssertNotCalled(t, "Send", mock.Anything)
	})
}

func TestUpdateProfile(t *testing.T) {
	s := new(mockSender)
	s.On("Send", mock.MatchedBy(func(r dispatcher.Request) bool {
		body, _ := r.Body.(map[string]string)
		return r.Method == "PUT" && r.Path == "/account/profile" && body["name"] == "Ann" && body["email"] == "ann@b.com"
	})).Return(`{"msg":"Profile updated","profile":{"name":"Ann","email":"ann@b.com"}}`, nil)
	c := account.New(s, signedIn("abc123"))

	p, err := c.UpdateProfile(context.Background(), " Ann ", "Ann@B.com")
	require.NoError(t, err)
	assert.Equal(t, "ann@b.com", p.Email)

	_, err = c.UpdateProfile(context.Background(), "", "ann@b.com")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = c.UpdateProfile(context.Background(), "Ann", "nope")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	s.AssertNumberOfCalls(t, "Send", 1)
}

func TestChangePassword(t *testing.T) {
	s := new(mockSender)
	s.On("Send", mock.MatchedBy(func(r dispatcher.Request) bool {
		body, _ := r.Body.(map[string]string)
		return r.Path == "/account/password" && r.Credential == "abc123" && body["current"] == "old-pass" && body["new"] == "new-pass"
	})).Return(nil, &apperr.HTTPError{Status: 400, Message: "Current password is incorrect", Kind: apperr.ErrValidation})
	c := account.New(s, signedIn("abc123"))

	err := c.ChangePassword(context.Background(), "old-pass", "new-pass")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.ErrorContains(t, err, "Current password is incorrect")

	assert.ErrorIs(t, c.ChangePassword(context.Background(), "", "new-pass"), apperr.ErrValidation)
	assert.ErrorIs(t, c.ChangePassword(context.Background(), "old-pass", "abc"), apperr.ErrValidation)
	s.AssertNumberOfCalls(t, "Send", 1)
}
