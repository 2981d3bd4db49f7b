package auth

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/apperr"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/middleware"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type mockUsers struct{ mock.Mock }

func (m *mockUsers) FindByUsername(ctx context.Context, username string) (*User, error) {
	args := m.Called(ctx, username)
	u, _ := args.Get(0).(*User)
	return u, args.Error(1)
}

type mockHasher struct{ mock.Mock }

func (m *mockHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *mockHasher) Validate(password, hash string) bool {
	return m.Called(password, hash).Bool(0)
}

type mockProfiles struct{ mock.Mock }

func (m *mockProfiles) FetchUserProfile(ctx context.Context, userID int) (map[string]any, error) {
	args := m.Called(ctx, userID)
	p, _ := args.Get(0).(map[string]any)
	return p, args.Error(1)
}

func TestLoginSuccess(t *testing.T) {
	users, hasher, profiles := new(mockUsers), new(mockHasher), new(mockProfiles)
	users.On("FindByUsername", mock.Anything, "alice").Return(&User{ID: 1, Username: "alice", PasswordHash: "hashed"}, nil)
	hasher.On("Validate", "secret", "hashed").Return(true)
	profiles.On("FetchUserProfile", mock.Anything, 1).Return(map[string]any{"displayName": "Alice"}, nil)

	res, err := NewService(users, hasher, profiles).Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, &LoginResult{UserID: 1, Username: "alice", Profile: map[string]any{"displayName": "Alice"}}, res)

	users.AssertExpectations(t)
	hasher.AssertExpectations(t)
	profiles.AssertNumberOfCalls(t, "FetchUserProfile", 1)
}

func TestLoginUnknownUser(t *testing.T) {
	users, hasher, profiles := new(mockUsers), new(mockHasher), new(mockProfiles)
	users.On("FindByUsername", mock.Anything, "ghost").Return(nil, nil)

	_, err := NewService(users, hasher, profiles).Login(context.Background(), "ghost", "secret")
	assert.Equal(t, http.StatusUnauthorized, apperr.StatusOf(err))
	assert.Equal(t, "Invalid credentials", apperr.From(err).Message)
	hasher.AssertNotCalled(t, "Validate", mock.Anything, mock.Anything)
	profiles.AssertNotCalled(t, "FetchUserProfile", mock.Anything, mock.Anything)
}

func TestLoginWrongPassword(t *testing.T) {
	users, hasher, profiles := new(mockUsers), new(mockHasher), new(mockProfiles)
	users.On("FindByUsername", mock.Anything, "alice").Return(&User{ID: 1, Username: "alice", PasswordHash: "hashed"}, nil)
	hasher.On("Validate", "nope", "hashed").Return(false)

	_, err := NewService(users, hasher, profiles).Login(context.Background(), "alice", "nope")
	assert.Equal(t, "Invalid credentials", apperr.From(err).Message)
	profiles.AssertNotCalled(t, "FetchUserProfile", mock.Anything, mock.Anything)
}

func TestLoginRepositoryError(t *testing.T) {
	users := new(mockUsers)
	users.On("FindByUsername", mock.Anything, "alice").Return(nil, errors.New("db down"))

	_, err := NewService(users, new(mockHasher), new(mockProfiles)).Login(context.Background(), "alice", "x")
	assert.Equal(t, http.StatusInternalServerError, apperr.StatusOf(err))
}

func TestBcryptHasher(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}
	hash, err := h.Hash("wonderland")
	require.NoError(t, err)
	assert.True(t, h.Validate("wonderland", hash))
	assert.False(t, h.Validate("looking-glass", hash))
}

func TestLoginEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	validation.UseJSONNames()
	svc, err := DemoService(BcryptHasher{Cost: bcrypt.MinCost})
	require.NoError(t, err)

	r := gin.New()
	r.Use(middleware.ErrorResponder())
	(&Handler{Service: svc}).Register(r)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := post(`{"username":"alice","password":"wonderland"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"userId":1,"username":"alice","profile":{"displayName":"Alice","plan":"pro"}}`, w.Body.String())

	w = post(`{"username":"alice","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = post(`{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
