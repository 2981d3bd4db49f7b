// Package auth logs users in through three collaborators: a user
// repository, a password hasher and a profile client. Each is an interface
// so tests can substitute mocks.
package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/apperr"
	"golang.org/x/crypto/bcrypt"
)

// User is an account known to the repository.
type User struct {
	ID           int
	Username     string
	PasswordHash string
}

// UserRepository finds users. A missing user is (nil, nil).
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Validate(password, hash string) bool
}

// ProfileClient fetches profile data from another service.
type ProfileClient interface {
	FetchUserProfile(ctx context.Context, userID int) (map[string]any, error)
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResult is returned on success.
type LoginResult struct {
	UserID   int            `json:"userId"`
	Username string         `json:"username"`
	Profile  map[string]any `json:"profile"`
}

type Service struct {
	users    UserRepository
	hasher   PasswordHasher
	profiles ProfileClient
}

func NewService(users UserRepository, hasher PasswordHasher, profiles ProfileClient) *Service {
	return &Service{users: users, hasher: hasher, profiles: profiles}
}

// Login checks credentials and enriches the result with the user's profile.
// Unknown users and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("find user: %w", err))
	}
	if u == nil || !s.hasher.Validate(password, u.PasswordHash) {
		return nil, apperr.Unauthorized("Invalid credentials")
	}

	profile, err := s.profiles.FetchUserProfile(ctx, u.ID)
	if err != nil {
		return nil, apperr.Unavailable("profile service unavailable", err)
	}
	return &LoginResult{UserID: u.ID, Username: u.Username, Profile: profile}, nil
}

// BcryptHasher implements PasswordHasher with bcrypt.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(b), err
}

func (h BcryptHasher) Validate(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// MemoryUsers is an in-memory UserRepository.
type MemoryUsers struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewMemoryUsers(users ...User) *MemoryUsers {
	m := &MemoryUsers{users: make(map[string]User, len(users))}
	for _, u := range users {
		m.users[u.Username] = u
	}
	return m
}

func (m *MemoryUsers) FindByUsername(_ context.Context, username string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[username]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// StaticProfiles serves profiles from a fixed map.
type StaticProfiles map[int]map[string]any

func (p StaticProfiles) FetchUserProfile(_ context.Context, userID int) (map[string]any, error) {
	profile, ok := p[userID]
	if !ok {
		return map[string]any{}, nil
	}
	return profile, nil
}

// DemoService wires the in-memory collaborators with one user, alice, whose
// password is "wonderland".
func DemoService(hasher BcryptHasher) (*Service, error) {
	hash, err := hasher.Hash("wonderland")
	if err != nil {
		return nil, err
	}
	users := NewMemoryUsers(User{ID: 1, Username: "alice", PasswordHash: hash})
	profiles := StaticProfiles{1: {"displayName": "Alice", "plan": "pro"}}
	return NewService(users, hasher, profiles), nil
}
