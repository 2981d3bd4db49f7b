package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/apperr"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

// CreateAccountDto is the body of POST /users.
type CreateAccountDto struct {
	Username  string  `json:"username" binding:"required,min=3,max=255"`
	FirstName *string `json:"firstName" binding:"omitempty,max=255"`
	LastName  *string `json:"lastName" binding:"omitempty,max=255"`
	Password  string  `json:"password" binding:"required,min=6"`
	Age       *int    `json:"age" binding:"omitempty,min=0,max=150"`
}

// UpdateAccountDto is the body of PUT /users/:id. Absent fields are kept.
type UpdateAccountDto struct {
	Username  *string `json:"username" binding:"omitempty,min=3,max=255"`
	FirstName *string `json:"firstName" binding:"omitempty,max=255"`
	LastName  *string `json:"lastName" binding:"omitempty,max=255"`
	Password  *string `json:"password" binding:"omitempty,min=6"`
	Age       *int    `json:"age" binding:"omitempty,min=0,max=150"`
}

var messages = validation.Catalog{
	"username.required": "Username is required",
	"username.min":      "Username must be at least 3 characters long",
	"password.required": "Password is required",
	"password.min":      "Password must be at least 6 characters long",
}

// Service holds the user rules on top of a Repository.
type Service struct {
	repo Repository
	cost int
}

// NewService hashes passwords with the given bcrypt cost; zero means
// bcrypt.DefaultCost.
func NewService(repo Repository, cost int) *Service {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{repo: repo, cost: cost}
}

func (s *Service) Create(ctx context.Context, in CreateAccountDto) (*Account, error) {
	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	a := &Account{
		Username:  in.Username,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Password:  &hash,
		Age:       in.Age,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, s.wrap(err, 0)
	}
	return a, nil
}

func (s *Service) FindAll(ctx context.Context) ([]Account, error) {
	list, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, s.wrap(err, 0)
	}
	if list == nil {
		list = []Account{}
	}
	return list, nil
}

func (s *Service) FindOne(ctx context.Context, id int) (*Account, error) {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.wrap(err, id)
	}
	return a, nil
}

func (s *Service) Update(ctx context.Context, id int, in UpdateAccountDto) (*Account, error) {
	a, err := s.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Username != nil {
		a.Username = *in.Username
	}
	if in.FirstName != nil {
		a.FirstName = in.FirstName
	}
	if in.LastName != nil {
		a.LastName = in.LastName
	}
	if in.Age != nil {
		a.Age = in.Age
	}
	if in.Password != nil {
		hash, err := s.hash(*in.Password)
		if err != nil {
			return nil, err
		}
		a.Password = &hash
	}
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, s.wrap(err, id)
	}
	return a, nil
}

func (s *Service) Remove(ctx context.Context, id int) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.wrap(err, id)
	}
	return nil
}

// CheckPassword reports whether plain matches the stored hash of a.
func CheckPassword(a *Account, plain string) bool {
	if a.Password == nil {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(*a.Password), []byte(plain)) == nil
}

func (s *Service) hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), s.cost)
	if err != nil {
		return "", apperr.Internal(fmt.Errorf("hash password: %w", err))
	}
	return string(b), nil
}

func (s *Service) wrap(err error, id int) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return apperr.NotFound(fmt.Sprintf("User with ID %d not found", id))
	case errors.Is(err, ErrDuplicateUsername):
		return apperr.Conflict("Username already exists")
	default:
		return apperr.Internal(err)
	}
}
