package accounts

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

type sample struct {
	username, first, last, password string
	age                             int
}

var samples = []sample{
	{"john_doe", "John", "Doe", "password123", 28},
	{"jane_smith", "Jane", "Smith", "password456", 32},
	{"admin_user", "Admin", "User", "admin123", 35},
	{"test_user", "Test", "User", "test123", 22},
}

// Seeder fills the users table with sample accounts.
type Seeder struct {
	repo    Repository
	service *Service
	log     logrus.FieldLogger
}

func NewSeeder(repo Repository, service *Service, log logrus.FieldLogger) *Seeder {
	return &Seeder{repo: repo, service: service, log: log}
}

// Seed inserts the samples unless the table already has rows. It returns the
// number of rows inserted.
func (s *Seeder) Seed(ctx context.Context) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		s.log.WithField("existing", n).Info("users table not empty, skipping seed")
		return 0, nil
	}

	for i, smp := range samples {
		first, last, age := smp.first, smp.last, smp.age
		_, err := s.service.Create(ctx, CreateAccountDto{
			Username:  smp.username,
			FirstName: &first,
			LastName:  &last,
			Password:  smp.password,
			Age:       &age,
		})
		if err != nil {
			return i, fmt.Errorf("seed %s: %w", smp.username, err)
		}
	}
	s.log.WithField("count", len(samples)).Info("users seeded")
	return len(samples), nil
}

// Clear removes every user and resets ids.
func (s *Seeder) Clear(ctx context.Context) error {
	if err := s.repo.Truncate(ctx); err != nil {
		return fmt.Errorf("clear users: %w", err)
	}
	s.log.Info("users cleared")
	return nil
}

// Fresh clears then seeds.
func (s *Seeder) Fresh(ctx context.Context) (int, error) {
	if err := s.Clear(ctx); err != nil {
		return 0, err
	}
	return s.Seed(ctx)
}
