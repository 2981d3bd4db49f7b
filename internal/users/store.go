// Package users is the in-memory user collection behind the validation demo,
// optionally snapshotted to disk after every change.
package users

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/apperr"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/snapshot"
	"github.com/sirupsen/logrus"
)

const snapshotName = "users"

// User is a stored user. The password is kept but never serialized.
type User struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	Age       *int      `json:"age,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type storedUser struct {
	User
	Password string `json:"password"`
}

type document struct {
	NextID int          `json:"nextId"`
	Users  []storedUser `json:"users"`
	seq    uint64
}

// Store is a thread-safe user collection.
type Store struct {
	mu        sync.RWMutex
	users     map[int]User
	nextID    int
	persister *snapshot.Persistence
	wg        sync.WaitGroup
	seq       uint64
	saveMu    sync.Mutex
	savedSeq  uint64
	log       logrus.FieldLogger
	now       func() time.Time
}

// NewStore returns a store seeded from the last snapshot, if p is set.
func NewStore(p *snapshot.Persistence, log logrus.FieldLogger) (*Store, error) {
	s := &Store{
		users:     make(map[int]User),
		nextID:    1,
		persister: p,
		log:       log,
		now:       time.Now,
	}
	if p == nil {
		return s, nil
	}

	var doc document
	ok, err := p.Load(snapshotName, &doc)
	if err != nil {
		return nil, fmt.Errorf("load users snapshot: %w", err)
	}
	if ok {
		for _, su := range doc.Users {
			u := su.User
			u.Password = su.Password
			s.users[u.ID] = u
		}
		if doc.NextID > s.nextID {
			s.nextID = doc.NextID
		}
		log.WithField("count", len(doc.Users)).Info("users restored from snapshot")
	}
	return s, nil
}

// Wait blocks until background snapshot writes finish.
func (s *Store) Wait() {
	s.wg.Wait()
}

// Create adds a user and assigns the next id.
func (s *Store) Create(in CreateUserDto) User {
	s.mu.Lock()
	u := User{
		ID:        s.nextID,
		Name:      in.Name,
		Email:     in.Email,
		Password:  in.Password,
		Age:       in.Age,
		CreatedAt: s.now().UTC(),
	}
	s.users[u.ID] = u
	s.nextID++
	doc := s.documentLocked()
	s.mu.Unlock()

	s.persist(doc)
	return u
}

// List returns every user ordered by id.
func (s *Store) List() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns the user with id.
func (s *Store) Get(id int) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return User{}, notFound(id)
	}
	return u, nil
}

// Update merges the provided fields into the user with id.
func (s *Store) Update(id int, in UpdateUserDto) (User, error) {
	s.mu.Lock()
	u, ok := s.users[id]
	if !ok {
		s.mu.Unlock()
		return User{}, notFound(id)
	}
	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.Password != nil {
		u.Password = *in.Password
	}
	if in.Age != nil {
		u.Age = in.Age
	}
	s.users[id] = u
	doc := s.documentLocked()
	s.mu.Unlock()

	s.persist(doc)
	return u, nil
}

// Delete removes the user with id.
func (s *Store) Delete(id int) error {
	s.mu.Lock()
	if _, ok := s.users[id]; !ok {
		s.mu.Unlock()
		return notFound(id)
	}
	delete(s.users, id)
	doc := s.documentLocked()
	s.mu.Unlock()

	s.persist(doc)
	return nil
}

// documentLocked copies the collection for a background write.
// Callers must hold s.mu.
func (s *Store) documentLocked() document {
	s.seq++
	doc := document{NextID: s.nextID, Users: make([]storedUser, 0, len(s.users)), seq: s.seq}
	for _, u := range s.users {
		doc.Users = append(doc.Users, storedUser{User: u, Password: u.Password})
	}
	sort.Slice(doc.Users, func(i, j int) bool { return doc.Users[i].ID < doc.Users[j].ID })
	return doc
}

func (s *Store) persist(doc document) {
	if s.persister == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.saveMu.Lock()
		defer s.saveMu.Unlock()
		// a newer snapshot already landed
		if doc.seq <= s.savedSeq {
			return
		}
		s.savedSeq = doc.seq
		if err := s.persister.Save(snapshotName, doc); err != nil {
			s.log.WithError(err).Error("failed to write users snapshot")
		}
	}()
}

func notFound(id int) error {
	return apperr.NotFound(fmt.Sprintf("User with ID %d not found", id))
}
