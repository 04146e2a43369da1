package apptest

import (
	"context"
	"sort"
	"sync"
	"time"

	"ragchat-api/internal/model"
	"ragchat-api/internal/repository"
)

// UserStore is an in-memory credential store for tests. Email uniqueness is
// enforced on insert, like the unique index.
type UserStore struct {
	mu     sync.Mutex
	nextID uint
	byID   map[uint]model.User
	Err    error
}

func NewUserStore() *UserStore {
	return &UserStore{byID: make(map[uint]model.User)}
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, user := range s.byID {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, nil
}

func (s *UserStore) GetByID(_ context.Context, id uint) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	user, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (s *UserStore) Create(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.byID {
		if existing.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	s.nextID++
	user.ID = s.nextID
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	s.byID[user.ID] = *user
	return nil
}

func (s *UserStore) List(_ context.Context, offset, limit int) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]model.User, 0, len(s.byID))
	for _, user := range s.byID {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	if offset >= len(users) {
		return []model.User{}, nil
	}
	users = users[offset:]
	if limit > 0 && limit < len(users) {
		users = users[:limit]
	}
	return users, nil
}

func (s *UserStore) UpdateStatus(_ context.Context, id uint, isActive bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.byID[id]
	user.IsActive = isActive
	s.byID[id] = user
	return nil
}

func (s *UserStore) UpdateSuperuser(_ context.Context, id uint, isSuperuser bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.byID[id]
	user.IsSuperuser = isSuperuser
	s.byID[id] = user
	return nil
}
