package memrepo

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/domain"
)

type UserRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*domain.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[uuid.UUID]*domain.User)}
}

func (r *UserRepository) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return domain.ErrUserExists
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	c := *u
	r.users[u.ID] = &c
	return nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.users {
		if u.Email == email && u.DeletedAt == nil {
			c := *u
			return &c, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *UserRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok || u.DeletedAt != nil {
		return nil, domain.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (r *UserRepository) UpdateLoginAttempt(_ context.Context, id uuid.UUID, success bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	now := time.Now()
	if success {
		u.FailedLoginCount = 0
		u.LockedUntil = nil
		u.LastLoginAt = &now
		return nil
	}
	u.FailedLoginCount++
	if u.FailedLoginCount >= domain.MaxFailedLoginAttempts {
		until := now.Add(domain.LoginLockDuration)
		u.LockedUntil = &until
	}
	return nil
}

func (r *UserRepository) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}
