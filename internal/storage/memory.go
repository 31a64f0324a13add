package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"auth_backend/internal/models"

	"github.com/gofrs/uuid"
)

// MemoryStorage keeps users in process memory. It is used for local runs and
// tests; all state is lost on restart.
type MemoryStorage struct {
	mu      sync.Mutex
	users   map[uuid.UUID]*models.User
	byEmail map[string]uuid.UUID
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:   make(map[uuid.UUID]*models.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (m *MemoryStorage) CreateUser(_ context.Context, email, passwordHash string) (uuid.UUID, error) {
	const op = "storage.CreateUser"

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byEmail[email]; ok {
		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrUserExists)
	}

	userID, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	m.users[userID] = &models.User{
		ID:           userID,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	m.byEmail[email] = userID

	return userID, nil
}

func (m *MemoryStorage) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	const op = "storage.GetUserByEmail"

	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byEmail[email]
	if !ok {
		return models.User{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}

	return *m.users[id], nil
}

func (m *MemoryStorage) GetUserByRefreshToken(_ context.Context, token string) (models.User, error) {
	const op = "storage.GetUserByRefreshToken"

	m.mu.Lock()
	defer m.mu.Unlock()

	if token != "" {
		for _, u := range m.users {
			if u.RefreshToken == token {
				return *u, nil
			}
		}
	}

	return models.User{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
}

func (m *MemoryStorage) SetRefreshToken(_ context.Context, userID uuid.UUID, token string) error {
	const op = "storage.SetRefreshToken"

	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	u.RefreshToken = token

	return nil
}

func (m *MemoryStorage) RotateRefreshToken(_ context.Context, userID uuid.UUID, oldToken, newToken string) error {
	const op = "storage.RotateRefreshToken"

	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok || u.RefreshToken == "" || u.RefreshToken != oldToken {
		return fmt.Errorf("%s: %w", op, ErrTokenMismatch)
	}
	u.RefreshToken = newToken

	return nil
}

func (m *MemoryStorage) Close() {}
