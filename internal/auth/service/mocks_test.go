package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/imelapp/auth-server/internal/auth/domain"
	"github.com/imelapp/auth-server/internal/auth/repository"
	"github.com/imelapp/auth-server/internal/common/logger"
)

func testLogger() *logger.Logger {
	log, err := logger.New("", "test", "CRITICAL")
	if err != nil {
		panic(err)
	}
	return log
}

type mockUserRepo struct {
	mu    sync.Mutex
	users map[int64]domain.User
	nexID int64

	createFunc              func(ctx context.Context, user domain.User) (domain.User, error)
	findByUsernameFunc      func(ctx context.Context, username string) (domain.User, error)
	findByIDFunc            func(ctx context.Context, id int64) (domain.User, error)
	updateFunc              func(ctx context.Context, user domain.User) error
	deleteFunc              func(ctx context.Context, id int64) error
	listFunc                func(ctx context.Context) ([]domain.User, error)
	recordFailedFunc        func(ctx context.Context, id int64, threshold int, lockUntil time.Time) (int, *time.Time, error)
	resetFailedAttemptsFunc func(ctx context.Context, id int64) error

	recordFailedCalls int
	resetCalls        int
	updateCalls       int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		users: make(map[int64]domain.User),
		nexID: 1,
	}
}

func (m *mockUserRepo) add(user domain.User) domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID == 0 {
		user.ID = m.nexID
		m.nexID++
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	m.users[user.ID] = user
	return user
}

func (m *mockUserRepo) get(id int64) (domain.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	return user, ok
}

func (m *mockUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, user)
	}
	m.mu.Lock()
	for _, existing := range m.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			m.mu.Unlock()
			return domain.User{}, repository.ErrDuplicateUser
		}
	}
	m.mu.Unlock()
	return m.add(user), nil
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (domain.User, error) {
	if m.findByUsernameFunc != nil {
		return m.findByUsernameFunc(ctx, username)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Username == username {
			return user, nil
		}
	}
	return domain.User{}, repository.ErrUserNotFound
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (domain.User, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	user, ok := m.get(id)
	if !ok {
		return domain.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepo) Update(ctx context.Context, user domain.User) error {
	m.mu.Lock()
	m.updateCalls++
	m.mu.Unlock()
	if m.updateFunc != nil {
		return m.updateFunc(ctx, user)
	}
	if _, ok := m.get(user.ID); !ok {
		return repository.ErrUserNotFound
	}
	m.mu.Lock()
	m.users[user.ID] = user
	m.mu.Unlock()
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id int64) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *mockUserRepo) List(ctx context.Context) ([]domain.User, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]domain.User, 0, len(m.users))
	for _, user := range m.users {
		users = append(users, user)
	}
	return users, nil
}

func (m *mockUserRepo) RecordFailedAttempt(ctx context.Context, id int64, threshold int, lockUntil time.Time) (int, *time.Time, error) {
	m.mu.Lock()
	m.recordFailedCalls++
	m.mu.Unlock()
	if m.recordFailedFunc != nil {
		return m.recordFailedFunc(ctx, id, threshold, lockUntil)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return 0, nil, repository.ErrUserNotFound
	}
	user.FailedLoginAttempts++
	if user.FailedLoginAttempts >= threshold {
		end := lockUntil
		user.LockoutEnd = &end
	}
	m.users[id] = user
	return user.FailedLoginAttempts, user.LockoutEnd, nil
}

func (m *mockUserRepo) ResetFailedAttempts(ctx context.Context, id int64) error {
	m.mu.Lock()
	m.resetCalls++
	m.mu.Unlock()
	if m.resetFailedAttemptsFunc != nil {
		return m.resetFailedAttemptsFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.FailedLoginAttempts = 0
	m.users[id] = user
	return nil
}

// mockHasher treats the stored hash as "hashed:" + password so tests do
// not pay the bcrypt cost.
type mockHasher struct {
	hashFunc func(password string) (string, error)
}

func (m *mockHasher) Hash(password string) (string, error) {
	if m.hashFunc != nil {
		return m.hashFunc(password)
	}
	return "hashed:" + password, nil
}

func (m *mockHasher) Compare(hash string, password string) error {
	if hash != "hashed:"+password {
		return errors.New("hash mismatch")
	}
	return nil
}
