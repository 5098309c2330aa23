package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/imelapp/auth-server/internal/auth/domain"
	"github.com/imelapp/auth-server/internal/auth/repository"
	"github.com/imelapp/auth-server/internal/auth/service"
	"github.com/imelapp/auth-server/internal/common/clock"
	"github.com/imelapp/auth-server/internal/common/config"
	"github.com/imelapp/auth-server/internal/common/constants"
	"github.com/imelapp/auth-server/internal/common/logger"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-key-with-32-characters!"

type memoryRepo struct {
	users  map[int64]domain.User
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[int64]domain.User), nextID: 1}
}

func (m *memoryRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	for _, existing := range m.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return domain.User{}, repository.ErrDuplicateUser
		}
	}
	user.ID = m.nextID
	m.nextID++
	user.CreatedAt = time.Now()
	m.users[user.ID] = user
	return user, nil
}

func (m *memoryRepo) FindByUsername(ctx context.Context, username string) (domain.User, error) {
	for _, user := range m.users {
		if user.Username == username {
			return user, nil
		}
	}
	return domain.User{}, repository.ErrUserNotFound
}

func (m *memoryRepo) FindByID(ctx context.Context, id int64) (domain.User, error) {
	user, ok := m.users[id]
	if !ok {
		return domain.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *memoryRepo) Update(ctx context.Context, user domain.User) error {
	if _, ok := m.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	m.users[user.ID] = user
	return nil
}

func (m *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memoryRepo) List(ctx context.Context) ([]domain.User, error) {
	users := make([]domain.User, 0, len(m.users))
	for _, user := range m.users {
		users = append(users, user)
	}
	return users, nil
}

func (m *memoryRepo) RecordFailedAttempt(ctx context.Context, id int64, threshold int, lockUntil time.Time) (int, *time.Time, error) {
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

func (m *memoryRepo) ResetFailedAttempts(ctx context.Context, id int64) error {
	user, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.FailedLoginAttempts = 0
	m.users[id] = user
	return nil
}

// fastHasher swaps bcrypt for a cleartext marker so handler tests stay fast.
type fastHasher struct{}

func (fastHasher) Hash(password string) (string, error) { return "h:" + password, nil }

func (fastHasher) Compare(hash string, password string) error {
	if hash != "h:"+password {
		return bcrypt.ErrMismatchedHashAndPassword
	}
	return nil
}

type testEnv struct {
	handler http.Handler
	repo    *memoryRepo
	auth    *service.AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	log, err := logger.New("", "test", "CRITICAL")
	if err != nil {
		t.Fatalf("logger.New() error = %v", err)
	}

	repo := newMemoryRepo()
	hasher := fastHasher{}
	clk := clock.NewMockClock(time.Now())

	issuer := service.NewTokenIssuer(testSecret, time.Hour, clk)
	authService := service.NewAuthService(repo, hasher, issuer,
		clk, constants.DefaultLockoutThreshold, constants.DefaultLockoutDuration, log)
	userService := service.NewUserService(repo, hasher, log)

	cfg := config.AuthConfig{
		JWTSecret:      testSecret,
		RequestTimeout: 5 * time.Second,
	}

	return &testEnv{
		handler: NewHandler(authService, userService, cfg, log),
		repo:    repo,
		auth:    authService,
	}
}

func (e *testEnv) seed(t *testing.T, username, password string, role domain.Role) domain.User {
	t.Helper()
	user, err := e.repo.Create(context.Background(), domain.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "h:" + password,
		IsActive:     true,
		Role:         role,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	result, err := e.auth.Login(context.Background(), service.LoginInput{Username: username, Password: password})
	if err != nil {
		t.Fatalf("login %s: %v", username, err)
	}
	return result.Token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func TestLoginEndpointReturnsToken(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "alice", "secret123", domain.RoleUser)

	rec := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice",
		"password": "secret123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["token"] == "" {
		t.Fatal("response has no token")
	}
}

func TestLoginEndpointWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "alice", "secret123", domain.RoleUser)

	rec := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice",
		"password": "nope",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401; body = %s", rec.Code, rec.Body.String())
	}
}

func TestLoginEndpointRejectsMissingFields(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRegisterEndpointValidation(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name string
		body map[string]any
		want int
	}{
		{
			name: "valid",
			body: map[string]any{"username": "bob", "email": "bob@example.com", "password": "secret123", "is_active": true, "role": 0},
			want: http.StatusOK,
		},
		{
			name: "short password",
			body: map[string]any{"username": "carol", "email": "carol@example.com", "password": "abc"},
			want: http.StatusBadRequest,
		},
		{
			name: "bad email",
			body: map[string]any{"username": "dave", "email": "not-an-email", "password": "secret123"},
			want: http.StatusBadRequest,
		},
		{
			name: "invalid role",
			body: map[string]any{"username": "erin", "email": "erin@example.com", "password": "secret123", "role": 2},
			want: http.StatusBadRequest,
		},
		{
			name: "duplicate username",
			body: map[string]any{"username": "bob", "email": "other@example.com", "password": "secret123"},
			want: http.StatusBadRequest,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/auth/register", "", tc.body)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d; body = %s", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestListUsersRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "alice", "secret123", domain.RoleUser)
	env.seed(t, "root", "secret123", domain.RoleAdmin)

	if rec := env.do(t, http.MethodGet, "/api/auth/users", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", rec.Code)
	}

	userToken := env.login(t, "alice", "secret123")
	if rec := env.do(t, http.MethodGet, "/api/auth/users", userToken, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("user status = %d, want 403", rec.Code)
	}

	adminToken := env.login(t, "root", "secret123")
	rec := env.do(t, http.MethodGet, "/api/auth/users", adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin status = %d, want 200; body = %s", rec.Code, rec.Body.String())
	}

	var profiles []domain.Profile
	if err := json.Unmarshal(rec.Body.Bytes(), &profiles); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("len(profiles) = %d, want 2", len(profiles))
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("password")) {
		t.Fatal("listing leaked password material")
	}
}

func TestEditEndpoint(t *testing.T) {
	env := newTestEnv(t)
	target := env.seed(t, "alice", "secret123", domain.RoleUser)
	env.seed(t, "root", "secret123", domain.RoleAdmin)
	adminToken := env.login(t, "root", "secret123")

	path := "/api/auth/edit/" + strconv.FormatInt(target.ID, 10)
	rec := env.do(t, http.MethodPut, path, adminToken, map[string]any{"email": "new@example.com"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", rec.Code, rec.Body.String())
	}

	stored, _ := env.repo.FindByID(context.Background(), target.ID)
	if stored.Email != "new@example.com" {
		t.Fatalf("email = %q, want new@example.com", stored.Email)
	}

	if rec := env.do(t, http.MethodPut, "/api/auth/edit/abc", adminToken, map[string]any{}); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d, want 400", rec.Code)
	}

	if rec := env.do(t, http.MethodPut, "/api/auth/edit/999", adminToken, map[string]any{"email": "x@example.com"}); rec.Code != http.StatusNotFound {
		t.Fatalf("missing user status = %d, want 404", rec.Code)
	}
}

func TestDeleteEndpointRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	target := env.seed(t, "alice", "secret123", domain.RoleUser)
	env.seed(t, "root", "secret123", domain.RoleAdmin)

	userToken := env.login(t, "alice", "secret123")
	path := "/api/auth/delete/" + strconv.FormatInt(target.ID, 10)

	if rec := env.do(t, http.MethodDelete, path, userToken, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("user status = %d, want 403", rec.Code)
	}

	adminToken := env.login(t, "root", "secret123")
	if rec := env.do(t, http.MethodDelete, path, adminToken, nil); rec.Code != http.StatusOK {
		t.Fatalf("admin status = %d, want 200", rec.Code)
	}

	if rec := env.do(t, http.MethodDelete, path, adminToken, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rec.Code)
	}
}

func TestProfileEndpointReturnsCaller(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "alice", "secret123", domain.RoleUser)
	token := env.login(t, "alice", "secret123")

	rec := env.do(t, http.MethodGet, "/api/auth/user", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", rec.Code, rec.Body.String())
	}

	var profile domain.Profile
	if err := json.Unmarshal(rec.Body.Bytes(), &profile); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if profile.Username != "alice" {
		t.Fatalf("username = %q, want alice", profile.Username)
	}
}

func TestUsernameEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "alice", "secret123", domain.RoleUser)
	token := env.login(t, "alice", "secret123")

	rec := env.do(t, http.MethodGet, "/api/auth/username", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["username"] != "alice" {
		t.Fatalf("username = %q, want alice", resp["username"])
	}
}

func TestLogoutEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "alice", "secret123", domain.RoleUser)
	token := env.login(t, "alice", "secret123")

	rec := env.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	// Tokens are stateless: the same token keeps working after logout.
	if rec := env.do(t, http.MethodGet, "/api/auth/user", token, nil); rec.Code != http.StatusOK {
		t.Fatalf("post-logout status = %d, want 200", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(t, http.MethodGet, "/api/auth/login", "", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}
