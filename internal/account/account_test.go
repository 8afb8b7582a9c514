package account

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"curabot/internal/auth"
	"curabot/internal/db"
	"curabot/internal/session"
)

type memoryStore struct {
	mu      sync.Mutex
	nextID  int64
	byEmail map[string]*db.User
	touched map[int64]time.Time
}

func newMemoryStore() *memoryStore {
	return &memoryStore{byEmail: make(map[string]*db.User), touched: make(map[int64]time.Time)}
}

func (m *memoryStore) CreateUser(_ context.Context, u *db.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[u.Email]; ok {
		return db.ErrUserExists
	}
	m.nextID++
	u.ID = m.nextID
	u.CreatedAt = time.Now()
	m.byEmail[u.Email] = u
	return nil
}

func (m *memoryStore) FindUserByEmail(_ context.Context, email string) (*db.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byEmail[email]
	if !ok {
		return nil, db.ErrUserNotFound
	}
	return u, nil
}

func (m *memoryStore) TouchLastLogin(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touched[id] = at
	return nil
}

func newTestService(t *testing.T) (*Service, *memoryStore, *session.Registry) {
	t.Helper()
	tokens, err := auth.NewTokenManager("test-secret", time.Hour)
	require.NoError(t, err)
	store := newMemoryStore()
	sessions := session.NewRegistry(0, 0)
	return NewService(store, tokens, sessions), store, sessions
}

func validSignUp() SignUpRequest {
	return SignUpRequest{
		FirstName:       "Jane",
		Email:           "Jane@Example.com ",
		Password:        "s3cret-pass",
		ConfirmPassword: "s3cret-pass",
	}
}

func TestSignUpStoresHashedPassword(t *testing.T) {
	svc, store, _ := newTestService(t)

	user, err := svc.SignUp(context.Background(), validSignUp())
	require.NoError(t, err)

	assert.Equal(t, "jane@example.com", user.Email)
	assert.NotEqual(t, "s3cret-pass", user.PasswordHash)
	assert.True(t, auth.CheckPassword("s3cret-pass", store.byEmail["jane@example.com"].PasswordHash))
}

func TestSignUpValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *SignUpRequest)
	}{
		{"missing first name", func(r *SignUpRequest) { r.FirstName = "  " }},
		{"missing email", func(r *SignUpRequest) { r.Email = "" }},
		{"malformed email", func(r *SignUpRequest) { r.Email = "not-an-email" }},
		{"missing password", func(r *SignUpRequest) { r.Password, r.ConfirmPassword = "", "" }},
		{"passwords differ", func(r *SignUpRequest) { r.ConfirmPassword = "other" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestService(t)
			req := validSignUp()
			tt.mutate(&req)

			_, err := svc.SignUp(context.Background(), req)

			var vErr *ValidationError
			assert.ErrorAs(t, err, &vErr)
		})
	}
}

func TestSignUpRejectsDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.SignUp(context.Background(), validSignUp())
	require.NoError(t, err)

	req := validSignUp()
	req.Email = "JANE@example.com"
	_, err = svc.SignUp(context.Background(), req)

	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginCreatesSession(t *testing.T) {
	svc, store, sessions := newTestService(t)
	_, err := svc.SignUp(context.Background(), validSignUp())
	require.NoError(t, err)

	res, err := svc.Login(context.Background(), LoginRequest{Email: "jane@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)

	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "Jane", res.Session.FirstName)
	got, ok := sessions.Get(res.Session.ID)
	require.True(t, ok)
	assert.Same(t, res.Session, got)
	assert.Contains(t, store.touched, int64(1))
	assert.True(t, res.Session.ExpiresAt.Equal(res.ExpiresAt))
}

func TestLoginWhileSweeping(t *testing.T) {
	svc, _, sessions := newTestService(t)
	_, err := svc.SignUp(context.Background(), validSignUp())
	require.NoError(t, err)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				sessions.Sweep(time.Now())
			}
		}
	}()

	for i := 0; i < 20; i++ {
		res, err := svc.Login(context.Background(), LoginRequest{Email: "jane@example.com", Password: "s3cret-pass"})
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(time.Hour), res.Session.ExpiresAt, 5*time.Second)
	}
	close(done)
	wg.Wait()

	assert.Equal(t, 20, sessions.Len())
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _, sessions := newTestService(t)
	_, err := svc.SignUp(context.Background(), validSignUp())
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), LoginRequest{Email: "jane@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	assert.Zero(t, sessions.Len())
}

func TestLogoutDeletesSession(t *testing.T) {
	svc, _, sessions := newTestService(t)
	_, err := svc.SignUp(context.Background(), validSignUp())
	require.NoError(t, err)
	res, err := svc.Login(context.Background(), LoginRequest{Email: "jane@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)

	svc.Logout(res.Session.ID)

	_, ok := sessions.Get(res.Session.ID)
	assert.False(t, ok)
}
