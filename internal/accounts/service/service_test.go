package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smrs-space/smrs-backend/internal/accounts/domain"
	"github.com/smrs-space/smrs-backend/internal/apperr"
	"github.com/smrs-space/smrs-backend/internal/auth"
	"github.com/smrs-space/smrs-backend/internal/mail"
)

type fakeStore struct {
	accounts map[string]*domain.Account
	nextID   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{accounts: map[string]*domain.Account{}, nextID: 1}
}

func (f *fakeStore) seed(id, email, password, role, status string) {
	hash, _ := auth.HashPassword(password)
	f.accounts[id] = &domain.Account{
		ID: id, Email: email, Role: role, Status: status, PasswordHash: hash,
	}
}

func (f *fakeStore) Create(_ context.Context, in domain.CreateInput, hash string) (*domain.Account, error) {
	for _, a := range f.accounts {
		if a.Email == in.Email {
			return nil, apperr.Conflict("email already registered")
		}
	}
	id := fmt.Sprintf("acc-%d", f.nextID)
	f.nextID++
	a := &domain.Account{
		ID: id, Email: in.Email, Name: in.Name, Phone: in.Phone, Age: in.Age,
		Avatar: in.Avatar, Role: in.Role, Status: domain.StatusActive, PasswordHash: hash,
	}
	f.accounts[id] = a
	return a, nil
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*domain.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, apperr.NotFound("account not found")
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	for _, a := range f.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("account not found")
}

func (f *fakeStore) Update(_ context.Context, id string, in domain.UpdateInput) (*domain.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, apperr.NotFound("account not found")
	}
	a.Name, a.Phone, a.Age, a.Avatar = in.Name, in.Phone, in.Age, in.Avatar
	cp := *a
	return &cp, nil
}

func (f *fakeStore) List(_ context.Context, page, size int) ([]domain.Account, int64, error) {
	out := make([]domain.Account, 0, len(f.accounts))
	for _, a := range f.accounts {
		out = append(out, *a)
	}
	return out, int64(len(out)), nil
}

func (f *fakeStore) SetStatus(_ context.Context, id, status string) error {
	a, ok := f.accounts[id]
	if !ok {
		return apperr.NotFound("account not found")
	}
	a.Status = status
	return nil
}

func (f *fakeStore) SetPasswordHash(_ context.Context, id, hash string) error {
	a, ok := f.accounts[id]
	if !ok {
		return apperr.NotFound("account not found")
	}
	a.PasswordHash = hash
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	if _, ok := f.accounts[id]; !ok {
		return apperr.NotFound("account not found")
	}
	delete(f.accounts, id)
	return nil
}

type fakeMailer struct {
	jobs []mail.Job
}

func (f *fakeMailer) Publish(_ context.Context, job mail.Job) error {
	f.jobs = append(f.jobs, job)
	return nil
}

func newService(store *fakeStore, mailer *fakeMailer) *Service {
	return New(store, mailer, 24, zerolog.Nop())
}

func TestMain(m *testing.M) {
	auth.SetJWTSecret("test-secret")
	m.Run()
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials", func(t *testing.T) {
		store := newFakeStore()
		store.seed("a1", "alice@uni.edu", "s3cret", domain.RoleLecturer, domain.StatusActive)

		res, err := newService(store, &fakeMailer{}).Login(ctx, " Alice@uni.edu ", "s3cret")
		require.NoError(t, err)
		assert.NotEmpty(t, res.Token)
		assert.Equal(t, "a1", res.Account.ID)

		claims, err := auth.ParseToken(res.Token)
		require.NoError(t, err)
		assert.Equal(t, "a1", claims.AccountID)
		assert.Equal(t, domain.RoleLecturer, claims.Role)
	})

	t.Run("wrong password", func(t *testing.T) {
		store := newFakeStore()
		store.seed("a1", "alice@uni.edu", "s3cret", domain.RoleLecturer, domain.StatusActive)

		_, err := newService(store, &fakeMailer{}).Login(ctx, "alice@uni.edu", "nope")
		assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	})

	t.Run("unknown email maps to unauthenticated", func(t *testing.T) {
		store := newFakeStore()
		_, err := newService(store, &fakeMailer{}).Login(ctx, "ghost@uni.edu", "s3cret")
		assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	})

	t.Run("locked account", func(t *testing.T) {
		store := newFakeStore()
		store.seed("a1", "alice@uni.edu", "s3cret", domain.RoleLecturer, domain.StatusLocked)

		_, err := newService(store, &fakeMailer{}).Login(ctx, "alice@uni.edu", "s3cret")
		assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	})
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults to student role", func(t *testing.T) {
		store := newFakeStore()
		acc, err := newService(store, &fakeMailer{}).Create(ctx, domain.CreateInput{
			Email: "Bob@uni.edu", Password: "pw", Name: "Bob",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.RoleStudent, acc.Role)
		assert.Equal(t, "bob@uni.edu", acc.Email)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		store := newFakeStore()
		svc := newService(store, &fakeMailer{})
		_, err := svc.Create(ctx, domain.CreateInput{Email: "bob@uni.edu", Password: "pw"})
		require.NoError(t, err)

		_, err = svc.Create(ctx, domain.CreateInput{Email: "bob@uni.edu", Password: "pw"})
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("unknown role rejected", func(t *testing.T) {
		store := newFakeStore()
		_, err := newService(store, &fakeMailer{}).Create(ctx, domain.CreateInput{
			Email: "bob@uni.edu", Password: "pw", Role: "OVERLORD",
		})
		assert.Error(t, err)
	})
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.seed("a1", "alice@uni.edu", "old-pw", domain.RoleStudent, domain.StatusActive)
	svc := newService(store, &fakeMailer{})

	t.Run("wrong old password", func(t *testing.T) {
		err := svc.ChangePassword(ctx, "a1", "wrong", "new-pw")
		assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	})

	t.Run("success then login with new password", func(t *testing.T) {
		require.NoError(t, svc.ChangePassword(ctx, "a1", "old-pw", "new-pw"))

		_, err := svc.Login(ctx, "alice@uni.edu", "old-pw")
		assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

		_, err = svc.Login(ctx, "alice@uni.edu", "new-pw")
		assert.NoError(t, err)
	})
}

func TestForgotPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown email is not found", func(t *testing.T) {
		err := newService(newFakeStore(), &fakeMailer{}).ForgotPassword(ctx, "ghost@uni.edu")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("issues temp password and enqueues mail", func(t *testing.T) {
		store := newFakeStore()
		store.seed("a1", "alice@uni.edu", "old-pw", domain.RoleStudent, domain.StatusActive)
		mailer := &fakeMailer{}
		svc := newService(store, mailer)

		require.NoError(t, svc.ForgotPassword(ctx, "alice@uni.edu"))
		require.Len(t, mailer.jobs, 1)
		assert.Equal(t, "alice@uni.edu", mailer.jobs[0].To)
		assert.NotEmpty(t, mailer.jobs[0].Body)

		// the old password no longer works, the mailed one does
		_, err := svc.Login(ctx, "alice@uni.edu", "old-pw")
		assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

		_, err = svc.Login(ctx, "alice@uni.edu", mailer.jobs[0].Body)
		assert.NoError(t, err)
	})
}

func TestLockActivate(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.seed("a1", "alice@uni.edu", "pw", domain.RoleStudent, domain.StatusActive)
	svc := newService(store, &fakeMailer{})

	require.NoError(t, svc.Lock(ctx, "a1"))
	_, err := svc.Login(ctx, "alice@uni.edu", "pw")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	require.NoError(t, svc.Activate(ctx, "a1"))
	_, err = svc.Login(ctx, "alice@uni.edu", "pw")
	assert.NoError(t, err)

	assert.ErrorIs(t, svc.Lock(ctx, "nope"), apperr.ErrNotFound)
}
