package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/smrs-space/smrs-backend/internal/accounts/domain"
	"github.com/smrs-space/smrs-backend/internal/apperr"
	"github.com/smrs-space/smrs-backend/internal/auth"
	"github.com/smrs-space/smrs-backend/internal/mail"
)

type Service struct {
	store       domain.Store
	mailer      mail.Publisher
	log         zerolog.Logger
	tokenExpire int
}

func New(store domain.Store, mailer mail.Publisher, tokenExpireHours int, log zerolog.Logger) *Service {
	return &Service{store: store, mailer: mailer, tokenExpire: tokenExpireHours, log: log}
}

type LoginResult struct {
	Token   string          `json:"token"`
	Account *domain.Account `json:"account"`
}

func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	acc, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Unauthenticated("invalid email or password")
		}
		return nil, err
	}

	if !auth.CheckPassword(password, acc.PasswordHash) {
		return nil, apperr.Unauthenticated("invalid email or password")
	}
	if acc.Status == domain.StatusLocked {
		return nil, apperr.Unauthenticated("account is locked")
	}

	token, err := auth.GenerateToken(acc.ID, acc.Email, acc.Role, s.tokenExpire)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	s.log.Info().Str("account_id", acc.ID).Msg("account logged in")
	return &LoginResult{Token: token, Account: acc}, nil
}

func (s *Service) Create(ctx context.Context, in domain.CreateInput) (*domain.Account, error) {
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if in.Email == "" || in.Password == "" {
		return nil, fmt.Errorf("email and password are required")
	}
	if in.Role == "" {
		in.Role = domain.RoleStudent
	}
	if !domain.ValidRole(in.Role) {
		return nil, fmt.Errorf("unknown role %q", in.Role)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	acc, err := s.store.Create(ctx, in, hash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, apperr.Conflict("email already registered")
		}
		return nil, err
	}

	s.log.Info().Str("account_id", acc.ID).Str("role", acc.Role).Msg("account created")
	return acc, nil
}

func (s *Service) GetMe(ctx context.Context, accountID string) (*domain.Account, error) {
	return s.store.GetByID(ctx, accountID)
}

func (s *Service) Update(ctx context.Context, accountID string, in domain.UpdateInput) (*domain.Account, error) {
	return s.store.Update(ctx, accountID, in)
}

func (s *Service) List(ctx context.Context, page, size int) ([]domain.Account, int64, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}
	return s.store.List(ctx, page, size)
}

func (s *Service) Lock(ctx context.Context, id string) error {
	return s.store.SetStatus(ctx, id, domain.StatusLocked)
}

func (s *Service) Activate(ctx context.Context, id string) error {
	return s.store.SetStatus(ctx, id, domain.StatusActive)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

func (s *Service) ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("new password is required")
	}

	acc, err := s.store.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(oldPassword, acc.PasswordHash) {
		return apperr.Unauthenticated("old password is incorrect")
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.SetPasswordHash(ctx, accountID, hash); err != nil {
		return err
	}

	s.log.Info().Str("account_id", accountID).Msg("password changed")
	return nil
}

// ForgotPassword replaces the stored hash with a generated temporary password
// and enqueues a mail job carrying it. An unknown email stays a NotFound.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))

	acc, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	temp, err := tempPassword()
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(temp)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.SetPasswordHash(ctx, acc.ID, hash); err != nil {
		return err
	}

	job := mail.Job{
		To:       acc.Email,
		Subject:  "Your temporary password",
		Template: "forgot_password",
		Body:     temp,
	}
	if err := s.mailer.Publish(ctx, job); err != nil {
		return fmt.Errorf("enqueue mail: %w", err)
	}

	s.log.Info().Str("account_id", acc.ID).Msg("temporary password issued")
	return nil
}

func tempPassword() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate temp password: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
