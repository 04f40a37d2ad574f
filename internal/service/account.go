package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/dogrun-backend/internal/auth"
	"github.com/iliyamo/dogrun-backend/internal/model"
	"github.com/iliyamo/dogrun-backend/internal/repository"
)

// UserAccounts is the user storage used by login and registration.
type UserAccounts interface {
	GetByEmail(ctx context.Context, email string) (model.User, error)
	Create(ctx context.Context, u *model.User) error
}

// AdminAccounts is the admin storage used by admin login.
type AdminAccounts interface {
	GetByEmail(ctx context.Context, email string) (model.AdminUser, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

// Credentials checks passwords.
type Credentials interface {
	PasswordHasher
	Verify(plain, hash string) bool
}

// AccountService handles member and admin login plus direct registration.
type AccountService struct {
	users  UserAccounts
	admins AdminAccounts
	creds  Credentials
	tokens *auth.TokenService
	audit  AuditSink
	now    func() time.Time
}

func NewAccountService(users UserAccounts, admins AdminAccounts, creds Credentials, tokens *auth.TokenService, audit AuditSink) *AccountService {
	return &AccountService{
		users:  users,
		admins: admins,
		creds:  creds,
		tokens: tokens,
		audit:  audit,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Login checks a member's credentials and issues a user token.
func (s *AccountService) Login(ctx context.Context, email, password string) (auth.Token, model.User, error) {
	u, err := s.users.GetByEmail(ctx, auth.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return auth.Token{}, model.User{}, auth.ErrInvalidCredentials
		}
		return auth.Token{}, model.User{}, err
	}
	if !s.creds.Verify(password, u.PasswordHash) {
		return auth.Token{}, model.User{}, auth.ErrInvalidCredentials
	}
	tok, err := s.tokens.IssueUserToken(u.Email, 0)
	if err != nil {
		return auth.Token{}, model.User{}, err
	}
	return tok, u, nil
}

// AdminLogin checks an admin's credentials, refuses inactive accounts,
// records last_login and issues an admin token.
func (s *AccountService) AdminLogin(ctx context.Context, email, password string, actx AuditContext) (auth.Token, model.AdminUser, error) {
	a, err := s.admins.GetByEmail(ctx, auth.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return auth.Token{}, model.AdminUser{}, auth.ErrInvalidCredentials
		}
		return auth.Token{}, model.AdminUser{}, err
	}
	if !a.IsActive || !s.creds.Verify(password, a.PasswordHash) {
		return auth.Token{}, model.AdminUser{}, auth.ErrInvalidCredentials
	}

	now := s.now()
	if err := s.admins.TouchLastLogin(ctx, a.ID, now); err != nil {
		return auth.Token{}, model.AdminUser{}, fmt.Errorf("update last login: %w", err)
	}
	a.LastLogin = &now

	tok, err := s.tokens.IssueAdminToken(a.Email, 0)
	if err != nil {
		return auth.Token{}, model.AdminUser{}, err
	}
	s.audit.Record(ctx, NewAdminLog(a.ID, model.ActionAdminLogin, model.TargetAdminUser, a.ID, "", actx))
	return tok, a, nil
}

// Register creates a member directly, bypassing the application workflow.
func (s *AccountService) Register(ctx context.Context, profile model.User, password string) (model.User, error) {
	hash, err := s.creds.Hash(password)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}
	now := s.now()
	profile.ID = uuid.NewString()
	profile.Email = auth.NormalizeEmail(profile.Email)
	profile.PasswordHash = hash
	profile.CreatedAt = now
	profile.UpdatedAt = now

	if err := s.users.Create(ctx, &profile); err != nil {
		return model.User{}, err
	}
	return profile, nil
}
