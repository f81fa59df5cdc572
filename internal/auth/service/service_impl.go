package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/trailbook/internal/auth/domain"
	"github.com/smallbiznis/trailbook/internal/auth/password"
	"github.com/smallbiznis/trailbook/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const minPasswordLength = 8

// dummyHash keeps unknown usernames on the same argon2 cost as wrong passwords.
var dummyHash, _ = password.Hash("trailbook-dummy-password")

type Params struct {
	fx.In

	Log   *zap.Logger
	Repo  domain.Repository
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	log   *zap.Logger
	repo  domain.Repository
	genID *snowflake.Node
	clock clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		log:   p.Log.Named("auth.service"),
		repo:  p.Repo,
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *Service) Authenticate(ctx context.Context, username, secret string) (domain.AdminUser, error) {
	username = normalizeUsername(username)
	if username == "" || secret == "" {
		return domain.AdminUser{}, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByUsername(ctx, username)
	if errors.Is(err, domain.ErrUserNotFound) {
		password.Verify(secret, dummyHash)
		return domain.AdminUser{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return domain.AdminUser{}, err
	}
	if !password.Verify(secret, user.PasswordHash) {
		s.log.Info("admin login rejected", zap.String("username", username))
		return domain.AdminUser{}, domain.ErrInvalidCredentials
	}
	if password.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user, secret)
	}
	return *user, nil
}

// rehash upgrades a stored hash to the current argon2 costs. Failures only
// cost another rehash on the next login.
func (s *Service) rehash(ctx context.Context, user *domain.AdminUser, secret string) {
	hashed, err := password.Hash(secret)
	if err != nil {
		s.log.Warn("admin password rehash failed", zap.String("username", user.Username), zap.Error(err))
		return
	}
	user.PasswordHash = hashed
	user.UpdatedAt = s.clock.Now()
	if err := s.repo.Save(ctx, user); err != nil {
		s.log.Warn("admin password rehash failed", zap.String("username", user.Username), zap.Error(err))
	}
}

func (s *Service) Upsert(ctx context.Context, username, secret, role string) (domain.AdminUser, error) {
	username = normalizeUsername(username)
	if username == "" || strings.ContainsAny(username, ": \t") {
		return domain.AdminUser{}, domain.ErrInvalidUsername
	}
	if len(secret) < minPasswordLength {
		return domain.AdminUser{}, domain.ErrWeakPassword
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		role = domain.RoleAdmin
	}
	if !domain.ValidRole(role) {
		return domain.AdminUser{}, domain.ErrInvalidRole
	}

	hashed, err := password.Hash(secret)
	if err != nil {
		return domain.AdminUser{}, err
	}
	now := s.clock.Now()

	existing, err := s.repo.FindByUsername(ctx, username)
	if errors.Is(err, domain.ErrUserNotFound) {
		user := domain.AdminUser{
			ID:           s.genID.Generate(),
			Username:     username,
			PasswordHash: hashed,
			Role:         role,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		err = s.repo.Create(ctx, &user)
		if err == nil {
			s.log.Info("admin user created", zap.String("username", username), zap.String("role", role))
			return user, nil
		}
		if !errors.Is(err, domain.ErrUsernameTaken) {
			return domain.AdminUser{}, err
		}
		// another process created it first; fall back to updating that row
		existing, err = s.repo.FindByUsername(ctx, username)
	}
	if err != nil {
		return domain.AdminUser{}, err
	}

	existing.PasswordHash = hashed
	existing.Role = role
	existing.UpdatedAt = now
	if err := s.repo.Save(ctx, existing); err != nil {
		return domain.AdminUser{}, err
	}
	s.log.Info("admin user updated", zap.String("username", username), zap.String("role", role))
	return *existing, nil
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
