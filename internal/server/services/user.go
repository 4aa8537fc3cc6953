// Package services contains server-side business logic. This file implements
// UserService, which handles registration, login and logout on top of the
// password hasher and the session token codec.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/gotodo/internal/common"
	"github.com/dmitrijs2005/gotodo/internal/logging"
	"github.com/dmitrijs2005/gotodo/internal/server/auth"
	"github.com/dmitrijs2005/gotodo/internal/server/metrics"
	"github.com/dmitrijs2005/gotodo/internal/server/models"
	"github.com/dmitrijs2005/gotodo/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gotodo/internal/server/revocation"
)

var (
	// ErrInvalidRegistration covers every registration rejection. Which field
	// conflicted is deliberately not reported.
	ErrInvalidRegistration = errors.New("Invalid registration request")

	// ErrInvalidCredentials covers unknown users, wrong passwords and
	// inactive accounts alike.
	ErrInvalidCredentials = errors.New("Incorrect Username or Password")
)

// RegisterRequest is the registration form.
type RegisterRequest struct {
	Email     string
	Username  string
	FirstName string
	LastName  string
	Password  string
	Password2 string
}

func (req RegisterRequest) fitsColumns() bool {
	return utf8.RuneCountInString(req.Email) <= common.MaxEmailLength &&
		utf8.RuneCountInString(req.Username) <= common.MaxUsernameLength &&
		utf8.RuneCountInString(req.FirstName) <= common.MaxNameLength &&
		utf8.RuneCountInString(req.LastName) <= common.MaxNameLength
}

// UserService provides authentication-related operations:
// - Register: create users
// - Login: verify credentials and mint a session token
// - Logout: revoke the token when a revocation store is configured
type UserService struct {
	repomanager repomanager.RepositoryManager
	hasher      auth.PasswordHasher
	codec       *auth.TokenCodec
	loginTTL    time.Duration
	revocations revocation.Store
	logger      logging.Logger
}

type UserServiceOption func(*UserService)

// WithRevocationStore makes Logout revoke the token id until it expires.
func WithRevocationStore(s revocation.Store) UserServiceOption {
	return func(us *UserService) { us.revocations = s }
}

func WithUserLogger(l logging.Logger) UserServiceOption {
	return func(us *UserService) { us.logger = l }
}

// NewUserService wires the service. loginTTL is the lifetime of tokens issued
// by Login.
func NewUserService(m repomanager.RepositoryManager, hasher auth.PasswordHasher, codec *auth.TokenCodec, loginTTL time.Duration, opts ...UserServiceOption) *UserService {
	s := &UserService{
		repomanager: m,
		hasher:      hasher,
		codec:       codec,
		loginTTL:    loginTTL,
		logger:      logging.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register validates req, then checks username and email uniqueness and
// inserts the user inside one transaction. Every rejection is
// ErrInvalidRegistration; store failures are common.ErrorInternal.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)

	if req.Email == "" || req.Username == "" || req.Password == "" || req.Password != req.Password2 || !req.fitsColumns() {
		metrics.Registrations.WithLabelValues("rejected").Inc()
		return nil, ErrInvalidRegistration
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		// bcrypt refuses passwords over 72 bytes
		metrics.Registrations.WithLabelValues("rejected").Inc()
		return nil, ErrInvalidRegistration
	}

	user := &models.User{
		Email:        req.Email,
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hash,
		IsActive:     true,
	}

	err = s.repomanager.InTx(ctx, func(ctx context.Context, tx repomanager.RepositoryManager) error {
		repo := tx.Users()
		if err := absent(repo.FindByUsername(ctx, user.Username)); err != nil {
			return err
		}
		if err := absent(repo.FindByEmail(ctx, user.Email)); err != nil {
			return err
		}
		var err error
		user, err = repo.Insert(ctx, user)
		return err
	})

	switch {
	case err == nil:
		metrics.Registrations.WithLabelValues("created").Inc()
		s.logger.Info(ctx, "user registered", "user_id", user.ID)
		return user, nil
	case errors.Is(err, common.ErrorAlreadyExists):
		metrics.Registrations.WithLabelValues("rejected").Inc()
		return nil, ErrInvalidRegistration
	default:
		metrics.Registrations.WithLabelValues("error").Inc()
		s.logger.Error(ctx, "registration failed", "error", err)
		return nil, common.ErrorInternal
	}
}

// absent turns a lookup result into nil when nothing was found and
// common.ErrorAlreadyExists when something was.
func absent(_ *models.User, err error) error {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return nil
	case err != nil:
		return err
	default:
		return common.ErrorAlreadyExists
	}
}

// Login verifies the password and returns a token valid for the configured
// login ttl. An unknown user is still checked against the dummy hash so the
// two failure paths take the same time and return the same error.
func (s *UserService) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	user, err := s.repomanager.Users().FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		metrics.Logins.WithLabelValues("error").Inc()
		s.logger.Error(ctx, "user lookup failed", "error", err)
		return "", nil, common.ErrorInternal
	}

	hash := s.hasher.DummyHash()
	if user != nil {
		hash = user.PasswordHash
	}
	ok := s.hasher.Verify(password, hash)

	if user == nil || !ok || !user.IsActive {
		metrics.Logins.WithLabelValues("failure").Inc()
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.codec.Issue(user.Username, user.ID, auth.WithTTL(s.loginTTL))
	if err != nil {
		metrics.Logins.WithLabelValues("error").Inc()
		s.logger.Error(ctx, "token issue failed", "error", err)
		return "", nil, common.ErrorInternal
	}

	metrics.Logins.WithLabelValues("success").Inc()
	return token, user, nil
}

// LoginTTL is the lifetime of tokens returned by Login.
func (s *UserService) LoginTTL() time.Duration {
	return s.loginTTL
}

// Logout revokes token until its natural expiry when a revocation store is
// configured. Without one, or for a token that no longer verifies, it is a
// no-op: the caller clears the cookie either way.
func (s *UserService) Logout(ctx context.Context, token string) error {
	if s.revocations == nil || token == "" {
		return nil
	}

	info, err := s.codec.Inspect(token)
	if err != nil {
		return nil
	}

	if err := s.revocations.Revoke(ctx, info.ID, info.ExpiresAt); err != nil {
		s.logger.Error(ctx, "token revocation failed", "error", err)
		return common.ErrorInternal
	}
	return nil
}
