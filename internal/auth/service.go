package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/abduss/bitbeem/internal/config"
	"github.com/abduss/bitbeem/internal/ident"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const maxPasswordLength = 72 // bcrypt limit

// identityStore abstracts the persistence layer.
type identityStore interface {
	CreateIdentity(ctx context.Context, key, username, passwordHash string) (Identity, error)
	FindByKey(ctx context.Context, key string) (Identity, error)
	FindByUsername(ctx context.Context, username string) (Identity, error)
}

// Service registers identities and resolves keys to usernames.
type Service struct {
	store  identityStore
	cfg    config.AuthConfig
	newKey func() (string, error)
	log    *zap.Logger
}

// NewService creates a Service with dependencies.
func NewService(store identityStore, cfg config.AuthConfig, log *zap.Logger) *Service {
	return &Service{
		store:  store,
		cfg:    cfg,
		newKey: ident.New,
		log:    log.Named("auth"),
	}
}

// RegisterInput carries data for registration.
type RegisterInput struct {
	Username string
	Password string
}

// Register creates a new identity with a fresh key. It fails with ErrRegistrationDisabled
// before touching the store when self-registration is off.
func (s *Service) Register(ctx context.Context, input RegisterInput) (Identity, error) {
	if !s.cfg.AllowRegister {
		return Identity{}, ErrRegistrationDisabled
	}

	username := strings.TrimSpace(input.Username)
	if err := validateCredentials(username, input.Password); err != nil {
		return Identity{}, err
	}

	// Cheap rejection before hashing; CreateIdentity still guards the race.
	if _, err := s.Lookup(ctx, username); err == nil {
		return Identity{}, ErrUsernameTaken
	} else if !errors.Is(err, ErrIdentityNotFound) {
		return Identity{}, fmt.Errorf("lookup identity: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cfg.BcryptCost)
	if err != nil {
		return Identity{}, fmt.Errorf("hash password: %w", err)
	}

	key, err := s.newKey()
	if err != nil {
		return Identity{}, fmt.Errorf("generate key: %w", err)
	}

	identity, err := s.store.CreateIdentity(ctx, key, username, string(hashedPassword))
	if err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return Identity{}, ErrUsernameTaken
		}
		s.log.Error("create identity failed", zap.String("username", username), zap.Error(err))
		return Identity{}, fmt.Errorf("create identity: %w", err)
	}

	s.log.Info("identity registered", zap.String("username", identity.Username))
	return identity.SafeIdentity(), nil
}

// Authenticate resolves key to the owning username.
func (s *Service) Authenticate(ctx context.Context, key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrUnauthorized
	}

	identity, err := s.store.FindByKey(ctx, key)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return "", ErrUnauthorized
		}
		return "", fmt.Errorf("find identity: %w", err)
	}
	return identity.Username, nil
}

// Lookup returns the identity registered under username, without its password hash.
func (s *Service) Lookup(ctx context.Context, username string) (Identity, error) {
	identity, err := s.store.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return Identity{}, err
	}
	return identity.SafeIdentity(), nil
}

func validateCredentials(username, password string) error {
	if username == "" || strings.TrimSpace(password) == "" {
		return ErrInvalidCredentials
	}
	if len(password) > maxPasswordLength {
		return ErrInvalidCredentials
	}
	return nil
}
