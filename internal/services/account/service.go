package account

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/text/secure/precis"

	"relaychat/internal/domain"
	"relaychat/internal/util/memzero"
)

const (
	// MaxUsernameLength is the longest accepted username in bytes after
	// normalisation.
	MaxUsernameLength = 64
)

var (
	// ErrInvalidCredentials is returned by Login for an unknown username or
	// a wrong password; the two are not distinguished.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrInvalidUsername is returned by Register for names rejected by the
	// username profile.
	ErrInvalidUsername = errors.New("username is invalid")
	// ErrInvalidPassword is returned by Register for an empty password.
	ErrInvalidPassword = errors.New("password is invalid")
)

// Service checks and creates accounts.
type Service struct {
	accounts domain.CredentialStore
	hasher   domain.PasswordHasher
}

// New returns an account service over the given store and hasher.
func New(accounts domain.CredentialStore, hasher domain.PasswordHasher) *Service {
	return &Service{accounts: accounts, hasher: hasher}
}

// NormalizeUsername applies the username profile to raw.
func NormalizeUsername(raw string) (domain.Username, error) {
	s, err := precis.UsernameCasePreserved.String(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidUsername, err)
	}
	if len(s) > MaxUsernameLength {
		return "", fmt.Errorf("%w: longer than %d bytes", ErrInvalidUsername, MaxUsernameLength)
	}
	return domain.Username(s), nil
}

// Login returns the canonical username when password matches. password is
// wiped before Login returns.
func (s *Service) Login(ctx context.Context, username string, password []byte) (domain.Username, error) {
	defer memzero.Zero(password)

	name, err := NormalizeUsername(username)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	digest := s.hasher.Digest(name, password)
	defer memzero.Zero(digest)

	_, ok, err := s.accounts.Lookup(ctx, name, digest)
	if err != nil {
		return "", fmt.Errorf("lookup account: %w", err)
	}
	if !ok {
		return "", ErrInvalidCredentials
	}
	return name, nil
}

// Register creates an account and returns its canonical username. password
// is wiped before Register returns. An existing name fails with
// domain.ErrUsernameTaken.
func (s *Service) Register(ctx context.Context, username string, password []byte) (domain.Username, error) {
	defer memzero.Zero(password)

	name, err := NormalizeUsername(username)
	if err != nil {
		return "", err
	}
	if len(password) == 0 {
		return "", ErrInvalidPassword
	}

	exists, err := s.accounts.Exists(ctx, name)
	if err != nil {
		return "", fmt.Errorf("check account: %w", err)
	}
	if exists {
		return "", domain.ErrUsernameTaken
	}

	digest := s.hasher.Digest(name, password)
	defer memzero.Zero(digest)
	if err := s.accounts.Insert(ctx, name, digest); err != nil {
		if errors.Is(err, domain.ErrUsernameTaken) {
			return "", err
		}
		return "", fmt.Errorf("insert account: %w", err)
	}
	return name, nil
}
