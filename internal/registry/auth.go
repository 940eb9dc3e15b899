package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/oshokin/installer-uploader/internal/domain/installer"
	"github.com/oshokin/installer-uploader/internal/logger"
)

// Credentials are the ways a caller can prove its identity.
type Credentials struct {
	// APIKey is a pre-issued key, tried first.
	APIKey string
	// Username and Password are used when no valid APIKey is available.
	Username string
	Password string
}

func (c Credentials) hasAPIKey() bool {
	return c.APIKey != ""
}

func (c Credentials) hasPassword() bool {
	return c.Username != "" && c.Password != ""
}

var (
	errNoCredentials      = errors.New("provide an API key, or username and password")
	errInvalidAPIKey      = errors.New("API key is not valid, provide a valid API key, or username and password")
	errInvalidCredentials = errors.New("invalid credentials, provide a valid API key, or username and password")
	errEmptyToken         = errors.New("login answer holds no token")
)

// authStrategy is one way of obtaining authenticated request headers.
type authStrategy struct {
	// name appears in logs.
	name string
	// applicable reports whether the credentials allow this strategy.
	applicable func(Credentials) bool
	// authenticate returns headers that passed validation.
	authenticate func(context.Context, *Session, Credentials) (http.Header, error)
}

// authStrategies lists strategies in the order they are tried.
func authStrategies() []authStrategy {
	return []authStrategy{
		{name: "api_key", applicable: Credentials.hasAPIKey, authenticate: apiKeyAuth},
		{name: "password", applicable: Credentials.hasPassword, authenticate: passwordAuth},
	}
}

// Connect verifies the registry is reachable and authenticates.
// An API key is tried first; a rejected key falls back to a single password
// login when username and password are present.
func Connect(ctx context.Context, endpoint string, creds Credentials, opts ...Option) (*Session, error) {
	s, err := newSession(ctx, endpoint, opts...)
	if err != nil {
		return nil, err
	}

	if err = s.ping(ctx); err != nil {
		return nil, err
	}

	if !creds.hasAPIKey() && !creds.hasPassword() {
		return nil, fmt.Errorf("%w: %w", installer.ErrAuthentication, errNoCredentials)
	}

	var lastErr error

	for _, strategy := range authStrategies() {
		if !strategy.applicable(creds) {
			continue
		}

		header, authErr := strategy.authenticate(ctx, s, creds)
		if authErr == nil {
			s.auth = header

			logger.InfoKV(ctx, "Authenticated on registry", "server", s.baseURL.String(), "method", strategy.name)

			return s, nil
		}

		if !errors.Is(authErr, installer.ErrAuthentication) {
			return nil, authErr
		}

		logger.WarnKV(ctx, "Authentication attempt rejected", "method", strategy.name, "error", authErr)

		lastErr = authErr
	}

	return nil, lastErr
}

// ping checks that the registry answers at all.
func (s *Session) ping(ctx context.Context) error {
	err := s.call(ctx, "check server", http.MethodGet, infoPath, nil, nil, nil)
	if err == nil {
		return nil
	}

	if errors.Is(err, installer.ErrRegistryUnavailable) {
		return err
	}

	return fmt.Errorf("%w: server is not available: %w", installer.ErrRegistryUnavailable, err)
}

// validate checks that header identifies a user.
func (s *Session) validate(ctx context.Context, header http.Header) error {
	return s.call(ctx, "validate credentials", http.MethodGet, currentUser, header, nil, nil)
}

func apiKeyAuth(ctx context.Context, s *Session, creds Credentials) (http.Header, error) {
	header := http.Header{}
	header.Set("X-Api-Key", creds.APIKey)

	if err := s.validate(ctx, header); err != nil {
		if errors.Is(err, installer.ErrAuthentication) {
			return nil, fmt.Errorf("%w: %w", installer.ErrAuthentication, errInvalidAPIKey)
		}

		return nil, err
	}

	return header, nil
}

// loginRequest is the password login payload.
type loginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// loginAnswer is the password login answer.
type loginAnswer struct {
	Token string `json:"token"`
}

func passwordAuth(ctx context.Context, s *Session, creds Credentials) (http.Header, error) {
	var answer loginAnswer

	payload := &loginRequest{Name: creds.Username, Password: creds.Password}

	err := s.call(ctx, "login", http.MethodPost, loginPath, nil, payload, &answer)
	if err != nil {
		if errors.Is(err, installer.ErrAuthentication) {
			return nil, fmt.Errorf("%w: %w", installer.ErrAuthentication, errInvalidCredentials)
		}

		return nil, err
	}

	if answer.Token == "" {
		return nil, fmt.Errorf("%w: %w", installer.ErrAuthentication, errEmptyToken)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+answer.Token)

	if err = s.validate(ctx, header); err != nil {
		if errors.Is(err, installer.ErrAuthentication) {
			return nil, fmt.Errorf("%w: %w", installer.ErrAuthentication, errInvalidCredentials)
		}

		return nil, err
	}

	return header, nil
}
