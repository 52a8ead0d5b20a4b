// Package session obtains a working authenticated session against the
// remote device-control service, trying cached tokens before falling back
// to stored or environment credentials.
package session

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lumectl/internal/api"
	"github.com/dokzlo13/lumectl/internal/store"
)

// Environment variables that fill in missing credential fields.
const (
	EnvEmail    = "LUMECTL_EMAIL"
	EnvPassword = "LUMECTL_PASSWORD"
	EnvKeyID    = "LUMECTL_KEY_ID"
	EnvAPIKey   = "LUMECTL_API_KEY"
)

// Remote is the slice of the API client the lifecycle manager drives.
type Remote interface {
	SetTokens(api.TokenPair)
	Login(ctx context.Context, creds api.Credentials) (api.TokenPair, error)
	ListDevices(ctx context.Context) ([]api.Device, error)
}

// Manager walks the session state machine for one command invocation.
type Manager struct {
	store  *store.Store
	remote Remote
}

// NewManager creates a Manager bound to the given store and remote client.
func NewManager(st *store.Store, remote Remote) *Manager {
	return &Manager{store: st, remote: remote}
}

// Establish leaves the remote client authenticated, or returns an error
// that is fatal for the current command. A cached token pair is tried
// first with one lightweight verification call; any failure there clears
// the cache and falls through to a fresh login, never to the user.
func (m *Manager) Establish(ctx context.Context) error {
	pair, err := m.store.LoadTokens()
	if err != nil {
		return err
	}
	if pair != nil {
		m.remote.SetTokens(api.TokenPair{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
		_, verifyErr := m.remote.ListDevices(ctx)
		if verifyErr == nil {
			log.Debug().Msg("Cached session tokens verified")
			return nil
		}
		log.Debug().Err(verifyErr).Msg("Cached session tokens rejected, falling back to login")
		m.remote.SetTokens(api.TokenPair{})
		if err := m.store.ClearTokens(); err != nil {
			return err
		}
	}

	creds, err := m.mergedCredentials()
	if err != nil {
		return err
	}
	if missing := creds.Missing(); len(missing) > 0 {
		return fmt.Errorf("credentials incomplete (missing %s); run 'lumectl auth' to set them up",
			strings.Join(missing, ", "))
	}

	fresh, err := m.login(ctx, creds)
	if err != nil {
		return err
	}

	// Persist before first use so the next invocation skips the login.
	if err := m.store.SaveTokens(store.TokenPair(fresh)); err != nil {
		return err
	}
	m.remote.SetTokens(fresh)
	return nil
}

// login performs one fresh login attempt and classifies the failure.
func (m *Manager) login(ctx context.Context, creds store.Credentials) (api.TokenPair, error) {
	pair, err := m.remote.Login(ctx, api.Credentials{
		Email:    creds.Email,
		Password: creds.Password,
		KeyID:    creds.KeyID,
		APIKey:   creds.APIKey,
	})
	if err != nil {
		return api.TokenPair{}, describeLoginFailure(err)
	}
	return pair, nil
}

// describeLoginFailure turns a classified API error into user guidance.
func describeLoginFailure(err error) error {
	switch {
	case api.IsRateLimited(err):
		return fmt.Errorf("login rate-limited by the service; wait a few minutes before retrying: %w", err)
	case api.IsTransient(err):
		return fmt.Errorf("the service intermittently rejects valid logins; wait and retry, or check the service status page: %w", err)
	default:
		return fmt.Errorf("login failed: %w", err)
	}
}

// mergedCredentials loads the persisted set and fills any still-missing
// field from the environment.
func (m *Manager) mergedCredentials() (store.Credentials, error) {
	creds, err := m.store.LoadCredentials()
	if err != nil {
		return store.Credentials{}, err
	}
	if creds.Email == "" {
		creds.Email = os.Getenv(EnvEmail)
	}
	if creds.Password == "" {
		creds.Password = os.Getenv(EnvPassword)
	}
	if creds.KeyID == "" {
		creds.KeyID = os.Getenv(EnvKeyID)
	}
	if creds.APIKey == "" {
		creds.APIKey = os.Getenv(EnvAPIKey)
	}
	return creds, nil
}
