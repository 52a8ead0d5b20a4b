package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/lumectl/internal/api"
	"github.com/dokzlo13/lumectl/internal/store"
)

type fakeRemote struct {
	tokens     api.TokenPair
	listErr    error
	listCalls  int
	loginPair  api.TokenPair
	loginErr   error
	loginCalls int
	loginCreds api.Credentials
}

func (f *fakeRemote) SetTokens(pair api.TokenPair) {
	f.tokens = pair
}

func (f *fakeRemote) Login(ctx context.Context, creds api.Credentials) (api.TokenPair, error) {
	f.loginCalls++
	f.loginCreds = creds
	if f.loginErr != nil {
		return api.TokenPair{}, f.loginErr
	}
	return f.loginPair, nil
}

func (f *fakeRemote) ListDevices(ctx context.Context) ([]api.Device, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return nil, nil
}

func newTestManager(t *testing.T, remote *fakeRemote) (*Manager, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "lumectl"))
	require.NoError(t, err)
	clearEnv(t)
	return NewManager(st, remote), st
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvEmail, EnvPassword, EnvKeyID, EnvAPIKey} {
		t.Setenv(key, "")
	}
}

func setEnvCredentials(t *testing.T) {
	t.Helper()
	t.Setenv(EnvEmail, "a@b.c")
	t.Setenv(EnvPassword, "hunter2")
	t.Setenv(EnvKeyID, "kid")
	t.Setenv(EnvAPIKey, "key")
}

func TestEstablishWithValidCachedTokens(t *testing.T) {
	remote := &fakeRemote{}
	m, st := newTestManager(t, remote)
	require.NoError(t, st.SaveTokens(store.TokenPair{AccessToken: "at", RefreshToken: "rt"}))

	require.NoError(t, m.Establish(context.Background()))

	assert.Equal(t, 1, remote.listCalls)
	assert.Zero(t, remote.loginCalls)
	assert.Equal(t, "at", remote.tokens.AccessToken)
}

func TestEstablishCachedTokenRejectedFallsBackToLogin(t *testing.T) {
	remote := &fakeRemote{
		listErr:   &api.Error{Kind: api.KindAuthInvalid, Message: "token expired"},
		loginPair: api.TokenPair{AccessToken: "fresh-at", RefreshToken: "fresh-rt"},
	}
	m, st := newTestManager(t, remote)
	require.NoError(t, st.SaveTokens(store.TokenPair{AccessToken: "stale", RefreshToken: "stale"}))
	setEnvCredentials(t)

	// The cached-token failure must not surface; the command succeeds
	// via the fresh login.
	require.NoError(t, m.Establish(context.Background()))

	assert.Equal(t, 1, remote.loginCalls)
	assert.Equal(t, "fresh-at", remote.tokens.AccessToken)

	// The fresh pair was persisted before use.
	pair, err := st.LoadTokens()
	require.NoError(t, err)
	require.NotNil(t, pair)
	assert.Equal(t, "fresh-at", pair.AccessToken)
}

func TestEstablishMissingCredentialsListsFields(t *testing.T) {
	remote := &fakeRemote{}
	m, _ := newTestManager(t, remote)
	t.Setenv(EnvEmail, "a@b.c")

	err := m.Establish(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password")
	assert.Contains(t, err.Error(), "key_id")
	assert.Contains(t, err.Error(), "api_key")
	assert.NotContains(t, err.Error(), "missing email")
	assert.Contains(t, err.Error(), "lumectl auth")
	assert.Zero(t, remote.loginCalls)
}

func TestEstablishRateLimitedLogin(t *testing.T) {
	remote := &fakeRemote{
		loginErr: &api.Error{Kind: api.KindRateLimited, Code: 3044, Message: "slow down"},
	}
	m, st := newTestManager(t, remote)
	setEnvCredentials(t)

	err := m.Establish(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wait")
	assert.True(t, api.IsRateLimited(err))

	// A fresh-login failure never touches the token cache.
	pair, loadErr := st.LoadTokens()
	require.NoError(t, loadErr)
	assert.Nil(t, pair)
}

func TestEstablishTransientLoginDefect(t *testing.T) {
	remote := &fakeRemote{
		loginErr: &api.Error{Kind: api.KindTransient, Code: 1000, Message: "system busy"},
	}
	m, _ := newTestManager(t, remote)
	setEnvCredentials(t)

	err := m.Establish(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsTransient(err))
	assert.Contains(t, err.Error(), "retry")
}

func TestEstablishGenericLoginFailure(t *testing.T) {
	remote := &fakeRemote{
		loginErr: errors.New("connection reset"),
	}
	m, _ := newTestManager(t, remote)
	setEnvCredentials(t)

	err := m.Establish(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestEstablishClearsOnlyRejectedCachedTokens(t *testing.T) {
	remote := &fakeRemote{
		listErr:  &api.Error{Kind: api.KindAuthInvalid, Message: "token expired"},
		loginErr: &api.Error{Kind: api.KindRateLimited, Message: "slow down"},
	}
	m, st := newTestManager(t, remote)
	require.NoError(t, st.SaveTokens(store.TokenPair{AccessToken: "stale"}))
	setEnvCredentials(t)

	err := m.Establish(context.Background())
	require.Error(t, err)

	// The rejected cached pair is gone; the login failure added nothing.
	pair, loadErr := st.LoadTokens()
	require.NoError(t, loadErr)
	assert.Nil(t, pair)
}

func TestEstablishMergesStoredAndEnvCredentials(t *testing.T) {
	remote := &fakeRemote{loginPair: api.TokenPair{AccessToken: "at"}}
	m, st := newTestManager(t, remote)
	require.NoError(t, st.SaveCredentials(store.Credentials{Email: "stored@b.c", KeyID: "stored-kid"}))
	t.Setenv(EnvEmail, "env@b.c")
	t.Setenv(EnvPassword, "hunter2")
	t.Setenv(EnvAPIKey, "key")

	require.NoError(t, m.Establish(context.Background()))

	// Stored fields win; env only fills the gaps.
	assert.Equal(t, "stored@b.c", remote.loginCreds.Email)
	assert.Equal(t, "stored-kid", remote.loginCreds.KeyID)
	assert.Equal(t, "hunter2", remote.loginCreds.Password)
	assert.Equal(t, "key", remote.loginCreds.APIKey)
}
