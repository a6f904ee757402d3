// ABOUTME: Single-flight authorization repair: registration, oauth
// ABOUTME: activation and login/refresh, shared across concurrent callers.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/harperreed/sensing/internal/api"
)

// ErrNotConfigured means no identity id is stored. This is not transient:
// the device must be configured before any authenticated call can work.
var ErrNotConfigured = errors.New("identity not configured")

// Authenticator repairs an expired or missing session. It implements
// api.Repairer; the client invokes it on 401 and replays the failed request
// once with the returned token.
type Authenticator struct {
	creds  *Credentials
	client *api.Client
	group  singleflight.Group
	logger *log.Logger

	// OnSession, when set, runs after each successful repair once the new
	// tokens are saved. Callers use it to open the session readiness gate.
	OnSession func()
}

// NewAuthenticator wires the repair sequence to a credential set and the
// API client used for its identity calls.
func NewAuthenticator(creds *Credentials, client *api.Client, logger *log.Logger) *Authenticator {
	if logger == nil {
		logger = log.Default()
	}
	return &Authenticator{creds: creds, client: client, logger: logger}
}

// Repair runs the session repair sequence and returns a fresh access
// token. Concurrent callers collapse into one in-flight repair; everyone
// gets the same result. The sequence itself never retries beyond the
// single refresh-then-login fallback — retry policy belongs to the outbox.
func (a *Authenticator) Repair(ctx context.Context) (string, error) {
	token, err, _ := a.group.Do("repair", func() (any, error) {
		return a.repair(ctx)
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

func (a *Authenticator) repair(ctx context.Context) (string, error) {
	identityID := a.creds.IdentityID()
	if identityID == "" {
		return "", ErrNotConfigured
	}

	if !a.creds.Registered() {
		err := a.client.RegisterCredentials(ctx, identityID, a.creds.Password())
		if err != nil && !api.IsConflict(err) {
			return "", fmt.Errorf("register credentials: %w", err)
		}
		if api.IsConflict(err) {
			a.logger.Debug("credentials already registered", "identity", identityID)
		}
		a.creds.MarkRegistered()
		if err := a.creds.Save(); err != nil {
			return "", err
		}
	}

	if !a.creds.OAuthActivated() {
		err := a.client.EnableOAuth(ctx, identityID)
		if err != nil && !api.IsConflict(err) {
			return "", fmt.Errorf("enable oauth: %w", err)
		}
		a.creds.MarkOAuthActivated()
		if err := a.creds.Save(); err != nil {
			return "", err
		}
	}

	pair, err := a.establishSession(ctx, identityID)
	if err != nil {
		return "", err
	}

	a.creds.SetTokens(pair.AccessToken, pair.RefreshToken)
	if err := a.creds.Save(); err != nil {
		return "", err
	}
	a.logger.Debug("session repaired", "identity", identityID)
	if a.OnSession != nil {
		a.OnSession()
	}
	return pair.AccessToken, nil
}

// establishSession refreshes when a session exists, logging in fresh
// otherwise. A failed refresh falls back to one login before giving up.
func (a *Authenticator) establishSession(ctx context.Context, identityID string) (*api.TokenPair, error) {
	refresh := a.creds.RefreshToken()
	if a.creds.AccessToken() == "" || refresh == "" {
		pair, err := a.client.Login(ctx, identityID, a.creds.Password())
		if err != nil {
			return nil, fmt.Errorf("login: %w", err)
		}
		return pair, nil
	}

	pair, err := a.client.Refresh(ctx, refresh)
	if err == nil {
		return pair, nil
	}
	a.logger.Debug("token refresh failed, falling back to login", "err", err)

	pair, err = a.client.Login(ctx, identityID, a.creds.Password())
	if err != nil {
		return nil, fmt.Errorf("login after failed refresh: %w", err)
	}
	return pair, nil
}
