// ABOUTME: Identity, session and device endpoints: credential registration,
// ABOUTME: oauth activation, login/refresh, device lifecycle.
package api

import (
	"context"
	"fmt"
	"net/http"
)

// TokenPair is the session material returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RegisterCredentials registers an identity's password with the remote
// identity service. Callers treat an HTTP 409 as success (the identity was
// registered by an earlier attempt whose confirmation was lost).
func (c *Client) RegisterCredentials(ctx context.Context, identityID, password string) error {
	body := map[string]string{"identityId": identityID, "password": password}
	return c.do(ctx, http.MethodPost, "/v1/identities", body, nil, requestOpts{noAuth: true})
}

// EnableOAuth activates token-based authorization for an identity. Like
// registration this is idempotent on the server; 409 means already active.
func (c *Client) EnableOAuth(ctx context.Context, identityID string) error {
	path := fmt.Sprintf("/v1/identities/%s/oauth", identityID)
	return c.do(ctx, http.MethodPost, path, nil, nil, requestOpts{noAuth: true})
}

// Login performs a fresh password login and returns new session tokens.
func (c *Client) Login(ctx context.Context, identityID, password string) (*TokenPair, error) {
	body := map[string]string{"identityId": identityID, "password": password}
	var pair TokenPair
	if err := c.do(ctx, http.MethodPost, "/v1/auth/login", body, &pair, requestOpts{noAuth: true}); err != nil {
		return nil, err
	}
	return &pair, nil
}

// Refresh exchanges a refresh token for a new token pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	body := map[string]string{"refreshToken": refreshToken}
	var pair TokenPair
	if err := c.do(ctx, http.MethodPost, "/v1/auth/refresh", body, &pair, requestOpts{noAuth: true}); err != nil {
		return nil, err
	}
	return &pair, nil
}

// UpdatePassword rotates an identity's password.
func (c *Client) UpdatePassword(ctx context.Context, identityID, newPassword string) error {
	path := fmt.Sprintf("/v1/identities/%s/password", identityID)
	body := map[string]string{"password": newPassword}
	return c.do(ctx, http.MethodPatch, path, body, nil, requestOpts{})
}

// DeviceInfo describes the device to the remote service.
type DeviceInfo struct {
	DeviceID   string `json:"deviceId"`
	Model      string `json:"model,omitempty"`
	OSVersion  string `json:"osVersion,omitempty"`
	AppVersion string `json:"appVersion,omitempty"`
	Timezone   string `json:"timezone,omitempty"`
	Locale     string `json:"locale,omitempty"`
}

// RegisterDevice registers the device under the identity. Idempotent: 409
// means already registered.
func (c *Client) RegisterDevice(ctx context.Context, identityID string, info DeviceInfo) error {
	path := fmt.Sprintf("/v1/identities/%s/devices", identityID)
	return c.do(ctx, http.MethodPost, path, info, nil, requestOpts{})
}

// UpdateDevice pushes refreshed device properties (OS update, timezone
// change, app upgrade).
func (c *Client) UpdateDevice(ctx context.Context, info DeviceInfo) error {
	path := fmt.Sprintf("/v1/devices/%s", info.DeviceID)
	return c.do(ctx, http.MethodPatch, path, info, nil, requestOpts{})
}
