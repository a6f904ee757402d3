// ABOUTME: Credential persistence: identity, password, device id, session
// ABOUTME: tokens and registration progress flags, stored as a JSON file.
package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// credentialsFile is the on-disk shape. Registration progress flags survive
// restarts so the repair sequence can resume where it left off.
type credentialsFile struct {
	IdentityID      string `json:"identity_id"`
	Password        string `json:"password"`
	DeviceID        string `json:"device_id"`
	ParticipationID string `json:"participation_id,omitempty"`

	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`

	CredsRegistered bool `json:"creds_registered"`
	OAuthActivated  bool `json:"oauth_activated"`
}

// Credentials holds the device's identity material. All accessors are
// safe for concurrent use; Save persists under the same lock so the file
// never sees a torn update.
type Credentials struct {
	mu   sync.RWMutex
	data credentialsFile
	path string
}

// CredentialsPath returns the default credentials file location following
// XDG spec.
func CredentialsPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "sensing", "credentials.json")
}

// LoadCredentials reads the credentials file, returning an empty set when
// the file does not exist yet.
func LoadCredentials(path string) (*Credentials, error) {
	c := &Credentials{path: path}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	if err := json.Unmarshal(raw, &c.data); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	return c, nil
}

// Save writes the credentials file with owner-only permissions.
func (c *Credentials) Save() error {
	c.mu.RLock()
	raw, err := json.MarshalIndent(c.data, "", "  ")
	path := c.path
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, raw, 0600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

// AccessToken implements api.TokenSource.
func (c *Credentials) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data.AccessToken
}

// RefreshToken returns the cached refresh token.
func (c *Credentials) RefreshToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data.RefreshToken
}

// SetTokens replaces the cached session tokens.
func (c *Credentials) SetTokens(access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data.AccessToken = access
	c.data.RefreshToken = refresh
}

// ClearTokens drops the cached session, forcing a fresh login next repair.
func (c *Credentials) ClearTokens() {
	c.SetTokens("", "")
}

// IdentityID returns the configured identity, empty when unconfigured.
func (c *Credentials) IdentityID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data.IdentityID
}

// Password returns the identity password.
func (c *Credentials) Password() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data.Password
}

// SetPassword rotates the stored password.
func (c *Credentials) SetPassword(pw string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data.Password = pw
}

// DeviceID returns the device id, generated at configure time.
func (c *Credentials) DeviceID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data.DeviceID
}

// ParticipationID returns the active cohort participation, if any.
func (c *Credentials) ParticipationID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data.ParticipationID
}

// SetParticipationID records the active cohort participation.
func (c *Credentials) SetParticipationID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data.ParticipationID = id
}

// Configure sets the identity material. Called once at device setup.
func (c *Credentials) Configure(identityID, password, deviceID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data.IdentityID = identityID
	c.data.Password = password
	c.data.DeviceID = deviceID
}

// Registered reports whether the password was accepted by the identity
// service.
func (c *Credentials) Registered() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data.CredsRegistered
}

// MarkRegistered records a successful (or already-existing) registration.
func (c *Credentials) MarkRegistered() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data.CredsRegistered = true
}

// OAuthActivated reports whether token authorization is enabled remotely.
func (c *Credentials) OAuthActivated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data.OAuthActivated
}

// MarkOAuthActivated records oauth activation.
func (c *Credentials) MarkOAuthActivated() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data.OAuthActivated = true
}
