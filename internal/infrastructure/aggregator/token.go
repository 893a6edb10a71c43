package aggregator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

const (
	tokenNewPath     = "/token/new/"
	tokenRefreshPath = "/token/refresh/"

	// expirySkew refreshes tokens slightly early to avoid racing the deadline.
	expirySkew = 30 * time.Second
)

// TokenManager caches the aggregator access/refresh token pair and renews it
// on demand: an expired access token is refreshed; when the refresh token has
// also expired a fresh pair is acquired from the integration credentials.
type TokenManager struct {
	httpClient *http.Client
	baseURL    string
	secretID   string
	secretKey  string

	mu             sync.Mutex
	access         string
	accessExpires  time.Time
	refresh        string
	refreshExpires time.Time

	// now is swappable in tests
	now func() time.Time
}

func NewTokenManager(httpClient *http.Client, baseURL, secretID, secretKey string) *TokenManager {
	return &TokenManager{
		httpClient: httpClient,
		baseURL:    baseURL,
		secretID:   secretID,
		secretKey:  secretKey,
		now:        time.Now,
	}
}

type tokenPairResponse struct {
	Access         string `json:"access"`
	AccessExpires  int    `json:"access_expires"`
	Refresh        string `json:"refresh"`
	RefreshExpires int    `json:"refresh_expires"`
}

// Token returns a valid access token, renewing the pair as needed.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()

	if m.access != "" && now.Before(m.accessExpires.Add(-expirySkew)) {
		return m.access, nil
	}

	// Access token expired; try the refresh token first.
	if m.refresh != "" && now.Before(m.refreshExpires.Add(-expirySkew)) {
		if err := m.refreshAccess(ctx); err != nil {
			return "", err
		}
		return m.access, nil
	}

	// Both expired (or first call): acquire a fresh pair.
	if err := m.newPair(ctx); err != nil {
		return "", err
	}
	return m.access, nil
}

// refreshAccess exchanges the refresh token for a new access token.
// Caller holds the mutex.
func (m *TokenManager) refreshAccess(ctx context.Context) error {
	body := map[string]string{"refresh": m.refresh}

	var resp tokenPairResponse
	if err := m.postToken(ctx, tokenRefreshPath, body, &resp); err != nil {
		return fmt.Errorf("token refresh failed: %w", err)
	}

	m.access = resp.Access
	m.accessExpires = m.now().Add(time.Duration(resp.AccessExpires) * time.Second)
	return nil
}

// newPair acquires a brand new token pair from the integration secrets.
// Caller holds the mutex.
func (m *TokenManager) newPair(ctx context.Context) error {
	body := map[string]string{
		"secret_id":  m.secretID,
		"secret_key": m.secretKey,
	}

	var resp tokenPairResponse
	if err := m.postToken(ctx, tokenNewPath, body, &resp); err != nil {
		return fmt.Errorf("token acquisition failed: %w", err)
	}

	now := m.now()
	m.access = resp.Access
	m.accessExpires = now.Add(time.Duration(resp.AccessExpires) * time.Second)
	m.refresh = resp.Refresh
	m.refreshExpires = now.Add(time.Duration(resp.RefreshExpires) * time.Second)
	return nil
}

func (m *TokenManager) postToken(ctx context.Context, path string, body map[string]string, out *tokenPairResponse) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute token request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w (status %d)", ErrUnauthorized, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal token response: %w", err)
	}
	return nil
}
