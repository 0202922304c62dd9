package orange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/klesify/klesify-backend/pkg/core"
	"golang.org/x/sync/singleflight"
)

const (
	tokenPath          = "/openidconnect/playground/v1.0/token"
	tokenRefreshBuffer = 60 * time.Second
	tokenFetchTimeout  = 30 * time.Second
	defaultTokenTTL    = 3600
)

// Credentials identify the application to the OAuth server.
type Credentials struct {
	ClientID     string
	ClientSecret string
	ServerURL    string
}

// TokenSource fetches client-credentials access tokens and caches them
// until shortly before they expire.
type TokenSource struct {
	creds  Credentials
	client *http.Client
	logger *slog.Logger
	now    func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time

	group singleflight.Group
}

// NewTokenSource validates creds and returns a token source.
func NewTokenSource(creds Credentials, client *http.Client, logger *slog.Logger) (*TokenSource, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" || creds.ServerURL == "" {
		return nil, fmt.Errorf("%w: missing required settings CLIENT_ID, CLIENT_SECRET, OAUTH_SERVER_URL", core.ErrNotConfigured)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &TokenSource{creds: creds, client: client, logger: logger, now: time.Now}, nil
}

// Token returns a valid access token, fetching a new one when the cached
// token is missing or expires within a minute. Concurrent callers share a
// single fetch, which keeps running when the caller that started it gives
// up.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	if tok, ok := s.cached(); ok {
		return tok, nil
	}
	ch := s.group.DoChan("token", func() (any, error) {
		if tok, ok := s.cached(); ok {
			return tok, nil
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), tokenFetchTimeout)
		defer cancel()
		return s.fetch(fetchCtx)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return "", res.Err
	}
	return res.Val.(string), nil
}

// Clear drops the cached token so the next call fetches a fresh one.
func (s *TokenSource) Clear() {
	s.mu.Lock()
	s.token = ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()
}

func (s *TokenSource) cached() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" && s.now().Before(s.expiresAt.Add(-tokenRefreshBuffer)) {
		return s.token, true
	}
	return "", false
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (s *TokenSource) fetch(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	endpoint := strings.TrimSuffix(s.creds.ServerURL, "/") + tokenPath

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.SetBasicAuth(s.creds.ClientID, s.creds.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("token request failed", "error", err)
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Error("token request rejected", "status", resp.StatusCode, "body", string(body))
		return "", &core.UpstreamError{Service: "oauth", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("token response has no access_token")
	}
	if tr.ExpiresIn <= 0 {
		tr.ExpiresIn = defaultTokenTTL
	}

	s.mu.Lock()
	s.token = tr.AccessToken
	s.expiresAt = s.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	s.mu.Unlock()

	s.logger.Info("token fetched", "expires_in", tr.ExpiresIn)
	return tr.AccessToken, nil
}
