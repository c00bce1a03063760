package xsense

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/anicoll/xsense-integration/internal/pkg/config"
)

type client struct {
	cfg        config.XSenseConfig
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time

	mu     sync.RWMutex
	token  string
	userID string
}

func New(cfg config.XSenseConfig) *client {
	return &client{
		cfg:        cfg,
		baseURL:    strings.TrimRight(cfg.APIURL, "/"),
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		logger:     zap.L(), // returns the global logger.
		now:        time.Now,
	}
}

// Authenticated reports whether a session token is held and has not expired yet.
func (c *client) Authenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != "" && !tokenExpired(c.token, c.now())
}

// UserID of the logged in account, empty before the first login.
func (c *client) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

func (c *client) session() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *client) expireSession() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// tokenExpired reads the exp claim without verifying the signature. Tokens that are
// not JWTs never expire locally; the API will answer 401 instead.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}

func (c *client) do(ctx context.Context, method, path string, body, out any, authed bool) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s %s: %w: %w", method, path, ErrAPIFailure, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %w", method, path, ErrAPIFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if authed {
		token := c.session()
		if token == "" || tokenExpired(token, c.now()) {
			return fmt.Errorf("%s %s: %w", method, path, ErrSessionExpired)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %w", method, path, ErrAPIFailure, err)
	}
	defer res.Body.Close()

	c.logger.Debug("xsense api response", zap.String("method", method), zap.String("path", path), zap.Int("status", res.StatusCode))

	switch {
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		if authed {
			c.expireSession()
			return fmt.Errorf("%s %s: %w", method, path, ErrSessionExpired)
		}
		return fmt.Errorf("%s %s: %w: %s", method, path, ErrAuthFailed, readMessage(res.Body))
	case res.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	case res.StatusCode >= http.StatusMultipleChoices:
		return fmt.Errorf("%s %s: %w: status %d: %s", method, path, ErrAPIFailure, res.StatusCode, readMessage(res.Body))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: %w: %w", method, path, ErrAPIFailure, err)
	}
	return nil
}

func readMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	res := errorResponse{}
	if err := json.Unmarshal(data, &res); err == nil && res.Message != "" {
		return res.Message
	}
	return strings.TrimSpace(string(data))
}
