package xsense

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// Login starts a new session with the configured credentials, replacing any previous one.
func (c *client) Login(ctx context.Context) error {
	c.expireSession()

	res := loginResponse{}
	if err := c.do(ctx, http.MethodPost, "/login", loginRequest{
		Email:    c.cfg.Email,
		Password: c.cfg.Password,
	}, &res, false); err != nil {
		return err
	}
	if res.Token == "" {
		return fmt.Errorf("login: %w: empty token", ErrAuthFailed)
	}

	c.mu.Lock()
	c.token = res.Token
	c.userID = res.UserID
	c.mu.Unlock()

	c.logger.Info("logged in to xsense cloud", zap.String("user_id", res.UserID))
	return nil
}
