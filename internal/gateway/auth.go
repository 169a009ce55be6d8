package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"affconsole/internal/models"
)

func (c *Client) Login(ctx context.Context, creds models.Credentials) (models.LoginResult, error) {
	if err := c.validateInput(creds); err != nil {
		return models.LoginResult{}, err
	}

	var out models.LoginResult
	if err := c.authCall(ctx, "/auth/login", creds, "", &out); err != nil {
		return models.LoginResult{}, err
	}
	if out.Token == "" || out.RefreshToken == "" {
		return models.LoginResult{}, newError(c.msgs, KindServer, http.StatusOK, "login response without token pair", nil)
	}

	c.logExpiry("login", out.Token)
	return out, nil
}

// RefreshToken exchanges refreshToken for a new access token. The refresh
// token itself is not rotated.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (models.RefreshResult, error) {
	var out models.RefreshResult
	if err := c.authCall(ctx, "/auth/refresh", models.RefreshRequest{RefreshToken: refreshToken}, "", &out); err != nil {
		return models.RefreshResult{}, err
	}
	if out.Token == "" {
		return models.RefreshResult{}, newError(c.msgs, KindServer, http.StatusOK, "refresh response without token", nil)
	}

	c.logExpiry("refresh", out.Token)
	return out, nil
}

// Logout tells the backend to drop the session of accessToken.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	var out models.Ack
	return c.authCall(ctx, "/auth/logout", nil, accessToken, &out)
}

func (c *Client) Me(ctx context.Context) (models.User, error) {
	var env models.Envelope[models.User]
	if err := c.doJSON(ctx, http.MethodGet, "/auth/me", nil, nil, &env); err != nil {
		return models.User{}, err
	}
	return env.Data, nil
}

func (c *Client) authCall(ctx context.Context, path string, in any, bearer string, out any) error {
	req := request{method: http.MethodPost, path: path, bearer: bearer, auth: true}
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return err
		}
		req.body = body
		req.contentType = "application/json"
	}

	resp, err := c.send(ctx, req)
	if err != nil {
		return err
	}
	return c.decode(resp, out)
}

// logExpiry reads the exp claim without verifying the signature; the
// console cannot verify it and only logs it.
func (c *Client) logExpiry(op string, token string) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil || claims.ExpiresAt == nil {
		return
	}
	c.log.Debug().
		Str("op", op).
		Time("expires_at", claims.ExpiresAt.Time).
		Dur("ttl", time.Until(claims.ExpiresAt.Time)).
		Msg("access token issued")
}
