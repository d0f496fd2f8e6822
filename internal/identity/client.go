// Package identity talks to the hosted auth provider. It owns no credentials
// itself: passwords and signing keys live with the provider, this client only
// exchanges and revokes tokens.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/crewbase/crewbase/internal/domain"
	"github.com/crewbase/crewbase/internal/session"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// HTTPClient lets tests inject a transport.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient HTTPClient
}

func NewClient(baseURL, apiKey string, httpClient HTTPClient) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	User         struct {
		ID           string            `json:"id"`
		Email        string            `json:"email"`
		UserMetadata map[string]string `json:"user_metadata"`
	} `json:"user"`
}

// SignIn performs the password grant and returns the authenticated user with
// a fresh token pair.
func (c *Client) SignIn(ctx context.Context, email, password string) (domain.SessionUser, session.TokenPair, error) {
	body := map[string]string{"email": email, "password": password}

	var resp tokenResponse
	if err := c.post(ctx, "/auth/v1/token?grant_type=password", body, &resp); err != nil {
		return domain.SessionUser{}, session.TokenPair{}, err
	}

	user := domain.SessionUser{
		ID:       resp.User.ID,
		Email:    resp.User.Email,
		Metadata: resp.User.UserMetadata,
	}
	return user, c.pairFrom(resp), nil
}

// Refresh exchanges a refresh token for a new token pair. Refresh tokens
// rotate: the returned pair replaces the one passed in.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (session.TokenPair, error) {
	body := map[string]string{"refresh_token": refreshToken}

	var resp tokenResponse
	if err := c.post(ctx, "/auth/v1/token?grant_type=refresh_token", body, &resp); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return session.TokenPair{}, ErrInvalidToken
		}
		return session.TokenPair{}, err
	}
	return c.pairFrom(resp), nil
}

// SignOut revokes the provider-side session behind the access token.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/v1/logout", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	c.setAPIKey(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest && resp.StatusCode != http.StatusUnauthorized {
		return fmt.Errorf("sign out: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// pairFrom prefers the expiry baked into the JWT over the advertised
// expires_in, falling back when the token is opaque.
func (c *Client) pairFrom(resp tokenResponse) session.TokenPair {
	expiresIn := time.Duration(resp.ExpiresIn) * time.Second
	if exp, ok := jwtExpiry(resp.AccessToken); ok {
		if d := time.Until(exp); d > 0 {
			expiresIn = d
		}
	}
	return session.TokenPair{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    expiresIn,
	}
}

// jwtExpiry reads the exp claim without verifying the signature. The
// provider owns the signing key; this side only needs the timestamp.
func jwtExpiry(token string) (time.Time, bool) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAPIKey(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity provider: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest:
		_, _ = io.Copy(io.Discard, resp.Body)
		return ErrInvalidCredentials
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("identity provider: unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode identity response: %w", err)
	}
	return nil
}

func (c *Client) setAPIKey(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
}
