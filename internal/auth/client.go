// Package auth performs the HTTP login that turns a server challenge into
// an assertion token.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultLoginURL is the public login endpoint.
const DefaultLoginURL = "https://play.pokemonshowdown.com/api/login"

const (
	defaultTimeout  = 15 * time.Second
	maxResponseSize = 64 * 1024
)

// ErrLoginFailed is returned when the login server rejects the credentials.
var ErrLoginFailed = errors.New("auth: login failed")

// loginResponse is the part of the login reply the client needs.
type loginResponse struct {
	Assertion     string `json:"assertion"`
	ActionSuccess *bool  `json:"actionsuccess"`
}

// Client posts credentials to the login endpoint.
type Client struct {
	url    string
	http   *http.Client
	logger zerolog.Logger
}

// NewClient creates a login client for loginURL. A zero timeout uses the
// default.
func NewClient(loginURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	if loginURL == "" {
		loginURL = DefaultLoginURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		url:    loginURL,
		http:   &http.Client{Timeout: timeout},
		logger: logger.With().Str("component", "auth").Logger(),
	}
}

// Authenticate logs in as username and returns the assertion to send back
// to the game server.
func (c *Client) Authenticate(ctx context.Context, username, password, challenge string) (string, error) {
	form := url.Values{
		"name":     {username},
		"pass":     {password},
		"challstr": {challenge},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("read login response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrLoginFailed, resp.StatusCode)
	}

	assertion, err := parseAssertion(body)
	if err != nil {
		return "", err
	}
	c.logger.Debug().Str("user", username).Msg("login accepted")
	return assertion, nil
}

// parseAssertion reads the `]`-prefixed JSON reply of the login endpoint.
func parseAssertion(body []byte) (string, error) {
	payload := strings.TrimPrefix(strings.TrimSpace(string(body)), "]")

	var res loginResponse
	if err := json.Unmarshal([]byte(payload), &res); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	if res.ActionSuccess != nil && !*res.ActionSuccess {
		return "", ErrLoginFailed
	}

	switch {
	case res.Assertion == "":
		return "", fmt.Errorf("%w: empty assertion", ErrLoginFailed)
	case strings.HasPrefix(res.Assertion, ";;"):
		return "", fmt.Errorf("%w: %s", ErrLoginFailed, strings.TrimPrefix(res.Assertion, ";;"))
	}
	return res.Assertion, nil
}
