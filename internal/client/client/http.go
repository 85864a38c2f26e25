package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/orbit/internal/client/models"
	"github.com/dmitrijs2005/orbit/internal/common"
	"github.com/dmitrijs2005/orbit/internal/logging"
	"github.com/hashicorp/go-retryablehttp"
)

const maxBodySize = 1 << 20

// HTTPClient implements AuthAPI over the backend's JSON endpoints.
type HTTPClient struct {
	baseURL string
	plain   *http.Client
	retry   *retryablehttp.Client
	log     logging.Logger
}

type HTTPOption func(*HTTPClient)

// WithRetry tunes the retrying transport used by idempotent calls.
func WithRetry(max int, waitMin, waitMax time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		c.retry.RetryMax = max
		c.retry.RetryWaitMin = waitMin
		c.retry.RetryWaitMax = waitMax
	}
}

// WithHTTPLogger routes client diagnostics to log.
func WithHTTPLogger(log logging.Logger) HTTPOption {
	return func(c *HTTPClient) {
		c.log = log.With("module", "http")
		c.retry.Logger = leveledLogger{log: c.log}
	}
}

// NewHTTPClient returns a client for the backend rooted at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration, opts ...HTTPOption) *HTTPClient {
	rc := retryablehttp.NewClient()
	rc.HTTPClient = &http.Client{Timeout: timeout}
	rc.RetryMax = 3
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = nil
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		plain:   &http.Client{Timeout: timeout},
		retry:   rc,
		log:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type wireUser struct {
	ID      string  `json:"id"`
	Email   *string `json:"email"`
	Name    *string `json:"name"`
	Picture *string `json:"picture"`
}

type authResponse struct {
	Session       *models.Session `json:"session"`
	User          *wireUser       `json:"user"`
	ProfileExists bool            `json:"profileExists"`
	IsNewUser     *bool           `json:"isNewUser,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (r *authResponse) result() (*AuthResult, error) {
	if r.Session == nil || r.User == nil || r.User.ID == "" || !r.Session.Complete() {
		return nil, fmt.Errorf("%w: incomplete auth response", ErrUnavailable)
	}
	if r.Session.ExpiresAt <= 0 {
		return nil, fmt.Errorf("%w: auth response without expires_at", ErrUnavailable)
	}
	return &AuthResult{
		User: models.User{
			ID:            r.User.ID,
			Email:         r.User.Email,
			Name:          r.User.Name,
			Picture:       r.User.Picture,
			ProfileExists: r.ProfileExists,
		},
		Session:   *r.Session,
		IsNewUser: r.IsNewUser,
	}, nil
}

// ValidateExchange checks an exchange request without touching the network.
func ValidateExchange(req ExchangeRequest) error {
	if strings.TrimSpace(req.Code) == "" {
		return fmt.Errorf("%w: empty authorization code", ErrInvalidInput)
	}
	if !SupportedProvider(req.Provider) {
		return fmt.Errorf("%w: unsupported provider %q", ErrInvalidInput, req.Provider)
	}
	if err := validateRedirectURI(req.RedirectURI); err != nil {
		return err
	}
	return nil
}

// SupportedProvider reports whether p is an accepted provider name.
func SupportedProvider(p string) bool {
	return p == ProviderGoogle || p == ProviderApple
}

func validateRedirectURI(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return fmt.Errorf("%w: redirect_uri must be an absolute URL", ErrInvalidInput)
	}
	if (u.Scheme == "http" || u.Scheme == "https") && u.Host == "" {
		return fmt.Errorf("%w: redirect_uri has no host", ErrInvalidInput)
	}
	return nil
}

// ExchangeCode trades a provider authorization code for a session. The
// request is sent once; a rejected code is reported, never retried.
func (c *HTTPClient) ExchangeCode(ctx context.Context, req ExchangeRequest) (*AuthResult, error) {
	if err := ValidateExchange(req); err != nil {
		return nil, err
	}

	body := map[string]string{
		"code":         req.Code,
		"provider":     req.Provider,
		"redirect_uri": req.RedirectURI,
	}
	if req.State != "" {
		body["state"] = req.State
	}

	var out authResponse
	if err := c.doPlain(ctx, http.MethodPost, "/auth/oauth/callback", body, &out); err != nil {
		return nil, err
	}
	return out.result()
}

// Refresh rotates the session. The refresh token is single-use, so the
// request is sent exactly once.
func (c *HTTPClient) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: empty refresh token", ErrInvalidInput)
	}

	var out authResponse
	if err := c.doPlain(ctx, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": refreshToken}, &out); err != nil {
		return nil, err
	}
	return out.result()
}

// Logout asks the backend to invalidate refreshToken. Callers clear local
// state regardless of the outcome.
func (c *HTTPClient) Logout(ctx context.Context, refreshToken string) error {
	body := map[string]string{}
	if refreshToken != "" {
		body["refresh_token"] = refreshToken
	}
	return c.doRetry(ctx, http.MethodPost, "/auth/logout", "", body, nil)
}

// Me returns the current user, including profile existence.
func (c *HTTPClient) Me(ctx context.Context, accessToken string) (*models.User, error) {
	var u models.User
	if err := c.doRetry(ctx, http.MethodGet, "/auth/me", accessToken, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// AuthorizeURL asks the backend for the provider's consent page URL.
func (c *HTTPClient) AuthorizeURL(ctx context.Context, provider, redirectURI, state string) (string, error) {
	if !SupportedProvider(provider) {
		return "", fmt.Errorf("%w: unsupported provider %q", ErrInvalidInput, provider)
	}
	if err := validateRedirectURI(redirectURI); err != nil {
		return "", err
	}

	q := url.Values{"redirect_uri": {redirectURI}}
	if state != "" {
		q.Set("state", state)
	}

	var out struct {
		URL string `json:"url"`
	}
	path := "/auth/oauth/" + url.PathEscape(provider) + "/url?" + q.Encode()
	if err := c.doRetry(ctx, http.MethodGet, path, "", nil, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

func encodeBody(in any) ([]byte, error) {
	if in == nil {
		return nil, nil
	}
	return json.Marshal(in)
}

func (c *HTTPClient) doPlain(ctx context.Context, method, path string, in, out any) error {
	payload, err := encodeBody(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.plain.Do(req)
	if err != nil {
		return c.transportError(ctx, method, path, err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp, out)
}

func (c *HTTPClient) doRetry(ctx context.Context, method, path, bearer string, in, out any) error {
	payload, err := encodeBody(in)
	if err != nil {
		return err
	}

	var body any
	if payload != nil {
		body = payload
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+bearer)
	}

	resp, err := c.retry.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return c.transportError(ctx, method, path, err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp, out)
}

func (c *HTTPClient) transportError(ctx context.Context, method, path string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	c.log.Warn(ctx, "request failed", "method", method, "path", path, "error", err)
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func decodeResponse(resp *http.Response, out any) error {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var er errorResponse
		if json.Unmarshal(data, &er) == nil {
			apiErr.Message = er.Error
			apiErr.Code = er.Code
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: invalid response body: %v", ErrUnavailable, err)
	}
	return nil
}

// leveledLogger adapts logging.Logger to retryablehttp.LeveledLogger.
type leveledLogger struct {
	log logging.Logger
}

func (l leveledLogger) Error(msg string, kv ...any) { l.log.Error(context.Background(), msg, kv...) }
func (l leveledLogger) Info(msg string, kv ...any)  { l.log.Info(context.Background(), msg, kv...) }
func (l leveledLogger) Debug(msg string, kv ...any) { l.log.Debug(context.Background(), msg, kv...) }
func (l leveledLogger) Warn(msg string, kv ...any)  { l.log.Warn(context.Background(), msg, kv...) }
