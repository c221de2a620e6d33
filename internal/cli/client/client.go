package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// DefaultTimeout bounds every request made by a Client built with New.
const DefaultTimeout = 30 * time.Second

// CredentialSource supplies the bearer credential for authorized requests.
// An empty string means no session is active.
type CredentialSource interface {
	Credential() string
}

// Client represents an HTTP client for the SEAP API
type Client struct {
	baseURL     string
	httpClient  *http.Client
	credentials CredentialSource
	logger      zerolog.Logger
}

// New creates a new API client
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: zerolog.Nop(),
	}
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// SetCredentialSource sets where authorized requests read their bearer token from
func (c *Client) SetCredentialSource(src CredentialSource) {
	c.credentials = src
}

// SetLogger sets the logger used for request tracing
func (c *Client) SetLogger(logger zerolog.Logger) {
	c.logger = logger
}

// BaseURL returns the API root this client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// VerifyOTPRequest exchanges an emailed passcode for a credential
type VerifyOTPRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// ResendOTPRequest asks the backend to issue a fresh passcode
type ResendOTPRequest struct {
	Email string `json:"email"`
}

// Login authenticates the user. The response either carries a credential or
// signals that a passcode is still required.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", false, LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates a new account
func (c *Client) Register(ctx context.Context, email, password, role string) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", false, RegisterRequest{Email: email, Password: password, Role: role}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyOTP exchanges email + passcode for a credential
func (c *Client) VerifyOTP(ctx context.Context, email, code string) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/verify-otp", false, VerifyOTPRequest{Email: email, Code: code}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ResendOTP issues a new passcode for email
func (c *Client) ResendOTP(ctx context.Context, email string) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/resend-otp", false, ResendOTPRequest{Email: email}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health pings the backend
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.do(ctx, http.MethodGet, "/api/health", false, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetProfile returns the authenticated user's profile
func (c *Client) GetProfile(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/api/user/profile", true, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile changes the authenticated user's email and/or password
func (c *Client) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*MessageResponse, error) {
	var resp MessageResponse
	if err := c.do(ctx, http.MethodPut, "/api/user/profile", true, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do sends body as JSON (when non-nil), decodes a 2xx response into out
// (when non-nil) and turns anything else into an *APIError.
func (c *Client) do(ctx context.Context, method, path string, authorized bool, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	requestID := ulid.Make().String()
	req.Header.Set("X-Request-ID", requestID)

	if authorized {
		token := ""
		if c.credentials != nil {
			token = c.credentials.Credential()
		}
		if token == "" {
			return ErrNoCredential
		}
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("request_id", requestID).Str("method", method).Str("path", path).Msg("Request failed")
		return transportError("failed to send request", err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("API request")

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError("failed to read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(respBody)}
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return transportError("failed to decode response", err)
	}
	return nil
}

// errorMessage pulls "error" (or "message") out of a JSON error body.
func errorMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return GenericErrorMessage
}

func pathEscape(segment string) string {
	return url.PathEscape(segment)
}
