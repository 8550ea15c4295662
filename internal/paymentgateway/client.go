package paymentgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	gatewaytypes "github.com/frahmantamala/venue-management/internal/core/datamodel/paymentgateway"
)

const defaultTimeout = 10 * time.Second

var ErrAccountNotFound = errors.New("payment account not found")

// APIError is a non-2xx answer from the processor.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("payment gateway returned status %d: %s", e.StatusCode, e.Message)
}

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client talks to the payment processor's account API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(config Config, logger *slog.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		apiKey:  config.APIKey,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}
}

func (c *Client) CreateAccount(ctx context.Context, req *gatewaytypes.CreateAccountRequest) (*gatewaytypes.Account, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	var acct gatewaytypes.Account
	if err := c.do(ctx, http.MethodPost, "/v1/accounts", req, &acct); err != nil {
		return nil, err
	}

	c.logger.Info("payment account created", "account_id", acct.ID, "venue_id", req.Metadata["venue_id"])
	return &acct, nil
}

func (c *Client) CreateAccountLink(ctx context.Context, req *gatewaytypes.CreateAccountLinkRequest) (*gatewaytypes.AccountLink, error) {
	if req.Type == "" {
		req.Type = "account_onboarding"
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	var link gatewaytypes.AccountLink
	if err := c.do(ctx, http.MethodPost, "/v1/account_links", req, &link); err != nil {
		return nil, err
	}
	return &link, nil
}

// GetAccount returns ErrAccountNotFound when the processor does not know accountID.
func (c *Client) GetAccount(ctx context.Context, accountID string) (*gatewaytypes.Account, error) {
	var acct gatewaytypes.Account
	err := c.do(ctx, http.MethodGet, "/v1/accounts/"+url.PathEscape(accountID), nil, &acct)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &acct, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("payment gateway request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("payment gateway request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiResponse struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		message := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &apiResponse) == nil && apiResponse.Error.Message != "" {
			message = apiResponse.Error.Message
		}
		return &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
