package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Client represents a PayPal REST API client
type Client struct {
	config     Config
	httpClient *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient creates a new PayPal client with the given configuration
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
	}, nil
}

// GetConfig returns the client configuration
func (c *Client) GetConfig() Config {
	return c.config
}

// CreateOrder creates a checkout order with intent CAPTURE
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest, requestID string) (*OrderResponse, error) {
	req.Intent = "CAPTURE"
	if req.ApplicationContext == nil {
		req.ApplicationContext = &ApplicationContext{
			ReturnURL:  c.config.ReturnURL,
			CancelURL:  c.config.CancelURL,
			UserAction: "PAY_NOW",
		}
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/v2/checkout/orders", req, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout order: %w", err)
	}

	var orderResp OrderResponse
	if err := json.Unmarshal(resp, &orderResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order response: %w", err)
	}
	return &orderResp, nil
}

// GetOrder retrieves a checkout order
func (c *Client) GetOrder(ctx context.Context, orderID string) (*OrderResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v2/checkout/orders/"+url.PathEscape(orderID), nil, "")
	if err != nil {
		return nil, fmt.Errorf("failed to get checkout order: %w", err)
	}

	var orderResp OrderResponse
	if err := json.Unmarshal(resp, &orderResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order response: %w", err)
	}
	return &orderResp, nil
}

// CaptureOrder captures an approved checkout order
func (c *Client) CaptureOrder(ctx context.Context, orderID string, requestID string) (*OrderResponse, error) {
	path := fmt.Sprintf("/v2/checkout/orders/%s/capture", url.PathEscape(orderID))
	resp, err := c.doRequest(ctx, http.MethodPost, path, struct{}{}, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to capture checkout order: %w", err)
	}

	var orderResp OrderResponse
	if err := json.Unmarshal(resp, &orderResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal capture response: %w", err)
	}
	return &orderResp, nil
}

// RefundCapture refunds a capture, fully or partially
func (c *Client) RefundCapture(ctx context.Context, captureID string, req RefundRequest, requestID string) (*RefundResponse, error) {
	path := fmt.Sprintf("/v2/payments/captures/%s/refund", url.PathEscape(captureID))
	resp, err := c.doRequest(ctx, http.MethodPost, path, req, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to refund capture: %w", err)
	}

	var refundResp RefundResponse
	if err := json.Unmarshal(resp, &refundResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal refund response: %w", err)
	}
	return &refundResp, nil
}

// GetRefund retrieves a refund
func (c *Client) GetRefund(ctx context.Context, refundID string) (*RefundResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v2/payments/refunds/"+url.PathEscape(refundID), nil, "")
	if err != nil {
		return nil, fmt.Errorf("failed to get refund: %w", err)
	}

	var refundResp RefundResponse
	if err := json.Unmarshal(resp, &refundResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal refund response: %w", err)
	}
	return &refundResp, nil
}

// token returns a cached OAuth2 access token, refreshing when expired
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := strings.NewReader("grant_type=client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/oauth2/token", form)
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.SetBasicAuth(c.config.ClientID, c.config.Secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token request failed with status %d", ErrUnauthorized, resp.StatusCode)
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal token response: %w", err)
	}

	c.accessToken = tokenResp.AccessToken
	// 만료 1분 전에 미리 갱신한다
	c.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn)*time.Second - time.Minute)
	return c.accessToken, nil
}

// doRequest performs an authenticated HTTP request to the PayPal API
func (c *Client) doRequest(ctx context.Context, method, path string, payload interface{}, requestID string) ([]byte, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if payload != nil {
		reqBody, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewBuffer(reqBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	if requestID != "" {
		// 같은 요청 ID의 재시도는 게이트웨이가 멱등 처리한다
		req.Header.Set("PayPal-Request-Id", requestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err != nil {
			return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body))
		}

		errorMsg := fmt.Sprintf("PayPal API error - Status: %d, Name: %s, Message: %s, DebugID: %s",
			resp.StatusCode, errResp.Name, errResp.Message, errResp.DebugID)

		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return nil, fmt.Errorf("%w: %s", ErrUnauthorized, errorMsg)
		case http.StatusNotFound:
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, errorMsg)
		case http.StatusUnprocessableEntity:
			if errResp.HasIssue("ORDER_ALREADY_CAPTURED") {
				return nil, fmt.Errorf("%w: %s", ErrAlreadyCaptured, errorMsg)
			}
			return nil, fmt.Errorf("%w: %s", ErrPaymentFailed, errorMsg)
		case http.StatusBadRequest:
			return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, errorMsg)
		default:
			return nil, fmt.Errorf("%w: %s", ErrPaymentFailed, errorMsg)
		}
	}

	return body, nil
}

// HasIssue reports whether the error body carries the given issue code
func (e *ErrorResponse) HasIssue(issue string) bool {
	for _, d := range e.Details {
		if d.Issue == issue {
			return true
		}
	}
	return false
}

// ParseWebhookEvent decodes a raw webhook body
func ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal webhook event: %w", err)
	}
	if event.EventType == "" {
		return nil, fmt.Errorf("%w: missing event_type", ErrInvalidRequest)
	}
	return &event, nil
}
