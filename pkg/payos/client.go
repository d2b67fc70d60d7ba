package payos

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/cakeverse/cakeverse-backend/pkg/errors"
)

const (
	defaultBaseURL        = "https://api-merchant.payos.vn"
	paymentRequestsPath   = "/v2/payment-requests"
	successCode           = "00"
	responseBodyReadLimit = 1024
	maxDescriptionLength  = 25
)

var (
	errClientIDRequired    = errors.New("payos client id is required")
	errAPIKeyRequired      = errors.New("payos api key is required")
	errChecksumKeyRequired = errors.New("payos checksum key is required")
)

// Client creates hosted payment links on the PayOS merchant API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	clientID    string
	apiKey      string
	checksumKey string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the merchant API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithTimeout sets the timeout on the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 && c.httpClient != nil {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient builds a PayOS client from merchant credentials.
func NewClient(clientID, apiKey, checksumKey string, opts ...Option) (*Client, error) {
	clientID = strings.TrimSpace(clientID)
	apiKey = strings.TrimSpace(apiKey)
	checksumKey = strings.TrimSpace(checksumKey)
	if clientID == "" {
		return nil, errClientIDRequired
	}
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	if checksumKey == "" {
		return nil, errChecksumKeyRequired
	}

	client := &Client{
		clientID:    clientID,
		apiKey:      apiKey,
		checksumKey: checksumKey,
		baseURL:     defaultBaseURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// PaymentLinkRequest describes a hosted checkout for one deposit.
type PaymentLinkRequest struct {
	OrderCode   int64
	Amount      decimal.Decimal
	Description string
	ReturnURL   string
	CancelURL   string
}

// PaymentLink is the subset of the gateway response the ledger keeps.
type PaymentLink struct {
	CheckoutURL   string
	PaymentLinkID string
}

// CreatePaymentLink registers the order code with the gateway and returns the
// checkout URL the customer is redirected to.
func (c *Client) CreatePaymentLink(ctx context.Context, req PaymentLinkRequest) (*PaymentLink, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payos client not configured")
	}
	if req.OrderCode <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order code is required")
	}
	if !req.Amount.IsPositive() || !req.Amount.IsInteger() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be a positive whole number")
	}
	description := truncate(strings.TrimSpace(req.Description), maxDescriptionLength)

	signed := map[string]any{
		"amount":      req.Amount.IntPart(),
		"cancelUrl":   req.CancelURL,
		"description": description,
		"orderCode":   req.OrderCode,
		"returnUrl":   req.ReturnURL,
	}
	body := map[string]any{
		"orderCode":   req.OrderCode,
		"amount":      req.Amount.IntPart(),
		"description": description,
		"cancelUrl":   req.CancelURL,
		"returnUrl":   req.ReturnURL,
		"signature":   Sign(c.checksumKey, signed),
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal payment link request")
	}

	url := strings.TrimRight(c.baseURL, "/") + paymentRequestsPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build payment link request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-client-id", c.clientID)
	httpReq.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute payment link request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "payment link request failed")
	}

	var apiResp struct {
		Code string `json:"code"`
		Desc string `json:"desc"`
		Data *struct {
			CheckoutURL   string `json:"checkoutUrl"`
			PaymentLinkID string `json:"paymentLinkId"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode payment link response")
	}
	if apiResp.Code != successCode || apiResp.Data == nil || apiResp.Data.CheckoutURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment link rejected").
			WithDetails(map[string]any{"code": apiResp.Code, "desc": apiResp.Desc})
	}

	return &PaymentLink{
		CheckoutURL:   apiResp.Data.CheckoutURL,
		PaymentLinkID: apiResp.Data.PaymentLinkID,
	}, nil
}

// VerifyWebhook reports whether signature matches the webhook data object.
func (c *Client) VerifyWebhook(data map[string]any, signature string) bool {
	if c == nil {
		return false
	}
	return Verify(c.checksumKey, data, signature)
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}
