package payproc

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cardhaus/cardhaus-backend/pkg/config"
	pkgerrors "github.com/cardhaus/cardhaus-backend/pkg/errors"
	"github.com/cardhaus/cardhaus-backend/pkg/logger"
)

// CaptureStatus is the terminal outcome reported by the processor.
type CaptureStatus string

const (
	CaptureStatusCaptured CaptureStatus = "CAPTURED"
	CaptureStatusFailed   CaptureStatus = "FAILED"
)

// CaptureResult carries the processor's capture decision.
type CaptureResult struct {
	Status        CaptureStatus
	FailureReason string
}

var (
	errBaseURLRequired = errors.New("payment base url is required")
	errLoggerRequired  = errors.New("payment logger is required")
)

// Client wraps the remote payment processor's REST surface with centralized
// auth, logging, timeouts, and error mapping.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	apiKey        string
	webhookSecret string
	environment   string
	logger        *logger.Logger
}

// NewClient initializes the processor wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.PaymentConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid payment base url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       baseURL,
		apiKey:        strings.TrimSpace(cfg.APIKey),
		webhookSecret: strings.TrimSpace(cfg.WebhookSecret),
		environment:   cfg.Environment(),
		logger:        logg,
	}

	logg.Info(ctx, "payment processor client initialized")
	return c, nil
}

// Environment reports the normalized processor environment.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// SigningSecret returns the webhook signing secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.webhookSecret
}

// VerifySignature checks an HMAC-SHA256 hex signature over the raw payload.
func (c *Client) VerifySignature(payload []byte, signature string) bool {
	if c == nil || c.webhookSecret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}

type createOrderRequest struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	MerchantRef string `json:"merchant_ref"`
}

type createOrderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type captureResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// CreateOrder opens a remote transaction for the given amount and returns
// the processor's order reference.
func (c *Client) CreateOrder(ctx context.Context, amount decimal.Decimal, currency, merchantRef string) (string, error) {
	body := createOrderRequest{
		Amount:      amount.StringFixed(2),
		Currency:    currency,
		MerchantRef: merchantRef,
	}
	c.log(ctx, "request", "create_order", map[string]any{
		"merchant_ref": merchantRef,
		"amount":       body.Amount,
		"currency":     currency,
	})

	var resp createOrderResponse
	if err := c.do(ctx, http.MethodPost, "/v1/orders", body, &resp); err != nil {
		c.log(ctx, "error", "create_order", map[string]any{"error": err.Error()})
		return "", err
	}
	if strings.TrimSpace(resp.ID) == "" {
		err := pkgerrors.New(pkgerrors.CodeDependency, "processor returned no order reference")
		c.log(ctx, "error", "create_order", map[string]any{"error": err.Error()})
		return "", err
	}

	c.log(ctx, "response", "create_order", map[string]any{
		"remote_ref": resp.ID,
		"status":     resp.Status,
	})
	return resp.ID, nil
}

// Capture settles the remote transaction and reports the terminal outcome.
func (c *Client) Capture(ctx context.Context, remoteRef string) (CaptureResult, error) {
	if strings.TrimSpace(remoteRef) == "" {
		return CaptureResult{}, pkgerrors.New(pkgerrors.CodeValidation, "remote ref is required")
	}
	c.log(ctx, "request", "capture", map[string]any{"remote_ref": remoteRef})

	var resp captureResponse
	path := fmt.Sprintf("/v1/orders/%s/capture", url.PathEscape(remoteRef))
	if err := c.do(ctx, http.MethodPost, path, nil, &resp); err != nil {
		c.log(ctx, "error", "capture", map[string]any{"error": err.Error()})
		return CaptureResult{}, err
	}

	result := CaptureResult{FailureReason: resp.FailureReason}
	switch strings.ToUpper(strings.TrimSpace(resp.Status)) {
	case string(CaptureStatusCaptured):
		result.Status = CaptureStatusCaptured
	case string(CaptureStatusFailed):
		result.Status = CaptureStatusFailed
	default:
		err := pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("processor returned unknown capture status %q", resp.Status))
		c.log(ctx, "error", "capture", map[string]any{"error": err.Error()})
		return CaptureResult{}, err
	}

	c.log(ctx, "response", "capture", map[string]any{
		"remote_ref": remoteRef,
		"status":     result.Status,
	})
	return result, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode processor request")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build processor request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "call payment processor")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read processor response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("processor responded %d: %s", resp.StatusCode, truncate(payload, 256)))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode processor response")
	}
	return nil
}

func truncate(payload []byte, max int) string {
	s := strings.TrimSpace(string(payload))
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = v
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("payproc %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("payproc %s", phase))
	}
}
