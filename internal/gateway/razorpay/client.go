// internal/gateway/razorpay/client.go
package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/razorpay/razorpay-go"
	"go.uber.org/zap"
)

var (
	ErrOrderCreationFailed = errors.New("failed to create gateway order")
	ErrOrderFetchFailed    = errors.New("failed to fetch gateway order")
)

type Config struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
}

// CheckoutOrder is the gateway's view of one checkout session. Notes carries
// the checkout metadata we attached at order creation.
type CheckoutOrder struct {
	ID       string
	Amount   int64 // smallest currency unit
	Currency string
	Status   string
	Receipt  string
	Notes    map[string]interface{}
}

type Client struct {
	client *razorpay.Client
	cfg    Config
	logger *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.KeyID == "" || cfg.KeySecret == "" {
		logger.Warn("razorpay credentials are not fully configured")
	}
	return &Client{
		client: razorpay.NewClient(cfg.KeyID, cfg.KeySecret),
		cfg:    cfg,
		logger: logger,
	}
}

func (c *Client) KeyID() string {
	return c.cfg.KeyID
}

// CreateOrder opens a checkout session at the gateway. Amount is in the
// smallest currency unit (paise).
func (c *Client) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]interface{}) (*CheckoutOrder, error) {
	data := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
		"notes":    notes,
	}

	raw, err := c.client.Order.Create(data, nil)
	if err != nil {
		c.logger.Error("gateway order creation failed", zap.String("receipt", receipt), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrOrderCreationFailed, err)
	}

	ord := parseOrder(raw)
	c.logger.Info("gateway order created",
		zap.String("gateway_order_id", ord.ID),
		zap.Int64("amount", ord.Amount),
	)
	return ord, nil
}

// FetchOrder retrieves a checkout session by its gateway id.
func (c *Client) FetchOrder(ctx context.Context, gatewayOrderID string) (*CheckoutOrder, error) {
	raw, err := c.client.Order.Fetch(gatewayOrderID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderFetchFailed, err)
	}
	return parseOrder(raw), nil
}

// VerifyWebhookSignature checks the HMAC-SHA256 signature on a webhook body.
func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	if c.cfg.WebhookSecret == "" {
		c.logger.Warn("webhook signature verification skipped: no webhook secret configured")
		return true
	}

	mac := hmac.New(sha256.New, []byte(c.cfg.WebhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyCheckoutSignature checks the redirect-callback signature over
// "order_id|payment_id".
func (c *Client) VerifyCheckoutSignature(gatewayOrderID, gatewayPaymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(c.cfg.KeySecret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func parseOrder(raw map[string]interface{}) *CheckoutOrder {
	ord := &CheckoutOrder{}
	if v, ok := raw["id"].(string); ok {
		ord.ID = v
	}
	if v, ok := raw["amount"].(float64); ok {
		ord.Amount = int64(v)
	}
	if v, ok := raw["currency"].(string); ok {
		ord.Currency = v
	}
	if v, ok := raw["status"].(string); ok {
		ord.Status = v
	}
	if v, ok := raw["receipt"].(string); ok {
		ord.Receipt = v
	}
	if v, ok := raw["notes"].(map[string]interface{}); ok {
		ord.Notes = v
	}
	return ord
}
