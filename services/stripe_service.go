package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/FebaRodrigues/track-fit-sub001/models"
)

// CheckoutProvider abstracts the payment processor's hosted-checkout API so
// it can be swapped or faked in tests. RetrieveSession is the only trusted
// source of truth for whether a session was paid.
type CheckoutProvider interface {
	CreateSession(ctx context.Context, params models.CheckoutParams) (*models.CheckoutSession, error)
	RetrieveSession(ctx context.Context, sessionID string) (*models.CheckoutSession, error)
}

// StripeService talks to the Stripe checkout API
type StripeService struct {
	baseURL       string
	secretKey     string
	webhookSecret string
	client        *http.Client
}

// NewStripeService creates a new Stripe service instance from environment
// configuration. Built once at startup and shared.
func NewStripeService() *StripeService {
	baseURL := os.Getenv("STRIPE_API_BASE")
	if baseURL == "" {
		baseURL = "https://api.stripe.com"
	}

	secretKey := os.Getenv("STRIPE_SECRET_KEY")
	webhookSecret := os.Getenv("STRIPE_WEBHOOK_SECRET")

	if secretKey == "" {
		log.Printf("WARNING: Stripe credentials not fully configured:")
		log.Printf("  - STRIPE_SECRET_KEY is missing")
		log.Printf("Please set these environment variables for checkout to work")
	} else {
		log.Printf("Stripe Service Configuration:")
		log.Printf("  Base URL: %s", baseURL)
		log.Printf("  Secret Key: [CONFIGURED]")
		if webhookSecret == "" {
			log.Printf("  Webhook Secret: [NOT SET] - webhook notifications will be rejected")
		} else {
			log.Printf("  Webhook Secret: [CONFIGURED]")
		}
	}

	return &StripeService{
		baseURL:       strings.TrimRight(baseURL, "/"),
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
		client:        &http.Client{Timeout: 30 * time.Second},
	}
}

// CreateSession creates a hosted checkout session. The pending transaction id
// travels in the session metadata so reconciliation can recover context
// without trusting any client-supplied field.
func (s *StripeService) CreateSession(ctx context.Context, params models.CheckoutParams) (*models.CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", strings.ToLower(params.Currency))
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(params.AmountMinorUnits, 10))
	form.Set("line_items[0][price_data][product_data][name]", params.Description)
	form.Set("metadata[transactionId]", params.TransactionID)
	if params.CustomerEmail != "" {
		form.Set("customer_email", params.CustomerEmail)
	}

	// A deterministic idempotency key per transaction means a racing retry
	// gets the same session back from the processor instead of a second one
	idempotencyKey := "checkout-" + params.TransactionID

	return s.doSessionRequest(ctx, http.MethodPost, "/v1/checkout/sessions", form, idempotencyKey)
}

// RetrieveSession fetches the authoritative state of a checkout session
func (s *StripeService) RetrieveSession(ctx context.Context, sessionID string) (*models.CheckoutSession, error) {
	endpoint := "/v1/checkout/sessions/" + url.PathEscape(sessionID)
	return s.doSessionRequest(ctx, http.MethodGet, endpoint, nil, "")
}

func (s *StripeService) doSessionRequest(ctx context.Context, method, endpoint string, form url.Values, idempotencyKey string) (*models.CheckoutSession, error) {
	if s.secretKey == "" {
		return nil, fmt.Errorf("missing Stripe credentials. Please set STRIPE_SECRET_KEY environment variable")
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.secretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrProcessorUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if os.Getenv("STRIPE_DEBUG") == "true" {
		log.Printf("Stripe API %s %s -> %d: %s", method, endpoint, resp.StatusCode, string(respBody))
	}

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: processor returned %d", models.ErrProcessorUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error struct {
				Type    string `json:"type"`
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("stripe API error: %s - %s", apiErr.Error.Type, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("stripe API error: status %d", resp.StatusCode)
	}

	var session models.CheckoutSession
	if err := json.Unmarshal(respBody, &session); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w\nResponse body: %s", err, string(respBody))
	}
	return &session, nil
}

// VerifyWebhookSignature checks the Stripe-Signature header against the raw
// payload. Notifications that fail verification never touch local state.
func (s *StripeService) VerifyWebhookSignature(payload []byte, header string) error {
	return verifyWebhookSignature(payload, header, s.webhookSecret, 5*time.Minute, time.Now())
}

// verifyWebhookSignature implements the Stripe signing scheme: the header
// carries "t=<unix>,v1=<hex hmac>" and the signed message is "<t>.<payload>".
func verifyWebhookSignature(payload []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	if secret == "" {
		return fmt.Errorf("webhook secret not configured")
	}
	if header == "" {
		return fmt.Errorf("missing signature header")
	}

	var timestamp int64
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid signature timestamp")
			}
			timestamp = ts
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}

	if timestamp == 0 || len(signatures) == 0 {
		return fmt.Errorf("malformed signature header")
	}
	if now.Sub(time.Unix(timestamp, 0)) > tolerance {
		return fmt.Errorf("signature timestamp outside tolerance")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}
	return fmt.Errorf("no matching signature")
}
