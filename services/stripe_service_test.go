package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/FebaRodrigues/track-fit-sub001/models"
)

func newTestStripeService(baseURL string) *StripeService {
	return &StripeService{
		baseURL:       baseURL,
		secretKey:     "sk_test_secret",
		webhookSecret: "whsec_test",
		client:        &http.Client{Timeout: 5 * time.Second},
	}
}

func TestStripeCreateSession(t *testing.T) {
	var gotAuth, gotIdempotency, gotContentType string
	var gotForm map[string][]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/checkout/sessions" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		gotIdempotency = r.Header.Get("Idempotency-Key")
		gotContentType = r.Header.Get("Content-Type")
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		gotForm = r.PostForm
		fmt.Fprint(w, `{"id":"cs_test_123","url":"https://checkout.stripe.com/c/cs_test_123","status":"open","payment_status":"unpaid","amount_total":4999,"currency":"usd","metadata":{"transactionId":"abc123"}}`)
	}))
	defer srv.Close()

	svc := newTestStripeService(srv.URL)
	sess, err := svc.CreateSession(context.Background(), models.CheckoutParams{
		AmountMinorUnits: 4999,
		Currency:         "USD",
		Description:      "Premium membership",
		SuccessURL:       "https://app.example.com/success",
		CancelURL:        "https://app.example.com/cancel",
		TransactionID:    "abc123",
		CustomerEmail:    "user@example.com",
	})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if sess.ID != "cs_test_123" {
		t.Errorf("expected session id cs_test_123, got %s", sess.ID)
	}
	if gotAuth != "Bearer sk_test_secret" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}
	if gotIdempotency != "checkout-abc123" {
		t.Errorf("expected deterministic idempotency key, got %q", gotIdempotency)
	}
	if gotContentType != "application/x-www-form-urlencoded" {
		t.Errorf("expected form content type, got %q", gotContentType)
	}

	wantFields := map[string]string{
		"mode":                                     "payment",
		"line_items[0][quantity]":                  "1",
		"line_items[0][price_data][currency]":      "usd",
		"line_items[0][price_data][unit_amount]":   "4999",
		"metadata[transactionId]":                  "abc123",
		"customer_email":                           "user@example.com",
		"line_items[0][price_data][product_data][name]": "Premium membership",
	}
	for key, want := range wantFields {
		if got := gotForm[key]; len(got) != 1 || got[0] != want {
			t.Errorf("form field %q = %v, want %q", key, got, want)
		}
	}
}

func TestStripeRetrieveSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/v1/checkout/sessions/cs_test_123" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		fmt.Fprint(w, `{"id":"cs_test_123","status":"complete","payment_status":"paid","amount_total":4999,"currency":"usd"}`)
	}))
	defer srv.Close()

	svc := newTestStripeService(srv.URL)
	sess, err := svc.RetrieveSession(context.Background(), "cs_test_123")
	if err != nil {
		t.Fatalf("RetrieveSession failed: %v", err)
	}
	if !sess.Paid() {
		t.Error("expected session reported as paid")
	}
}

func TestStripeServerErrorIsProcessorUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	svc := newTestStripeService(srv.URL)
	_, err := svc.RetrieveSession(context.Background(), "cs_test_123")
	if !errors.Is(err, models.ErrProcessorUnavailable) {
		t.Errorf("expected ErrProcessorUnavailable on 5xx, got %v", err)
	}
}

func TestStripeNetworkErrorIsProcessorUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	svc := newTestStripeService(srv.URL)
	_, err := svc.RetrieveSession(context.Background(), "cs_test_123")
	if !errors.Is(err, models.ErrProcessorUnavailable) {
		t.Errorf("expected ErrProcessorUnavailable on network failure, got %v", err)
	}
}

func TestStripeAPIErrorSurfacesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"type":"invalid_request_error","code":"resource_missing","message":"No such checkout session"}}`)
	}))
	defer srv.Close()

	svc := newTestStripeService(srv.URL)
	_, err := svc.RetrieveSession(context.Background(), "cs_bogus")
	if err == nil || !strings.Contains(err.Error(), "No such checkout session") {
		t.Errorf("expected the API error message surfaced, got %v", err)
	}
	if errors.Is(err, models.ErrProcessorUnavailable) {
		t.Error("a 4xx is a caller error, not a processor outage")
	}
}

func TestStripeMissingCredentials(t *testing.T) {
	svc := &StripeService{client: http.DefaultClient}
	_, err := svc.RetrieveSession(context.Background(), "cs_test_123")
	if err == nil {
		t.Fatal("expected an error when no secret key is configured")
	}
}

func signWebhook(t *testing.T, payload []byte, secret string, ts time.Time) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts.Unix(), 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifyWebhookSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	secret := "whsec_test"
	now := time.Unix(1700000000, 0)
	tolerance := 5 * time.Minute

	cases := []struct {
		name    string
		header  string
		wantErr bool
	}{
		{
			name:   "valid signature",
			header: signWebhook(t, payload, secret, now),
		},
		{
			name:   "valid with spaces between parts",
			header: strings.ReplaceAll(signWebhook(t, payload, secret, now), ",", ", "),
		},
		{
			name:    "wrong secret",
			header:  signWebhook(t, payload, "whsec_other", now),
			wantErr: true,
		},
		{
			name:    "tampered payload",
			header:  signWebhook(t, []byte(`{"id":"evt_2"}`), secret, now),
			wantErr: true,
		},
		{
			name:    "timestamp outside tolerance",
			header:  signWebhook(t, payload, secret, now.Add(-10*time.Minute)),
			wantErr: true,
		},
		{
			name:    "empty header",
			header:  "",
			wantErr: true,
		},
		{
			name:    "malformed header",
			header:  "not-a-signature",
			wantErr: true,
		},
		{
			name:    "missing v1 signature",
			header:  fmt.Sprintf("t=%d", now.Unix()),
			wantErr: true,
		},
		{
			name:    "garbage timestamp",
			header:  "t=abc,v1=deadbeef",
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := verifyWebhookSignature(payload, tc.header, secret, tolerance, now)
			if tc.wantErr && err == nil {
				t.Error("expected verification to fail")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("expected verification to pass, got %v", err)
			}
		})
	}
}

func TestVerifyWebhookSignatureNoSecret(t *testing.T) {
	payload := []byte(`{}`)
	header := signWebhook(t, payload, "whsec_test", time.Now())
	if err := verifyWebhookSignature(payload, header, "", 5*time.Minute, time.Now()); err == nil {
		t.Error("expected failure when no webhook secret is configured")
	}
}

func TestVerifyWebhookSignatureMultipleV1(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	secret := "whsec_test"
	now := time.Unix(1700000000, 0)

	valid := signWebhook(t, payload, secret, now)
	// Prepend a stale v1 entry; any matching signature should still verify
	header := strings.Replace(valid, "v1=", "v1=00ff00ff,v1=", 1)

	if err := verifyWebhookSignature(payload, header, secret, 5*time.Minute, now); err != nil {
		t.Errorf("expected one matching signature among several to verify, got %v", err)
	}
}
