package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/FebaRodrigues/track-fit-sub001/models"
)

func TestGatewayCreatesSessionAndAttaches(t *testing.T) {
	txns := newMemTxnStore()
	provider := newMockProvider()
	gw := NewCheckoutGateway(provider, txns)

	txn := txns.add(&models.PendingTransaction{
		UserID:   primitive.NewObjectID(),
		Kind:     models.KindMembershipChange,
		Amount:   49.99,
		Currency: "usd",
		Status:   models.TxnStatusOtpVerified,
	})

	sess, err := gw.CreateSession(context.Background(), txn, "Premium membership", "user@example.com")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if sess.URL == "" {
		t.Error("expected a checkout URL")
	}
	if sess.AmountTotal != 4999 {
		t.Errorf("expected amount 4999 minor units, got %d", sess.AmountTotal)
	}
	if got := sess.Metadata["transactionId"]; got != txn.ID.Hex() {
		t.Errorf("expected transaction id %s in metadata, got %s", txn.ID.Hex(), got)
	}

	stored, _ := txns.FindByID(context.Background(), txn.ID)
	if stored.Status != models.TxnStatusSessionCreated {
		t.Errorf("expected transaction in sessionCreated, got %s", stored.Status)
	}
	if stored.ExternalSessionID != sess.ID {
		t.Error("expected session id attached to the transaction")
	}
	if txn.Status != models.TxnStatusSessionCreated || txn.ExternalSessionID != sess.ID {
		t.Error("expected the in-memory transaction updated to match")
	}
}

func TestGatewayReusesOpenSession(t *testing.T) {
	txns := newMemTxnStore()
	provider := newMockProvider()
	gw := NewCheckoutGateway(provider, txns)

	provider.setSession(&models.CheckoutSession{
		ID:            "cs_existing",
		URL:           "https://checkout.example.com/existing",
		Status:        "open",
		PaymentStatus: "unpaid",
	})
	txn := txns.add(&models.PendingTransaction{
		UserID:            primitive.NewObjectID(),
		Kind:              models.KindMembershipChange,
		Amount:            49.99,
		Currency:          "usd",
		Status:            models.TxnStatusSessionCreated,
		ExternalSessionID: "cs_existing",
	})

	sess, err := gw.CreateSession(context.Background(), txn, "Premium membership", "")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if sess.ID != "cs_existing" {
		t.Errorf("expected existing session reused, got %s", sess.ID)
	}
	if provider.createCalls != 0 {
		t.Errorf("expected no new session created, got %d calls", provider.createCalls)
	}
}

func TestGatewayReplacesExpiredSession(t *testing.T) {
	txns := newMemTxnStore()
	provider := newMockProvider()
	gw := NewCheckoutGateway(provider, txns)

	provider.setSession(&models.CheckoutSession{
		ID:            "cs_expired",
		Status:        "expired",
		PaymentStatus: "unpaid",
		ExpiresAt:     time.Now().Add(-time.Hour).Unix(),
	})
	txn := txns.add(&models.PendingTransaction{
		UserID:            primitive.NewObjectID(),
		Kind:              models.KindMembershipChange,
		Amount:            49.99,
		Currency:          "usd",
		Status:            models.TxnStatusSessionCreated,
		ExternalSessionID: "cs_expired",
	})

	sess, err := gw.CreateSession(context.Background(), txn, "Premium membership", "")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if sess.ID == "cs_expired" {
		t.Error("expected a fresh session replacing the expired one")
	}
	if provider.createCalls != 1 {
		t.Errorf("expected one new session, got %d", provider.createCalls)
	}
}

func TestGatewayProviderFailurePropagates(t *testing.T) {
	txns := newMemTxnStore()
	provider := newMockProvider()
	provider.createErr = models.ErrProcessorUnavailable
	gw := NewCheckoutGateway(provider, txns)

	txn := txns.add(&models.PendingTransaction{
		UserID:   primitive.NewObjectID(),
		Kind:     models.KindMembershipChange,
		Amount:   49.99,
		Currency: "usd",
		Status:   models.TxnStatusOtpVerified,
	})

	_, err := gw.CreateSession(context.Background(), txn, "Premium membership", "")
	if !errors.Is(err, models.ErrProcessorUnavailable) {
		t.Errorf("expected ErrProcessorUnavailable, got %v", err)
	}

	stored, _ := txns.FindByID(context.Background(), txn.ID)
	if stored.Status != models.TxnStatusOtpVerified {
		t.Errorf("provider failure must not move the transaction, got %s", stored.Status)
	}
}

func TestGatewayAttachRaceHonorsWinner(t *testing.T) {
	txns := newMemTxnStore()
	provider := newMockProvider()
	gw := NewCheckoutGateway(provider, txns)

	txn := txns.add(&models.PendingTransaction{
		UserID:   primitive.NewObjectID(),
		Kind:     models.KindMembershipChange,
		Amount:   49.99,
		Currency: "usd",
		Status:   models.TxnStatusOtpVerified,
	})

	// Another caller attached a session between our stale read and the CAS
	provider.setSession(&models.CheckoutSession{
		ID:            "cs_winner",
		URL:           "https://checkout.example.com/winner",
		Status:        "open",
		PaymentStatus: "unpaid",
	})
	if err := txns.AttachExternalSession(context.Background(), txn.ID, models.TxnStatusOtpVerified, "cs_winner"); err != nil {
		t.Fatalf("seed attach failed: %v", err)
	}

	stale := *txn
	stale.Status = models.TxnStatusOtpVerified
	stale.ExternalSessionID = ""

	sess, err := gw.CreateSession(context.Background(), &stale, "Premium membership", "")
	if err != nil {
		t.Fatalf("CreateSession should recover from the lost race: %v", err)
	}
	if sess.ID != "cs_winner" {
		t.Errorf("expected the winner's session, got %s", sess.ID)
	}
}

func TestMinorUnits(t *testing.T) {
	cases := []struct {
		amount float64
		want   int64
	}{
		{49.99, 4999},
		{0.01, 1},
		{100, 10000},
		{19.999, 2000},
		{0, 0},
	}
	for _, tc := range cases {
		if got := MinorUnits(tc.amount); got != tc.want {
			t.Errorf("MinorUnits(%v) = %d, want %d", tc.amount, got, tc.want)
		}
	}
}
