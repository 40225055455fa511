package models

import (
	"testing"
	"time"
)

func TestPendingTransactionIsTerminal(t *testing.T) {
	cases := []struct {
		status   string
		terminal bool
	}{
		{TxnStatusCreated, false},
		{TxnStatusOtpPending, false},
		{TxnStatusOtpVerified, false},
		{TxnStatusSessionCreated, false},
		{TxnStatusCompleted, true},
		{TxnStatusFailed, true},
		{TxnStatusExpired, true},
	}
	for _, tc := range cases {
		txn := &PendingTransaction{Status: tc.status}
		if got := txn.IsTerminal(); got != tc.terminal {
			t.Errorf("IsTerminal() for %s = %v, want %v", tc.status, got, tc.terminal)
		}
	}
}

func TestCheckoutSessionPaid(t *testing.T) {
	if (&CheckoutSession{PaymentStatus: "unpaid"}).Paid() {
		t.Error("unpaid session reported as paid")
	}
	if (&CheckoutSession{PaymentStatus: "no_payment_required"}).Paid() {
		t.Error("only an explicit paid status can be trusted")
	}
	if !(&CheckoutSession{PaymentStatus: "paid"}).Paid() {
		t.Error("paid session not reported as paid")
	}
}

func TestCheckoutSessionExpired(t *testing.T) {
	if (&CheckoutSession{Status: "open"}).Expired() {
		t.Error("open session without expiry reported as expired")
	}
	if !(&CheckoutSession{Status: "expired"}).Expired() {
		t.Error("expired status not reported as expired")
	}
	if !(&CheckoutSession{Status: "open", ExpiresAt: time.Now().Add(-time.Minute).Unix()}).Expired() {
		t.Error("session past its expiry timestamp not reported as expired")
	}
	if (&CheckoutSession{Status: "open", ExpiresAt: time.Now().Add(time.Hour).Unix()}).Expired() {
		t.Error("session before its expiry timestamp reported as expired")
	}
}
