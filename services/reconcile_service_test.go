package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/FebaRodrigues/track-fit-sub001/models"
)

type reconcileFixture struct {
	txns        *memTxnStore
	payments    *memPaymentStore
	memberships *memMembershipStore
	bookings    *memBookingStore
	provider    *mockProvider
	svc         *ReconcileService
}

func newReconcileFixture() *reconcileFixture {
	f := &reconcileFixture{
		txns:        newMemTxnStore(),
		payments:    newMemPaymentStore(),
		memberships: newMemMembershipStore(),
		bookings:    newMemBookingStore(),
		provider:    newMockProvider(),
	}
	f.svc = NewReconcileService(f.txns, f.payments, f.bookings, NewActivationService(f.memberships), f.provider)
	return f
}

// seedMembershipCheckout sets up a sessionCreated transaction, its pending
// payment and membership, and a paid processor-side session
func (f *reconcileFixture) seedMembershipCheckout(userID primitive.ObjectID, paid bool) (*models.PendingTransaction, *models.Membership) {
	membership := f.memberships.add(&models.Membership{
		UserID:       userID,
		PlanType:     models.PlanPremium,
		Status:       models.MembershipStatusPending,
		Price:        49.99,
		DurationDays: 30,
	})
	txn := f.txns.add(&models.PendingTransaction{
		UserID:            userID,
		Kind:              models.KindMembershipChange,
		Amount:            49.99,
		Currency:          "usd",
		Status:            models.TxnStatusSessionCreated,
		ExternalSessionID: "cs_test_" + primitive.NewObjectID().Hex(),
		ReferenceID:       membership.ID,
	})
	f.payments.add(&models.Payment{
		UserID:        userID,
		TransactionID: txn.ID,
		Type:          models.PaymentTypeMembership,
		Amount:        49.99,
		Currency:      "usd",
		Status:        models.PaymentStatusPending,
		MembershipID:  &membership.ID,
	})
	paymentStatus := "unpaid"
	if paid {
		paymentStatus = "paid"
	}
	f.provider.setSession(&models.CheckoutSession{
		ID:            txn.ExternalSessionID,
		Status:        "complete",
		PaymentStatus: paymentStatus,
		AmountTotal:   4999,
		Currency:      "usd",
	})
	return txn, membership
}

func TestReconcileActivatesMembership(t *testing.T) {
	f := newReconcileFixture()
	userID := primitive.NewObjectID()
	txn, membership := f.seedMembershipCheckout(userID, true)

	res, err := f.svc.Reconcile(context.Background(), txn.ExternalSessionID)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if res.Outcome != OutcomeActivated {
		t.Fatalf("expected outcome %s, got %s", OutcomeActivated, res.Outcome)
	}
	if res.Membership == nil || res.Membership.ID != membership.ID {
		t.Error("expected the activated membership in the result")
	}
	if res.Membership.Status != models.MembershipStatusActive {
		t.Errorf("expected active membership, got %s", res.Membership.Status)
	}
	if res.Payment == nil || res.Payment.Status != models.PaymentStatusCompleted {
		t.Error("expected the payment marked completed")
	}

	stored, _ := f.txns.FindByID(context.Background(), txn.ID)
	if stored.Status != models.TxnStatusCompleted {
		t.Errorf("expected transaction completed, got %s", stored.Status)
	}
	if stored.CompletedAt == nil {
		t.Error("expected CompletedAt set on completion")
	}
}

func TestReconcileIdempotent(t *testing.T) {
	f := newReconcileFixture()
	userID := primitive.NewObjectID()
	txn, _ := f.seedMembershipCheckout(userID, true)
	ctx := context.Background()

	first, err := f.svc.Reconcile(ctx, txn.ExternalSessionID)
	if err != nil {
		t.Fatalf("first Reconcile failed: %v", err)
	}
	if first.Outcome != OutcomeActivated {
		t.Fatalf("expected first call to activate, got %s", first.Outcome)
	}

	second, err := f.svc.Reconcile(ctx, txn.ExternalSessionID)
	if err != nil {
		t.Fatalf("second Reconcile failed: %v", err)
	}
	if second.Outcome != OutcomeAlreadyProcessed {
		t.Errorf("expected second call to report %s, got %s", OutcomeAlreadyProcessed, second.Outcome)
	}
	if n := f.memberships.activeCount(userID); n != 1 {
		t.Errorf("expected one active membership, got %d", n)
	}
}

func TestReconcileConcurrentExactlyOneActivates(t *testing.T) {
	f := newReconcileFixture()
	userID := primitive.NewObjectID()
	txn, _ := f.seedMembershipCheckout(userID, true)

	const callers = 10
	results := make([]*ReconciliationResult, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.svc.Reconcile(context.Background(), txn.ExternalSessionID)
		}(i)
	}
	wg.Wait()

	activated := 0
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d failed: %v", i, errs[i])
		}
		switch results[i].Outcome {
		case OutcomeActivated:
			activated++
		case OutcomeAlreadyProcessed:
		default:
			t.Errorf("caller %d got unexpected outcome %s", i, results[i].Outcome)
		}
	}
	if activated != 1 {
		t.Errorf("expected exactly one caller to activate, got %d", activated)
	}
	if n := f.memberships.activeCount(userID); n != 1 {
		t.Errorf("expected one active membership, got %d", n)
	}
}

func TestReconcileUnknownSession(t *testing.T) {
	f := newReconcileFixture()

	_, err := f.svc.Reconcile(context.Background(), "cs_test_unknown")
	if !errors.Is(err, models.ErrUnknownSession) {
		t.Errorf("expected ErrUnknownSession, got %v", err)
	}
}

func TestReconcileUnpaidSession(t *testing.T) {
	f := newReconcileFixture()
	userID := primitive.NewObjectID()
	txn, membership := f.seedMembershipCheckout(userID, false)

	res, err := f.svc.Reconcile(context.Background(), txn.ExternalSessionID)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if res.Outcome != OutcomeFailed {
		t.Errorf("expected outcome %s for unpaid session, got %s", OutcomeFailed, res.Outcome)
	}

	stored, _ := f.txns.FindByID(context.Background(), txn.ID)
	if stored.Status != models.TxnStatusSessionCreated {
		t.Errorf("unpaid session must not move the transaction, got %s", stored.Status)
	}
	ms, _ := f.memberships.FindByID(context.Background(), membership.ID)
	if ms.Status != models.MembershipStatusPending {
		t.Errorf("unpaid session must not activate the membership, got %s", ms.Status)
	}
}

func TestReconcileTerminalFailedTransaction(t *testing.T) {
	f := newReconcileFixture()
	userID := primitive.NewObjectID()
	txn, _ := f.seedMembershipCheckout(userID, true)
	if err := f.txns.Transition(context.Background(), txn.ID, models.TxnStatusSessionCreated, models.TxnStatusFailed); err != nil {
		t.Fatalf("seed transition failed: %v", err)
	}

	res, err := f.svc.Reconcile(context.Background(), txn.ExternalSessionID)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if res.Outcome != OutcomeFailed {
		t.Errorf("expected %s for failed transaction, got %s", OutcomeFailed, res.Outcome)
	}
	if f.provider.retrieveCalls != 0 {
		t.Error("terminal transaction must not be re-checked with the processor")
	}
}

func TestReconcileConfirmsBooking(t *testing.T) {
	f := newReconcileFixture()
	userID := primitive.NewObjectID()
	bookingID := primitive.NewObjectID()

	txn := f.txns.add(&models.PendingTransaction{
		UserID:            userID,
		Kind:              models.KindSpaBooking,
		Amount:            25,
		Currency:          "usd",
		Status:            models.TxnStatusSessionCreated,
		ExternalSessionID: "cs_test_booking",
		ReferenceID:       bookingID,
	})
	f.payments.add(&models.Payment{
		UserID:        userID,
		TransactionID: txn.ID,
		Type:          models.PaymentTypeSpaService,
		Amount:        25,
		Currency:      "usd",
		Status:        models.PaymentStatusPending,
		BookingID:     &bookingID,
	})
	f.provider.setSession(&models.CheckoutSession{
		ID:            "cs_test_booking",
		Status:        "complete",
		PaymentStatus: "paid",
	})

	res, err := f.svc.Reconcile(context.Background(), "cs_test_booking")
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if res.Outcome != OutcomeActivated {
		t.Fatalf("expected outcome %s, got %s", OutcomeActivated, res.Outcome)
	}
	if res.Membership != nil {
		t.Error("booking reconciliation should not produce a membership")
	}
	if f.bookings.confirmed[bookingID] != 1 {
		t.Errorf("expected booking confirmed once, got %d", f.bookings.confirmed[bookingID])
	}
}

func TestReconcileListenerFiredOnce(t *testing.T) {
	f := newReconcileFixture()
	userID := primitive.NewObjectID()
	txn, _ := f.seedMembershipCheckout(userID, true)

	var mu sync.Mutex
	calls := 0
	f.svc.OnCompletion(func(txn *models.PendingTransaction, payment *models.Payment, membership *models.Membership) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if membership == nil {
			t.Error("listener should receive the activated membership")
		}
		if payment == nil || payment.Status != models.PaymentStatusCompleted {
			t.Error("listener should receive the completed payment")
		}
	})

	ctx := context.Background()
	if _, err := f.svc.Reconcile(ctx, txn.ExternalSessionID); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if _, err := f.svc.Reconcile(ctx, txn.ExternalSessionID); err != nil {
		t.Fatalf("repeat Reconcile failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("expected listener fired once, got %d", calls)
	}
}

func TestReconcileProcessorUnavailable(t *testing.T) {
	f := newReconcileFixture()
	userID := primitive.NewObjectID()
	txn, _ := f.seedMembershipCheckout(userID, true)
	f.provider.retrieveErr = models.ErrProcessorUnavailable

	_, err := f.svc.Reconcile(context.Background(), txn.ExternalSessionID)
	if !errors.Is(err, models.ErrProcessorUnavailable) {
		t.Errorf("expected ErrProcessorUnavailable to propagate, got %v", err)
	}

	stored, _ := f.txns.FindByID(context.Background(), txn.ID)
	if stored.Status != models.TxnStatusSessionCreated {
		t.Errorf("processor outage must not move the transaction, got %s", stored.Status)
	}

	// Once the processor is back the same call succeeds
	f.provider.retrieveErr = nil
	res, err := f.svc.Reconcile(context.Background(), txn.ExternalSessionID)
	if err != nil {
		t.Fatalf("Reconcile after recovery failed: %v", err)
	}
	if res.Outcome != OutcomeActivated {
		t.Errorf("expected activation after recovery, got %s", res.Outcome)
	}
}

func TestReconcileCompletedAtClose(t *testing.T) {
	f := newReconcileFixture()
	userID := primitive.NewObjectID()
	txn, _ := f.seedMembershipCheckout(userID, true)

	before := time.Now()
	res, err := f.svc.Reconcile(context.Background(), txn.ExternalSessionID)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if res.Transaction.CompletedAt == nil || res.Transaction.CompletedAt.Before(before) {
		t.Error("expected CompletedAt set to the reconciliation time")
	}
}
