package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/FebaRodrigues/track-fit-sub001/models"
)

// Reconciliation outcomes
const (
	OutcomeActivated        = "activated"
	OutcomeAlreadyProcessed = "alreadyProcessed"
	OutcomeFailed           = "failed"
)

// ReconciliationResult is what both reconciliation entry points hand back to
// their HTTP layer
type ReconciliationResult struct {
	Outcome     string                     `json:"outcome"`
	Transaction *models.PendingTransaction `json:"transaction"`
	Payment     *models.Payment            `json:"payment,omitempty"`
	Membership  *models.Membership         `json:"membership,omitempty"`
}

// PaymentStore is the slice of the payment repository reconciliation needs
type PaymentStore interface {
	CompleteByTransaction(ctx context.Context, transactionID primitive.ObjectID, paidAt time.Time) (*models.Payment, error)
	FindByTransaction(ctx context.Context, transactionID primitive.ObjectID) (*models.Payment, error)
}

// BookingConfirmer confirms a paid spa booking
type BookingConfirmer interface {
	Confirm(ctx context.Context, id primitive.ObjectID) error
}

// MembershipActivator activates a paid pending membership
type MembershipActivator interface {
	Activate(ctx context.Context, userID, membershipID primitive.ObjectID) (*models.Membership, error)
}

// CompletionListener observes successful reconciliations (notifications,
// push, websocket). Best-effort; failures never affect the outcome.
type CompletionListener func(txn *models.PendingTransaction, payment *models.Payment, membership *models.Membership)

// ReconcileService resolves an external checkout session into local state
// exactly once. The user-redirect return and the processor webhook are two
// thin callers of the same Reconcile.
type ReconcileService struct {
	txns      TransactionStore
	payments  PaymentStore
	bookings  BookingConfirmer
	activator MembershipActivator
	provider  CheckoutProvider
	onDone    CompletionListener
}

func NewReconcileService(txns TransactionStore, payments PaymentStore, bookings BookingConfirmer, activator MembershipActivator, provider CheckoutProvider) *ReconcileService {
	return &ReconcileService{
		txns:      txns,
		payments:  payments,
		bookings:  bookings,
		activator: activator,
		provider:  provider,
	}
}

// OnCompletion registers a listener invoked after a successful activation
func (s *ReconcileService) OnCompletion(listener CompletionListener) {
	s.onDone = listener
}

// Reconcile fetches the authoritative payment status for the session and
// folds it into local state. Safe to call any number of times, from any
// number of goroutines: exactly one call activates, the rest observe
// alreadyProcessed.
func (s *ReconcileService) Reconcile(ctx context.Context, sessionID string) (*ReconciliationResult, error) {
	txn, err := s.txns.FindByExternalSessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, models.ErrUnknownSession) {
			log.Printf("Reconcile: unknown session %s", sessionID)
			return nil, models.ErrUnknownSession
		}
		return nil, fmt.Errorf("failed to look up session %s: %w", sessionID, err)
	}

	if txn.Status == models.TxnStatusCompleted {
		return s.alreadyProcessed(ctx, txn)
	}
	if txn.IsTerminal() {
		// failed or expired: terminal, nothing to re-check with the processor
		return &ReconciliationResult{Outcome: OutcomeFailed, Transaction: txn}, nil
	}

	session, err := s.provider.RetrieveSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve session %s for transaction %s: %w", sessionID, txn.ID.Hex(), err)
	}

	if !session.Paid() {
		log.Printf("Reconcile: session %s not paid (status %s) for transaction %s",
			sessionID, session.PaymentStatus, txn.ID.Hex())
		return &ReconciliationResult{Outcome: OutcomeFailed, Transaction: txn}, nil
	}

	// The compare-and-swap below is the sole concurrency guard: of N racing
	// reconciliations, exactly one wins this transition.
	err = s.txns.Transition(ctx, txn.ID, txn.Status, models.TxnStatusCompleted)
	if errors.Is(err, models.ErrInvalidTransition) {
		current, ferr := s.txns.FindByID(ctx, txn.ID)
		if ferr == nil && current.Status == models.TxnStatusCompleted {
			return s.alreadyProcessed(ctx, current)
		}
		return &ReconciliationResult{Outcome: OutcomeFailed, Transaction: txn}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to complete transaction %s: %w", txn.ID.Hex(), err)
	}

	now := time.Now()
	txn.Status = models.TxnStatusCompleted
	txn.CompletedAt = &now

	var membership *models.Membership
	switch txn.Kind {
	case models.KindMembershipChange:
		membership, err = s.activator.Activate(ctx, txn.UserID, txn.ReferenceID)
		if err != nil {
			log.Printf("ACTIVATION FAILED for transaction %s: %v; manual reconciliation required", txn.ID.Hex(), err)
			return nil, err
		}
	case models.KindSpaBooking:
		if err := s.bookings.Confirm(ctx, txn.ReferenceID); err != nil {
			log.Printf("BOOKING CONFIRMATION FAILED for transaction %s: %v; manual reconciliation required", txn.ID.Hex(), err)
			return nil, fmt.Errorf("%w: booking %s: %v", models.ErrActivationConflict, txn.ReferenceID.Hex(), err)
		}
	}

	payment, err := s.payments.CompleteByTransaction(ctx, txn.ID, now)
	if err != nil {
		log.Printf("Warning: failed to complete payment for transaction %s: %v", txn.ID.Hex(), err)
	}

	log.Printf("Reconcile: transaction %s completed via session %s", txn.ID.Hex(), sessionID)

	if s.onDone != nil {
		s.onDone(txn, payment, membership)
	}

	return &ReconciliationResult{
		Outcome:     OutcomeActivated,
		Transaction: txn,
		Payment:     payment,
		Membership:  membership,
	}, nil
}

func (s *ReconcileService) alreadyProcessed(ctx context.Context, txn *models.PendingTransaction) (*ReconciliationResult, error) {
	payment, err := s.payments.FindByTransaction(ctx, txn.ID)
	if err != nil {
		log.Printf("Warning: failed to load payment for completed transaction %s: %v", txn.ID.Hex(), err)
	}
	return &ReconciliationResult{
		Outcome:     OutcomeAlreadyProcessed,
		Transaction: txn,
		Payment:     payment,
	}, nil
}
