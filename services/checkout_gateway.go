package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/FebaRodrigues/track-fit-sub001/models"
)

// TransactionStore is the slice of the pending-transaction repository the
// payment services need. Satisfied by repositories.TransactionRepository and
// by in-memory fakes in tests.
type TransactionStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.PendingTransaction, error)
	FindByExternalSessionID(ctx context.Context, sessionID string) (*models.PendingTransaction, error)
	Transition(ctx context.Context, id primitive.ObjectID, fromStatus, toStatus string) error
	AttachExternalSession(ctx context.Context, id primitive.ObjectID, fromStatus, sessionID string) error
}

// CheckoutGateway wraps session creation with reuse semantics: a retried
// checkout on a transaction that already holds a live session returns that
// session instead of creating (and potentially charging) a second one.
type CheckoutGateway struct {
	provider   CheckoutProvider
	txns       TransactionStore
	successURL string
	cancelURL  string
}

func NewCheckoutGateway(provider CheckoutProvider, txns TransactionStore) *CheckoutGateway {
	appURL := os.Getenv("APP_URL")
	if appURL == "" {
		appURL = "http://localhost:3000"
	}
	return &CheckoutGateway{
		provider:   provider,
		txns:       txns,
		successURL: appURL + "/payment-success?session_id={CHECKOUT_SESSION_ID}",
		cancelURL:  appURL + "/payment-failed",
	}
}

// CreateSession returns a checkout session for the transaction, reusing the
// existing one while it is still open on the processor side.
func (g *CheckoutGateway) CreateSession(ctx context.Context, txn *models.PendingTransaction, description, customerEmail string) (*models.CheckoutSession, error) {
	if txn.ExternalSessionID != "" {
		sess, err := g.provider.RetrieveSession(ctx, txn.ExternalSessionID)
		if err == nil && !sess.Expired() && sess.Status == "open" {
			log.Printf("Reusing checkout session %s for transaction %s", sess.ID, txn.ID.Hex())
			return sess, nil
		}
		if err != nil {
			log.Printf("Could not retrieve existing session %s for transaction %s: %v; creating a new one",
				txn.ExternalSessionID, txn.ID.Hex(), err)
		}
	}

	params := models.CheckoutParams{
		AmountMinorUnits: MinorUnits(txn.Amount),
		Currency:         txn.Currency,
		Description:      description,
		SuccessURL:       g.successURL,
		CancelURL:        g.cancelURL,
		TransactionID:    txn.ID.Hex(),
		CustomerEmail:    customerEmail,
	}

	sess, err := g.provider.CreateSession(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session for transaction %s: %w", txn.ID.Hex(), err)
	}

	err = g.txns.AttachExternalSession(ctx, txn.ID, txn.Status, sess.ID)
	if err == models.ErrInvalidTransition {
		// Someone else attached a session first; re-read and honor theirs
		current, ferr := g.txns.FindByID(ctx, txn.ID)
		if ferr == nil && current.ExternalSessionID != "" && current.ExternalSessionID != sess.ID {
			return g.provider.RetrieveSession(ctx, current.ExternalSessionID)
		}
		if ferr == nil && current.ExternalSessionID == sess.ID {
			return sess, nil
		}
		return nil, models.ErrInvalidTransition
	}
	if err != nil {
		return nil, err
	}

	txn.ExternalSessionID = sess.ID
	txn.Status = models.TxnStatusSessionCreated
	log.Printf("Checkout session %s created for transaction %s (amount %d %s)",
		sess.ID, txn.ID.Hex(), params.AmountMinorUnits, params.Currency)
	return sess, nil
}

// MinorUnits converts a decimal amount to processor minor units (cents)
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
