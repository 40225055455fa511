package repositories

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/FebaRodrigues/track-fit-sub001/models"
)

// DefaultTxnExpiryWindow is how long a created/otpPending transaction stays
// resumable before it is treated as expired on the next read.
const DefaultTxnExpiryWindow = 30 * time.Minute

// TransactionRepository is the durable pending-transaction store. All status
// changes go through Transition; there are no unconditional status writes.
type TransactionRepository struct {
	collection   *mongo.Collection
	expiryWindow time.Duration
}

func NewTransactionRepository(db *mongo.Database) *TransactionRepository {
	return &TransactionRepository{
		collection:   db.Collection("pending_transactions"),
		expiryWindow: DefaultTxnExpiryWindow,
	}
}

// Create inserts a new pending transaction in status created
func (r *TransactionRepository) Create(ctx context.Context, userID primitive.ObjectID, kind string, amount float64, currency string, referenceID primitive.ObjectID) (*models.PendingTransaction, error) {
	txn := &models.PendingTransaction{
		ID:          primitive.NewObjectID(),
		UserID:      userID,
		Kind:        kind,
		Amount:      amount,
		Currency:    currency,
		Status:      models.TxnStatusCreated,
		ReferenceID: referenceID,
		CreatedAt:   time.Now(),
	}
	_, err := r.collection.InsertOne(ctx, txn)
	if err != nil {
		return nil, fmt.Errorf("failed to insert pending transaction: %w", err)
	}
	return txn, nil
}

// FindByID returns a transaction by id, applying lazy expiry
func (r *TransactionRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.PendingTransaction, error) {
	var txn models.PendingTransaction
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&txn)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrUnknownSession
		}
		return nil, err
	}
	return r.applyExpiry(ctx, &txn), nil
}

// FindByExternalSessionID maps an external checkout session back to its
// pending transaction. Client-asserted session ids resolve through this and
// nothing else.
func (r *TransactionRepository) FindByExternalSessionID(ctx context.Context, sessionID string) (*models.PendingTransaction, error) {
	var txn models.PendingTransaction
	err := r.collection.FindOne(ctx, bson.M{"externalSessionId": sessionID}).Decode(&txn)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrUnknownSession
		}
		return nil, err
	}
	return r.applyExpiry(ctx, &txn), nil
}

// FindOpenByReference returns the newest non-terminal transaction for a
// membership/booking, if any
func (r *TransactionRepository) FindOpenByReference(ctx context.Context, referenceID primitive.ObjectID) (*models.PendingTransaction, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	var txn models.PendingTransaction
	err := r.collection.FindOne(ctx, bson.M{
		"referenceId": referenceID,
		"status": bson.M{"$in": []string{
			models.TxnStatusCreated, models.TxnStatusOtpPending,
			models.TxnStatusOtpVerified, models.TxnStatusSessionCreated,
		}},
	}, opts).Decode(&txn)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	txn2 := r.applyExpiry(ctx, &txn)
	if txn2.Status == models.TxnStatusExpired {
		return nil, nil
	}
	return txn2, nil
}

// Transition is the compare-and-swap status update. It fails with
// ErrInvalidTransition when the stored status no longer equals fromStatus,
// which is how concurrent reconciliations lose the race cleanly.
func (r *TransactionRepository) Transition(ctx context.Context, id primitive.ObjectID, fromStatus, toStatus string) error {
	set := bson.M{"status": toStatus}
	if toStatus == models.TxnStatusCompleted {
		set["completedAt"] = time.Now()
	}

	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": fromStatus},
		bson.M{"$set": set},
	)
	if err != nil {
		return fmt.Errorf("failed to transition transaction %s: %w", id.Hex(), err)
	}
	if res.ModifiedCount == 0 {
		return models.ErrInvalidTransition
	}
	return nil
}

// AttachExternalSession records the checkout session id and moves the
// transaction to sessionCreated, guarded on the expected current status.
func (r *TransactionRepository) AttachExternalSession(ctx context.Context, id primitive.ObjectID, fromStatus, sessionID string) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": fromStatus},
		bson.M{"$set": bson.M{
			"status":            models.TxnStatusSessionCreated,
			"externalSessionId": sessionID,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to attach session to transaction %s: %w", id.Hex(), err)
	}
	if res.ModifiedCount == 0 {
		return models.ErrInvalidTransition
	}
	return nil
}

// ExpireStale marks every created/otpPending transaction older than the
// expiry window as expired. Exposed for the admin sweep endpoint; reads do
// the same thing lazily per record.
func (r *TransactionRepository) ExpireStale(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-r.expiryWindow)
	res, err := r.collection.UpdateMany(ctx,
		bson.M{
			"status":    bson.M{"$in": []string{models.TxnStatusCreated, models.TxnStatusOtpPending}},
			"createdAt": bson.M{"$lt": cutoff},
		},
		bson.M{"$set": bson.M{"status": models.TxnStatusExpired}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// applyExpiry treats a stale created/otpPending record as expired on read.
// Expired transactions are never resurrected; callers must create a new one.
func (r *TransactionRepository) applyExpiry(ctx context.Context, txn *models.PendingTransaction) *models.PendingTransaction {
	if txn.Status != models.TxnStatusCreated && txn.Status != models.TxnStatusOtpPending {
		return txn
	}
	if time.Since(txn.CreatedAt) < r.expiryWindow {
		return txn
	}
	// Best effort: a lost race here just means another reader expired it first
	_ = r.Transition(ctx, txn.ID, txn.Status, models.TxnStatusExpired)
	txn.Status = models.TxnStatusExpired
	return txn
}
