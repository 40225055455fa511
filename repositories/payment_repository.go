package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/FebaRodrigues/track-fit-sub001/models"
)

// PaymentRepository owns payment records, keyed to their pending transaction
type PaymentRepository struct {
	collection *mongo.Collection
}

func NewPaymentRepository(db *mongo.Database) *PaymentRepository {
	return &PaymentRepository{collection: db.Collection("payments")}
}

// Upsert creates or refreshes the pending payment for a transaction. Retried
// checkouts update the session id on the same record instead of creating a
// duplicate.
func (r *PaymentRepository) Upsert(ctx context.Context, p *models.Payment) (*models.Payment, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	set := bson.M{
		"userId":            p.UserID,
		"type":              p.Type,
		"amount":            p.Amount,
		"currency":          p.Currency,
		"externalSessionId": p.ExternalSessionID,
	}
	if p.MembershipID != nil {
		set["membershipId"] = p.MembershipID
	}
	if p.BookingID != nil {
		set["bookingId"] = p.BookingID
	}

	var out models.Payment
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"transactionId": p.TransactionID},
		bson.M{
			"$set": set,
			"$setOnInsert": bson.M{
				"transactionId": p.TransactionID,
				"status":        models.PaymentStatusPending,
				"createdAt":     time.Now(),
			},
		},
		opts,
	).Decode(&out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// FindByID returns a payment by id
func (r *PaymentRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Payment, error) {
	var p models.Payment
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// FindByTransaction returns the payment tied to a pending transaction
func (r *PaymentRepository) FindByTransaction(ctx context.Context, transactionID primitive.ObjectID) (*models.Payment, error) {
	var p models.Payment
	err := r.collection.FindOne(ctx, bson.M{"transactionId": transactionID}).Decode(&p)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// CompleteByTransaction marks the transaction's payment completed. Guarded on
// the pending status so a second reconciliation is a no-op.
func (r *PaymentRepository) CompleteByTransaction(ctx context.Context, transactionID primitive.ObjectID, paidAt time.Time) (*models.Payment, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p models.Payment
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"transactionId": transactionID, "status": models.PaymentStatusPending},
		bson.M{"$set": bson.M{
			"status":      models.PaymentStatusCompleted,
			"paymentDate": paidAt,
		}},
		opts,
	).Decode(&p)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			// Already completed (or never created); return what is there
			return r.FindByTransaction(ctx, transactionID)
		}
		return nil, err
	}
	return &p, nil
}

// ListByUser returns the user's payments, newest first
func (r *PaymentRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Payment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	payments := []models.Payment{}
	if err := cursor.All(ctx, &payments); err != nil {
		return nil, err
	}
	return payments, nil
}

// ListAll returns every payment, newest first (admin view)
func (r *PaymentRepository) ListAll(ctx context.Context) ([]models.Payment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	payments := []models.Payment{}
	if err := cursor.All(ctx, &payments); err != nil {
		return nil, err
	}
	return payments, nil
}
