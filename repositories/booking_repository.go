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

// BookingRepository owns spa booking records
type BookingRepository struct {
	collection *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{collection: db.Collection("bookings")}
}

// Create inserts a booking
func (r *BookingRepository) Create(ctx context.Context, b *models.Booking) error {
	_, err := r.collection.InsertOne(ctx, b)
	return err
}

// FindByID returns a booking by id
func (r *BookingRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Booking, error) {
	var b models.Booking
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&b)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

// Confirm moves a pending booking to confirmed. Idempotent: confirming an
// already-confirmed booking is a no-op.
func (r *BookingRepository) Confirm(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.BookingStatusPending},
		bson.M{"$set": bson.M{
			"status":    models.BookingStatusConfirmed,
			"updatedAt": time.Now(),
		}},
	)
	return err
}

// ListByUser returns the user's bookings, newest first
func (r *BookingRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	bookings := []models.Booking{}
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// CountFreeSessionsSince counts confirmed free-session bookings created on or
// after the given time. Used to enforce the Elite one-per-month allowance.
func (r *BookingRepository) CountFreeSessionsSince(ctx context.Context, userID primitive.ObjectID, since time.Time) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{
		"userId":      userID,
		"freeSession": true,
		"status":      bson.M{"$ne": models.BookingStatusCancelled},
		"createdAt":   bson.M{"$gte": since},
	})
}
