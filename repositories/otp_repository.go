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

// OtpRepository stores checkout verification challenges, one per user
type OtpRepository struct {
	collection *mongo.Collection
}

func NewOtpRepository(db *mongo.Database) *OtpRepository {
	return &OtpRepository{collection: db.Collection("otp_challenges")}
}

// Replace installs a new challenge for the user. The replace-upsert is what
// invalidates any prior unconsumed challenge.
func (r *OtpRepository) Replace(ctx context.Context, challenge *models.OtpChallenge) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"userId": challenge.UserID}, challenge, opts)
	return err
}

// Find returns the user's current challenge, if any
func (r *OtpRepository) Find(ctx context.Context, userID primitive.ObjectID) (*models.OtpChallenge, error) {
	var ch models.OtpChallenge
	err := r.collection.FindOne(ctx, bson.M{"userId": userID}).Decode(&ch)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &ch, nil
}

// Consume marks the matching unconsumed challenge as used. The conditional
// filter makes the code single-use: a replay finds consumed=true and fails
// with ErrInvalidCode.
func (r *OtpRepository) Consume(ctx context.Context, userID primitive.ObjectID, code string) error {
	now := time.Now()
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"userId": userID, "code": code, "consumed": false},
		bson.M{"$set": bson.M{"consumed": true, "consumedAt": now}},
	)
	if err != nil {
		return err
	}
	if res.ModifiedCount == 0 {
		return models.ErrInvalidCode
	}
	return nil
}
