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

// MembershipRepository owns membership records. Status writes that activate
// or supersede memberships are only reachable through the activation service.
type MembershipRepository struct {
	collection *mongo.Collection
}

func NewMembershipRepository(db *mongo.Database) *MembershipRepository {
	return &MembershipRepository{collection: db.Collection("memberships")}
}

// CreatePending inserts a membership in status pending for the selected plan
func (r *MembershipRepository) CreatePending(ctx context.Context, userID primitive.ObjectID, plan *models.MembershipPlan) (*models.Membership, error) {
	now := time.Now()
	m := &models.Membership{
		ID:           primitive.NewObjectID(),
		UserID:       userID,
		PlanType:     plan.PlanType,
		Status:       models.MembershipStatusPending,
		Price:        plan.Price,
		DurationDays: plan.DurationDays,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err := r.collection.InsertOne(ctx, m)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// FindByID returns a membership by id
func (r *MembershipRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Membership, error) {
	var m models.Membership
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// FindActiveByUser returns the user's active membership, if any
func (r *MembershipRepository) FindActiveByUser(ctx context.Context, userID primitive.ObjectID) (*models.Membership, error) {
	var m models.Membership
	err := r.collection.FindOne(ctx, bson.M{
		"userId": userID,
		"status": models.MembershipStatusActive,
	}).Decode(&m)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// ListByUser returns the user's membership history, newest first
func (r *MembershipRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Membership, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	memberships := []models.Membership{}
	if err := cursor.All(ctx, &memberships); err != nil {
		return nil, err
	}
	return memberships, nil
}

// Activate sets the membership active with the given validity window,
// guarded on the current status so a concurrent activation loses cleanly.
func (r *MembershipRepository) Activate(ctx context.Context, id primitive.ObjectID, fromStatus string, start, end time.Time) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": fromStatus},
		bson.M{"$set": bson.M{
			"status":    models.MembershipStatusActive,
			"startDate": start,
			"endDate":   end,
			"updatedAt": time.Now(),
		}},
	)
	if err != nil {
		return err
	}
	if res.ModifiedCount == 0 {
		return models.ErrInvalidTransition
	}
	return nil
}

// CancelActiveExcept supersedes every active membership of the user other
// than exceptID, closing it out at endDate
func (r *MembershipRepository) CancelActiveExcept(ctx context.Context, userID, exceptID primitive.ObjectID, endDate time.Time) error {
	_, err := r.collection.UpdateMany(ctx,
		bson.M{
			"userId": userID,
			"status": models.MembershipStatusActive,
			"_id":    bson.M{"$ne": exceptID},
		},
		bson.M{"$set": bson.M{
			"status":    models.MembershipStatusCancelled,
			"endDate":   endDate,
			"updatedAt": time.Now(),
		}},
	)
	return err
}
