package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OtpChallenge represents a one-time checkout verification code. A user has
// at most one live challenge; issuing a new one replaces the prior.
type OtpChallenge struct {
	UserID     primitive.ObjectID `bson:"userId"`
	Code       string             `bson:"code"`
	IssuedAt   time.Time          `bson:"issuedAt"`
	ExpiresAt  time.Time          `bson:"expiresAt"`
	Consumed   bool               `bson:"consumed"`
	ConsumedAt *time.Time         `bson:"consumedAt,omitempty"`
}
