package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Payment types
const (
	PaymentTypeMembership = "membership"
	PaymentTypeSpaService = "spaService"
)

// Payment statuses
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
)

// Payment is the terminal record of money movement. Exactly one Payment
// exists per pending transaction once a checkout session has been created.
type Payment struct {
	ID                primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	UserID            primitive.ObjectID  `json:"userId" bson:"userId"`
	TransactionID     primitive.ObjectID  `json:"transactionId" bson:"transactionId"`
	Type              string              `json:"type" bson:"type"`
	Amount            float64             `json:"amount" bson:"amount"`
	Currency          string              `json:"currency" bson:"currency"`
	Status            string              `json:"status" bson:"status"`
	ExternalSessionID string              `json:"externalSessionId,omitempty" bson:"externalSessionId,omitempty"`
	MembershipID      *primitive.ObjectID `json:"membershipId,omitempty" bson:"membershipId,omitempty"`
	BookingID         *primitive.ObjectID `json:"bookingId,omitempty" bson:"bookingId,omitempty"`
	CreatedAt         time.Time           `json:"createdAt" bson:"createdAt"`
	PaymentDate       *time.Time          `json:"paymentDate,omitempty" bson:"paymentDate,omitempty"`
}

// CreatePaymentRequest is the payload for initiating checkout on a pending
// membership or booking
type CreatePaymentRequest struct {
	MembershipID string  `json:"membershipId,omitempty"`
	BookingID    string  `json:"bookingId,omitempty"`
	Amount       float64 `json:"amount" validate:"required,gte=0"`
	Type         string  `json:"type" validate:"required,oneof=membership spaService"`
}

// RetryPaymentRequest re-opens checkout for a still-pending payment
type RetryPaymentRequest struct {
	PaymentID string `json:"paymentId" validate:"required"`
}

// VerifyOTPRequest submits the code the user received. The user is always
// the authenticated caller.
type VerifyOTPRequest struct {
	OTP string `json:"otp" validate:"required,len=6,numeric"`
}
