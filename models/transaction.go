package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Transaction kinds
const (
	KindMembershipChange = "membershipChange"
	KindSpaBooking       = "spaBooking"
)

// Pending transaction statuses. Completed, failed and expired are terminal;
// a record never leaves a terminal status.
const (
	TxnStatusCreated        = "created"
	TxnStatusOtpPending     = "otpPending"
	TxnStatusOtpVerified    = "otpVerified"
	TxnStatusSessionCreated = "sessionCreated"
	TxnStatusCompleted      = "completed"
	TxnStatusFailed         = "failed"
	TxnStatusExpired        = "expired"
)

// PendingTransaction is the durable record of an intended purchase created
// before any money moves. Status is mutated only through the guarded
// Transition operation on the repository.
type PendingTransaction struct {
	ID                primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID            primitive.ObjectID `json:"userId" bson:"userId"`
	Kind              string             `json:"kind" bson:"kind"`
	Amount            float64            `json:"amount" bson:"amount"`
	Currency          string             `json:"currency" bson:"currency"`
	ExternalSessionID string             `json:"externalSessionId,omitempty" bson:"externalSessionId,omitempty"`
	Status            string             `json:"status" bson:"status"`
	ReferenceID       primitive.ObjectID `json:"referenceId" bson:"referenceId"` // membership or booking id
	CreatedAt         time.Time          `json:"createdAt" bson:"createdAt"`
	CompletedAt       *time.Time         `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
}

// IsTerminal reports whether the transaction can no longer change status
func (t *PendingTransaction) IsTerminal() bool {
	switch t.Status {
	case TxnStatusCompleted, TxnStatusFailed, TxnStatusExpired:
		return true
	}
	return false
}
