package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Membership plan tiers
const (
	PlanBasic   = "Basic"
	PlanPremium = "Premium"
	PlanElite   = "Elite"
)

// Membership statuses
const (
	MembershipStatusPending   = "pending"
	MembershipStatusActive    = "active"
	MembershipStatusExpired   = "expired"
	MembershipStatusCancelled = "cancelled"
)

// Membership represents a user's membership record. At most one membership
// per user may be active at any time; activation is owned exclusively by the
// activation service.
type Membership struct {
	ID           primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID       primitive.ObjectID `json:"userId" bson:"userId"`
	PlanType     string             `json:"planType" bson:"planType"`
	Status       string             `json:"status" bson:"status"`
	Price        float64            `json:"price" bson:"price"`
	DurationDays int                `json:"durationDays" bson:"durationDays"`
	StartDate    *time.Time         `json:"startDate,omitempty" bson:"startDate,omitempty"`
	EndDate      *time.Time         `json:"endDate,omitempty" bson:"endDate,omitempty"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// MembershipPlan represents a purchasable plan in the catalog
type MembershipPlan struct {
	ID           primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	PlanType     string             `json:"planType" bson:"planType"`
	Price        float64            `json:"price" bson:"price"`
	DurationDays int                `json:"durationDays" bson:"durationDays"`
	Description  string             `json:"description,omitempty" bson:"description,omitempty"`
	Benefits     []string           `json:"benefits,omitempty" bson:"benefits,omitempty"`
	IsActive     bool               `json:"isActive" bson:"isActive"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// MembershipPlanRequest is the admin payload for creating/updating plans
type MembershipPlanRequest struct {
	PlanType     string   `json:"planType" validate:"required,oneof=Basic Premium Elite"`
	Price        float64  `json:"price" validate:"required,gt=0"`
	DurationDays int      `json:"durationDays" validate:"required,gt=0"`
	Description  string   `json:"description"`
	Benefits     []string `json:"benefits"`
	IsActive     bool     `json:"isActive"`
}

// SelectPlanRequest is the payload for selecting a plan, which creates a
// pending membership awaiting payment
type SelectPlanRequest struct {
	PlanID string `json:"planId" validate:"required"`
}
