package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Goal statuses
const (
	GoalStatusInProgress = "inProgress"
	GoalStatusAchieved   = "achieved"
	GoalStatusAbandoned  = "abandoned"
)

// Goal is a member's fitness goal with measurable progress
type Goal struct {
	ID           primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID       primitive.ObjectID `json:"userId" bson:"userId"`
	Title        string             `json:"title" bson:"title"`
	GoalType     string             `json:"goalType" bson:"goalType"` // weight, distance, frequency...
	TargetValue  float64            `json:"targetValue" bson:"targetValue"`
	CurrentValue float64            `json:"currentValue" bson:"currentValue"`
	Unit         string             `json:"unit,omitempty" bson:"unit,omitempty"`
	Deadline     *time.Time         `json:"deadline,omitempty" bson:"deadline,omitempty"`
	Status       string             `json:"status" bson:"status"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// GoalRequest is the payload for creating or updating a goal
type GoalRequest struct {
	Title       string     `json:"title" validate:"required"`
	GoalType    string     `json:"goalType" validate:"required"`
	TargetValue float64    `json:"targetValue" validate:"required,gt=0"`
	Unit        string     `json:"unit"`
	Deadline    *time.Time `json:"deadline"`
}

// GoalProgressRequest updates measured progress on a goal
type GoalProgressRequest struct {
	CurrentValue float64 `json:"currentValue" validate:"gte=0"`
}
