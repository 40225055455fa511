package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Exercise is a single logged exercise within a workout
type Exercise struct {
	Name   string  `json:"name" bson:"name"`
	Sets   int     `json:"sets" bson:"sets"`
	Reps   int     `json:"reps" bson:"reps"`
	Weight float64 `json:"weight,omitempty" bson:"weight,omitempty"`
}

// Workout is a member's logged training session
type Workout struct {
	ID              primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID          primitive.ObjectID `json:"userId" bson:"userId"`
	Title           string             `json:"title" bson:"title"`
	Exercises       []Exercise         `json:"exercises" bson:"exercises"`
	DurationMinutes int                `json:"durationMinutes,omitempty" bson:"durationMinutes,omitempty"`
	CaloriesBurned  float64            `json:"caloriesBurned,omitempty" bson:"caloriesBurned,omitempty"`
	Date            time.Time          `json:"date" bson:"date"`
	Notes           string             `json:"notes,omitempty" bson:"notes,omitempty"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// WorkoutRequest is the payload for logging or updating a workout
type WorkoutRequest struct {
	Title           string     `json:"title" validate:"required"`
	Exercises       []Exercise `json:"exercises" validate:"required,min=1,dive"`
	DurationMinutes int        `json:"durationMinutes"`
	CaloriesBurned  float64    `json:"caloriesBurned"`
	Date            time.Time  `json:"date"`
	Notes           string     `json:"notes"`
}
