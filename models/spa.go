package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SpaService represents a bookable spa/recovery service in the catalog
type SpaService struct {
	ID              primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Name            string             `json:"name" bson:"name"`
	Description     string             `json:"description,omitempty" bson:"description,omitempty"`
	Price           float64            `json:"price" bson:"price"`
	DurationMinutes int                `json:"durationMinutes" bson:"durationMinutes"`
	IsActive        bool               `json:"isActive" bson:"isActive"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// Booking statuses
const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
)

// Booking represents a spa service booking. Paid bookings are confirmed by
// payment reconciliation; Elite free-session bookings are confirmed at
// creation time and never reach the checkout gateway.
type Booking struct {
	ID          primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID      primitive.ObjectID `json:"userId" bson:"userId"`
	ServiceID   primitive.ObjectID `json:"serviceId" bson:"serviceId"`
	ServiceName string             `json:"serviceName" bson:"serviceName"`
	Price       float64            `json:"price" bson:"price"`
	BookingDate time.Time          `json:"bookingDate" bson:"bookingDate"`
	TimeSlot    string             `json:"timeSlot" bson:"timeSlot"`
	Status      string             `json:"status" bson:"status"`
	FreeSession bool               `json:"freeSession" bson:"freeSession"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// BookingRequest is the payload for creating a booking
type BookingRequest struct {
	ServiceID   string    `json:"serviceId" validate:"required"`
	BookingDate time.Time `json:"bookingDate" validate:"required"`
	TimeSlot    string    `json:"timeSlot" validate:"required"`
}

// SpaServiceRequest is the admin payload for catalog entries
type SpaServiceRequest struct {
	Name            string  `json:"name" validate:"required"`
	Description     string  `json:"description"`
	Price           float64 `json:"price" validate:"required,gt=0"`
	DurationMinutes int     `json:"durationMinutes" validate:"required,gt=0"`
	IsActive        bool    `json:"isActive"`
}
