// controllers/booking_controller.go
package controllers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/FebaRodrigues/track-fit-sub001/config"
	"github.com/FebaRodrigues/track-fit-sub001/models"
	"github.com/FebaRodrigues/track-fit-sub001/repositories"
)

// freeSessionsPerMonth is the Elite plan's monthly free spa allowance
const freeSessionsPerMonth = 1

// BookingController handles the spa catalog and bookings
type BookingController struct {
	DB          *mongo.Client
	bookings    *repositories.BookingRepository
	memberships *repositories.MembershipRepository
	txns        *repositories.TransactionRepository
}

// NewBookingController creates a new booking controller
func NewBookingController(db *mongo.Client) *BookingController {
	database := db.Database(config.DatabaseName())
	return &BookingController{
		DB:          db,
		bookings:    repositories.NewBookingRepository(database),
		memberships: repositories.NewMembershipRepository(database),
		txns:        repositories.NewTransactionRepository(database),
	}
}

// GetSpaServices lists bookable spa services
func (bc *BookingController) GetSpaServices(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	collection := config.GetCollection(bc.DB, "spa_services")

	cursor, err := collection.Find(ctx, bson.M{"isActive": true}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load spa services",
		})
	}

	var spaServices []models.SpaService
	if err := cursor.All(ctx, &spaServices); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to decode spa services",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Spa services retrieved successfully",
		Data:    spaServices,
	})
}

// CreateBooking books a spa service. Elite members get one free session per
// calendar month, confirmed immediately; everything else starts pending and
// goes through checkout.
func (bc *BookingController) CreateBooking(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}

	var req models.BookingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	}

	serviceID, err := primitive.ObjectIDFromHex(req.ServiceID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid service id",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	collection := config.GetCollection(bc.DB, "spa_services")
	var spaService models.SpaService
	if err := collection.FindOne(ctx, bson.M{"_id": serviceID, "isActive": true}).Decode(&spaService); err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Spa service not found",
		})
	}

	if req.BookingDate.Before(time.Now()) {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Booking date must be in the future",
		})
	}

	// Eligibility is checked at booking time, not at membership purchase
	freeSession := false
	membership, err := bc.memberships.FindActiveByUser(ctx, userID)
	if err == nil && membership != nil && membership.PlanType == models.PlanElite {
		now := time.Now()
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		used, err := bc.bookings.CountFreeSessionsSince(ctx, userID, monthStart)
		if err == nil && used < freeSessionsPerMonth {
			freeSession = true
		}
	}

	now := time.Now()
	booking := &models.Booking{
		ID:          primitive.NewObjectID(),
		UserID:      userID,
		ServiceID:   spaService.ID,
		ServiceName: spaService.Name,
		Price:       spaService.Price,
		BookingDate: req.BookingDate,
		TimeSlot:    req.TimeSlot,
		Status:      models.BookingStatusPending,
		FreeSession: freeSession,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if freeSession {
		booking.Price = 0
		booking.Status = models.BookingStatusConfirmed
	}

	if err := bc.bookings.Create(ctx, booking); err != nil {
		log.Printf("Failed to create booking for user %s: %v", userID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create booking",
		})
	}

	if freeSession {
		// Record a zero-amount completed transaction so the purchase trail
		// stays uniform across paid and free bookings
		txn, err := bc.txns.Create(ctx, userID, models.KindSpaBooking, 0, "usd", booking.ID)
		if err == nil {
			if terr := bc.txns.Transition(ctx, txn.ID, models.TxnStatusCreated, models.TxnStatusCompleted); terr != nil {
				log.Printf("Failed to close free-session transaction %s: %v", txn.ID.Hex(), terr)
			}
		} else {
			log.Printf("Failed to record free-session transaction for booking %s: %v", booking.ID.Hex(), err)
		}

		return c.JSON(http.StatusCreated, models.Response{
			Status:  http.StatusCreated,
			Message: "Free session booked and confirmed",
			Data:    booking,
		})
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Booking created, awaiting payment",
		Data:    booking,
	})
}

// GetBookings lists the member's bookings, newest first
func (bc *BookingController) GetBookings(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	bookings, err := bc.bookings.ListByUser(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load bookings",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Bookings retrieved successfully",
		Data:    bookings,
	})
}

// CreateSpaService adds a spa service to the catalog (admin)
func (bc *BookingController) CreateSpaService(c echo.Context) error {
	var req models.SpaServiceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	collection := config.GetCollection(bc.DB, "spa_services")

	now := time.Now()
	spaService := models.SpaService{
		ID:              primitive.NewObjectID(),
		Name:            req.Name,
		Description:     req.Description,
		Price:           req.Price,
		DurationMinutes: req.DurationMinutes,
		IsActive:        req.IsActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if _, err := collection.InsertOne(ctx, spaService); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create spa service",
		})
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Spa service created successfully",
		Data:    spaService,
	})
}

// UpdateSpaService modifies a catalog spa service (admin)
func (bc *BookingController) UpdateSpaService(c echo.Context) error {
	serviceID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid service id",
		})
	}

	var req models.SpaServiceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	collection := config.GetCollection(bc.DB, "spa_services")

	result, err := collection.UpdateOne(ctx, bson.M{"_id": serviceID}, bson.M{"$set": bson.M{
		"name":            req.Name,
		"description":     req.Description,
		"price":           req.Price,
		"durationMinutes": req.DurationMinutes,
		"isActive":        req.IsActive,
		"updatedAt":       time.Now(),
	}})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to update spa service",
		})
	}
	if result.MatchedCount == 0 {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Spa service not found",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Spa service updated successfully",
	})
}
