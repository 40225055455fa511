// controllers/membership_controller.go
package controllers

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"log"
	"net/http"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/FebaRodrigues/track-fit-sub001/config"
	"github.com/FebaRodrigues/track-fit-sub001/models"
	"github.com/FebaRodrigues/track-fit-sub001/repositories"
)

// MembershipController handles the plan catalog and membership records.
// Activation itself never happens here; it belongs to reconciliation.
type MembershipController struct {
	DB          *mongo.Client
	memberships *repositories.MembershipRepository
}

// NewMembershipController creates a new membership controller
func NewMembershipController(db *mongo.Client) *MembershipController {
	return &MembershipController{
		DB:          db,
		memberships: repositories.NewMembershipRepository(db.Database(config.DatabaseName())),
	}
}

// GetPlans lists purchasable plans
func (mc *MembershipController) GetPlans(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	collection := config.GetCollection(mc.DB, "membership_plans")

	cursor, err := collection.Find(ctx, bson.M{"isActive": true}, options.Find().SetSort(bson.D{{Key: "price", Value: 1}}))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load plans",
		})
	}

	var plans []models.MembershipPlan
	if err := cursor.All(ctx, &plans); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to decode plans",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Plans retrieved successfully",
		Data:    plans,
	})
}

// SelectPlan creates a pending membership for the chosen plan. Payment and
// activation follow through the checkout flow.
func (mc *MembershipController) SelectPlan(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}

	var req models.SelectPlanRequest
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

	planID, err := primitive.ObjectIDFromHex(req.PlanID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid plan id",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	collection := config.GetCollection(mc.DB, "membership_plans")
	var plan models.MembershipPlan
	if err := collection.FindOne(ctx, bson.M{"_id": planID, "isActive": true}).Decode(&plan); err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Plan not found",
		})
	}

	// Changing to the plan already held is a no-op worth refusing early
	active, err := mc.memberships.FindActiveByUser(ctx, userID)
	if err == nil && active != nil && active.PlanType == plan.PlanType {
		return c.JSON(http.StatusConflict, models.Response{
			Status:  http.StatusConflict,
			Message: "You already have an active " + plan.PlanType + " membership",
		})
	}

	membership, err := mc.memberships.CreatePending(ctx, userID, &plan)
	if err != nil {
		log.Printf("Failed to create pending membership for user %s: %v", userID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create membership",
		})
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Membership created, awaiting payment",
		Data:    membership,
	})
}

// GetCurrentMembership returns the member's active membership if any
func (mc *MembershipController) GetCurrentMembership(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	membership, err := mc.memberships.FindActiveByUser(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load membership",
		})
	}
	if membership == nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "No active membership",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Membership retrieved successfully",
		Data:    membership,
	})
}

// GetMembershipHistory lists all memberships the member has held
func (mc *MembershipController) GetMembershipHistory(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	memberships, err := mc.memberships.ListByUser(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load membership history",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Membership history retrieved successfully",
		Data:    memberships,
	})
}

// GetMembershipCard renders the member's gym access card as a QR code PNG.
// The code encodes the active membership id and is scanned at the door.
func (mc *MembershipController) GetMembershipCard(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	membership, err := mc.memberships.FindActiveByUser(ctx, userID)
	if err != nil || membership == nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "No active membership",
		})
	}

	content := fmt.Sprintf("trackfit:membership:%s:%s:%s", membership.ID.Hex(), userID.Hex(), membership.PlanType)

	qrCode, err := qr.Encode(content, qr.M, qr.Auto)
	if err != nil {
		log.Printf("Failed to encode membership QR for %s: %v", membership.ID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to generate membership card",
		})
	}

	qrCode, err = barcode.Scale(qrCode, 300, 300)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to generate membership card",
		})
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qrCode); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to generate membership card",
		})
	}

	return c.Blob(http.StatusOK, "image/png", buf.Bytes())
}

// CreatePlan adds a plan to the catalog (admin)
func (mc *MembershipController) CreatePlan(c echo.Context) error {
	var req models.MembershipPlanRequest
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

	collection := config.GetCollection(mc.DB, "membership_plans")

	now := time.Now()
	plan := models.MembershipPlan{
		ID:           primitive.NewObjectID(),
		PlanType:     req.PlanType,
		Price:        req.Price,
		DurationDays: req.DurationDays,
		Description:  req.Description,
		Benefits:     req.Benefits,
		IsActive:     req.IsActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := collection.InsertOne(ctx, plan); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create plan",
		})
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Plan created successfully",
		Data:    plan,
	})
}

// UpdatePlan modifies a catalog plan (admin)
func (mc *MembershipController) UpdatePlan(c echo.Context) error {
	planID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid plan id",
		})
	}

	var req models.MembershipPlanRequest
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

	collection := config.GetCollection(mc.DB, "membership_plans")

	result, err := collection.UpdateOne(ctx, bson.M{"_id": planID}, bson.M{"$set": bson.M{
		"planType":     req.PlanType,
		"price":        req.Price,
		"durationDays": req.DurationDays,
		"description":  req.Description,
		"benefits":     req.Benefits,
		"isActive":     req.IsActive,
		"updatedAt":    time.Now(),
	}})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to update plan",
		})
	}
	if result.MatchedCount == 0 {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Plan not found",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Plan updated successfully",
	})
}

// DeletePlan retires a plan from the catalog (admin). Existing memberships
// keep their denormalized plan data.
func (mc *MembershipController) DeletePlan(c echo.Context) error {
	planID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid plan id",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	collection := config.GetCollection(mc.DB, "membership_plans")

	result, err := collection.UpdateOne(ctx, bson.M{"_id": planID}, bson.M{"$set": bson.M{
		"isActive":  false,
		"updatedAt": time.Now(),
	}})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to delete plan",
		})
	}
	if result.MatchedCount == 0 {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Plan not found",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Plan retired successfully",
	})
}
