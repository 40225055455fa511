// controllers/goal_controller.go
package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/FebaRodrigues/track-fit-sub001/config"
	"github.com/FebaRodrigues/track-fit-sub001/models"
)

// GoalController handles fitness goals
type GoalController struct {
	DB *mongo.Client
}

// NewGoalController creates a new goal controller
func NewGoalController(db *mongo.Client) *GoalController {
	return &GoalController{DB: db}
}

// CreateGoal adds a fitness goal
func (gc *GoalController) CreateGoal(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}

	var req models.GoalRequest
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

	collection := config.GetCollection(gc.DB, "goals")

	now := time.Now()
	goal := models.Goal{
		ID:          primitive.NewObjectID(),
		UserID:      userID,
		Title:       req.Title,
		GoalType:    req.GoalType,
		TargetValue: req.TargetValue,
		Unit:        req.Unit,
		Deadline:    req.Deadline,
		Status:      models.GoalStatusInProgress,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := collection.InsertOne(ctx, goal); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create goal",
		})
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Goal created successfully",
		Data:    goal,
	})
}

// GetGoals lists the member's goals
func (gc *GoalController) GetGoals(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	collection := config.GetCollection(gc.DB, "goals")

	cursor, err := collection.Find(ctx, bson.M{"userId": userID}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load goals",
		})
	}

	var goals []models.Goal
	if err := cursor.All(ctx, &goals); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to decode goals",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Goals retrieved successfully",
		Data:    goals,
	})
}

// UpdateGoalProgress records progress toward a goal, marking it achieved
// when the target is reached
func (gc *GoalController) UpdateGoalProgress(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}

	goalID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid goal id",
		})
	}

	var req models.GoalProgressRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	collection := config.GetCollection(gc.DB, "goals")

	var goal models.Goal
	if err := collection.FindOne(ctx, bson.M{"_id": goalID, "userId": userID}).Decode(&goal); err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Goal not found",
		})
	}

	set := bson.M{
		"currentValue": req.CurrentValue,
		"updatedAt":    time.Now(),
	}
	if goal.Status == models.GoalStatusInProgress && req.CurrentValue >= goal.TargetValue {
		set["status"] = models.GoalStatusAchieved
	}

	if _, err := collection.UpdateOne(ctx, bson.M{"_id": goalID, "userId": userID}, bson.M{"$set": set}); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to update goal",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Goal progress updated",
	})
}

// AbandonGoal marks a goal abandoned
func (gc *GoalController) AbandonGoal(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}

	goalID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid goal id",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	collection := config.GetCollection(gc.DB, "goals")

	result, err := collection.UpdateOne(ctx,
		bson.M{"_id": goalID, "userId": userID, "status": models.GoalStatusInProgress},
		bson.M{"$set": bson.M{"status": models.GoalStatusAbandoned, "updatedAt": time.Now()}})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to abandon goal",
		})
	}
	if result.MatchedCount == 0 {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Goal not found or not in progress",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Goal abandoned",
	})
}
