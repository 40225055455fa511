// controllers/admin_controller.go
package controllers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/FebaRodrigues/track-fit-sub001/config"
	"github.com/FebaRodrigues/track-fit-sub001/models"
	"github.com/FebaRodrigues/track-fit-sub001/repositories"
)

// AdminController handles back-office operations
type AdminController struct {
	DB       *mongo.Client
	payments *repositories.PaymentRepository
	txns     *repositories.TransactionRepository
}

// NewAdminController creates a new admin controller
func NewAdminController(db *mongo.Client) *AdminController {
	database := db.Database(config.DatabaseName())
	return &AdminController{
		DB:       db,
		payments: repositories.NewPaymentRepository(database),
		txns:     repositories.NewTransactionRepository(database),
	}
}

// GetAllPayments lists every payment for back-office review
func (ac *AdminController) GetAllPayments(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	payments, err := ac.payments.ListAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load payments",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Payments retrieved successfully",
		Data:    payments,
	})
}

// ExpireStaleTransactions sweeps abandoned checkouts into the expired state.
// Expiry is otherwise applied lazily on read; this endpoint exists so the
// back office can settle reporting without waiting for reads to happen.
func (ac *AdminController) ExpireStaleTransactions(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	expired, err := ac.txns.ExpireStale(ctx)
	if err != nil {
		log.Printf("Stale transaction sweep failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Sweep failed",
		})
	}

	log.Printf("Stale transaction sweep expired %d transactions", expired)
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Sweep completed",
		Data:    map[string]int64{"expired": expired},
	})
}

// GetMembershipStats reports membership counts per plan and status
func (ac *AdminController) GetMembershipStats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	collection := config.GetCollection(ac.DB, "memberships")

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{
				{Key: "planType", Value: "$planType"},
				{Key: "status", Value: "$status"},
			}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cursor, err := collection.Aggregate(ctx, pipeline)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to compute stats",
		})
	}

	var stats []bson.M
	if err := cursor.All(ctx, &stats); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to decode stats",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Stats retrieved successfully",
		Data:    stats,
	})
}
