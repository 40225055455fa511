package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/FebaRodrigues/track-fit-sub001/config"
	"github.com/FebaRodrigues/track-fit-sub001/controllers"
	"github.com/FebaRodrigues/track-fit-sub001/middleware"
	"github.com/FebaRodrigues/track-fit-sub001/models"
	"github.com/FebaRodrigues/track-fit-sub001/repositories"
	"github.com/FebaRodrigues/track-fit-sub001/routes"
	"github.com/FebaRodrigues/track-fit-sub001/security"
	"github.com/FebaRodrigues/track-fit-sub001/services"
	"github.com/FebaRodrigues/track-fit-sub001/utils"
	"github.com/FebaRodrigues/track-fit-sub001/websocket"
)

// CustomValidator is a custom validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the request body
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func main() {
	// Load .env file
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found")
	}

	// Initialize Firebase
	config.InitFirebase()

	// Connect to Redis
	config.ConnectRedis()

	// Connect to database
	client := config.ConnectDB()
	database := client.Database(config.DatabaseName())

	// Create WebSocket hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Create a new Echo instance
	e := echo.New()

	// Initialize custom validator
	customValidator := &CustomValidator{validator: validator.New()}
	e.Validator = customValidator

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter()

	// Middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.Secure())
	e.Use(rateLimiter.RateLimit())
	e.Use(middleware.SecurityHeadersWithConfig(middleware.SecurityConfig{
		CheckoutDomains: []string{"https://checkout.stripe.com", "https://api.stripe.com"},
		AllowInlineJS:   true,
	}))
	e.Use(contentTypeGuard())

	e.Match([]string{"GET", "HEAD"}, "/", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":  "OK",
			"message": "TrackFit Backend is running",
			"version": "1.0",
		})
	})

	e.Match([]string{"GET", "HEAD"}, "/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":   "healthy",
			"database": "connected",
		})
	})

	e.Use(httpsRedirect())

	// Payment stack: OTP gate, checkout gateway and reconciliation share one
	// set of repositories
	txnRepo := repositories.NewTransactionRepository(database)
	paymentRepo := repositories.NewPaymentRepository(database)
	membershipRepo := repositories.NewMembershipRepository(database)
	bookingRepo := repositories.NewBookingRepository(database)
	otpRepo := repositories.NewOtpRepository(database)

	emailService := services.NewEmailService()
	stripeService := services.NewStripeService()
	otpService := services.NewOtpService(otpRepo, emailService, config.GetRedisClient())
	gateway := services.NewCheckoutGateway(stripeService, txnRepo)
	activationService := services.NewActivationService(membershipRepo)
	reconcileService := services.NewReconcileService(txnRepo, paymentRepo, bookingRepo, activationService, stripeService)

	// Completed payments fan out to in-app notifications, push and the
	// realtime feed; all best-effort
	reconcileService.OnCompletion(func(txn *models.PendingTransaction, payment *models.Payment, membership *models.Membership) {
		title := "Payment completed"
		message := fmt.Sprintf("Your payment of %.2f %s was completed", txn.Amount, strings.ToUpper(txn.Currency))
		data := map[string]string{
			"type":          websocket.NotificationTypePaymentCompleted,
			"transactionId": txn.ID.Hex(),
		}
		if err := utils.NotifyUser(client, txn.UserID, title, message, websocket.NotificationTypePaymentCompleted, data); err != nil {
			log.Printf("Failed to save completion notification for transaction %s: %v", txn.ID.Hex(), err)
		}
		if payment != nil {
			wsHub.NotifyPaymentCompleted(txn.UserID, payment)
		}
		if membership != nil {
			wsHub.NotifyMembershipActivated(txn.UserID, membership)
			utils.NotifyUser(client, txn.UserID, "Membership activated",
				"Your "+membership.PlanType+" membership is now active",
				websocket.NotificationTypeMembershipActivated,
				map[string]string{"membershipId": membership.ID.Hex()})
		}
		if txn.Kind == models.KindSpaBooking {
			wsHub.NotifyBookingConfirmed(txn.UserID, map[string]string{
				"bookingId":     txn.ReferenceID.Hex(),
				"transactionId": txn.ID.Hex(),
			})
			utils.NotifyUser(client, txn.UserID, "Booking confirmed",
				"Your spa booking is confirmed",
				websocket.NotificationTypeBookingConfirmed,
				map[string]string{"bookingId": txn.ReferenceID.Hex()})
		}
	})

	paymentController := controllers.NewPaymentController(client, otpService, gateway, reconcileService, stripeService, wsHub)

	// Register all routes
	routes.SetupRoutes(e, client, wsHub, paymentController)

	// Background maintenance
	go middleware.CleanupBlacklist()

	// Ensure uploads directory exists
	os.MkdirAll("uploads", 0755)
	os.MkdirAll("uploads/profiles", 0755)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	e.Logger.Fatal(e.Start(":" + port))
}

func httpsRedirect() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get("X-Forwarded-Proto") == "http" {
				return c.Redirect(301, "https://"+c.Request().Host+c.Request().RequestURI)
			}
			return next(c)
		}
	}
}

// contentTypeGuard rejects mutation requests with unexpected content types
func contentTypeGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			method := c.Request().Method
			if method != http.MethodPost && method != http.MethodPut && method != http.MethodPatch {
				return next(c)
			}
			contentType := c.Request().Header.Get(echo.HeaderContentType)
			if contentType == "" {
				return next(c)
			}
			if !security.ValidateContentType(contentType) {
				return c.JSON(http.StatusUnsupportedMediaType, models.Response{
					Status:  http.StatusUnsupportedMediaType,
					Message: "Unsupported content type",
				})
			}
			return next(c)
		}
	}
}
