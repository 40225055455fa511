// controllers/payment_controller.go
package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/FebaRodrigues/track-fit-sub001/config"
	"github.com/FebaRodrigues/track-fit-sub001/models"
	"github.com/FebaRodrigues/track-fit-sub001/repositories"
	"github.com/FebaRodrigues/track-fit-sub001/services"
	"github.com/FebaRodrigues/track-fit-sub001/websocket"
)

// PaymentController owns the checkout flow: OTP gating, pending transaction
// creation, hosted checkout sessions and reconciliation of their results.
type PaymentController struct {
	DB          *mongo.Client
	otp         *services.OtpService
	gateway     *services.CheckoutGateway
	reconciler  *services.ReconcileService
	stripe      *services.StripeService
	hub         *websocket.Hub
	txns        *repositories.TransactionRepository
	payments    *repositories.PaymentRepository
	memberships *repositories.MembershipRepository
	bookings    *repositories.BookingRepository
	users       *repositories.UserRepository
}

// NewPaymentController creates a payment controller on top of the shared
// service set
func NewPaymentController(db *mongo.Client, otp *services.OtpService, gateway *services.CheckoutGateway, reconciler *services.ReconcileService, stripe *services.StripeService, hub *websocket.Hub) *PaymentController {
	database := db.Database(config.DatabaseName())
	return &PaymentController{
		DB:          db,
		otp:         otp,
		gateway:     gateway,
		reconciler:  reconciler,
		stripe:      stripe,
		hub:         hub,
		txns:        repositories.NewTransactionRepository(database),
		payments:    repositories.NewPaymentRepository(database),
		memberships: repositories.NewMembershipRepository(database),
		bookings:    repositories.NewBookingRepository(database),
		users:       repositories.NewUserRepository(database),
	}
}

// SendOTP emails a checkout verification code to the authenticated member
func (pc *PaymentController) SendOTP(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user, err := pc.users.FindByID(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "User not found",
		})
	}

	_, delivered, err := pc.otp.IssueChallenge(ctx, userID, user.Email)
	if err != nil {
		log.Printf("Failed to issue OTP for user %s: %v", userID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to send verification code",
		})
	}

	message := "Verification code sent to your email"
	if !delivered {
		message = "Verification code issued but email delivery failed; please retry"
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: message,
	})
}

// VerifyOTP consumes a submitted code, opening the checkout window
func (pc *PaymentController) VerifyOTP(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}

	var req models.VerifyOTPRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if req.OTP == "" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Verification code is required",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = pc.otp.Verify(ctx, userID, req.OTP)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, models.Response{
			Status:  http.StatusOK,
			Message: "Verification successful",
		})
	case errors.Is(err, models.ErrCodeExpired):
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Verification code expired, please request a new one",
		})
	case errors.Is(err, models.ErrInvalidCode):
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid verification code",
		})
	default:
		log.Printf("OTP verification failed for user %s: %v", userID.Hex(), err)
		return c.JSON(http.StatusTooManyRequests, models.Response{
			Status:  http.StatusTooManyRequests,
			Message: "Verification temporarily unavailable, please try again later",
		})
	}
}

// CreatePayment opens checkout for a pending membership or spa booking. The
// member must have passed OTP verification recently; otherwise the created
// transaction parks in otpPending and the client is told to verify first.
func (pc *PaymentController) CreatePayment(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}

	var req models.CreatePaymentRequest
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

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Resolve what is being paid for; amounts come from our records, never
	// from the client
	var (
		kind         string
		amount       float64
		description  string
		referenceID  primitive.ObjectID
		membershipID *primitive.ObjectID
		bookingID    *primitive.ObjectID
	)

	switch req.Type {
	case models.PaymentTypeMembership:
		id, err := primitive.ObjectIDFromHex(req.MembershipID)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid membership id",
			})
		}
		membership, err := pc.memberships.FindByID(ctx, id)
		if err != nil || membership == nil {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Membership not found",
			})
		}
		if membership.UserID != userID {
			return c.JSON(http.StatusForbidden, models.Response{
				Status:  http.StatusForbidden,
				Message: "Membership does not belong to this account",
			})
		}
		if membership.Status != models.MembershipStatusPending {
			return c.JSON(http.StatusConflict, models.Response{
				Status:  http.StatusConflict,
				Message: "Membership is not awaiting payment",
			})
		}
		kind = models.KindMembershipChange
		amount = membership.Price
		description = membership.PlanType + " membership"
		referenceID = membership.ID
		membershipID = &membership.ID

	case models.PaymentTypeSpaService:
		id, err := primitive.ObjectIDFromHex(req.BookingID)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid booking id",
			})
		}
		booking, err := pc.bookings.FindByID(ctx, id)
		if err != nil || booking == nil {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Booking not found",
			})
		}
		if booking.UserID != userID {
			return c.JSON(http.StatusForbidden, models.Response{
				Status:  http.StatusForbidden,
				Message: "Booking does not belong to this account",
			})
		}
		if booking.Status != models.BookingStatusPending {
			return c.JSON(http.StatusConflict, models.Response{
				Status:  http.StatusConflict,
				Message: "Booking is not awaiting payment",
			})
		}
		if booking.FreeSession {
			return c.JSON(http.StatusConflict, models.Response{
				Status:  http.StatusConflict,
				Message: "Free sessions do not require payment",
			})
		}
		kind = models.KindSpaBooking
		amount = booking.Price
		description = "Spa booking: " + booking.ServiceName
		referenceID = booking.ID
		bookingID = &booking.ID

	default:
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Unknown payment type",
		})
	}

	// Reuse an open transaction for this purchase when one exists so a
	// double-submit cannot produce two live checkouts
	txn, err := pc.txns.FindOpenByReference(ctx, referenceID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to look up pending transactions",
		})
	}
	if txn == nil {
		txn, err = pc.txns.Create(ctx, userID, kind, amount, "usd", referenceID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Failed to create transaction",
			})
		}
	}

	verified, err := pc.otp.RecentlyVerified(ctx, userID)
	if err != nil {
		log.Printf("OTP lookup failed for user %s: %v", userID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to check verification status",
		})
	}
	if !verified {
		if txn.Status == models.TxnStatusCreated {
			if err := pc.txns.Transition(ctx, txn.ID, models.TxnStatusCreated, models.TxnStatusOtpPending); err != nil && err != models.ErrInvalidTransition {
				log.Printf("Failed to park transaction %s in otpPending: %v", txn.ID.Hex(), err)
			}
		}
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Checkout requires verification; request a code via send-otp first",
			Data:    map[string]string{"transactionId": txn.ID.Hex()},
		})
	}

	// Mark the OTP gate as passed for freshly created or parked transactions
	switch txn.Status {
	case models.TxnStatusCreated:
		if err := pc.txns.Transition(ctx, txn.ID, models.TxnStatusCreated, models.TxnStatusOtpVerified); err == nil {
			txn.Status = models.TxnStatusOtpVerified
		}
	case models.TxnStatusOtpPending:
		if err := pc.txns.Transition(ctx, txn.ID, models.TxnStatusOtpPending, models.TxnStatusOtpVerified); err == nil {
			txn.Status = models.TxnStatusOtpVerified
		}
	}
	if txn.Status != models.TxnStatusOtpVerified && txn.Status != models.TxnStatusSessionCreated {
		// The CAS lost against a concurrent request; re-read and continue if
		// the other side got the transaction to a workable state
		current, err := pc.txns.FindByID(ctx, txn.ID)
		if err != nil || (current.Status != models.TxnStatusOtpVerified && current.Status != models.TxnStatusSessionCreated) {
			return c.JSON(http.StatusConflict, models.Response{
				Status:  http.StatusConflict,
				Message: "Transaction is not in a payable state",
			})
		}
		txn = current
	}

	user, err := pc.users.FindByID(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load account",
		})
	}

	sess, err := pc.gateway.CreateSession(ctx, txn, description, user.Email)
	if err != nil {
		if errors.Is(err, models.ErrProcessorUnavailable) {
			return c.JSON(http.StatusServiceUnavailable, models.Response{
				Status:  http.StatusServiceUnavailable,
				Message: "Payment processor is unavailable, please try again",
			})
		}
		log.Printf("Checkout session creation failed for transaction %s: %v", txn.ID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to start checkout",
		})
	}

	payment := &models.Payment{
		UserID:            userID,
		TransactionID:     txn.ID,
		Type:              req.Type,
		Amount:            amount,
		Currency:          txn.Currency,
		Status:            models.PaymentStatusPending,
		ExternalSessionID: sess.ID,
		MembershipID:      membershipID,
		BookingID:         bookingID,
	}
	if _, err := pc.payments.Upsert(ctx, payment); err != nil {
		log.Printf("Failed to record payment for transaction %s: %v", txn.ID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to record payment",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Checkout session created",
		Data: map[string]interface{}{
			"transactionId": txn.ID.Hex(),
			"sessionId":     sess.ID,
			"checkoutUrl":   sess.URL,
		},
	})
}

// notifyFailure pushes a realtime payment-failed event. Best-effort; the
// member also sees the failure in the HTTP response.
func (pc *PaymentController) notifyFailure(txn *models.PendingTransaction) {
	if pc.hub == nil || txn == nil {
		return
	}
	pc.hub.NotifyPaymentFailed(txn.UserID, map[string]string{
		"transactionId": txn.ID.Hex(),
		"status":        txn.Status,
	})
}

// VerifySession is the user-redirect reconciliation entry point. It is safe
// to call any number of times for the same session.
func (pc *PaymentController) VerifySession(c echo.Context) error {
	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "session_id is required",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	result, err := pc.reconciler.Reconcile(ctx, sessionID)
	if err != nil {
		if errors.Is(err, models.ErrUnknownSession) {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Unknown checkout session",
			})
		}
		if errors.Is(err, models.ErrProcessorUnavailable) {
			return c.JSON(http.StatusServiceUnavailable, models.Response{
				Status:  http.StatusServiceUnavailable,
				Message: "Payment processor is unavailable, please retry",
			})
		}
		log.Printf("Reconciliation failed for session %s: %v", sessionID, err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to verify payment",
		})
	}

	message := "Payment verified successfully"
	if result.Outcome == services.OutcomeAlreadyProcessed {
		message = "Payment already processed"
	} else if result.Outcome == services.OutcomeFailed {
		message = "Payment was not completed"
		pc.notifyFailure(result.Transaction)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: message,
		Data:    result,
	})
}

// HandleWebhook is the processor-push reconciliation entry point. Signature
// verification is the only authentication on this route.
func (pc *PaymentController) HandleWebhook(c echo.Context) error {
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Failed to read payload",
		})
	}

	signature := c.Request().Header.Get("Stripe-Signature")
	if err := pc.stripe.VerifyWebhookSignature(payload, signature); err != nil {
		log.Printf("Webhook signature rejected: %v", err)
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid signature",
		})
	}

	var event models.WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid payload",
		})
	}

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded", "checkout.session.expired":
		// Reconcile re-fetches the session; the webhook body is only a hint
	default:
		return c.JSON(http.StatusOK, models.Response{
			Status:  http.StatusOK,
			Message: "Event ignored",
		})
	}

	sessionID := event.Data.Object.ID
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Event has no session id",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	result, err := pc.reconciler.Reconcile(ctx, sessionID)
	if err != nil {
		if errors.Is(err, models.ErrUnknownSession) {
			// Not ours; acknowledge so the processor stops retrying
			log.Printf("Webhook for unknown session %s ignored", sessionID)
			return c.JSON(http.StatusOK, models.Response{
				Status:  http.StatusOK,
				Message: "Unknown session ignored",
			})
		}
		// Non-2xx makes the processor redeliver, which is what we want for
		// transient failures
		log.Printf("Webhook reconciliation failed for session %s: %v", sessionID, err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Reconciliation failed",
		})
	}

	if result.Outcome == services.OutcomeFailed {
		pc.notifyFailure(result.Transaction)
	}

	log.Printf("Webhook reconciled session %s: %s", sessionID, result.Outcome)
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Event processed",
		Data:    map[string]string{"outcome": result.Outcome},
	})
}

// RetryPayment opens a fresh checkout for a payment whose earlier attempt
// failed or expired
func (pc *PaymentController) RetryPayment(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}

	var req models.RetryPaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	paymentID, err := primitive.ObjectIDFromHex(req.PaymentID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid payment id",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	payment, err := pc.payments.FindByID(ctx, paymentID)
	if err != nil || payment == nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Payment not found",
		})
	}
	if payment.UserID != userID {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Payment does not belong to this account",
		})
	}
	if payment.Status == models.PaymentStatusCompleted {
		return c.JSON(http.StatusConflict, models.Response{
			Status:  http.StatusConflict,
			Message: "Payment is already completed",
		})
	}

	txn, err := pc.txns.FindByID(ctx, payment.TransactionID)
	if err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Transaction not found",
		})
	}

	// A live transaction keeps its session-reuse semantics; a dead one is
	// replaced with a fresh transaction for the same purchase
	if txn.IsTerminal() {
		if txn.Status == models.TxnStatusCompleted {
			return c.JSON(http.StatusConflict, models.Response{
				Status:  http.StatusConflict,
				Message: "Payment is already completed",
			})
		}
		txn, err = pc.txns.Create(ctx, userID, txn.Kind, txn.Amount, txn.Currency, txn.ReferenceID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Failed to create transaction",
			})
		}
	}

	verified, err := pc.otp.RecentlyVerified(ctx, userID)
	if err != nil || !verified {
		if txn.Status == models.TxnStatusCreated {
			pc.txns.Transition(ctx, txn.ID, models.TxnStatusCreated, models.TxnStatusOtpPending)
		}
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Checkout requires verification; request a code via send-otp first",
			Data:    map[string]string{"transactionId": txn.ID.Hex()},
		})
	}

	switch txn.Status {
	case models.TxnStatusCreated:
		if err := pc.txns.Transition(ctx, txn.ID, models.TxnStatusCreated, models.TxnStatusOtpVerified); err == nil {
			txn.Status = models.TxnStatusOtpVerified
		}
	case models.TxnStatusOtpPending:
		if err := pc.txns.Transition(ctx, txn.ID, models.TxnStatusOtpPending, models.TxnStatusOtpVerified); err == nil {
			txn.Status = models.TxnStatusOtpVerified
		}
	}

	user, err := pc.users.FindByID(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load account",
		})
	}

	description := "Membership payment"
	if txn.Kind == models.KindSpaBooking {
		description = "Spa booking payment"
	}

	sess, err := pc.gateway.CreateSession(ctx, txn, description, user.Email)
	if err != nil {
		if errors.Is(err, models.ErrProcessorUnavailable) {
			return c.JSON(http.StatusServiceUnavailable, models.Response{
				Status:  http.StatusServiceUnavailable,
				Message: "Payment processor is unavailable, please try again",
			})
		}
		log.Printf("Retry checkout failed for transaction %s: %v", txn.ID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to start checkout",
		})
	}

	retried := &models.Payment{
		UserID:            userID,
		TransactionID:     txn.ID,
		Type:              payment.Type,
		Amount:            txn.Amount,
		Currency:          txn.Currency,
		Status:            models.PaymentStatusPending,
		ExternalSessionID: sess.ID,
		MembershipID:      payment.MembershipID,
		BookingID:         payment.BookingID,
	}
	if _, err := pc.payments.Upsert(ctx, retried); err != nil {
		log.Printf("Failed to record retried payment for transaction %s: %v", txn.ID.Hex(), err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Checkout session created",
		Data: map[string]interface{}{
			"transactionId": txn.ID.Hex(),
			"sessionId":     sess.ID,
			"checkoutUrl":   sess.URL,
		},
	})
}

// GetPaymentHistory lists the member's payments, newest first
func (pc *PaymentController) GetPaymentHistory(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication failed",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	payments, err := pc.payments.ListByUser(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load payment history",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Payment history retrieved successfully",
		Data:    payments,
	})
}
