package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/FebaRodrigues/track-fit-sub001/models"
)

// OTP parameters: 6 digits, valid for 5 minutes; a successful verification
// unlocks checkout for a short window afterwards.
const (
	otpLength         = 6
	OtpTTL            = 5 * time.Minute
	otpVerifiedWindow = 10 * time.Minute
	maxOtpAttempts    = 5
)

// OtpStore is the challenge persistence the OTP service needs
type OtpStore interface {
	Replace(ctx context.Context, challenge *models.OtpChallenge) error
	Find(ctx context.Context, userID primitive.ObjectID) (*models.OtpChallenge, error)
	Consume(ctx context.Context, userID primitive.ObjectID, code string) error
}

// OtpMailer delivers codes out-of-band
type OtpMailer interface {
	SendOTP(email, code string) error
}

// OtpService issues and verifies checkout one-time codes
type OtpService struct {
	store OtpStore
	mail  OtpMailer
	redis *redis.Client
}

func NewOtpService(store OtpStore, mail OtpMailer, redisClient *redis.Client) *OtpService {
	return &OtpService{store: store, mail: mail, redis: redisClient}
}

// IssueChallenge generates a fresh code for the user, replacing any prior
// unconsumed challenge, and emails it. Delivery failure does not block
// issuance; the returned flag tells the caller to surface a warning.
func (s *OtpService) IssueChallenge(ctx context.Context, userID primitive.ObjectID, email string) (*models.OtpChallenge, bool, error) {
	code, err := generateOTP(otpLength)
	if err != nil {
		return nil, false, fmt.Errorf("failed to generate OTP: %w", err)
	}

	now := time.Now()
	challenge := &models.OtpChallenge{
		UserID:    userID,
		Code:      code,
		IssuedAt:  now,
		ExpiresAt: now.Add(OtpTTL),
		Consumed:  false,
	}

	if err := s.store.Replace(ctx, challenge); err != nil {
		return nil, false, fmt.Errorf("failed to save OTP challenge: %w", err)
	}

	delivered := true
	if err := s.mail.SendOTP(email, code); err != nil {
		log.Printf("Warning: failed to send OTP email to user %s: %v", userID.Hex(), err)
		delivered = false
	}

	return challenge, delivered, nil
}

// Verify checks the submitted code. Expiry is re-checked here at call time;
// a correct-but-expired code fails with ErrCodeExpired, anything else that
// does not match a live challenge fails with ErrInvalidCode. The consume is
// conditional, so a code verifies at most once.
func (s *OtpService) Verify(ctx context.Context, userID primitive.ObjectID, code string) error {
	if err := s.checkAttempts(ctx, userID); err != nil {
		return err
	}

	challenge, err := s.store.Find(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load OTP challenge: %w", err)
	}
	if challenge == nil || challenge.Consumed || challenge.Code != code {
		return models.ErrInvalidCode
	}
	if time.Now().After(challenge.ExpiresAt) {
		return models.ErrCodeExpired
	}

	return s.store.Consume(ctx, userID, code)
}

// RecentlyVerified reports whether the user passed OTP verification within
// the checkout window. Used to gate session creation.
func (s *OtpService) RecentlyVerified(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	challenge, err := s.store.Find(ctx, userID)
	if err != nil {
		return false, err
	}
	if challenge == nil || !challenge.Consumed || challenge.ConsumedAt == nil {
		return false, nil
	}
	return time.Since(*challenge.ConsumedAt) <= otpVerifiedWindow, nil
}

// checkAttempts limits verification attempts per user per hour via Redis.
// A missing Redis client disables the limit rather than blocking checkout.
func (s *OtpService) checkAttempts(ctx context.Context, userID primitive.ObjectID) error {
	if s.redis == nil {
		return nil
	}

	key := "otp_attempts:" + userID.Hex()
	attempts, err := s.redis.Incr(ctx, key).Result()
	if err != nil {
		log.Printf("Warning: OTP attempt counter unavailable: %v", err)
		return nil
	}
	if attempts == 1 {
		s.redis.Expire(ctx, key, 1*time.Hour)
	}
	if attempts > maxOtpAttempts {
		return errors.New("too many OTP attempts")
	}
	return nil
}

// generateOTP generates a random numeric code of the specified length
func generateOTP(length int) (string, error) {
	const digits = "0123456789"
	result := make([]byte, length)
	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", err
		}
		result[i] = digits[num.Int64()]
	}
	return string(result), nil
}
