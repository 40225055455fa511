package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/FebaRodrigues/track-fit-sub001/models"
)

func TestIssueChallengeGeneratesSixDigitCode(t *testing.T) {
	store := newMemOtpStore()
	mailer := newMockMailer()
	svc := NewOtpService(store, mailer, nil)
	userID := primitive.NewObjectID()

	challenge, delivered, err := svc.IssueChallenge(context.Background(), userID, "user@example.com")
	if err != nil {
		t.Fatalf("IssueChallenge failed: %v", err)
	}
	if !delivered {
		t.Error("expected delivered=true on successful send")
	}
	if len(challenge.Code) != 6 {
		t.Errorf("expected 6-digit code, got %q", challenge.Code)
	}
	for _, r := range challenge.Code {
		if r < '0' || r > '9' {
			t.Errorf("code %q contains non-digit %q", challenge.Code, r)
		}
	}
	if got := mailer.codes["user@example.com"]; got != challenge.Code {
		t.Errorf("mailed code %q does not match stored code %q", got, challenge.Code)
	}
}

func TestIssueChallengeReplacesPrior(t *testing.T) {
	store := newMemOtpStore()
	mailer := newMockMailer()
	svc := NewOtpService(store, mailer, nil)
	userID := primitive.NewObjectID()
	ctx := context.Background()

	first, _, err := svc.IssueChallenge(ctx, userID, "user@example.com")
	if err != nil {
		t.Fatalf("first IssueChallenge failed: %v", err)
	}
	second, _, err := svc.IssueChallenge(ctx, userID, "user@example.com")
	if err != nil {
		t.Fatalf("second IssueChallenge failed: %v", err)
	}

	// The first code is dead once a replacement is issued
	if first.Code != second.Code {
		if err := svc.Verify(ctx, userID, first.Code); !errors.Is(err, models.ErrInvalidCode) {
			t.Errorf("expected ErrInvalidCode for replaced code, got %v", err)
		}
	}
	if err := svc.Verify(ctx, userID, second.Code); err != nil {
		t.Errorf("expected current code to verify, got %v", err)
	}
}

func TestIssueChallengeSurvivesMailFailure(t *testing.T) {
	store := newMemOtpStore()
	mailer := newMockMailer()
	mailer.fail = true
	svc := NewOtpService(store, mailer, nil)
	userID := primitive.NewObjectID()

	challenge, delivered, err := svc.IssueChallenge(context.Background(), userID, "user@example.com")
	if err != nil {
		t.Fatalf("IssueChallenge should not fail on mail error: %v", err)
	}
	if delivered {
		t.Error("expected delivered=false when mail send fails")
	}
	if challenge == nil || challenge.Code == "" {
		t.Error("challenge should still be issued when mail fails")
	}
}

func TestVerifyWrongCode(t *testing.T) {
	store := newMemOtpStore()
	svc := NewOtpService(store, newMockMailer(), nil)
	userID := primitive.NewObjectID()
	ctx := context.Background()

	if _, _, err := svc.IssueChallenge(ctx, userID, "user@example.com"); err != nil {
		t.Fatalf("IssueChallenge failed: %v", err)
	}

	if err := svc.Verify(ctx, userID, "000000x"); !errors.Is(err, models.ErrInvalidCode) {
		t.Errorf("expected ErrInvalidCode for wrong code, got %v", err)
	}
}

func TestVerifyNoChallenge(t *testing.T) {
	svc := NewOtpService(newMemOtpStore(), newMockMailer(), nil)

	err := svc.Verify(context.Background(), primitive.NewObjectID(), "123456")
	if !errors.Is(err, models.ErrInvalidCode) {
		t.Errorf("expected ErrInvalidCode when no challenge exists, got %v", err)
	}
}

func TestVerifyExpiredCode(t *testing.T) {
	store := newMemOtpStore()
	svc := NewOtpService(store, newMockMailer(), nil)
	userID := primitive.NewObjectID()
	ctx := context.Background()

	past := time.Now().Add(-10 * time.Minute)
	store.Replace(ctx, &models.OtpChallenge{
		UserID:    userID,
		Code:      "123456",
		IssuedAt:  past,
		ExpiresAt: past.Add(OtpTTL),
	})

	if err := svc.Verify(ctx, userID, "123456"); !errors.Is(err, models.ErrCodeExpired) {
		t.Errorf("expected ErrCodeExpired for correct but expired code, got %v", err)
	}
}

func TestVerifySingleUse(t *testing.T) {
	store := newMemOtpStore()
	svc := NewOtpService(store, newMockMailer(), nil)
	userID := primitive.NewObjectID()
	ctx := context.Background()

	challenge, _, err := svc.IssueChallenge(ctx, userID, "user@example.com")
	if err != nil {
		t.Fatalf("IssueChallenge failed: %v", err)
	}

	if err := svc.Verify(ctx, userID, challenge.Code); err != nil {
		t.Fatalf("first verification should succeed: %v", err)
	}
	if err := svc.Verify(ctx, userID, challenge.Code); !errors.Is(err, models.ErrInvalidCode) {
		t.Errorf("expected ErrInvalidCode on replay, got %v", err)
	}
}

func TestRecentlyVerified(t *testing.T) {
	store := newMemOtpStore()
	svc := NewOtpService(store, newMockMailer(), nil)
	userID := primitive.NewObjectID()
	ctx := context.Background()

	ok, err := svc.RecentlyVerified(ctx, userID)
	if err != nil {
		t.Fatalf("RecentlyVerified failed: %v", err)
	}
	if ok {
		t.Error("expected not verified with no challenge")
	}

	challenge, _, err := svc.IssueChallenge(ctx, userID, "user@example.com")
	if err != nil {
		t.Fatalf("IssueChallenge failed: %v", err)
	}

	ok, err = svc.RecentlyVerified(ctx, userID)
	if err != nil {
		t.Fatalf("RecentlyVerified failed: %v", err)
	}
	if ok {
		t.Error("expected not verified before the code is consumed")
	}

	if err := svc.Verify(ctx, userID, challenge.Code); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	ok, err = svc.RecentlyVerified(ctx, userID)
	if err != nil {
		t.Fatalf("RecentlyVerified failed: %v", err)
	}
	if !ok {
		t.Error("expected verified right after consuming the code")
	}
}

func TestRecentlyVerifiedWindowExpires(t *testing.T) {
	store := newMemOtpStore()
	svc := NewOtpService(store, newMockMailer(), nil)
	userID := primitive.NewObjectID()
	ctx := context.Background()

	// Consumed well outside the checkout window
	consumedAt := time.Now().Add(-30 * time.Minute)
	store.Replace(ctx, &models.OtpChallenge{
		UserID:     userID,
		Code:       "123456",
		IssuedAt:   consumedAt.Add(-time.Minute),
		ExpiresAt:  consumedAt.Add(OtpTTL),
		Consumed:   true,
		ConsumedAt: &consumedAt,
	})

	ok, err := svc.RecentlyVerified(ctx, userID)
	if err != nil {
		t.Fatalf("RecentlyVerified failed: %v", err)
	}
	if ok {
		t.Error("expected verification window to have lapsed")
	}
}
