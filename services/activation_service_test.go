package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/FebaRodrigues/track-fit-sub001/models"
)

func TestActivatePendingMembership(t *testing.T) {
	store := newMemMembershipStore()
	svc := NewActivationService(store)
	userID := primitive.NewObjectID()

	pending := store.add(&models.Membership{
		UserID:       userID,
		PlanType:     models.PlanPremium,
		Status:       models.MembershipStatusPending,
		Price:        49.99,
		DurationDays: 30,
	})

	got, err := svc.Activate(context.Background(), userID, pending.ID)
	if err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if got.Status != models.MembershipStatusActive {
		t.Errorf("expected active status, got %s", got.Status)
	}
	if got.StartDate == nil || got.EndDate == nil {
		t.Fatal("expected start and end dates to be set")
	}
	wantEnd := got.StartDate.AddDate(0, 0, 30)
	if !got.EndDate.Equal(wantEnd) {
		t.Errorf("expected end date %v, got %v", wantEnd, got.EndDate)
	}
}

func TestActivateSupersedesPriorActive(t *testing.T) {
	store := newMemMembershipStore()
	svc := NewActivationService(store)
	userID := primitive.NewObjectID()

	start := time.Now().Add(-24 * time.Hour)
	end := start.AddDate(0, 0, 30)
	old := store.add(&models.Membership{
		UserID:    userID,
		PlanType:  models.PlanBasic,
		Status:    models.MembershipStatusActive,
		StartDate: &start,
		EndDate:   &end,
	})
	pending := store.add(&models.Membership{
		UserID:       userID,
		PlanType:     models.PlanElite,
		Status:       models.MembershipStatusPending,
		DurationDays: 30,
	})

	if _, err := svc.Activate(context.Background(), userID, pending.ID); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}

	if n := store.activeCount(userID); n != 1 {
		t.Errorf("expected exactly one active membership, got %d", n)
	}
	superseded, _ := store.FindByID(context.Background(), old.ID)
	if superseded.Status != models.MembershipStatusCancelled {
		t.Errorf("expected prior membership cancelled, got %s", superseded.Status)
	}
	current, _ := store.FindActiveByUser(context.Background(), userID)
	if current == nil || current.ID != pending.ID {
		t.Error("expected the new membership to be the active one")
	}
}

func TestActivateIdempotent(t *testing.T) {
	store := newMemMembershipStore()
	svc := NewActivationService(store)
	userID := primitive.NewObjectID()

	pending := store.add(&models.Membership{
		UserID:       userID,
		PlanType:     models.PlanPremium,
		Status:       models.MembershipStatusPending,
		DurationDays: 30,
	})

	ctx := context.Background()
	first, err := svc.Activate(ctx, userID, pending.ID)
	if err != nil {
		t.Fatalf("first Activate failed: %v", err)
	}
	second, err := svc.Activate(ctx, userID, pending.ID)
	if err != nil {
		t.Fatalf("repeated Activate should be a no-op: %v", err)
	}
	if second.ID != first.ID || second.Status != models.MembershipStatusActive {
		t.Error("repeated activation should return the existing active membership")
	}
	if n := store.activeCount(userID); n != 1 {
		t.Errorf("expected one active membership after retry, got %d", n)
	}
}

func TestActivateMembershipNotFound(t *testing.T) {
	svc := NewActivationService(newMemMembershipStore())

	_, err := svc.Activate(context.Background(), primitive.NewObjectID(), primitive.NewObjectID())
	if !errors.Is(err, models.ErrActivationConflict) {
		t.Errorf("expected ErrActivationConflict for missing membership, got %v", err)
	}
}

func TestActivateWrongOwner(t *testing.T) {
	store := newMemMembershipStore()
	svc := NewActivationService(store)

	owner := primitive.NewObjectID()
	pending := store.add(&models.Membership{
		UserID:       owner,
		Status:       models.MembershipStatusPending,
		DurationDays: 30,
	})

	_, err := svc.Activate(context.Background(), primitive.NewObjectID(), pending.ID)
	if !errors.Is(err, models.ErrActivationConflict) {
		t.Errorf("expected ErrActivationConflict for foreign membership, got %v", err)
	}
	after, _ := store.FindByID(context.Background(), pending.ID)
	if after.Status != models.MembershipStatusPending {
		t.Error("failed activation must not change the membership")
	}
}

func TestActivateCancelledMembership(t *testing.T) {
	store := newMemMembershipStore()
	svc := NewActivationService(store)
	userID := primitive.NewObjectID()

	cancelled := store.add(&models.Membership{
		UserID: userID,
		Status: models.MembershipStatusCancelled,
	})

	_, err := svc.Activate(context.Background(), userID, cancelled.ID)
	if !errors.Is(err, models.ErrActivationConflict) {
		t.Errorf("expected ErrActivationConflict for cancelled membership, got %v", err)
	}
}
