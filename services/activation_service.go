package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/FebaRodrigues/track-fit-sub001/models"
)

// MembershipStore is the slice of the membership repository the activation
// service needs
type MembershipStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Membership, error)
	FindActiveByUser(ctx context.Context, userID primitive.ObjectID) (*models.Membership, error)
	Activate(ctx context.Context, id primitive.ObjectID, fromStatus string, start, end time.Time) error
	CancelActiveExcept(ctx context.Context, userID, exceptID primitive.ObjectID, endDate time.Time) error
}

// ActivationService is the only writer of membership status. It activates a
// pending membership and supersedes whatever was active before it, keeping
// at most one active membership per user.
type ActivationService struct {
	memberships MembershipStore
}

func NewActivationService(memberships MembershipStore) *ActivationService {
	return &ActivationService{memberships: memberships}
}

// Activate turns the pending membership active and cancels the previous
// active one. The new membership is written first: if the process dies
// between the two writes, the user briefly has two active memberships, which
// the cancel pass repairs on the next activation, instead of none.
//
// Re-activating an already-active membership is a no-op returning the
// existing record, because reconciliation may retry.
func (s *ActivationService) Activate(ctx context.Context, userID, membershipID primitive.ObjectID) (*models.Membership, error) {
	m, err := s.memberships.FindByID(ctx, membershipID)
	if err != nil {
		return nil, fmt.Errorf("failed to load membership %s: %w", membershipID.Hex(), err)
	}
	if m == nil {
		log.Printf("Activation conflict: membership %s not found", membershipID.Hex())
		return nil, fmt.Errorf("%w: membership %s not found", models.ErrActivationConflict, membershipID.Hex())
	}
	if m.UserID != userID {
		log.Printf("Activation conflict: membership %s does not belong to user %s", membershipID.Hex(), userID.Hex())
		return nil, fmt.Errorf("%w: membership %s does not belong to user %s", models.ErrActivationConflict, membershipID.Hex(), userID.Hex())
	}
	if m.Status == models.MembershipStatusActive {
		return m, nil
	}
	if m.Status != models.MembershipStatusPending {
		log.Printf("Activation conflict: membership %s in status %s", membershipID.Hex(), m.Status)
		return nil, fmt.Errorf("%w: membership %s in status %s", models.ErrActivationConflict, membershipID.Hex(), m.Status)
	}

	now := time.Now()
	end := now.AddDate(0, 0, m.DurationDays)

	err = s.memberships.Activate(ctx, m.ID, models.MembershipStatusPending, now, end)
	if err == models.ErrInvalidTransition {
		// Concurrent activation got there first; re-read and return it
		current, ferr := s.memberships.FindByID(ctx, m.ID)
		if ferr == nil && current != nil && current.Status == models.MembershipStatusActive {
			return current, nil
		}
		log.Printf("Activation conflict: membership %s changed state during activation", membershipID.Hex())
		return nil, fmt.Errorf("%w: membership %s changed state during activation", models.ErrActivationConflict, membershipID.Hex())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to activate membership %s: %w", membershipID.Hex(), err)
	}

	if err := s.memberships.CancelActiveExcept(ctx, userID, m.ID, now); err != nil {
		// The new membership is live; the stale one will be superseded on
		// the next activation pass. Log for operator follow-up.
		log.Printf("Warning: failed to cancel prior membership for user %s: %v", userID.Hex(), err)
	}

	m.Status = models.MembershipStatusActive
	m.StartDate = &now
	m.EndDate = &end
	m.UpdatedAt = now

	log.Printf("Membership %s (%s) activated for user %s until %s",
		m.ID.Hex(), m.PlanType, userID.Hex(), end.Format(time.RFC3339))
	return m, nil
}
