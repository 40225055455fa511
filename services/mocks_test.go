package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/FebaRodrigues/track-fit-sub001/models"
)

var errMockStore = errors.New("mock store error")

// memTxnStore implements TransactionStore with the same compare-and-swap
// semantics as the Mongo repository
type memTxnStore struct {
	mu   sync.Mutex
	txns map[primitive.ObjectID]*models.PendingTransaction
}

func newMemTxnStore() *memTxnStore {
	return &memTxnStore{txns: make(map[primitive.ObjectID]*models.PendingTransaction)}
}

func (m *memTxnStore) add(txn *models.PendingTransaction) *models.PendingTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	if txn.ID.IsZero() {
		txn.ID = primitive.NewObjectID()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now()
	}
	m.txns[txn.ID] = txn
	return txn
}

func (m *memTxnStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.PendingTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.txns[id]
	if !ok {
		return nil, errMockStore
	}
	cp := *txn
	return &cp, nil
}

func (m *memTxnStore) FindByExternalSessionID(ctx context.Context, sessionID string) (*models.PendingTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, txn := range m.txns {
		if txn.ExternalSessionID == sessionID {
			cp := *txn
			return &cp, nil
		}
	}
	return nil, models.ErrUnknownSession
}

func (m *memTxnStore) Transition(ctx context.Context, id primitive.ObjectID, fromStatus, toStatus string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.txns[id]
	if !ok || txn.Status != fromStatus {
		return models.ErrInvalidTransition
	}
	txn.Status = toStatus
	if toStatus == models.TxnStatusCompleted {
		now := time.Now()
		txn.CompletedAt = &now
	}
	return nil
}

func (m *memTxnStore) AttachExternalSession(ctx context.Context, id primitive.ObjectID, fromStatus, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.txns[id]
	if !ok || txn.Status != fromStatus {
		return models.ErrInvalidTransition
	}
	txn.Status = models.TxnStatusSessionCreated
	txn.ExternalSessionID = sessionID
	return nil
}

// memPaymentStore implements PaymentStore
type memPaymentStore struct {
	mu       sync.Mutex
	payments map[primitive.ObjectID]*models.Payment // keyed by transaction id
}

func newMemPaymentStore() *memPaymentStore {
	return &memPaymentStore{payments: make(map[primitive.ObjectID]*models.Payment)}
}

func (m *memPaymentStore) add(p *models.Payment) *models.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	m.payments[p.TransactionID] = p
	return p
}

func (m *memPaymentStore) CompleteByTransaction(ctx context.Context, transactionID primitive.ObjectID, paidAt time.Time) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[transactionID]
	if !ok {
		return nil, errMockStore
	}
	if p.Status != models.PaymentStatusCompleted {
		p.Status = models.PaymentStatusCompleted
		p.PaymentDate = &paidAt
	}
	cp := *p
	return &cp, nil
}

func (m *memPaymentStore) FindByTransaction(ctx context.Context, transactionID primitive.ObjectID) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[transactionID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// memMembershipStore implements MembershipStore with CAS activation
type memMembershipStore struct {
	mu          sync.Mutex
	memberships map[primitive.ObjectID]*models.Membership
}

func newMemMembershipStore() *memMembershipStore {
	return &memMembershipStore{memberships: make(map[primitive.ObjectID]*models.Membership)}
}

func (m *memMembershipStore) add(ms *models.Membership) *models.Membership {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ms.ID.IsZero() {
		ms.ID = primitive.NewObjectID()
	}
	m.memberships[ms.ID] = ms
	return ms
}

func (m *memMembershipStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.memberships[id]
	if !ok {
		return nil, nil
	}
	cp := *ms
	return &cp, nil
}

func (m *memMembershipStore) FindActiveByUser(ctx context.Context, userID primitive.ObjectID) (*models.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ms := range m.memberships {
		if ms.UserID == userID && ms.Status == models.MembershipStatusActive {
			cp := *ms
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memMembershipStore) Activate(ctx context.Context, id primitive.ObjectID, fromStatus string, start, end time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.memberships[id]
	if !ok || ms.Status != fromStatus {
		return models.ErrInvalidTransition
	}
	ms.Status = models.MembershipStatusActive
	ms.StartDate = &start
	ms.EndDate = &end
	return nil
}

func (m *memMembershipStore) CancelActiveExcept(ctx context.Context, userID, exceptID primitive.ObjectID, endDate time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ms := range m.memberships {
		if ms.UserID == userID && ms.Status == models.MembershipStatusActive && ms.ID != exceptID {
			ms.Status = models.MembershipStatusCancelled
			ms.EndDate = &endDate
		}
	}
	return nil
}

func (m *memMembershipStore) activeCount(userID primitive.ObjectID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, ms := range m.memberships {
		if ms.UserID == userID && ms.Status == models.MembershipStatusActive {
			count++
		}
	}
	return count
}

// memBookingStore implements BookingConfirmer
type memBookingStore struct {
	mu        sync.Mutex
	confirmed map[primitive.ObjectID]int
}

func newMemBookingStore() *memBookingStore {
	return &memBookingStore{confirmed: make(map[primitive.ObjectID]int)}
}

func (m *memBookingStore) Confirm(ctx context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmed[id]++
	return nil
}

// memOtpStore implements OtpStore with the repository's single-use consume
type memOtpStore struct {
	mu         sync.Mutex
	challenges map[primitive.ObjectID]*models.OtpChallenge
}

func newMemOtpStore() *memOtpStore {
	return &memOtpStore{challenges: make(map[primitive.ObjectID]*models.OtpChallenge)}
}

func (m *memOtpStore) Replace(ctx context.Context, challenge *models.OtpChallenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *challenge
	m.challenges[challenge.UserID] = &cp
	return nil
}

func (m *memOtpStore) Find(ctx context.Context, userID primitive.ObjectID) (*models.OtpChallenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.challenges[userID]
	if !ok {
		return nil, nil
	}
	cp := *ch
	return &cp, nil
}

func (m *memOtpStore) Consume(ctx context.Context, userID primitive.ObjectID, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.challenges[userID]
	if !ok || ch.Consumed || ch.Code != code {
		return models.ErrInvalidCode
	}
	now := time.Now()
	ch.Consumed = true
	ch.ConsumedAt = &now
	return nil
}

// mockMailer records sent codes
type mockMailer struct {
	mu    sync.Mutex
	sent  []string
	fail  bool
	codes map[string]string
}

func newMockMailer() *mockMailer {
	return &mockMailer{codes: make(map[string]string)}
}

func (m *mockMailer) SendOTP(email, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errMockStore
	}
	m.sent = append(m.sent, email)
	m.codes[email] = code
	return nil
}

// mockProvider implements CheckoutProvider with pluggable behavior
type mockProvider struct {
	mu            sync.Mutex
	sessions      map[string]*models.CheckoutSession
	createCalls   int
	retrieveCalls int
	createErr     error
	retrieveErr   error
}

func newMockProvider() *mockProvider {
	return &mockProvider{sessions: make(map[string]*models.CheckoutSession)}
}

func (m *mockProvider) setSession(sess *models.CheckoutSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
}

func (m *mockProvider) CreateSession(ctx context.Context, params models.CheckoutParams) (*models.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.createErr != nil {
		return nil, m.createErr
	}
	sess := &models.CheckoutSession{
		ID:            "cs_test_" + params.TransactionID,
		URL:           "https://checkout.example.com/" + params.TransactionID,
		Status:        "open",
		PaymentStatus: "unpaid",
		AmountTotal:   params.AmountMinorUnits,
		Currency:      params.Currency,
		Metadata:      map[string]string{"transactionId": params.TransactionID},
	}
	m.sessions[sess.ID] = sess
	return sess, nil
}

func (m *mockProvider) RetrieveSession(ctx context.Context, sessionID string) (*models.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retrieveCalls++
	if m.retrieveErr != nil {
		return nil, m.retrieveErr
	}
	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, errMockStore
	}
	cp := *sess
	return &cp, nil
}
