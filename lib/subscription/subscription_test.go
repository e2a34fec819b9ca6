package subscription

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fiffu/manzil/lib/cms"
	"github.com/fiffu/manzil/lib/models"
	"github.com/fiffu/manzil/lib/session"
	"github.com/fiffu/manzil/lib/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&Reconciliation{}))
	return db
}

type fakeAuth struct{}

func (fakeAuth) Register(ctx context.Context, username, email, password string) (*cms.AuthResult, error) {
	return nil, errors.New("unused")
}

func (fakeAuth) Login(ctx context.Context, identifier, password string) (*cms.AuthResult, error) {
	return &cms.AuthResult{Token: "jwt", User: models.User{ID: 11, Email: identifier}}, nil
}

type fakeBackend struct {
	payments   []cms.Payment
	updates    []models.Subscription
	paymentErr error
	updateErr  error
}

func (f *fakeBackend) RecordPayment(ctx context.Context, token string, p cms.Payment) error {
	if f.paymentErr != nil {
		return f.paymentErr
	}
	f.payments = append(f.payments, p)
	return nil
}

func (f *fakeBackend) UpdateUserSubscription(ctx context.Context, token string, userID uint, sub models.Subscription) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, sub)
	return nil
}

type fakeGateway struct {
	tx    Transaction
	err   error
	seen  Charge
	calls int
}

func (g *fakeGateway) Checkout(ctx context.Context, charge Charge) (Transaction, error) {
	g.calls++
	g.seen = charge
	return g.tx, g.err
}

var merchant = Merchant{Key: "rzp_test_key", Currency: "INR", Name: "Manzil Subscription"}

type fixture struct {
	flow    *Flow
	auth    *session.Auth
	backend *fakeBackend
	ledger  *Ledger
}

func setup(t *testing.T, gateway Gateway) fixture {
	sess := session.NewContext(storage.NewMemory(), zap.NewNop())
	auth := session.NewAuth(fakeAuth{}, sess, zap.NewNop())
	backend := &fakeBackend{}
	ledger := NewLedger(setupTestDB(t))

	flow := NewFlow(backend, auth, ledger, merchant, gateway, zap.NewNop())
	flow.now = func() time.Time { return time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC) }
	return fixture{flow, auth, backend, ledger}
}

func (f fixture) login(t *testing.T) {
	_, err := f.auth.Login(context.Background(), "reader@example.com", "abc1@")
	require.NoError(t, err)
}

func TestLookup(t *testing.T) {
	p, ok := Lookup(" monthly ")
	require.True(t, ok)
	assert.Equal(t, "Monthly", p.Name)
	assert.Equal(t, int64(249), p.Price)
	assert.Equal(t, "Most Popular", p.Badge)

	_, ok = Lookup("Lifetime")
	assert.False(t, ok)

	names := []string{}
	for _, p := range Plans() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"Weekly", "Monthly", "Annual"}, names)
}

func TestCheckout(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	_, err := f.flow.Checkout(ctx, "Monthly")
	assert.ErrorIs(t, err, session.ErrLoginRequired)

	f.login(t)
	_, err = f.flow.Checkout(ctx, "Lifetime")
	assert.ErrorIs(t, err, ErrUnknownPlan)

	charge, err := f.flow.Checkout(ctx, "Annual")
	require.NoError(t, err)
	assert.Equal(t, Charge{
		Key:         "rzp_test_key",
		Amount:      249900,
		Currency:    "INR",
		Name:        "Manzil Subscription",
		Description: "Annual",
		Prefill:     Prefill{Email: "reader@example.com"},
	}, charge)
}

func TestComplete_RecordsBothWrites(t *testing.T) {
	f := setup(t, nil)
	f.login(t)
	ctx := context.Background()

	sub, err := f.flow.Complete(ctx, "Monthly", "pay_123")
	require.NoError(t, err)
	assert.Equal(t, &models.Subscription{
		Plan:        "Monthly",
		Status:      models.SubscriptionActive,
		RenewalDate: "2024-03-02",
	}, sub)

	require.Len(t, f.backend.payments, 1)
	p := f.backend.payments[0]
	assert.NotEmpty(t, p.Reference)
	assert.Equal(t, uint(11), p.UserID)
	assert.Equal(t, int64(249), p.Amount)
	assert.Equal(t, "Razorpay", p.Method)
	assert.Equal(t, "Success", p.Status)
	assert.Equal(t, "pay_123", p.TransactionID)
	require.Len(t, f.backend.updates, 1)

	s, ok := f.auth.Current(ctx)
	require.True(t, ok)
	assert.True(t, s.Subscribed())

	pending, err := f.ledger.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestComplete_ProfileWriteFailureIsReconciled(t *testing.T) {
	f := setup(t, nil)
	f.login(t)
	ctx := context.Background()
	f.backend.updateErr = &cms.APIError{Status: 403, Message: "Forbidden"}

	_, err := f.flow.Complete(ctx, "Weekly", "pay_9")
	assert.ErrorIs(t, err, ErrReconciliation)
	var apiErr *cms.APIError
	assert.ErrorAs(t, err, &apiErr)

	require.Len(t, f.backend.payments, 1)
	pending, err := f.ledger.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, StageProfile, pending[0].Stage)
	assert.Equal(t, "pay_9", pending[0].TransactionID)
	assert.Equal(t, f.backend.payments[0].Reference, pending[0].Reference)

	s, ok := f.auth.Current(ctx)
	require.True(t, ok)
	assert.False(t, s.Subscribed())
}

func TestComplete_PaymentWriteFailureSkipsProfile(t *testing.T) {
	f := setup(t, nil)
	f.login(t)
	ctx := context.Background()
	f.backend.paymentErr = errors.New("connection refused")

	_, err := f.flow.Complete(ctx, "Weekly", "pay_9")
	assert.ErrorIs(t, err, ErrReconciliation)
	assert.Empty(t, f.backend.updates)

	pending, err := f.ledger.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, StagePayment, pending[0].Stage)
}

func TestPurchase(t *testing.T) {
	gw := &fakeGateway{tx: Transaction{ID: "pay_77"}}
	f := setup(t, gw)
	f.login(t)
	ctx := context.Background()

	sub, err := f.flow.Purchase(ctx, "Weekly")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-07", sub.RenewalDate)
	assert.Equal(t, int64(100), gw.seen.Amount)
	assert.Equal(t, "pay_77", f.backend.payments[0].TransactionID)
}

func TestPurchase_Dismissed(t *testing.T) {
	gw := &fakeGateway{}
	f := setup(t, gw)
	f.login(t)

	_, err := f.flow.Purchase(context.Background(), "Weekly")
	assert.ErrorIs(t, err, ErrIncomplete)
	assert.Empty(t, f.backend.payments)
}
