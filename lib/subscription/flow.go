// Package subscription sells premium plans: it prepares gateway charges and
// records completed payments with the CMS.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fiffu/manzil/lib/cms"
	"github.com/fiffu/manzil/lib/models"
	"github.com/fiffu/manzil/lib/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	paymentMethod  = "Razorpay"
	paymentSuccess = "Success"
)

var (
	ErrUnknownPlan = errors.New("unknown subscription plan")
	// ErrIncomplete means the gateway returned without a transaction ID.
	ErrIncomplete = errors.New("payment was not completed")
	// ErrReconciliation means the charge went through but the backend
	// records of it could not be written.
	ErrReconciliation = errors.New("payment received but subscription could not be recorded")
)

// Backend is the CMS's payment surface.
type Backend interface {
	RecordPayment(ctx context.Context, token string, p cms.Payment) error
	UpdateUserSubscription(ctx context.Context, token string, userID uint, sub models.Subscription) error
}

type Prefill struct {
	Email string `json:"email"`
}

// Charge is what the payment gateway is opened with. Amount is in paise.
type Charge struct {
	Key         string  `json:"key"`
	Amount      int64   `json:"amount"`
	Currency    string  `json:"currency"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Prefill     Prefill `json:"prefill"`
}

type Transaction struct {
	ID string
}

// Gateway takes a charge through the payment provider.
type Gateway interface {
	Checkout(ctx context.Context, charge Charge) (Transaction, error)
}

// Merchant is the gateway account charges are made against.
type Merchant struct {
	Key      string
	Currency string
	Name     string
}

type Flow struct {
	backend  Backend
	auth     *session.Auth
	ledger   *Ledger
	merchant Merchant
	gateway  Gateway
	log      *zap.Logger
	now      func() time.Time
}

// NewFlow returns a flow for one client. gateway may be nil when charges
// are taken elsewhere and confirmed through Complete.
func NewFlow(backend Backend, auth *session.Auth, ledger *Ledger, merchant Merchant, gateway Gateway, log *zap.Logger) *Flow {
	return &Flow{
		backend:  backend,
		auth:     auth,
		ledger:   ledger,
		merchant: merchant,
		gateway:  gateway,
		log:      log,
		now:      time.Now,
	}
}

func (f *Flow) Checkout(ctx context.Context, planName string) (Charge, error) {
	s, err := f.auth.Session().Require(ctx)
	if err != nil {
		return Charge{}, err
	}
	plan, ok := Lookup(planName)
	if !ok {
		return Charge{}, ErrUnknownPlan
	}
	return Charge{
		Key:         f.merchant.Key,
		Amount:      plan.Price * 100,
		Currency:    f.merchant.Currency,
		Name:        f.merchant.Name,
		Description: plan.Name,
		Prefill:     Prefill{Email: s.User.Email},
	}, nil
}

// Purchase takes the plan's charge through the gateway and completes the
// subscription.
func (f *Flow) Purchase(ctx context.Context, planName string) (*models.Subscription, error) {
	if f.gateway == nil {
		return nil, errors.New("no payment gateway configured")
	}
	charge, err := f.Checkout(ctx, planName)
	if err != nil {
		return nil, err
	}
	tx, err := f.gateway.Checkout(ctx, charge)
	if err != nil {
		return nil, err
	}
	if tx.ID == "" {
		return nil, ErrIncomplete
	}
	return f.Complete(ctx, planName, tx.ID)
}

// Complete records a successful charge: first the payment, then the user's
// subscription. Either write failing leaves a ledger entry and returns
// ErrReconciliation.
func (f *Flow) Complete(ctx context.Context, planName, transactionID string) (*models.Subscription, error) {
	s, err := f.auth.Session().Require(ctx)
	if err != nil {
		return nil, err
	}
	plan, ok := Lookup(planName)
	if !ok {
		return nil, ErrUnknownPlan
	}
	if transactionID == "" {
		return nil, ErrIncomplete
	}

	now := f.now().UTC()
	payment := cms.Payment{
		Reference:     uuid.NewString(),
		UserID:        s.User.ID,
		Email:         s.User.Email,
		Plan:          plan.Name,
		Amount:        plan.Price,
		Method:        paymentMethod,
		Status:        paymentSuccess,
		TransactionID: transactionID,
		Timestamp:     now,
	}
	if err := f.backend.RecordPayment(ctx, s.Token, payment); err != nil {
		return nil, f.reconcile(ctx, payment, StagePayment, err)
	}

	sub := models.Subscription{
		Plan:        plan.Name,
		Status:      models.SubscriptionActive,
		RenewalDate: plan.Renewal(now).Format(DateLayout),
	}
	if err := f.backend.UpdateUserSubscription(ctx, s.Token, s.User.ID, sub); err != nil {
		return nil, f.reconcile(ctx, payment, StageProfile, err)
	}

	if err := f.auth.UpdateSubscription(ctx, sub); err != nil {
		return nil, err
	}
	f.log.Sugar().Infow("Subscription recorded",
		"user_id", s.User.ID, "plan", plan.Name, "reference", payment.Reference)
	return &sub, nil
}

func (f *Flow) reconcile(ctx context.Context, p cms.Payment, stage string, cause error) error {
	f.log.Sugar().Errorw("Payment needs reconciliation",
		"reference", p.Reference, "transaction_id", p.TransactionID, "stage", stage, "err", cause)

	entry := &Reconciliation{
		Reference:     p.Reference,
		UserID:        p.UserID,
		Email:         p.Email,
		Plan:          p.Plan,
		Amount:        p.Amount,
		TransactionID: p.TransactionID,
		Stage:         stage,
		Error:         cause.Error(),
	}
	if err := f.ledger.Record(ctx, entry); err != nil {
		f.log.Sugar().Errorw("Failed to write reconciliation ledger", "reference", p.Reference, "err", err)
	}
	return fmt.Errorf("%w: %w", ErrReconciliation, cause)
}
