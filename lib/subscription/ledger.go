package subscription

import (
	"context"
	"time"

	"gorm.io/gorm"
)

const (
	StagePayment = "payment"
	StageProfile = "profile"
)

// Reconciliation is a charged payment whose backend records are incomplete.
// Stage names the write that failed.
type Reconciliation struct {
	ID            uint `gorm:"primaryKey"`
	CreatedAt     time.Time
	Reference     string `gorm:"uniqueIndex"`
	UserID        uint   `gorm:"index"`
	Email         string
	Plan          string
	Amount        int64
	TransactionID string
	Stage         string
	Error         string
}

type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db}
}

func (l *Ledger) Record(ctx context.Context, r *Reconciliation) error {
	return l.db.WithContext(ctx).Create(r).Error
}

// Pending lists the recorded gaps, oldest first.
func (l *Ledger) Pending(ctx context.Context) ([]Reconciliation, error) {
	var out []Reconciliation
	tx := l.db.WithContext(ctx).Order("created_at, id").Find(&out)
	return out, tx.Error
}
