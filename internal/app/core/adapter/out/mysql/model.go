package mysql

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// sqlAccount 對應資料庫的 accounts 表
type sqlAccount struct {
	ID              int64           `gorm:"primaryKey;autoIncrement"`
	AccountNumber   string          `gorm:"size:36;uniqueIndex;not null"`
	BeneficiaryName string          `gorm:"size:50;index;not null"`
	PIN             string          `gorm:"column:pin;size:4;not null"`
	Balance         decimal.Decimal `gorm:"type:decimal(19,4);not null"`
	UpdatedAt       int64           `gorm:"autoUpdateTime:milli"` // 自動更新時間
}

func (*sqlAccount) TableName() string {
	return "accounts"
}

// sqlTransaction 對應資料庫的 transactions 表
type sqlTransaction struct {
	ID            int64           `gorm:"primaryKey;autoIncrement"`
	RefID         []byte          `gorm:"column:ref_id;type:binary(16);uniqueIndex"` // 對應 domain.Transaction.ID
	AccountID     int64           `gorm:"index:idx_account_time,priority:1;not null"`
	AccountNumber string          `gorm:"size:36;not null"`
	Type          uint8           `gorm:"not null"`
	Amount        decimal.Decimal `gorm:"type:decimal(19,4);not null"`
	OccurredAt    time.Time       `gorm:"type:datetime(6);index:idx_account_time,priority:2;not null"`
}

func (*sqlTransaction) TableName() string {
	return "transactions"
}

func newSQLAccount(a *domain.Account) *sqlAccount {
	return &sqlAccount{
		ID:              a.ID,
		AccountNumber:   a.AccountNumber,
		BeneficiaryName: a.BeneficiaryName,
		PIN:             a.PIN,
		Balance:         a.Balance.Decimal(),
	}
}

func (r *sqlAccount) toDomain() *domain.Account {
	return &domain.Account{
		ID:              r.ID,
		AccountNumber:   r.AccountNumber,
		BeneficiaryName: r.BeneficiaryName,
		PIN:             r.PIN,
		Balance:         domain.NewMoneyFromDecimal(r.Balance),
	}
}

func newSQLTransaction(t *domain.Transaction) *sqlTransaction {
	return &sqlTransaction{
		RefID:         t.ID[:],
		AccountID:     t.AccountID,
		AccountNumber: t.AccountNumber,
		Type:          uint8(t.Type),
		Amount:        t.Amount.Decimal(),
		OccurredAt:    t.Timestamp.UTC(),
	}
}

func (r *sqlTransaction) toDomain() (*domain.Transaction, error) {
	id, err := uuid.FromBytes(r.RefID)
	if err != nil {
		return nil, fmt.Errorf("transaction %d has invalid ref_id: %w", r.ID, err)
	}
	return &domain.Transaction{
		ID:            id,
		AccountID:     r.AccountID,
		AccountNumber: r.AccountNumber,
		Type:          domain.TransactionType(r.Type),
		Amount:        domain.NewMoneyFromDecimal(r.Amount),
		Timestamp:     r.OccurredAt.UTC(),
	}, nil
}
