package mongo

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// accountDoc 對應 accounts collection
type accountDoc struct {
	ID              int64                `bson:"_id"`
	AccountNumber   string               `bson:"account_number"`
	BeneficiaryName string               `bson:"beneficiary_name"`
	PIN             string               `bson:"pin"`
	Balance         primitive.Decimal128 `bson:"balance"`
}

// transactionDoc 對應 transactions collection
// Seq 為寫入序號，同一時間的紀錄以此排序
type transactionDoc struct {
	ID            string               `bson:"_id"`
	Seq           int64                `bson:"seq"`
	AccountID     int64                `bson:"account_id"`
	AccountNumber string               `bson:"account_number"`
	Type          string               `bson:"type"`
	Amount        primitive.Decimal128 `bson:"amount"`
	Timestamp     time.Time            `bson:"ts"`
}

// counterDoc 對應 counters collection，用來分配遞增 ID
type counterDoc struct {
	ID  string `bson:"_id"`
	Seq int64  `bson:"seq"`
}

func toDecimal128(m domain.Money) (primitive.Decimal128, error) {
	d, err := primitive.ParseDecimal128(m.Decimal().String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("encode amount %s: %w", m, err)
	}
	return d, nil
}

func fromDecimal128(d primitive.Decimal128) (domain.Money, error) {
	parsed, err := decimal.NewFromString(d.String())
	if err != nil {
		return domain.Zero, fmt.Errorf("decode amount %s: %w", d, err)
	}
	return domain.NewMoneyFromDecimal(parsed), nil
}

func newAccountDoc(a *domain.Account) (*accountDoc, error) {
	balance, err := toDecimal128(a.Balance)
	if err != nil {
		return nil, err
	}
	return &accountDoc{
		ID:              a.ID,
		AccountNumber:   a.AccountNumber,
		BeneficiaryName: a.BeneficiaryName,
		PIN:             a.PIN,
		Balance:         balance,
	}, nil
}

func (d *accountDoc) toDomain() (*domain.Account, error) {
	balance, err := fromDecimal128(d.Balance)
	if err != nil {
		return nil, err
	}
	return &domain.Account{
		ID:              d.ID,
		AccountNumber:   d.AccountNumber,
		BeneficiaryName: d.BeneficiaryName,
		PIN:             d.PIN,
		Balance:         balance,
	}, nil
}

func newTransactionDoc(t *domain.Transaction, seq int64) (*transactionDoc, error) {
	amount, err := toDecimal128(t.Amount)
	if err != nil {
		return nil, err
	}
	return &transactionDoc{
		ID:            t.ID.String(),
		Seq:           seq,
		AccountID:     t.AccountID,
		AccountNumber: t.AccountNumber,
		Type:          t.Type.String(),
		Amount:        amount,
		Timestamp:     t.Timestamp.UTC(),
	}, nil
}

func (d *transactionDoc) toDomain() (*domain.Transaction, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("transaction %q has invalid id: %w", d.ID, err)
	}
	tt, err := domain.ParseTransactionType(d.Type)
	if err != nil {
		return nil, err
	}
	amount, err := fromDecimal128(d.Amount)
	if err != nil {
		return nil, err
	}
	return &domain.Transaction{
		ID:            id,
		AccountID:     d.AccountID,
		AccountNumber: d.AccountNumber,
		Type:          tt,
		Amount:        amount,
		Timestamp:     d.Timestamp.UTC(),
	}, nil
}
