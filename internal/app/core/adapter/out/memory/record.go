package memory

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// batch 一次 commit 的內容
type batch struct {
	accounts     []*domain.Account
	transactions []*domain.Transaction
}

func (b batch) empty() bool {
	return len(b.accounts) == 0 && len(b.transactions) == 0
}

// batchRecord WAL 中的一行
type batchRecord struct {
	Accounts     []accountRecord     `json:"accounts,omitempty"`
	Transactions []transactionRecord `json:"transactions,omitempty"`
}

type accountRecord struct {
	ID              int64        `json:"id"`
	AccountNumber   string       `json:"account_number"`
	BeneficiaryName string       `json:"beneficiary_name"`
	PIN             string       `json:"pin"`
	Balance         domain.Money `json:"balance"`
}

type transactionRecord struct {
	ID            uuid.UUID              `json:"id"`
	AccountID     int64                  `json:"account_id"`
	AccountNumber string                 `json:"account_number"`
	Type          domain.TransactionType `json:"type"`
	Amount        domain.Money           `json:"amount"`
	Timestamp     time.Time              `json:"ts"`
}

func newBatchRecord(b batch) batchRecord {
	rec := batchRecord{}
	for _, a := range b.accounts {
		rec.Accounts = append(rec.Accounts, accountRecord{
			ID:              a.ID,
			AccountNumber:   a.AccountNumber,
			BeneficiaryName: a.BeneficiaryName,
			PIN:             a.PIN,
			Balance:         a.Balance,
		})
	}
	for _, t := range b.transactions {
		rec.Transactions = append(rec.Transactions, transactionRecord{
			ID:            t.ID,
			AccountID:     t.AccountID,
			AccountNumber: t.AccountNumber,
			Type:          t.Type,
			Amount:        t.Amount,
			Timestamp:     t.Timestamp,
		})
	}
	return rec
}

func (r batchRecord) toBatch() (batch, error) {
	b := batch{}
	for _, a := range r.Accounts {
		if a.ID <= 0 {
			return batch{}, fmt.Errorf("wal account record has invalid id %d", a.ID)
		}
		b.accounts = append(b.accounts, &domain.Account{
			ID:              a.ID,
			AccountNumber:   a.AccountNumber,
			BeneficiaryName: a.BeneficiaryName,
			PIN:             a.PIN,
			Balance:         a.Balance,
		})
	}
	for _, t := range r.Transactions {
		b.transactions = append(b.transactions, &domain.Transaction{
			ID:            t.ID,
			AccountID:     t.AccountID,
			AccountNumber: t.AccountNumber,
			Type:          t.Type,
			Amount:        t.Amount,
			Timestamp:     t.Timestamp,
		})
	}
	return b, nil
}
