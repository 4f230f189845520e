package mysql

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

func TestAccountRowConversion(t *testing.T) {
	acct := &domain.Account{
		ID:              7,
		AccountNumber:   "5f0c9d5e-1111-2222-3333-444455556666",
		BeneficiaryName: "John Doe",
		PIN:             "1234",
		Balance:         domain.MustParseMoney("12.3456"),
	}
	row := newSQLAccount(acct)
	if row.Balance.String() != "12.3456" {
		t.Fatalf("row balance = %s", row.Balance)
	}
	back := row.toDomain()
	if back.ID != acct.ID || back.AccountNumber != acct.AccountNumber || back.BeneficiaryName != acct.BeneficiaryName ||
		back.PIN != acct.PIN || !back.Balance.Equal(acct.Balance) {
		t.Fatalf("toDomain() = %+v, want %+v", back, acct)
	}
}

func TestTransactionRowConversion(t *testing.T) {
	taipei := time.FixedZone("CST", 8*60*60)
	tran := &domain.Transaction{
		ID:            uuid.New(),
		AccountID:     3,
		AccountNumber: "acc",
		Type:          domain.TransactionTypeTransferIn,
		Amount:        domain.MustParseMoney("5"),
		Timestamp:     time.Date(2025, 1, 2, 11, 0, 0, 0, taipei),
	}
	row := newSQLTransaction(tran)
	if len(row.RefID) != 16 || row.OccurredAt.Location() != time.UTC {
		t.Fatalf("unexpected row %+v", row)
	}

	back, err := row.toDomain()
	if err != nil {
		t.Fatal(err)
	}
	if back.ID != tran.ID || back.Type != tran.Type || !back.Amount.Equal(tran.Amount) || !back.Timestamp.Equal(tran.Timestamp) {
		t.Fatalf("toDomain() = %+v, want %+v", back, tran)
	}

	row.RefID = []byte{1, 2, 3}
	if _, err := row.toDomain(); err == nil {
		t.Fatal("expected error for malformed ref_id")
	}
}
