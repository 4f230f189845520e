package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TransactionType 交易類型
type TransactionType uint8

const (
	// 存款
	TransactionTypeDeposit TransactionType = 1
	// 提款
	TransactionTypeWithdraw TransactionType = 2
	// 轉出 (來源帳戶)
	TransactionTypeTransferOut TransactionType = 3
	// 轉入 (目標帳戶)
	TransactionTypeTransferIn TransactionType = 4
)

var transactionTypeNames = map[TransactionType]string{
	TransactionTypeDeposit:     "deposit",
	TransactionTypeWithdraw:    "withdraw",
	TransactionTypeTransferOut: "transfer_out",
	TransactionTypeTransferIn:  "transfer_in",
}

func (t TransactionType) String() string {
	if name, ok := transactionTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint8(t))
}

// ParseTransactionType 由名稱取得交易類型
func ParseTransactionType(s string) (TransactionType, error) {
	for t, name := range transactionTypeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown transaction type %q", s)
}

func (t TransactionType) MarshalText() ([]byte, error) {
	if _, ok := transactionTypeNames[t]; !ok {
		return nil, fmt.Errorf("unknown transaction type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *TransactionType) UnmarshalText(text []byte) error {
	parsed, err := ParseTransactionType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Transaction 單一帳戶的一筆異動紀錄，建立後不可修改
// 轉帳會產生兩筆: 來源帳戶 transfer_out、目標帳戶 transfer_in
type Transaction struct {
	// ID: append 時由 TransactionLog 分配
	ID        uuid.UUID
	AccountID int64
	// AccountNumber: 所屬帳戶的對外帳號 (冗餘欄位，方便查詢輸出)
	AccountNumber string
	Type          TransactionType
	Amount        Money
	Timestamp     time.Time
}

// NewTransaction 為指定帳戶建立一筆紀錄
func NewTransaction(account *Account, t TransactionType, amount Money, at time.Time) *Transaction {
	return &Transaction{
		AccountID:     account.ID,
		AccountNumber: account.AccountNumber,
		Type:          t,
		Amount:        amount,
		Timestamp:     at,
	}
}

func (t *Transaction) Clone() *Transaction {
	cp := *t
	return &cp
}
