package usecase

import (
	"context"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// AccountStore 帳戶儲存介面
//
// 實作必須回傳複本，呼叫端不會與 Store 共用可變狀態
type AccountStore interface {
	// FindByID 找不到時回傳 domain.ErrAccountNotFound
	FindByID(ctx context.Context, id int64) (*domain.Account, error)
	// FindByOwnerName 戶名完全相符，依 id 遞增排序
	FindByOwnerName(ctx context.Context, name string) ([]*domain.Account, error)
	// FindAll 所有帳戶，依 id 遞增排序
	FindAll(ctx context.Context) ([]*domain.Account, error)
	// Save 新增或更新，ID 為 0 時分配新 ID
	Save(ctx context.Context, account *domain.Account) (*domain.Account, error)
}

// TransactionLog 交易紀錄，只能新增
type TransactionLog interface {
	// AppendTransaction ID 為零值時分配新 ID
	AppendTransaction(ctx context.Context, tran *domain.Transaction) (*domain.Transaction, error)
	// FindTransactionsByAccount 依時間由新到舊
	FindTransactionsByAccount(ctx context.Context, accountID int64) ([]*domain.Transaction, error)
}

// Store 是 Ledger 依賴的唯一對外介面
type Store interface {
	AccountStore
	TransactionLog
	// WithTransaction 在 fn 內透過 tx 做的寫入，要嘛全部生效，要嘛全部不生效
	// fn 回傳錯誤時整批取消，並原樣回傳該錯誤
	WithTransaction(ctx context.Context, fn func(tx Store) error) error
}
