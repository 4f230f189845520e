package usecase

import (
	"context"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// QueryService 唯讀查詢，不取帳戶鎖
type QueryService struct {
	store Store
}

func NewQueryService(store Store) *QueryService {
	return &QueryService{store: store}
}

// GetAccount 取得帳戶
func (q *QueryService) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	return q.store.FindByID(ctx, id)
}

// GetTransactions 取得帳戶的交易紀錄 (新到舊)，帳戶不存在時回傳 ErrAccountNotFound
func (q *QueryService) GetTransactions(ctx context.Context, id int64) ([]*domain.Transaction, error) {
	if _, err := q.store.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return q.store.FindTransactionsByAccount(ctx, id)
}

// GetAllAccounts 所有帳戶，依 id 遞增
func (q *QueryService) GetAllAccounts(ctx context.Context) ([]*domain.Account, error) {
	return q.store.FindAll(ctx)
}

// GetAllAccountsByOwnerName 依戶名 (完全相符) 查詢
func (q *QueryService) GetAllAccountsByOwnerName(ctx context.Context, name string) ([]*domain.Account, error) {
	return q.store.FindByOwnerName(ctx, name)
}
