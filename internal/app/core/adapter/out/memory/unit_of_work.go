package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
)

// unitOfWork 暫存一次 WithTransaction 內的所有寫入，讀取時先看暫存再看 Store
type unitOfWork struct {
	store        *Store
	accounts     map[int64]*domain.Account
	order        []int64
	transactions []*domain.Transaction
}

func newUnitOfWork(s *Store) *unitOfWork {
	return &unitOfWork{
		store:    s,
		accounts: make(map[int64]*domain.Account),
	}
}

func (u *unitOfWork) FindByID(ctx context.Context, id int64) (*domain.Account, error) {
	if acct, ok := u.accounts[id]; ok {
		return acct.Clone(), nil
	}
	return u.store.FindByID(ctx, id)
}

func (u *unitOfWork) FindByOwnerName(ctx context.Context, name string) ([]*domain.Account, error) {
	all, err := u.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(all, func(a *domain.Account) bool { return a.BeneficiaryName != name }), nil
}

func (u *unitOfWork) FindAll(ctx context.Context) ([]*domain.Account, error) {
	committed, err := u.store.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	merged := make(map[int64]*domain.Account, len(committed)+len(u.accounts))
	for _, acct := range committed {
		merged[acct.ID] = acct
	}
	for id, acct := range u.accounts {
		merged[id] = acct.Clone()
	}
	result := make([]*domain.Account, 0, len(merged))
	for _, id := range slices.Sorted(maps.Keys(merged)) {
		result = append(result, merged[id])
	}
	return result, nil
}

func (u *unitOfWork) Save(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	if account == nil {
		return nil, fmt.Errorf("%w: nil account", domain.ErrInvalidRequest)
	}
	staged := account.Clone()
	if staged.ID == 0 {
		staged.ID = u.store.reserveID()
	}
	if _, ok := u.accounts[staged.ID]; !ok {
		u.order = append(u.order, staged.ID)
	}
	u.accounts[staged.ID] = staged
	return staged.Clone(), nil
}

func (u *unitOfWork) AppendTransaction(ctx context.Context, tran *domain.Transaction) (*domain.Transaction, error) {
	if tran == nil {
		return nil, fmt.Errorf("%w: nil transaction", domain.ErrInvalidRequest)
	}
	staged := tran.Clone()
	if staged.ID == uuid.Nil {
		staged.ID = uuid.New()
	}
	u.transactions = append(u.transactions, staged)
	return staged.Clone(), nil
}

func (u *unitOfWork) FindTransactionsByAccount(ctx context.Context, accountID int64) ([]*domain.Transaction, error) {
	var staged []*domain.Transaction
	for _, tran := range u.transactions {
		if tran.AccountID == accountID {
			staged = append(staged, tran)
		}
	}
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	return newestFirst(u.store.history[accountID], staged), nil
}

// WithTransaction 巢狀呼叫併入目前的 unit of work
func (u *unitOfWork) WithTransaction(ctx context.Context, fn func(tx usecase.Store) error) error {
	return fn(u)
}

func (u *unitOfWork) batch() batch {
	b := batch{transactions: u.transactions}
	for _, id := range u.order {
		b.accounts = append(b.accounts, u.accounts[id])
	}
	return b
}

var _ usecase.Store = (*unitOfWork)(nil)
