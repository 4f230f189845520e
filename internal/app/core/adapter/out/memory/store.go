package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
)

// Journal 是 Store 使用的 Write-Ahead Log (pkg/wal.WAL 實作此介面)
type Journal interface {
	Append(v any) error
	Replay(fn func(raw []byte) error) error
}

// Store 記憶體版 usecase.Store
//
// 結構:
//
//	accounts: 帳戶資料 Map
//	history: 每個帳戶的交易紀錄 (依寫入順序)
//	mu: 保護上述資料
//	journal: 可選的 WAL，每個 unit of work 先寫入並 fsync 才套用到記憶體
type Store struct {
	mu       sync.RWMutex
	accounts map[int64]*domain.Account
	history  map[int64][]*domain.Transaction
	nextID   int64
	journal  Journal
}

// NewStore 建立 Store，journal 可為 nil (純記憶體)
//
// 參數:
//
//	journal: WAL 實例，非 nil 時先重播既有紀錄恢復狀態
//
// 回傳:
//
//	*Store: Store 實例
//	error: WAL 恢復失敗
func NewStore(journal Journal) (*Store, error) {
	s := &Store{
		accounts: make(map[int64]*domain.Account),
		history:  make(map[int64][]*domain.Transaction),
		journal:  journal,
	}
	if journal != nil {
		if err := s.recoverFromWAL(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// recoverFromWAL 依序套用 WAL 中的每個 batch (不再寫回 WAL)
// 只有 NewStore 呼叫，無需 Lock
func (s *Store) recoverFromWAL() error {
	return s.journal.Replay(func(raw []byte) error {
		var rec batchRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		b, err := rec.toBatch()
		if err != nil {
			return err
		}
		s.apply(b)
		return nil
	})
}

func (s *Store) FindByID(ctx context.Context, id int64) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", domain.ErrAccountNotFound, id)
	}
	return acct.Clone(), nil
}

func (s *Store) FindByOwnerName(ctx context.Context, name string) ([]*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(a *domain.Account) bool { return a.BeneficiaryName == name }), nil
}

func (s *Store) FindAll(ctx context.Context) ([]*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(*domain.Account) bool { return true }), nil
}

// collect 回傳符合條件的帳戶複本，依 id 遞增 (呼叫端需持有讀鎖)
func (s *Store) collect(match func(*domain.Account) bool) []*domain.Account {
	result := make([]*domain.Account, 0)
	for _, id := range slices.Sorted(maps.Keys(s.accounts)) {
		if acct := s.accounts[id]; match(acct) {
			result = append(result, acct.Clone())
		}
	}
	return result
}

// Save 單筆寫入，等同只含一個動作的 WithTransaction
func (s *Store) Save(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	var saved *domain.Account
	err := s.WithTransaction(ctx, func(tx usecase.Store) error {
		var err error
		saved, err = tx.Save(ctx, account)
		return err
	})
	return saved, err
}

func (s *Store) AppendTransaction(ctx context.Context, tran *domain.Transaction) (*domain.Transaction, error) {
	var appended *domain.Transaction
	err := s.WithTransaction(ctx, func(tx usecase.Store) error {
		var err error
		appended, err = tx.AppendTransaction(ctx, tran)
		return err
	})
	return appended, err
}

func (s *Store) FindTransactionsByAccount(ctx context.Context, accountID int64) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newestFirst(s.history[accountID], nil), nil
}

// WithTransaction 在 unit of work 上執行 fn，成功後整批寫入 WAL 再套用
func (s *Store) WithTransaction(ctx context.Context, fn func(tx usecase.Store) error) error {
	uow := newUnitOfWork(s)
	if err := fn(uow); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.commit(uow.batch())
}

// reserveID 分配新的帳戶 ID (rollback 後的 ID 不會重用)
func (s *Store) reserveID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return s.nextID
}

// commit 寫入 WAL 並套用，WAL 失敗時不修改任何資料
func (s *Store) commit(b batch) error {
	if b.empty() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.journal != nil {
		if err := s.journal.Append(newBatchRecord(b)); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrWALWriteFailed, err)
		}
	}
	s.apply(b)
	return nil
}

// apply 套用 batch 到記憶體 (呼叫端需持有寫鎖或處於初始化階段)
func (s *Store) apply(b batch) {
	for _, acct := range b.accounts {
		s.accounts[acct.ID] = acct.Clone()
		if acct.ID > s.nextID {
			s.nextID = acct.ID
		}
	}
	for _, tran := range b.transactions {
		s.history[tran.AccountID] = append(s.history[tran.AccountID], tran.Clone())
	}
}

// newestFirst 合併已提交與暫存的紀錄，依時間由新到舊；同時間者後寫入的在前
func newestFirst(committed, staged []*domain.Transaction) []*domain.Transaction {
	result := make([]*domain.Transaction, 0, len(committed)+len(staged))
	for i := len(staged) - 1; i >= 0; i-- {
		result = append(result, staged[i].Clone())
	}
	for i := len(committed) - 1; i >= 0; i-- {
		result = append(result, committed[i].Clone())
	}
	slices.SortStableFunc(result, func(a, b *domain.Transaction) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return result
}

var _ usecase.Store = (*Store)(nil)
