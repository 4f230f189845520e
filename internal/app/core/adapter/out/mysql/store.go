package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-ledger/pkg/mysql"
)

// Store MySQL 版 usecase.Store
//
// WithTransaction 使用 gorm Transaction；交易內讀取帳戶時加上 SELECT ... FOR UPDATE (悲觀鎖)，
// Ledger 以 id 遞增順序讀取，資料庫端的鎖順序與記憶體鎖一致
type Store struct {
	db *gorm.DB
	// inTx: 目前 db 是否為交易中的 *gorm.DB
	inTx bool
}

func NewStore(client *mysql.Client) *Store {
	return &Store{db: client.DB()}
}

// AutoMigrate 建立或更新 accounts / transactions 表
func (s *Store) AutoMigrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&sqlAccount{}, &sqlTransaction{})
}

// accountByID 交易內加上 FOR UPDATE
func (s *Store) accountByID(db *gorm.DB, id int64) *gorm.DB {
	if s.inTx {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db.Where("id = ?", id)
}

func (s *Store) FindByID(ctx context.Context, id int64) (*domain.Account, error) {
	var row sqlAccount
	if err := s.accountByID(s.db.WithContext(ctx), id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", domain.ErrAccountNotFound, id)
		}
		return nil, fmt.Errorf("select account %d: %w", id, err)
	}
	return row.toDomain(), nil
}

func (s *Store) FindByOwnerName(ctx context.Context, name string) ([]*domain.Account, error) {
	return s.findAccounts(s.db.WithContext(ctx).Where("beneficiary_name = ?", name))
}

func (s *Store) FindAll(ctx context.Context) ([]*domain.Account, error) {
	return s.findAccounts(s.db.WithContext(ctx))
}

func (s *Store) findAccounts(query *gorm.DB) ([]*domain.Account, error) {
	var rows []sqlAccount
	if err := query.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("select accounts: %w", err)
	}
	result := make([]*domain.Account, 0, len(rows))
	for i := range rows {
		result = append(result, rows[i].toDomain())
	}
	return result, nil
}

func (s *Store) Save(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	row := newSQLAccount(account)
	db := s.db.WithContext(ctx)
	var err error
	if row.ID == 0 {
		err = db.Create(row).Error
	} else {
		err = db.Save(row).Error
	}
	if err != nil {
		return nil, fmt.Errorf("save account: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) AppendTransaction(ctx context.Context, tran *domain.Transaction) (*domain.Transaction, error) {
	appended := tran.Clone()
	if appended.ID == uuid.Nil {
		appended.ID = uuid.New()
	}
	if err := s.db.WithContext(ctx).Create(newSQLTransaction(appended)).Error; err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	return appended, nil
}

func (s *Store) FindTransactionsByAccount(ctx context.Context, accountID int64) ([]*domain.Transaction, error) {
	var rows []sqlTransaction
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("occurred_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	result := make([]*domain.Transaction, 0, len(rows))
	for i := range rows {
		tran, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, tran)
	}
	return result, nil
}

// WithTransaction 巢狀呼叫併入外層交易
func (s *Store) WithTransaction(ctx context.Context, fn func(tx usecase.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, inTx: true})
	})
}

var _ usecase.Store = (*Store)(nil)
