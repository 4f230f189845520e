package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-ledger/pkg/logging"
)

const (
	accountsCollection     = "accounts"
	transactionsCollection = "transactions"
	countersCollection     = "counters"
)

// Collection 是 Store 用到的 *mongo.Collection 方法子集 (測試時以 fake 取代)
type Collection interface {
	FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) *mongo.SingleResult
	Find(ctx context.Context, filter any, opts ...*options.FindOptions) (*mongo.Cursor, error)
	InsertOne(ctx context.Context, document any, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	ReplaceOne(ctx context.Context, filter any, replacement any, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter any, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	FindOneAndUpdate(ctx context.Context, filter any, update any, opts ...*options.FindOneAndUpdateOptions) *mongo.SingleResult
}

// Store MongoDB 版 usecase.Store
//
// 不使用 MongoDB 多文件交易 (不需要 replica set)。
// WithTransaction 內的每次寫入會立即生效並記錄還原動作，
// fn 或任何寫入失敗時依相反順序補償
type Store struct {
	accounts     Collection
	transactions Collection
	counters     Collection
	logger       *logging.Logger
	// undo: 非 nil 代表目前在 WithTransaction 內
	undo *undoLog
}

// NewStore 使用資料庫中的預設 collections
func NewStore(db *mongo.Database, logger *logging.Logger) *Store {
	return NewStoreWithCollections(
		db.Collection(accountsCollection),
		db.Collection(transactionsCollection),
		db.Collection(countersCollection),
		logger,
	)
}

func NewStoreWithCollections(accounts, transactions, counters Collection, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Store{
		accounts:     accounts,
		transactions: transactions,
		counters:     counters,
		logger:       logger.Named("mongo_store"),
	}
}

// EnsureIndexes 建立查詢所需的索引
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(accountsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "account_number", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "beneficiary_name", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create account indexes: %w", err)
	}
	_, err = db.Collection(transactionsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "ts", Value: -1}, {Key: "seq", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create transaction indexes: %w", err)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id int64) (*domain.Account, error) {
	doc, err := s.findAccountDoc(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: id %d", domain.ErrAccountNotFound, id)
	}
	return doc.toDomain()
}

// findAccountDoc 找不到時回傳 (nil, nil)
func (s *Store) findAccountDoc(ctx context.Context, id int64) (*accountDoc, error) {
	var doc accountDoc
	err := s.accounts.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find account %d: %w", id, err)
	}
	return &doc, nil
}

func (s *Store) FindByOwnerName(ctx context.Context, name string) ([]*domain.Account, error) {
	return s.findAccounts(ctx, bson.M{"beneficiary_name": name})
}

func (s *Store) FindAll(ctx context.Context) ([]*domain.Account, error) {
	return s.findAccounts(ctx, bson.M{})
}

func (s *Store) findAccounts(ctx context.Context, filter bson.M) ([]*domain.Account, error) {
	cursor, err := s.accounts.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find accounts: %w", err)
	}
	var docs []accountDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode accounts: %w", err)
	}
	result := make([]*domain.Account, 0, len(docs))
	for i := range docs {
		acct, err := docs[i].toDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, acct)
	}
	return result, nil
}

func (s *Store) Save(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	saved := account.Clone()
	if saved.ID == 0 {
		id, err := s.nextSeq(ctx, accountsCollection)
		if err != nil {
			return nil, err
		}
		saved.ID = id
	}
	doc, err := newAccountDoc(saved)
	if err != nil {
		return nil, err
	}

	if s.undo != nil {
		previous, err := s.findAccountDoc(ctx, saved.ID)
		if err != nil {
			return nil, err
		}
		s.undo.recordAccount(saved.ID, previous)
	}

	_, err = s.accounts.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return nil, fmt.Errorf("save account %d: %w", saved.ID, err)
	}
	return saved, nil
}

func (s *Store) AppendTransaction(ctx context.Context, tran *domain.Transaction) (*domain.Transaction, error) {
	appended := tran.Clone()
	if appended.ID == uuid.Nil {
		appended.ID = uuid.New()
	}
	seq, err := s.nextSeq(ctx, transactionsCollection)
	if err != nil {
		return nil, err
	}
	doc, err := newTransactionDoc(appended, seq)
	if err != nil {
		return nil, err
	}
	if _, err := s.transactions.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	if s.undo != nil {
		s.undo.recordTransaction(doc.ID)
	}
	return appended, nil
}

func (s *Store) FindTransactionsByAccount(ctx context.Context, accountID int64) ([]*domain.Transaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "ts", Value: -1}, {Key: "seq", Value: -1}})
	cursor, err := s.transactions.Find(ctx, bson.M{"account_id": accountID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find transactions: %w", err)
	}
	var docs []transactionDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}
	result := make([]*domain.Transaction, 0, len(docs))
	for i := range docs {
		tran, err := docs[i].toDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, tran)
	}
	return result, nil
}

// WithTransaction 執行 fn，失敗時補償 fn 內已完成的寫入
func (s *Store) WithTransaction(ctx context.Context, fn func(tx usecase.Store) error) error {
	if s.undo != nil {
		return fn(s)
	}
	tx := *s
	tx.undo = &undoLog{}
	err := fn(&tx)
	if err == nil {
		return nil
	}
	// 補償不受呼叫端取消影響
	if cerr := tx.undo.compensate(context.WithoutCancel(ctx), s); cerr != nil {
		s.logger.Error("compensation failed", zap.Error(cerr), zap.NamedError("cause", err))
		return errors.Join(err, fmt.Errorf("compensate: %w", cerr))
	}
	return err
}

// nextSeq 以 counters collection 分配遞增序號
func (s *Store) nextSeq(ctx context.Context, name string) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var counter counterDoc
	err := s.counters.FindOneAndUpdate(ctx, bson.M{"_id": name}, bson.M{"$inc": bson.M{"seq": int64(1)}}, opts).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next %s sequence: %w", name, err)
	}
	return counter.Seq, nil
}

var _ usecase.Store = (*Store)(nil)
