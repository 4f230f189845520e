package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/pkg/logging"
)

// DefaultLockTimeout 取得帳戶鎖的預設最長等待時間
const DefaultLockTimeout = 2 * time.Second

// 操作名稱，用於 log 與 metrics
const (
	OpCreateAccount = "create_account"
	OpDeposit       = "deposit"
	OpWithdraw      = "withdraw"
	OpTransfer      = "transfer"
)

// Recorder 接收每次操作的結果 (outcome 為 domain.Classify 的標籤)
type Recorder interface {
	ObserveOperation(operation, outcome string, duration time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) ObserveOperation(string, string, time.Duration) {}

// Ledger 帳務引擎: 唯一會修改餘額與產生交易紀錄的地方
//
// 寫入路徑使用每個帳戶各自的鎖 (不使用全域鎖)，
// 多帳戶操作一律以 id 遞增順序取鎖。
type Ledger struct {
	store            Store
	locks            *lockTable
	lockTimeout      time.Duration
	logger           *logging.Logger
	recorder         Recorder
	now              func() time.Time
	newAccountNumber func() string
}

// LedgerOption 定義 Ledger 的配置選項函數
type LedgerOption func(*Ledger)

// WithLockTimeout 設定取鎖最長等待時間，<= 0 時使用預設值
func WithLockTimeout(d time.Duration) LedgerOption {
	return func(l *Ledger) {
		if d > 0 {
			l.lockTimeout = d
		}
	}
}

func WithLogger(logger *logging.Logger) LedgerOption {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func WithRecorder(r Recorder) LedgerOption {
	return func(l *Ledger) {
		if r != nil {
			l.recorder = r
		}
	}
}

// WithClock 替換交易時間來源 (測試用)
func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithAccountNumberGenerator 替換帳號產生器 (預設 UUID)
func WithAccountNumberGenerator(gen func() string) LedgerOption {
	return func(l *Ledger) {
		if gen != nil {
			l.newAccountNumber = gen
		}
	}
}

// NewLedger 建立帳務引擎
func NewLedger(store Store, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		store:            store,
		locks:            newLockTable(),
		lockTimeout:      DefaultLockTimeout,
		logger:           logging.NewNoOpLogger(),
		recorder:         noopRecorder{},
		now:              func() time.Time { return time.Now().UTC() },
		newAccountNumber: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.Named("ledger")
	return l
}

// CreateAccount 開戶，初始餘額為 0
func (l *Ledger) CreateAccount(ctx context.Context, beneficiaryName, pin string) (account *domain.Account, err error) {
	defer l.finish(OpCreateAccount, time.Now(), &err)

	if err := domain.ValidateBeneficiaryName(beneficiaryName); err != nil {
		return nil, err
	}
	if err := domain.ValidatePIN(pin); err != nil {
		return nil, err
	}

	saved, err := l.store.Save(ctx, domain.NewAccount(l.newAccountNumber(), beneficiaryName, pin))
	if err != nil {
		return nil, fmt.Errorf("save account: %w", err)
	}
	l.logger.Info("account created",
		zap.Int64("account_id", saved.ID),
		zap.String("account_number", saved.AccountNumber),
	)
	return saved, nil
}

// Deposit 存款，不需要 PIN
func (l *Ledger) Deposit(ctx context.Context, accountID int64, amount domain.Money) (account *domain.Account, err error) {
	defer l.finish(OpDeposit, time.Now(), &err)

	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}

	release, err := l.locks.acquire(ctx, l.lockTimeout, accountID)
	if err != nil {
		return nil, err
	}
	defer release()

	err = l.store.WithTransaction(ctx, func(tx Store) error {
		acct, err := tx.FindByID(ctx, accountID)
		if err != nil {
			return err
		}
		if err := acct.Deposit(amount); err != nil {
			return err
		}
		if account, err = tx.Save(ctx, acct); err != nil {
			return err
		}
		_, err = tx.AppendTransaction(ctx, domain.NewTransaction(account, domain.TransactionTypeDeposit, amount, l.now()))
		return err
	})
	if err != nil {
		return nil, err
	}
	l.logger.Info("deposit applied",
		zap.Int64("account_id", accountID),
		zap.Stringer("amount", amount),
		zap.Stringer("balance", account.Balance),
	)
	return account, nil
}

// Withdraw 提款，需驗證 PIN 並確保餘額足夠
func (l *Ledger) Withdraw(ctx context.Context, accountID int64, pin string, amount domain.Money) (account *domain.Account, err error) {
	defer l.finish(OpWithdraw, time.Now(), &err)

	if err := domain.ValidatePIN(pin); err != nil {
		return nil, err
	}
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}

	release, err := l.locks.acquire(ctx, l.lockTimeout, accountID)
	if err != nil {
		return nil, err
	}
	defer release()

	err = l.store.WithTransaction(ctx, func(tx Store) error {
		acct, err := tx.FindByID(ctx, accountID)
		if err != nil {
			return err
		}
		if err := acct.Authorize(pin); err != nil {
			return err
		}
		if err := acct.Withdraw(amount); err != nil {
			return err
		}
		if account, err = tx.Save(ctx, acct); err != nil {
			return err
		}
		_, err = tx.AppendTransaction(ctx, domain.NewTransaction(account, domain.TransactionTypeWithdraw, amount, l.now()))
		return err
	})
	if err != nil {
		return nil, err
	}
	l.logger.Info("withdraw applied",
		zap.Int64("account_id", accountID),
		zap.Stringer("amount", amount),
		zap.Stringer("balance", account.Balance),
	)
	return account, nil
}

// Transfer 轉帳，只驗證來源帳戶的 PIN，回傳更新後的來源帳戶
//
// 兩個帳戶的餘額更新與兩筆交易紀錄在同一個 WithTransaction 內完成
func (l *Ledger) Transfer(ctx context.Context, fromID int64, pin string, amount domain.Money, toID int64) (account *domain.Account, err error) {
	defer l.finish(OpTransfer, time.Now(), &err)

	if err := domain.ValidatePIN(pin); err != nil {
		return nil, err
	}
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}
	if fromID == toID {
		return nil, fmt.Errorf("%w: cannot transfer to the same account", domain.ErrInvalidRequest)
	}

	release, err := l.locks.acquire(ctx, l.lockTimeout, fromID, toID)
	if err != nil {
		return nil, err
	}
	defer release()

	err = l.store.WithTransaction(ctx, func(tx Store) error {
		accounts := make(map[int64]*domain.Account, 2)
		// 依 id 遞增讀取，資料庫端的列鎖順序與記憶體鎖一致
		for _, id := range lockIDs(fromID, toID) {
			acct, err := tx.FindByID(ctx, id)
			if errors.Is(err, domain.ErrAccountNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			accounts[id] = acct
		}
		// 兩邊都不存在時優先回報來源帳戶
		from, to := accounts[fromID], accounts[toID]
		if from == nil {
			return missingAccount("source", fromID)
		}
		if to == nil {
			return missingAccount("destination", toID)
		}

		if err := from.Authorize(pin); err != nil {
			return err
		}
		if err := from.Withdraw(amount); err != nil {
			return err
		}
		if err := to.Deposit(amount); err != nil {
			return err
		}

		savedTo, err := tx.Save(ctx, to)
		if err != nil {
			return err
		}
		if account, err = tx.Save(ctx, from); err != nil {
			return err
		}

		at := l.now()
		if _, err := tx.AppendTransaction(ctx, domain.NewTransaction(account, domain.TransactionTypeTransferOut, amount, at)); err != nil {
			return err
		}
		_, err = tx.AppendTransaction(ctx, domain.NewTransaction(savedTo, domain.TransactionTypeTransferIn, amount, at))
		return err
	})
	if err != nil {
		return nil, err
	}
	l.logger.Info("transfer applied",
		zap.Int64("from_account_id", fromID),
		zap.Int64("to_account_id", toID),
		zap.Stringer("amount", amount),
		zap.Stringer("balance", account.Balance),
	)
	return account, nil
}

// missingAccount 在 ErrAccountNotFound 上標註是來源還是目標帳戶
func missingAccount(side string, id int64) error {
	return fmt.Errorf("%w: %s account %d", domain.ErrAccountNotFound, side, id)
}

// finish 回報 metrics，並記錄失敗原因 (呼叫端錯誤用 debug，系統錯誤用 error)
func (l *Ledger) finish(op string, start time.Time, errp *error) {
	err := *errp
	outcome := domain.Classify(err)
	l.recorder.ObserveOperation(op, outcome, time.Since(start))
	switch {
	case err == nil:
	case domain.IsClientError(err):
		l.logger.Debug("operation rejected", zap.String("operation", op), zap.String("outcome", outcome), zap.Error(err))
	case domain.IsRetryable(err):
		l.logger.Warn("operation busy", zap.String("operation", op), zap.Error(err))
	default:
		l.logger.Error("operation failed", zap.String("operation", op), zap.String("outcome", outcome), zap.Error(err))
	}
}
