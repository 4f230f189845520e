package resilient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-ledger/pkg/logging"
)

// Config circuit breaker 設定
type Config struct {
	// MaxRequests half-open 狀態允許通過的請求數
	MaxRequests uint32 `yaml:"max_requests"`
	// Interval closed 狀態下重置計數的週期 (0 表示不重置)
	Interval time.Duration `yaml:"interval"`
	// Timeout open 狀態持續多久後進入 half-open
	Timeout time.Duration `yaml:"timeout"`
	// ConsecutiveFailures 連續失敗幾次後 open
	ConsecutiveFailures uint32 `yaml:"consecutive_failures"`
}

// DefaultConfig 連續 5 次失敗 open，10 秒後 half-open
func DefaultConfig() Config {
	return Config{
		MaxRequests:         1,
		Timeout:             10 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// StateRecorder 接收 circuit breaker 狀態變化
type StateRecorder interface {
	ObserveCircuitState(name, state string)
}

// Store 以 circuit breaker 包裝另一個 usecase.Store
//
// 業務錯誤 (帳戶不存在、餘額不足等) 不算失敗；
// breaker open 時直接回傳 domain.ErrStoreUnavailable
type Store struct {
	next   usecase.Store
	cb     *gobreaker.CircuitBreaker
	logger *logging.Logger
}

// NewStore 建立包裝後的 Store，recorder 可為 nil
func NewStore(name string, next usecase.Store, cfg Config, logger *logging.Logger, recorder StateRecorder) *Store {
	def := DefaultConfig()
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = def.MaxRequests
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = def.ConsecutiveFailures
	}
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	logger = logger.Named("resilience").With(zap.String("store", name))

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		IsSuccessful: isSuccessful,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if recorder != nil {
				recorder.ObserveCircuitState(name, to.String())
			}
		},
	}

	logger.Info("resilient store initialized",
		zap.Uint32("max_requests", cfg.MaxRequests),
		zap.Duration("circuit_interval", cfg.Interval),
		zap.Duration("circuit_timeout", cfg.Timeout),
		zap.Uint32("consecutive_failures", cfg.ConsecutiveFailures),
	)
	return &Store{
		next:   next,
		cb:     gobreaker.NewCircuitBreaker(settings),
		logger: logger,
	}
}

// isSuccessful 只有儲存層本身的錯誤才計入失敗
func isSuccessful(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	return domain.IsClientError(err) || domain.IsRetryable(err)
}

// State 目前的 breaker 狀態
func (s *Store) State() gobreaker.State {
	return s.cb.State()
}

func execute[T any](s *Store, op string, fn func() (T, error)) (T, error) {
	result, err := s.cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			s.logger.Warn("circuit breaker open - request rejected", zap.String("operation", op))
			return zero, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
		}
		return zero, err
	}
	return result.(T), nil
}

func (s *Store) FindByID(ctx context.Context, id int64) (*domain.Account, error) {
	return execute(s, "find_by_id", func() (*domain.Account, error) {
		return s.next.FindByID(ctx, id)
	})
}

func (s *Store) FindByOwnerName(ctx context.Context, name string) ([]*domain.Account, error) {
	return execute(s, "find_by_owner_name", func() ([]*domain.Account, error) {
		return s.next.FindByOwnerName(ctx, name)
	})
}

func (s *Store) FindAll(ctx context.Context) ([]*domain.Account, error) {
	return execute(s, "find_all", func() ([]*domain.Account, error) {
		return s.next.FindAll(ctx)
	})
}

func (s *Store) Save(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	return execute(s, "save", func() (*domain.Account, error) {
		return s.next.Save(ctx, account)
	})
}

func (s *Store) AppendTransaction(ctx context.Context, tran *domain.Transaction) (*domain.Transaction, error) {
	return execute(s, "append_transaction", func() (*domain.Transaction, error) {
		return s.next.AppendTransaction(ctx, tran)
	})
}

func (s *Store) FindTransactionsByAccount(ctx context.Context, accountID int64) ([]*domain.Transaction, error) {
	return execute(s, "find_transactions", func() ([]*domain.Transaction, error) {
		return s.next.FindTransactionsByAccount(ctx, accountID)
	})
}

// WithTransaction 整個 unit of work 算一次請求，fn 拿到的是內層 Store 的 tx
func (s *Store) WithTransaction(ctx context.Context, fn func(tx usecase.Store) error) error {
	_, err := execute(s, "with_transaction", func() (struct{}, error) {
		return struct{}{}, s.next.WithTransaction(ctx, fn)
	})
	return err
}

var _ usecase.Store = (*Store)(nil)
