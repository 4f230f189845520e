package grpc

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/pkg/logging"
)

// Ledger 寫入操作
type Ledger interface {
	CreateAccount(ctx context.Context, beneficiaryName, pin string) (*domain.Account, error)
	Deposit(ctx context.Context, accountID int64, amount domain.Money) (*domain.Account, error)
	Withdraw(ctx context.Context, accountID int64, pin string, amount domain.Money) (*domain.Account, error)
	Transfer(ctx context.Context, fromID int64, pin string, amount domain.Money, toID int64) (*domain.Account, error)
}

// Query 唯讀查詢
type Query interface {
	GetAccount(ctx context.Context, id int64) (*domain.Account, error)
	GetTransactions(ctx context.Context, id int64) ([]*domain.Transaction, error)
	GetAllAccounts(ctx context.Context) ([]*domain.Account, error)
	GetAllAccountsByOwnerName(ctx context.Context, name string) ([]*domain.Account, error)
}

// Server 實作 LedgerServiceServer
type Server struct {
	ledger Ledger
	query  Query
	logger *logging.Logger
}

var _ LedgerServiceServer = (*Server)(nil)

func NewServer(ledger Ledger, query Query, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Server{ledger: ledger, query: query, logger: logger.Named("grpc")}
}

// CreateAccount {beneficiaryName, pin} -> account
func (s *Server) CreateAccount(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	acct, err := s.ledger.CreateAccount(ctx, getString(in, fieldBeneficiaryName), getString(in, fieldPIN))
	if err != nil {
		return nil, toCreateStatus(err)
	}
	return s.reply(encodeAccount(acct))
}

// GetAccount {id} -> account
func (s *Server) GetAccount(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := getID(in, fieldID)
	if err != nil {
		return nil, toStatus(err)
	}
	acct, err := s.query.GetAccount(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return s.reply(encodeAccount(acct))
}

// Deposit {id, amount} -> account
func (s *Server) Deposit(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, amount, err := idAndAmount(in)
	if err != nil {
		return nil, toStatus(err)
	}
	acct, err := s.ledger.Deposit(ctx, id, amount)
	if err != nil {
		return nil, toStatus(err)
	}
	return s.reply(encodeAccount(acct))
}

// Withdraw {id, pin, amount} -> account
func (s *Server) Withdraw(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, amount, err := idAndAmount(in)
	if err != nil {
		return nil, toStatus(err)
	}
	acct, err := s.ledger.Withdraw(ctx, id, getString(in, fieldPIN), amount)
	if err != nil {
		return nil, toStatus(err)
	}
	return s.reply(encodeAccount(acct))
}

// Transfer {id, pin, amount, toAccountId} -> 來源帳戶
func (s *Server) Transfer(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, amount, err := idAndAmount(in)
	if err != nil {
		return nil, toStatus(err)
	}
	toID, err := getID(in, fieldToAccountID)
	if err != nil {
		return nil, toStatus(err)
	}
	acct, err := s.ledger.Transfer(ctx, id, getString(in, fieldPIN), amount, toID)
	if err != nil {
		return nil, toStatus(err)
	}
	return s.reply(encodeAccount(acct))
}

// ListTransactions {id} -> {transactions: [...]} (新到舊)
func (s *Server) ListTransactions(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := getID(in, fieldID)
	if err != nil {
		return nil, toStatus(err)
	}
	trans, err := s.query.GetTransactions(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return s.reply(encodeTransactions(trans))
}

// ListAccounts {beneficiaryName?} -> {accounts: [...]}
func (s *Server) ListAccounts(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var (
		accounts []*domain.Account
		err      error
	)
	if name := getString(in, fieldBeneficiaryName); name != "" {
		accounts, err = s.query.GetAllAccountsByOwnerName(ctx, name)
	} else {
		accounts, err = s.query.GetAllAccounts(ctx)
	}
	if err != nil {
		return nil, toStatus(err)
	}
	return s.reply(encodeAccounts(accounts))
}

func (s *Server) reply(out *structpb.Struct, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, toStatus(err)
	}
	return out, nil
}

func idAndAmount(in *structpb.Struct) (int64, domain.Money, error) {
	id, err := getID(in, fieldID)
	if err != nil {
		return 0, domain.Zero, err
	}
	amount, err := getAmount(in)
	if err != nil {
		return 0, domain.Zero, err
	}
	return id, amount, nil
}
