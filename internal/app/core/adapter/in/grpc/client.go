package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// Client LedgerService 的客戶端
//
// 回傳的錯誤可用 errors.Is 比對 domain sentinel (例如 domain.ErrInsufficientBalance)
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, fields map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out); err != nil {
		return nil, fromStatus(err)
	}
	return out, nil
}

func (c *Client) account(ctx context.Context, method string, fields map[string]any) (*domain.Account, error) {
	out, err := c.invoke(ctx, method, fields)
	if err != nil {
		return nil, err
	}
	return decodeAccount(out)
}

func (c *Client) CreateAccount(ctx context.Context, beneficiaryName, pin string) (*domain.Account, error) {
	return c.account(ctx, MethodCreateAccount, map[string]any{
		fieldBeneficiaryName: beneficiaryName,
		fieldPIN:             pin,
	})
}

func (c *Client) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	return c.account(ctx, MethodGetAccount, map[string]any{fieldID: id})
}

func (c *Client) Deposit(ctx context.Context, id int64, amount domain.Money) (*domain.Account, error) {
	return c.account(ctx, MethodDeposit, map[string]any{
		fieldID:     id,
		fieldAmount: amount.String(),
	})
}

func (c *Client) Withdraw(ctx context.Context, id int64, pin string, amount domain.Money) (*domain.Account, error) {
	return c.account(ctx, MethodWithdraw, map[string]any{
		fieldID:     id,
		fieldPIN:    pin,
		fieldAmount: amount.String(),
	})
}

func (c *Client) Transfer(ctx context.Context, fromID int64, pin string, amount domain.Money, toID int64) (*domain.Account, error) {
	return c.account(ctx, MethodTransfer, map[string]any{
		fieldID:          fromID,
		fieldPIN:         pin,
		fieldAmount:      amount.String(),
		fieldToAccountID: toID,
	})
}

func (c *Client) ListTransactions(ctx context.Context, id int64) ([]*domain.Transaction, error) {
	out, err := c.invoke(ctx, MethodListTransactions, map[string]any{fieldID: id})
	if err != nil {
		return nil, err
	}
	return decodeTransactions(out)
}

// ListAccounts beneficiaryName 為空時回傳所有帳戶
func (c *Client) ListAccounts(ctx context.Context, beneficiaryName string) ([]*domain.Account, error) {
	fields := map[string]any{}
	if beneficiaryName != "" {
		fields[fieldBeneficiaryName] = beneficiaryName
	}
	out, err := c.invoke(ctx, MethodListAccounts, fields)
	if err != nil {
		return nil, err
	}
	return decodeAccounts(out)
}
