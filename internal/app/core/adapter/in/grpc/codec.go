package grpc

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// 欄位名稱與 HTTP JSON 一致
const (
	fieldID              = "id"
	fieldAccountNumber   = "accountNumber"
	fieldBeneficiaryName = "beneficiaryName"
	fieldPIN             = "pin"
	fieldBalance         = "balance"
	fieldAmount          = "amount"
	fieldToAccountID     = "toAccountId"
	fieldType            = "type"
	fieldTimestamp       = "timestamp"
	fieldAccounts        = "accounts"
	fieldTransactions    = "transactions"
)

func getString(in *structpb.Struct, key string) string {
	return in.GetFields()[key].GetStringValue()
}

// getID 接受 number 或 string
func getID(in *structpb.Struct, key string) (int64, error) {
	v, ok := in.GetFields()[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s is required", domain.ErrInvalidRequest, key)
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		n := kind.NumberValue
		if n != math.Trunc(n) || math.Abs(n) > 1<<53 {
			return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidRequest, key)
		}
		return int64(n), nil
	case *structpb.Value_StringValue:
		n, err := strconv.ParseInt(kind.StringValue, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidRequest, key)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidRequest, key)
	}
}

// getAmount 接受十進位字串 (建議) 或 number
func getAmount(in *structpb.Struct) (domain.Money, error) {
	v, ok := in.GetFields()[fieldAmount]
	if !ok {
		return domain.Zero, fmt.Errorf("%w: amount is required", domain.ErrInvalidAmount)
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return domain.ParseMoney(kind.StringValue)
	case *structpb.Value_NumberValue:
		return domain.ParseMoney(strconv.FormatFloat(kind.NumberValue, 'f', -1, 64))
	default:
		return domain.Zero, fmt.Errorf("%w: amount must be a decimal string", domain.ErrInvalidAmount)
	}
}

func accountFields(a *domain.Account) map[string]any {
	return map[string]any{
		fieldID:              a.ID,
		fieldAccountNumber:   a.AccountNumber,
		fieldBeneficiaryName: a.BeneficiaryName,
		fieldBalance:         a.Balance.String(),
	}
}

func encodeAccount(a *domain.Account) (*structpb.Struct, error) {
	return structpb.NewStruct(accountFields(a))
}

func encodeAccounts(accounts []*domain.Account) (*structpb.Struct, error) {
	list := make([]any, 0, len(accounts))
	for _, a := range accounts {
		list = append(list, accountFields(a))
	}
	return structpb.NewStruct(map[string]any{fieldAccounts: list})
}

func encodeTransactions(trans []*domain.Transaction) (*structpb.Struct, error) {
	list := make([]any, 0, len(trans))
	for _, t := range trans {
		list = append(list, map[string]any{
			fieldID:            t.ID.String(),
			fieldAccountNumber: t.AccountNumber,
			fieldType:          t.Type.String(),
			fieldAmount:        t.Amount.String(),
			fieldTimestamp:     t.Timestamp.UTC().Format(time.RFC3339Nano),
		})
	}
	return structpb.NewStruct(map[string]any{fieldTransactions: list})
}

func decodeAccount(in *structpb.Struct) (*domain.Account, error) {
	id, err := getID(in, fieldID)
	if err != nil {
		return nil, err
	}
	balance, err := domain.ParseMoney(getString(in, fieldBalance))
	if err != nil {
		return nil, err
	}
	return &domain.Account{
		ID:              id,
		AccountNumber:   getString(in, fieldAccountNumber),
		BeneficiaryName: getString(in, fieldBeneficiaryName),
		Balance:         balance,
	}, nil
}

func decodeAccounts(in *structpb.Struct) ([]*domain.Account, error) {
	values := in.GetFields()[fieldAccounts].GetListValue().GetValues()
	result := make([]*domain.Account, 0, len(values))
	for _, v := range values {
		acct, err := decodeAccount(v.GetStructValue())
		if err != nil {
			return nil, err
		}
		result = append(result, acct)
	}
	return result, nil
}

func decodeTransactions(in *structpb.Struct) ([]*domain.Transaction, error) {
	values := in.GetFields()[fieldTransactions].GetListValue().GetValues()
	result := make([]*domain.Transaction, 0, len(values))
	for _, v := range values {
		s := v.GetStructValue()
		id, err := uuid.Parse(getString(s, fieldID))
		if err != nil {
			return nil, fmt.Errorf("decode transaction id: %w", err)
		}
		tt, err := domain.ParseTransactionType(getString(s, fieldType))
		if err != nil {
			return nil, err
		}
		amount, err := domain.ParseMoney(getString(s, fieldAmount))
		if err != nil {
			return nil, err
		}
		ts, err := time.Parse(time.RFC3339Nano, getString(s, fieldTimestamp))
		if err != nil {
			return nil, fmt.Errorf("decode transaction timestamp: %w", err)
		}
		result = append(result, &domain.Transaction{
			ID:            id,
			AccountNumber: getString(s, fieldAccountNumber),
			Type:          tt,
			Amount:        amount,
			Timestamp:     ts,
		})
	}
	return result, nil
}
