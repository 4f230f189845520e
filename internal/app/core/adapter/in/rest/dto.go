package rest

import (
	"time"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

type createAccountRequest struct {
	BeneficiaryName string `json:"beneficiaryName"`
	PIN             string `json:"pin"`
}

type depositRequest struct {
	Amount *domain.Money `json:"amount"`
}

type withdrawRequest struct {
	PIN    string        `json:"pin"`
	Amount *domain.Money `json:"amount"`
}

type transferRequest struct {
	PIN         string        `json:"pin"`
	Amount      *domain.Money `json:"amount"`
	ToAccountID *int64        `json:"toAccountId"`
}

// accountResponse 不含 PIN
type accountResponse struct {
	ID              int64        `json:"id"`
	AccountNumber   string       `json:"accountNumber"`
	BeneficiaryName string       `json:"beneficiaryName"`
	Balance         domain.Money `json:"balance"`
}

type transactionResponse struct {
	ID            string                 `json:"id"`
	AccountNumber string                 `json:"accountNumber"`
	Type          domain.TransactionType `json:"type"`
	Amount        domain.Money           `json:"amount"`
	Timestamp     time.Time              `json:"timestamp"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func newAccountResponse(a *domain.Account) accountResponse {
	return accountResponse{
		ID:              a.ID,
		AccountNumber:   a.AccountNumber,
		BeneficiaryName: a.BeneficiaryName,
		Balance:         a.Balance,
	}
}

func newAccountResponses(accounts []*domain.Account) []accountResponse {
	result := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		result = append(result, newAccountResponse(a))
	}
	return result
}

func newTransactionResponses(trans []*domain.Transaction) []transactionResponse {
	result := make([]transactionResponse, 0, len(trans))
	for _, t := range trans {
		result = append(result, transactionResponse{
			ID:            t.ID.String(),
			AccountNumber: t.AccountNumber,
			Type:          t.Type,
			Amount:        t.Amount,
			Timestamp:     t.Timestamp.UTC(),
		})
	}
	return result
}
