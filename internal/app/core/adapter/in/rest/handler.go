package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/pkg/logging"
)

// Ledger 寫入操作 (usecase.Ledger 實作此介面)
type Ledger interface {
	CreateAccount(ctx context.Context, beneficiaryName, pin string) (*domain.Account, error)
	Deposit(ctx context.Context, accountID int64, amount domain.Money) (*domain.Account, error)
	Withdraw(ctx context.Context, accountID int64, pin string, amount domain.Money) (*domain.Account, error)
	Transfer(ctx context.Context, fromID int64, pin string, amount domain.Money, toID int64) (*domain.Account, error)
}

// Query 唯讀操作 (usecase.QueryService 實作此介面)
type Query interface {
	GetAccount(ctx context.Context, id int64) (*domain.Account, error)
	GetTransactions(ctx context.Context, id int64) ([]*domain.Transaction, error)
	GetAllAccounts(ctx context.Context) ([]*domain.Account, error)
	GetAllAccountsByOwnerName(ctx context.Context, name string) ([]*domain.Account, error)
}

// Handler HTTP 轉接層: 解析請求、呼叫 Ledger / Query、輸出 JSON
type Handler struct {
	ledger Ledger
	query  Query
	logger *logging.Logger
}

func NewHandler(ledger Ledger, query Query, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Handler{ledger: ledger, query: query, logger: logger.Named("http")}
}

// Register 在 r 上註冊 /accounts 相關路由
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/accounts", h.createAccount).Methods(http.MethodPost)
	r.HandleFunc("/accounts", h.listAccounts).Methods(http.MethodGet)
	r.HandleFunc("/accounts/{id}", h.getAccount).Methods(http.MethodGet)
	r.HandleFunc("/accounts/{id}/deposit", h.deposit).Methods(http.MethodPost)
	r.HandleFunc("/accounts/{id}/withdraw", h.withdraw).Methods(http.MethodPost)
	r.HandleFunc("/accounts/{id}/transfer", h.transfer).Methods(http.MethodPost)
	r.HandleFunc("/accounts/{id}/transactions", h.listTransactions).Methods(http.MethodGet)
}

// NewRouter 建立完整路由: / 與 /api 兩個前綴、/health，以及額外的 middleware
func NewRouter(h *Handler, middlewares ...mux.MiddlewareFunc) *mux.Router {
	r := mux.NewRouter()
	r.Use(h.recoverMiddleware)
	r.Use(middlewares...)

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	h.Register(r.PathPrefix("/api").Subrouter())
	h.Register(r)
	return r
}

// recoverMiddleware 攔截 panic，回傳 500 並記錄
func (h *Handler) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.logger.Error("panic in handler",
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Stack("stack"),
				)
				writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error", Code: "INTERNAL"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// pathID 解析路由中的 {id}
func pathID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: account id %q is not a number", domain.ErrInvalidRequest, raw)
	}
	return id, nil
}

// decode 解析 JSON body；金額格式錯誤保留 ErrInvalidAmount，其他視為 ErrInvalidRequest
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, domain.ErrInvalidAmount) {
			return err
		}
		return fmt.Errorf("%w: malformed request body: %v", domain.ErrInvalidRequest, err)
	}
	return nil
}

func requireAmount(amount *domain.Money) (domain.Money, error) {
	if amount == nil {
		return domain.Zero, fmt.Errorf("%w: amount is required", domain.ErrInvalidAmount)
	}
	return *amount, nil
}

// createAccount POST /accounts
func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decode(r, &req); err != nil {
		h.writeErr(w, r, err)
		return
	}
	acct, err := h.ledger.CreateAccount(r.Context(), req.BeneficiaryName, req.PIN)
	if err != nil {
		h.writeErrStatus(w, r, err, createStatusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, newAccountResponse(acct))
}

// listAccounts GET /accounts?beneficiaryName=
// 沒有帶 beneficiaryName 時回傳所有帳戶
func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	var (
		accounts []*domain.Account
		err      error
	)
	if name, ok := r.URL.Query()["beneficiaryName"]; ok {
		accounts, err = h.query.GetAllAccountsByOwnerName(r.Context(), name[0])
	} else {
		accounts, err = h.query.GetAllAccounts(r.Context())
	}
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAccountResponses(accounts))
}

// getAccount GET /accounts/{id}
func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	acct, err := h.query.GetAccount(r.Context(), id)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAccountResponse(acct))
}

// deposit POST /accounts/{id}/deposit
func (h *Handler) deposit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	var req depositRequest
	if err := decode(r, &req); err != nil {
		h.writeErr(w, r, err)
		return
	}
	amount, err := requireAmount(req.Amount)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	acct, err := h.ledger.Deposit(r.Context(), id, amount)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAccountResponse(acct))
}

// withdraw POST /accounts/{id}/withdraw
func (h *Handler) withdraw(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	var req withdrawRequest
	if err := decode(r, &req); err != nil {
		h.writeErr(w, r, err)
		return
	}
	amount, err := requireAmount(req.Amount)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	acct, err := h.ledger.Withdraw(r.Context(), id, req.PIN, amount)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAccountResponse(acct))
}

// transfer POST /accounts/{id}/transfer，回傳更新後的來源帳戶
func (h *Handler) transfer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	var req transferRequest
	if err := decode(r, &req); err != nil {
		h.writeErr(w, r, err)
		return
	}
	amount, err := requireAmount(req.Amount)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	if req.ToAccountID == nil {
		h.writeErr(w, r, fmt.Errorf("%w: toAccountId is required", domain.ErrInvalidRequest))
		return
	}
	acct, err := h.ledger.Transfer(r.Context(), id, req.PIN, amount, *req.ToAccountID)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAccountResponse(acct))
}

// listTransactions GET /accounts/{id}/transactions
func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	trans, err := h.query.GetTransactions(r.Context(), id)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransactionResponses(trans))
}
