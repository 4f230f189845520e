package grpc

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// errorDomain 放在 ErrorInfo.Domain
const errorDomain = "ledger"

// reasons 錯誤標籤 (大寫) 對應回 domain sentinel，供 Client 還原錯誤
var reasons = map[string]error{
	"INVALID_NAME":         domain.ErrInvalidName,
	"INVALID_PIN":          domain.ErrInvalidPin,
	"INVALID_AMOUNT":       domain.ErrInvalidAmount,
	"INVALID_REQUEST":      domain.ErrInvalidRequest,
	"INSUFFICIENT_BALANCE": domain.ErrInsufficientBalance,
	"ACCOUNT_NOT_FOUND":    domain.ErrAccountNotFound,
	"BUSY":                 domain.ErrBusy,
	"STORE_UNAVAILABLE":    domain.ErrStoreUnavailable,
}

func codeFor(err error) codes.Code {
	switch {
	case errors.Is(err, domain.ErrInvalidPin):
		return codes.Unauthenticated
	case errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidRequest):
		return codes.InvalidArgument
	case errors.Is(err, domain.ErrInsufficientBalance):
		return codes.FailedPrecondition
	case errors.Is(err, domain.ErrAccountNotFound):
		return codes.NotFound
	case errors.Is(err, domain.ErrBusy),
		errors.Is(err, domain.ErrStoreUnavailable):
		return codes.Unavailable
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	default:
		return codes.Internal
	}
}

// toStatus 將 domain 錯誤轉成 gRPC status，系統錯誤不外洩內部訊息
func toStatus(err error) error {
	return toStatusCode(err, codeFor(err))
}

// toCreateStatus 開戶時 PIN 格式錯誤屬於輸入錯誤 (InvalidArgument)
func toCreateStatus(err error) error {
	if errors.Is(err, domain.ErrInvalidPin) {
		return toStatusCode(err, codes.InvalidArgument)
	}
	return toStatus(err)
}

func toStatusCode(err error, code codes.Code) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	msg := err.Error()
	switch code {
	case codes.Internal:
		msg = "internal error"
	case codes.Canceled, codes.DeadlineExceeded:
		return status.Error(code, msg)
	}
	st := status.New(code, msg)
	reason := strings.ToUpper(domain.Classify(err))
	if detailed, derr := st.WithDetails(&errdetails.ErrorInfo{Reason: reason, Domain: errorDomain}); derr == nil {
		st = detailed
	}
	return st.Err()
}

// fromStatus 由 ErrorInfo 還原 domain sentinel，找不到時保留原本的 status 錯誤
func fromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	for _, d := range st.Details() {
		info, ok := d.(*errdetails.ErrorInfo)
		if !ok || info.GetDomain() != errorDomain {
			continue
		}
		if sentinel, ok := reasons[info.GetReason()]; ok {
			return &remoteError{sentinel: sentinel, status: st}
		}
	}
	return err
}

// remoteError 同時滿足 errors.Is(domain sentinel) 與 status.FromError
type remoteError struct {
	sentinel error
	status   *status.Status
}

func (e *remoteError) Error() string {
	return e.status.Message()
}

func (e *remoteError) Unwrap() error {
	return e.sentinel
}

func (e *remoteError) GRPCStatus() *status.Status {
	return e.status
}
