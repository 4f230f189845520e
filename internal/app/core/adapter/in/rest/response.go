package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// writeJSON 統一輸出成功回應
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor 將 domain 錯誤轉成 HTTP 狀態碼
// 交易時 PIN 格式錯誤與 PIN 不符都回 401 (開戶例外，見 createStatusFor)
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidPin):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrBusy),
		errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// createStatusFor 開戶時的 PIN 是新設定的值，格式錯誤屬於輸入錯誤回 400
func createStatusFor(err error) int {
	if errors.Is(err, domain.ErrInvalidPin) {
		return http.StatusBadRequest
	}
	return statusFor(err)
}

// writeErr 統一輸出錯誤回應 {"error": ..., "code": ...}
func (h *Handler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	h.writeErrStatus(w, r, err, statusFor(err))
}

// writeErrStatus 同 writeErr 但由呼叫端決定狀態碼
// 系統錯誤只記錄在 log，不把內部訊息回傳給呼叫端
func (h *Handler) writeErrStatus(w http.ResponseWriter, r *http.Request, err error, code int) {
	body := errorResponse{
		Error: err.Error(),
		Code:  strings.ToUpper(domain.Classify(err)),
	}
	switch code {
	case http.StatusInternalServerError:
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		body.Error = "internal server error"
	case http.StatusServiceUnavailable:
		if domain.IsRetryable(err) {
			w.Header().Set("Retry-After", "1")
		}
		body.Error = "service temporarily unavailable, retry later"
	}
	writeJSON(w, code, body)
}
