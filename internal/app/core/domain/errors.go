package domain

import "errors"

var (
	// ErrInvalidName 戶名不合法 (空白、超過 50 字、含非法字元)
	ErrInvalidName = errors.New("invalid beneficiary name")

	// ErrInvalidPin PIN 格式錯誤或與帳戶不符
	ErrInvalidPin = errors.New("invalid pin")

	// ErrInvalidAmount 金額必須為正數
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidRequest 請求本身不合法 (例如轉帳給自己)
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInsufficientBalance 餘額不足
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrAccountNotFound 找不到帳戶
	ErrAccountNotFound = errors.New("account not found")

	// ErrBusy 帳戶鎖競爭逾時，可稍後重試
	ErrBusy = errors.New("account busy, retry later")

	// ErrStoreUnavailable 儲存層暫時不可用 (circuit breaker open)
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrWALWriteFailed 寫入 WAL 失敗
	ErrWALWriteFailed = errors.New("wal write failed")
)

// IsRetryable 只有鎖競爭逾時屬於可重試錯誤
func IsRetryable(err error) bool {
	return errors.Is(err, ErrBusy)
}

// IsClientError 是否為呼叫端輸入或業務規則造成的錯誤 (非系統錯誤)
func IsClientError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidName),
		errors.Is(err, ErrInvalidPin),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrInsufficientBalance),
		errors.Is(err, ErrAccountNotFound):
		return true
	}
	return false
}

// Classify 將錯誤轉成固定的標籤，供 metrics 與 adapter 使用
func Classify(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidName):
		return "invalid_name"
	case errors.Is(err, ErrInvalidPin):
		return "invalid_pin"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, ErrBusy):
		return "busy"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "internal"
	}
}
