package domain

import (
	"crypto/subtle"
	"fmt"
)

// Account 帳戶
//
// PIN 只用於授權比對，不得寫入 log 或回傳給外部
type Account struct {
	// ID: 第一次儲存時由 Store 分配
	ID int64
	// AccountNumber: 對外帳號 (UUID 字串)，建立後不可變
	AccountNumber   string
	BeneficiaryName string
	PIN             string
	// Balance: 永遠 >= 0，只由 Ledger 修改
	Balance Money
}

// NewAccount 建立餘額為 0 的新帳戶 (尚未分配 ID)
func NewAccount(accountNumber, beneficiaryName, pin string) *Account {
	return &Account{
		AccountNumber:   accountNumber,
		BeneficiaryName: beneficiaryName,
		PIN:             pin,
		Balance:         Zero,
	}
}

// Clone 回傳複本，避免呼叫端與 Store 共用同一個指標
func (a *Account) Clone() *Account {
	cp := *a
	return &cp
}

// Authorize 比對 PIN (完全相等)
func (a *Account) Authorize(pin string) error {
	if subtle.ConstantTimeCompare([]byte(a.PIN), []byte(pin)) != 1 {
		return fmt.Errorf("%w: pin does not match account %d", ErrInvalidPin, a.ID)
	}
	return nil
}

// Deposit 存款
func (a *Account) Deposit(amount Money) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	a.Balance = a.Balance.Add(amount)
	return nil
}

// Withdraw 提款，餘額不足時不修改餘額
func (a *Account) Withdraw(amount Money) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if a.Balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: account %d has %s, requested %s", ErrInsufficientBalance, a.ID, a.Balance, amount)
	}
	a.Balance = a.Balance.Sub(amount)
	return nil
}
