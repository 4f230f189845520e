package domain

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxBeneficiaryNameLength 戶名最大長度
const MaxBeneficiaryNameLength = 50

var (
	beneficiaryNamePattern = regexp.MustCompile(`^[A-Za-z0-9 ]*$`)
	pinPattern             = regexp.MustCompile(`^[0-9]{4}$`)
)

// ValidateBeneficiaryName 檢查戶名: 非空白、最多 50 字、只允許英數與空白
func ValidateBeneficiaryName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: beneficiary name must not be empty", ErrInvalidName)
	}
	if utf8.RuneCountInString(name) > MaxBeneficiaryNameLength {
		return fmt.Errorf("%w: beneficiary name must not be longer than %d characters", ErrInvalidName, MaxBeneficiaryNameLength)
	}
	if !beneficiaryNamePattern.MatchString(name) {
		return fmt.Errorf("%w: beneficiary name contains invalid characters", ErrInvalidName)
	}
	return nil
}

// ValidatePIN 檢查 PIN 格式: 剛好 4 位數字
func ValidatePIN(pin string) error {
	if strings.TrimSpace(pin) == "" {
		return fmt.Errorf("%w: pin must not be empty", ErrInvalidPin)
	}
	if !pinPattern.MatchString(pin) {
		return fmt.Errorf("%w: pin must be a 4-digit number", ErrInvalidPin)
	}
	return nil
}

// ValidateAmount 金額必須 > 0 且小數不超過 MoneyScale 位
func ValidateAmount(amount Money) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero", ErrInvalidAmount)
	}
	if !amount.fitsScale() {
		return fmt.Errorf("%w: amount must not have more than %d decimal places", ErrInvalidAmount, MoneyScale)
	}
	return nil
}
