package money

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrInvalidCurrency is returned when the currency code is not a 3-letter code
	ErrInvalidCurrency = errors.New("invalid currency code")

	// ErrCurrencyMismatch is returned when two amounts with different currencies are combined
	ErrCurrencyMismatch = errors.New("currency mismatch")

	// ErrNegativeAmount is returned when an operation would produce a negative amount
	ErrNegativeAmount = errors.New("amount must not be negative")

	// ErrInvalidAmount is returned when an amount string cannot be parsed
	ErrInvalidAmount = errors.New("invalid amount")
)

// Money 금액 값 객체 (최소 화폐 단위 + 통화 코드)
// Amount는 최소 단위(센트)로 보관하고 표시 시 소수점 2자리로 변환한다
type Money struct {
	Currency string `json:"currency"` // ISO 4217 통화 코드
	Amount   int64  `json:"amount"`   // 최소 화폐 단위 금액
}

// New creates a Money value after validating the currency and sign
func New(currency string, amount int64) (Money, error) {
	normalized, err := normalizeCurrency(currency)
	if err != nil {
		return Money{}, err
	}
	if amount < 0 {
		return Money{}, ErrNegativeAmount
	}
	return Money{Currency: normalized, Amount: amount}, nil
}

// Zero returns a zero amount in the given currency
func Zero(currency string) (Money, error) {
	return New(currency, 0)
}

// FromMajorString parses a decimal string such as "25.00" into minor units.
// At most two decimal places are accepted.
func FromMajorString(currency, value string) (Money, error) {
	normalized, err := normalizeCurrency(currency)
	if err != nil {
		return Money{}, err
	}

	value = strings.TrimSpace(value)
	if value == "" || strings.HasPrefix(value, "-") {
		return Money{}, ErrInvalidAmount
	}

	whole := value
	frac := ""
	if idx := strings.IndexByte(value, '.'); idx >= 0 {
		whole = value[:idx]
		frac = value[idx+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return Money{}, ErrInvalidAmount
	}
	for len(frac) < 2 {
		frac += "0"
	}

	major, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	minor, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}

	return Money{Currency: normalized, Amount: major*100 + minor}, nil
}

// Add returns the sum of both amounts
func (m Money) Add(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Currency: m.Currency, Amount: m.Amount + other.Amount}, nil
}

// Sub returns the difference; a negative result is an error
func (m Money) Sub(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	result := m.Amount - other.Amount
	if result < 0 {
		return Money{}, ErrNegativeAmount
	}
	return Money{Currency: m.Currency, Amount: result}, nil
}

// MulQty multiplies the amount by a non-negative quantity
func (m Money) MulQty(qty int) (Money, error) {
	if qty < 0 {
		return Money{}, ErrNegativeAmount
	}
	return Money{Currency: m.Currency, Amount: m.Amount * int64(qty)}, nil
}

// Cmp compares two amounts of the same currency (-1, 0, 1)
func (m Money) Cmp(other Money) (int, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return 0, err
	}
	switch {
	case m.Amount < other.Amount:
		return -1, nil
	case m.Amount > other.Amount:
		return 1, nil
	default:
		return 0, nil
	}
}

// IsZero reports whether the amount is zero
func (m Money) IsZero() bool {
	return m.Amount == 0
}

// Major formats the amount with two decimal places, e.g. "25.00"
func (m Money) Major() string {
	return fmt.Sprintf("%d.%02d", m.Amount/100, m.Amount%100)
}

// String implements fmt.Stringer
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Currency, m.Major())
}

func (m Money) ensureSameCurrency(other Money) error {
	if m.Currency != other.Currency {
		return fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.Currency, other.Currency)
	}
	return nil
}

func normalizeCurrency(currency string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(currency))
	if len(normalized) != 3 {
		return "", ErrInvalidCurrency
	}
	for _, r := range normalized {
		if r < 'A' || r > 'Z' {
			return "", ErrInvalidCurrency
		}
	}
	return normalized, nil
}
