package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoney_New(t *testing.T) {
	m, err := New("usd", 2500)
	require.NoError(t, err)
	assert.Equal(t, "USD", m.Currency)
	assert.Equal(t, int64(2500), m.Amount)
	assert.Equal(t, "25.00", m.Major())
}

func TestMoney_New_InvalidCurrency(t *testing.T) {
	_, err := New("US", 100)
	assert.ErrorIs(t, err, ErrInvalidCurrency)

	_, err = New("U5D", 100)
	assert.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestMoney_New_NegativeAmount(t *testing.T) {
	_, err := New("USD", -1)
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestMoney_FromMajorString(t *testing.T) {
	m, err := FromMajorString("USD", "25.00")
	require.NoError(t, err)
	assert.Equal(t, int64(2500), m.Amount)

	m, err = FromMajorString("USD", "28.5")
	require.NoError(t, err)
	assert.Equal(t, int64(2850), m.Amount)

	m, err = FromMajorString("USD", "3")
	require.NoError(t, err)
	assert.Equal(t, int64(300), m.Amount)

	_, err = FromMajorString("USD", "1.005")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = FromMajorString("USD", "-1.00")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestMoney_AddSub(t *testing.T) {
	a, _ := New("USD", 2500)
	b, _ := New("USD", 2800)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, int64(5300), sum.Amount)

	diff, err := sum.Sub(a)
	require.NoError(t, err)
	assert.Equal(t, int64(2800), diff.Amount)

	_, err = a.Sub(b)
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestMoney_CurrencyMismatch(t *testing.T) {
	a, _ := New("USD", 100)
	b, _ := New("KRW", 100)

	_, err := a.Add(b)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)

	_, err = a.Sub(b)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)

	_, err = a.Cmp(b)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestMoney_MulQty(t *testing.T) {
	a, _ := New("USD", 2500)

	total, err := a.MulQty(3)
	require.NoError(t, err)
	assert.Equal(t, int64(7500), total.Amount)

	_, err = a.MulQty(-1)
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestMoney_Cmp(t *testing.T) {
	a, _ := New("USD", 100)
	b, _ := New("USD", 200)

	c, err := a.Cmp(b)
	require.NoError(t, err)
	assert.Equal(t, -1, c)

	c, _ = b.Cmp(a)
	assert.Equal(t, 1, c)

	c, _ = a.Cmp(a)
	assert.Equal(t, 0, c)
}

// 주문 금액 불변식: pay = total - discount + shipping
func TestMoney_OrderAmountComposition(t *testing.T) {
	item1, _ := FromMajorString("USD", "25.00")
	item2, _ := FromMajorString("USD", "28.00")
	discount, _ := FromMajorString("USD", "3.00")
	shipping, _ := FromMajorString("USD", "5.00")

	total, err := item1.Add(item2)
	require.NoError(t, err)
	assert.Equal(t, "53.00", total.Major())

	afterDiscount, err := total.Sub(discount)
	require.NoError(t, err)

	pay, err := afterDiscount.Add(shipping)
	require.NoError(t, err)
	assert.Equal(t, int64(5500), pay.Amount)
	assert.Equal(t, "55.00", pay.Major())
}
