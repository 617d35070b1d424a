package money

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in    string
		cents int64
		err   error
	}{
		{in: "1500", cents: 150000},
		{in: "249.5", cents: 24950},
		{in: " 0.01 ", cents: 1},
		{in: "10.500", cents: 1050},
		{in: "-3.25", cents: -325},
		{in: "1.005", err: ErrTooPrecise},
		{in: "abc", err: ErrMalformed},
		{in: "", err: ErrMalformed},
		{in: "9999999999.99", cents: 999999999999},
		{in: "-9999999999.99", cents: -999999999999},
		{in: "10000000000", err: ErrOutOfRange},
		{in: "184467440737095517.16", err: ErrOutOfRange},
		{in: "-184467440737095517.16", err: ErrOutOfRange},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := Parse(tc.in)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.cents, got.Cents())
		})
	}
}

func TestArithmeticIsExact(t *testing.T) {
	total := Zero
	for i := 0; i < 10; i++ {
		total = total.Add(MustParse("0.10"))
	}
	assert.True(t, total.Equal(FromInt(1)))

	line := MustParse("249.99").Mul(3)
	assert.Equal(t, "749.97", line.String())
	assert.Equal(t, "-0.03", FromCents(7497).Sub(MustParse("75")).String())
}

func TestComparisons(t *testing.T) {
	assert.Equal(t, -1, FromCents(99).Cmp(FromInt(1)))
	assert.Equal(t, 0, MustParse("1").Cmp(FromCents(100)))
	assert.True(t, FromCents(1).IsPositive())
	assert.True(t, Zero.IsZero())
	assert.True(t, FromCents(-1).IsNegative())
	assert.Equal(t, FromInt(5), Max(FromInt(5), FromInt(-2)))
	assert.Equal(t, "6.50", Sum(FromInt(1), MustParse("5.5")).String())
}

func TestComparisonsBeyondCentsRange(t *testing.T) {
	// 2^67 cents truncates to zero as int64.
	huge := FromInt(1 << 62).Mul(8)
	assert.True(t, huge.IsPositive())
	assert.False(t, huge.IsZero())
	assert.Equal(t, 1, huge.Cmp(FromInt(1)))
	assert.Equal(t, -1, huge.Neg().Cmp(Zero))
	assert.ErrorIs(t, RequireInRange(huge), ErrOutOfRange)
	assert.NoError(t, RequireInRange(MustParse("9999999999.99")))
}

func TestRequire(t *testing.T) {
	require.ErrorIs(t, RequirePositive(Zero), ErrNotPositive)
	require.NoError(t, RequirePositive(FromCents(1)))
	require.ErrorIs(t, RequireNonNegative(FromCents(-1)), ErrNegative)
	require.NoError(t, RequireNonNegative(Zero))
	require.ErrorIs(t, RequireWithin(MustParse("100.01"), FromInt(100)), ErrExceedsRemaining)
	require.NoError(t, RequireWithin(FromInt(100), FromInt(100)))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "PKR 1,500.00", Format(FromInt(1500)))
	assert.Equal(t, "PKR 0.05", Format(FromCents(5)))
	assert.Equal(t, "PKR -1,234,567.89", Format(MustParse("-1234567.89")))
}

func TestJSON(t *testing.T) {
	var payload struct {
		Amount Amount `json:"amount"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"amount": 12.5}`), &payload))
	assert.Equal(t, int64(1250), payload.Amount.Cents())

	require.NoError(t, json.Unmarshal([]byte(`{"amount": "7"}`), &payload))
	assert.Equal(t, int64(700), payload.Amount.Cents())

	require.ErrorIs(t, json.Unmarshal([]byte(`{"amount": 1.234}`), &payload), ErrTooPrecise)
	require.ErrorIs(t, json.Unmarshal([]byte(`{"amount": 184467440737095517.16}`), &payload), ErrOutOfRange)

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount": 7.00}`, string(out))
}

func TestScanValue(t *testing.T) {
	var a Amount
	require.NoError(t, a.Scan("1500.00"))
	assert.True(t, a.Equal(FromInt(1500)))

	v, err := a.Value()
	require.NoError(t, err)
	assert.Equal(t, "1500.00", v)

	require.Error(t, a.Scan(struct{}{}))
}

func TestNullAmountScan(t *testing.T) {
	var n NullAmount
	require.NoError(t, n.Scan(nil))
	assert.False(t, n.Valid)
	assert.True(t, n.Amount.IsZero())

	require.NoError(t, n.Scan("12.30"))
	assert.True(t, n.Valid)
	assert.Equal(t, "12.30", n.Amount.String())
}
