package converter

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/feedconv/internal/domain"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		num, den string
		want     string
	}{
		{"0", "1", "0"},
		{"0", "-7", "0"},
		{"5", "1", "5"},
		{"500", "1", "500"},
		{"1", "10", "0.1"},
		{"1", "2", "0.5"},
		{"1", "4", "0.25"},
		{"3", "8", "0.375"},
		{"1", "1000000", "0.000001"},
		{"12500", "100", "125"},
		{"1000", "10", "100"},
		{"-5", "2", "-2.5"},
		{"5", "-2", "-2.5"},
		{"-5", "-2", "2.5"},
		{"123456789", "1000", "123456.789"},
		{"999999999999999999", "1000000000000000000", "0.999999999999999999"},
		{"100000000000000000000000000000", "1", "100000000000000000000000000000"},
	}
	for _, tt := range tests {
		t.Run(tt.num+"/"+tt.den, func(t *testing.T) {
			num, _ := new(big.Int).SetString(tt.num, 10)
			den, _ := new(big.Int).SetString(tt.den, 10)
			got, err := Format(num, den)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatNonTerminating(t *testing.T) {
	_, err := Format(big.NewInt(1), big.NewInt(3))
	assert.ErrorIs(t, err, domain.ErrNonTerminating)

	// reduces to 1/2 before the check
	got, err := Format(big.NewInt(3), big.NewInt(6))
	require.NoError(t, err)
	assert.Equal(t, "0.5", got)
}

func TestFormatZeroDenominator(t *testing.T) {
	_, err := Format(big.NewInt(1), big.NewInt(0))
	assert.Error(t, err)
	_, err = Format(big.NewInt(1), nil)
	assert.Error(t, err)
}

func TestFormatDoesNotMutateArguments(t *testing.T) {
	num, den := big.NewInt(-10), big.NewInt(-4)
	_, err := Format(num, den)
	require.NoError(t, err)
	assert.Equal(t, int64(-10), num.Int64())
	assert.Equal(t, int64(-4), den.Int64())
}

func TestStripFactors(t *testing.T) {
	tests := []struct {
		twos, fives uint
		rest        int64
	}{
		{0, 0, 1},
		{1, 0, 1},
		{0, 1, 3},
		{3, 7, 11},
		{64, 63, 1},
		{1000, 1023, 7},
		{5000, 4097, 1},
	}
	for _, tt := range tests {
		v := new(big.Int).Lsh(big.NewInt(tt.rest), tt.twos)
		v.Mul(v, new(big.Int).Exp(five, new(big.Int).SetUint64(uint64(tt.fives)), nil))

		assert.Equal(t, tt.twos, stripTwos(v))
		assert.Equal(t, tt.fives, stripFives(v))
		assert.Equal(t, tt.rest, v.Int64())
	}
}

func TestFormatLongFraction(t *testing.T) {
	const digits = 200_000
	got, err := Format(big.NewInt(1), pow10(digits))
	require.NoError(t, err)
	require.Len(t, got, digits+2)
	assert.Equal(t, "0.000", got[:5])
	assert.Equal(t, "01", got[len(got)-2:])
}
