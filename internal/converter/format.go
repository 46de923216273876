package converter

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/alanyoungcy/feedconv/internal/domain"
)

var five = big.NewInt(5)

// Format renders num/den as a canonical decimal string: no exponent, no
// leading "+", no trailing fractional zeros, and no decimal point when the
// value is an integer. It fails with domain.ErrNonTerminating instead of
// rounding when the ratio has no finite decimal expansion.
func Format(num, den *big.Int) (string, error) {
	if den == nil || den.Sign() == 0 {
		return "", errors.New("converter: format: zero denominator")
	}
	if num == nil || num.Sign() == 0 {
		return "0", nil
	}

	n := new(big.Int).Set(num)
	d := new(big.Int).Set(den)
	if d.Sign() < 0 {
		n.Neg(n)
		d.Neg(d)
	}
	negative := n.Sign() < 0
	n.Abs(n)

	gcd := new(big.Int).GCD(nil, nil, n, d)
	n.Quo(n, gcd)
	d.Quo(d, gcd)

	// d must be 2^a * 5^b; the fraction then has max(a, b) digits.
	rest := new(big.Int).Set(d)
	twos := stripTwos(rest)
	fives := stripFives(rest)
	if rest.Cmp(big.NewInt(1)) != 0 {
		return "", fmt.Errorf("%w: %s/%s", domain.ErrNonTerminating, num, den)
	}
	digits := max(twos, fives)

	// n/d == n * (10^digits / d) / 10^digits
	scaled := new(big.Int).Mul(n, new(big.Int).Quo(pow10(digits), d))
	text := scaled.String()

	var sb strings.Builder
	if negative {
		sb.WriteByte('-')
	}
	if digits == 0 {
		sb.WriteString(text)
		return sb.String(), nil
	}

	if pad := int(digits) + 1 - len(text); pad > 0 {
		text = strings.Repeat("0", pad) + text
	}
	split := len(text) - int(digits)
	intPart, frac := text[:split], strings.TrimRight(text[split:], "0")

	sb.WriteString(intPart)
	if frac != "" {
		sb.WriteByte('.')
		sb.WriteString(frac)
	}
	return sb.String(), nil
}

// FormatRatio is Format over a Ratio.
func FormatRatio(r Ratio) (string, error) {
	return Format(r.Num, r.Den)
}

// stripTwos shifts out the factors of two in v and returns their count.
func stripTwos(v *big.Int) uint {
	count := v.TrailingZeroBits()
	v.Rsh(v, count)
	return count
}

// stripFives divides out the factors of five in v and returns their count.
// It divides by 5^(2^i) for growing i, then walks the powers back down, so
// the number of divisions is logarithmic in the count.
func stripFives(v *big.Int) uint {
	var count uint
	q, m := new(big.Int), new(big.Int)
	powers := []*big.Int{five}
	for {
		p := powers[len(powers)-1]
		q.QuoRem(v, p, m)
		if m.Sign() != 0 {
			break
		}
		v.Set(q)
		count += 1 << (len(powers) - 1)
		powers = append(powers, new(big.Int).Mul(p, p))
	}
	for i := len(powers) - 2; i >= 0; i-- {
		q.QuoRem(v, powers[i], m)
		if m.Sign() == 0 {
			v.Set(q)
			count += 1 << i
		}
	}
	return count
}
