package converter

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/feedconv/internal/domain"
)

var ten = big.NewInt(10)

// Ratio is an exact value Num/Den. Den is always positive once built through
// this package.
type Ratio struct {
	Num *big.Int
	Den *big.Int
}

// Hop pairs a fetched rate with the direction it is traversed in.
type Hop struct {
	Rate    domain.Rate
	Forward bool
}

// RatioFromDecimal converts d into an exact ratio without rounding.
func RatioFromDecimal(d decimal.Decimal) Ratio {
	num := new(big.Int).Set(d.Coefficient())
	den := big.NewInt(1)
	if exp := d.Exponent(); exp < 0 {
		den = pow10(uint(-exp))
	} else if exp > 0 {
		num.Mul(num, pow10(uint(exp)))
	}
	return Ratio{Num: num, Den: den}
}

// Fold multiplies amount through hops in order. Forward hops multiply by the
// rate, reverse hops divide by it. The result is exact; nothing is truncated.
func Fold(amount Ratio, hops []Hop) Ratio {
	num := new(big.Int).Set(amount.Num)
	den := new(big.Int).Set(amount.Den)

	for _, h := range hops {
		scale := pow10(uint(h.Rate.Scale))
		if h.Forward {
			num.Mul(num, h.Rate.Mantissa)
			den.Mul(den, scale)
		} else {
			num.Mul(num, scale)
			den.Mul(den, h.Rate.Mantissa)
		}
	}
	return Ratio{Num: num, Den: den}
}

// HopsFor zips a path with its resolved rates.
func HopsFor(path domain.Path, rates []domain.Rate) []Hop {
	hops := make([]Hop, len(path))
	for i, edge := range path {
		hops[i] = Hop{Rate: rates[i], Forward: edge.Forward}
	}
	return hops
}

func pow10(n uint) *big.Int {
	return new(big.Int).Exp(ten, new(big.Int).SetUint64(uint64(n)), nil)
}
