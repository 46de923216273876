// Package assets holds the registry of asset codes the service advertises.
// The converter does not consult it.
package assets

import (
	"slices"

	"github.com/alanyoungcy/feedconv/internal/domain"
)

var supported = []domain.AssetCode{
	"USD",
	"ETH",
	"BTC",
	"LINK",
	"XAU",
	"SNX",
	"DAI",
	"COMP",
	"DASH",
	"AUD",
	"LTC",
	"GBP",
	"ETC",
	"BCH",
	"XRP",
	"EOS",
	"XAG",
	"KNC",
	"SDEFI",
	"FIL",
	"MCAP",
	"XMR",
	"BNT",
	"SXP",
	"TRX",
	"N225",
	"UNI",
	"XTZ",
	"DOT",
	"JPY",
	"EUR",
	"BNB",
	"OXT",
	"ADX",
	"YFI",
	"SCEX",
	"REN",
	"FNX",
	"BRENT",
	"AAVE",
	"FTSE",
	"CHF",
	"ADA",
	"USDC",
	"USDT",
	"SUSD",
	"TUSD",
	"ZRX",
	"BAT",
	"LRC",
	"MKR",
	"MANA",
	"BUSD",
	"REP",
	"ENJ",
	"CRV",
	"PAX",
	"XDR",
	"CRO",
	"DMG",
	"RCN",
	"BZRX",
	"WOM",
}

// List returns the supported asset codes in registry order.
func List() []domain.AssetCode {
	return slices.Clone(supported)
}

