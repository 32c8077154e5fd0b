package assets

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	ethDecimals  = 18
	usdcDecimals = 6

	ethPlaces  = 2
	usdcPlaces = 3
)

var printer = message.NewPrinter(language.English)

// FormatEth renders wei with two decimals and thousands separators.
func FormatEth(wei *big.Int) string {
	if wei == nil {
		return ""
	}
	return groupDecimal(decimal.NewFromBigInt(wei, -ethDecimals), ethPlaces, false)
}

// FormatUSDC renders USDC base units as a grouped amount with up to three
// decimals, trailing zeros dropped.
func FormatUSDC(units *big.Int) string {
	if units == nil {
		return ""
	}
	return groupDecimal(decimal.NewFromBigInt(units, -usdcDecimals), usdcPlaces, true)
}

// ETHHint returns the ETH equivalent of a USDC amount as " (Ξ x.xx)", or
// an empty string when the oracle rate is unknown.
func ETHHint(units, rate *big.Int) string {
	wei, ok := USDCToETH(units, rate)
	if !ok {
		return ""
	}
	return " (Ξ " + FormatEth(wei) + ")"
}

// FormatNouns renders a Nouns amount as a plain count.
func FormatNouns(a Amount) string {
	if len(a.TokenIDs) > 0 {
		return strconv.Itoa(len(a.TokenIDs))
	}
	if a.Value == nil {
		return "0"
	}
	return a.Value.String()
}

// Render formats a merged amount with its symbol. It panics with an
// UnhandledCurrencyError for a currency it does not know.
func Render(a Amount) string {
	switch {
	case a.Currency.IsEthFamily():
		return FormatEth(a.Value) + " " + a.Currency.Symbol()
	case a.Currency == USDC:
		return FormatUSDC(a.Value) + " " + a.Currency.Symbol()
	case a.Currency == Nouns:
		return FormatNouns(a) + " " + a.Currency.Symbol()
	}
	panic(UnhandledCurrencyError{Currency: a.Currency})
}

func groupDecimal(d decimal.Decimal, places int32, trimZeros bool) string {
	r := d.Round(places)
	negative := r.Sign() < 0
	r = r.Abs()

	whole := r.Truncate(0)
	frac := r.Sub(whole).StringFixed(places)
	digits := ""
	if i := strings.IndexByte(frac, '.'); i >= 0 {
		digits = frac[i+1:]
	}
	if trimZeros {
		digits = strings.TrimRight(digits, "0")
	}

	s := printer.Sprintf("%d", whole.IntPart())
	if digits != "" {
		s += "." + digits
	}
	if negative {
		s = "-" + s
	}
	return s
}
