// Package assets models treasury asset amounts and their display rules.
package assets

import "fmt"

// Currency identifies an asset tracked by the treasury views.
type Currency string

const (
	ETH    Currency = "eth"
	STETH  Currency = "steth"
	WETH   Currency = "weth"
	RETH   Currency = "reth"
	WSTETH Currency = "wsteth"
	USDC   Currency = "usdc"
	Nouns  Currency = "nouns"
)

// Currencies lists every known currency in display order.
var Currencies = []Currency{ETH, STETH, WETH, RETH, WSTETH, USDC, Nouns}

// IsEthFamily reports whether c is ether or a token tracking ether.
func (c Currency) IsEthFamily() bool {
	switch c {
	case ETH, STETH, WETH, RETH, WSTETH:
		return true
	}
	return false
}

// Valid reports whether c is a known currency.
func (c Currency) Valid() bool {
	for _, known := range Currencies {
		if c == known {
			return true
		}
	}
	return false
}

// Symbol returns the ticker shown next to formatted amounts.
func (c Currency) Symbol() string {
	switch c {
	case ETH:
		return "ETH"
	case STETH:
		return "stETH"
	case WETH:
		return "WETH"
	case RETH:
		return "rETH"
	case WSTETH:
		return "wstETH"
	case USDC:
		return "USDC"
	case Nouns:
		return "Nouns"
	}
	return string(c)
}

// Decimals returns the number of decimals of the smallest unit. Nouns are
// indivisible.
func (c Currency) Decimals() int32 {
	switch {
	case c.IsEthFamily():
		return ethDecimals
	case c == USDC:
		return usdcDecimals
	}
	return 0
}

// UnhandledCurrencyError is raised (as a panic value) when a render path
// meets a currency outside the enumeration.
type UnhandledCurrencyError struct {
	Currency Currency
}

func (e UnhandledCurrencyError) Error() string {
	return fmt.Sprintf("unhandled currency %q", string(e.Currency))
}
