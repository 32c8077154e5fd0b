package assets

import "math/big"

// usdcToWeiScale is 10^23: six USDC decimals lifted to eighteen, times the
// oracle's fixed-point scale.
var usdcToWeiScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(23), nil)

// USDCToETH converts USDC base units into a wei-equivalent amount using the
// oracle rate. It reports false when no usable rate is available.
func USDCToETH(usdc, rate *big.Int) (*big.Int, bool) {
	if usdc == nil || rate == nil || rate.Sign() <= 0 {
		return nil, false
	}
	wei := new(big.Int).Mul(usdc, usdcToWeiScale)
	return wei.Quo(wei, rate), true
}
