package blockchain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

const priceFeedABI = `[
	{"inputs":[],"name":"price","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

// USDCRate reads the USDC/ETH rate from the price feed in the feed's own
// fixed-point scale.
func (c *Client) USDCRate(ctx context.Context, feed common.Address) (*big.Int, error) {
	var out []any
	err := c.call(ctx, func(ctx context.Context, client *ethclient.Client) error {
		contract := bind.NewBoundContract(feed, c.oracleABI, client, client, client)
		return contract.Call(&bind.CallOpts{Context: ctx}, &out, "price")
	})
	if err != nil {
		return nil, fmt.Errorf("price on %s: %w", feed.Hex(), err)
	}
	return out[0].(*big.Int), nil
}
