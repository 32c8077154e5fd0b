package blockchain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

const erc20ABI = `[
	{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"}
]`

// TokenBalance reads balanceOf(holder) on an ERC20 or ERC721 contract.
func (c *Client) TokenBalance(ctx context.Context, token, holder common.Address) (*big.Int, error) {
	var out []any
	err := c.call(ctx, func(ctx context.Context, client *ethclient.Client) error {
		contract := bind.NewBoundContract(token, c.erc20ABI, client, client, client)
		return contract.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", holder)
	})
	if err != nil {
		return nil, fmt.Errorf("balanceOf %s on %s: %w", holder.Hex(), token.Hex(), err)
	}
	return out[0].(*big.Int), nil
}

// NativeBalance reads the ether balance of addr at the latest block.
func (c *Client) NativeBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	var balance *big.Int
	err := c.call(ctx, func(ctx context.Context, client *ethclient.Client) error {
		var err error
		balance, err = client.BalanceAt(ctx, addr, nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("balance of %s: %w", addr.Hex(), err)
	}
	return balance, nil
}
