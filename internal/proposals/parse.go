// Package proposals extracts the assets a proposal transfers out of the
// treasury from its raw transactions.
package proposals

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/matrixise/nouns-dashboard/internal/assets"
)

const (
	sigTransfer           = "transfer(address,uint256)"
	sigTransferFrom       = "transferFrom(address,address,uint256)"
	sigSafeTransferFrom   = "safeTransferFrom(address,address,uint256)"
	sigSendOrRegisterDebt = "sendOrRegisterDebt(address,uint256)"
)

var (
	addressType, _ = abi.NewType("address", "", nil)
	uint256Type, _ = abi.NewType("uint256", "", nil)

	recipientAmountArgs = abi.Arguments{{Type: addressType}, {Type: uint256Type}}
	fromToTokenArgs     = abi.Arguments{{Type: addressType}, {Type: addressType}, {Type: uint256Type}}
)

// Transaction is one action of a proposal.
type Transaction struct {
	Target    common.Address
	Value     *big.Int
	Signature string
	Calldata  []byte
}

// Contracts are the addresses whose calls move treasury assets.
type Contracts struct {
	Payer      common.Address
	NounsToken common.Address
	USDC       common.Address
	Tokens     map[common.Address]assets.Currency // eth-family ERC20s
}

// ParseTransactions zips the parallel arrays a proposal is stored as.
func ParseTransactions(targets, values, signatures, calldatas []string) ([]Transaction, error) {
	n := len(targets)
	if len(values) != n || len(signatures) != n || len(calldatas) != n {
		return nil, fmt.Errorf("mismatched action arrays: %d targets, %d values, %d signatures, %d calldatas",
			n, len(values), len(signatures), len(calldatas))
	}

	txs := make([]Transaction, n)
	for i := range n {
		if !common.IsHexAddress(targets[i]) {
			return nil, fmt.Errorf("action %d: invalid target %q", i, targets[i])
		}
		value, ok := new(big.Int).SetString(values[i], 10)
		if !ok {
			return nil, fmt.Errorf("action %d: invalid value %q", i, values[i])
		}
		var data []byte
		if cd := strings.TrimSpace(calldatas[i]); cd != "" && cd != "0x" {
			var err error
			if data, err = hexutil.Decode(cd); err != nil {
				return nil, fmt.Errorf("action %d: invalid calldata: %w", i, err)
			}
		}
		txs[i] = Transaction{
			Target:    common.HexToAddress(targets[i]),
			Value:     value,
			Signature: strings.ReplaceAll(signatures[i], " ", ""),
			Calldata:  data,
		}
	}
	return txs, nil
}

// RequestedAssets returns every asset transfer found in txs, unmerged.
// Calls that do not move a known asset are ignored.
func (c Contracts) RequestedAssets(txs []Transaction) ([]assets.Amount, error) {
	var out []assets.Amount
	for i, tx := range txs {
		if tx.Value != nil && tx.Value.Sign() > 0 {
			out = append(out, assets.NewAmount(assets.ETH, tx.Value))
		}

		amount, ok, err := c.decode(tx)
		if err != nil {
			return nil, fmt.Errorf("action %d (%s): %w", i, tx.Signature, err)
		}
		if ok {
			out = append(out, amount)
		}
	}
	return out, nil
}

func (c Contracts) decode(tx Transaction) (assets.Amount, bool, error) {
	switch {
	case tx.Target == c.Payer && tx.Signature == sigSendOrRegisterDebt:
		_, amount, err := unpackRecipientAmount(tx.Calldata)
		if err != nil {
			return assets.Amount{}, false, err
		}
		return assets.NewAmount(assets.USDC, amount), true, nil

	case tx.Target == c.USDC && tx.Signature == sigTransfer:
		_, amount, err := unpackRecipientAmount(tx.Calldata)
		if err != nil {
			return assets.Amount{}, false, err
		}
		return assets.NewAmount(assets.USDC, amount), true, nil

	case tx.Target == c.NounsToken && (tx.Signature == sigTransferFrom || tx.Signature == sigSafeTransferFrom):
		values, err := fromToTokenArgs.Unpack(tx.Calldata)
		if err != nil {
			return assets.Amount{}, false, err
		}
		return assets.NewNounsAmount(values[2].(*big.Int).String()), true, nil
	}

	if currency, ok := c.Tokens[tx.Target]; ok && tx.Signature == sigTransfer {
		_, amount, err := unpackRecipientAmount(tx.Calldata)
		if err != nil {
			return assets.Amount{}, false, err
		}
		return assets.NewAmount(currency, amount), true, nil
	}

	return assets.Amount{}, false, nil
}

func unpackRecipientAmount(data []byte) (common.Address, *big.Int, error) {
	values, err := recipientAmountArgs.Unpack(data)
	if err != nil {
		return common.Address{}, nil, err
	}
	return values[0].(common.Address), values[1].(*big.Int), nil
}
