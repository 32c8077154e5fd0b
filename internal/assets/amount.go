package assets

import (
	"math/big"
	"slices"
)

// Amount is a quantity of one currency. Value is expressed in the token's
// smallest unit; for Nouns it is the number of TokenIDs.
type Amount struct {
	Currency Currency
	Value    *big.Int
	TokenIDs []string
}

// NewAmount builds a fungible amount.
func NewAmount(c Currency, value *big.Int) Amount {
	return Amount{Currency: c, Value: new(big.Int).Set(value)}
}

// NewNounsAmount builds a Nouns amount from token ids.
func NewNounsAmount(ids ...string) Amount {
	return Amount{
		Currency: Nouns,
		Value:    big.NewInt(int64(len(ids))),
		TokenIDs: slices.Clone(ids),
	}
}

// Merge sums amounts sharing a currency. The order of first appearance is
// kept and the inputs are left untouched.
func Merge(amounts []Amount) []Amount {
	return mergeBy(amounts, func(c Currency) Currency { return c })
}

// MergeDeployed is Merge with every eth-family currency folded into a single
// ETH bucket, as used for the assets deployed totals.
func MergeDeployed(amounts []Amount) []Amount {
	return mergeBy(amounts, func(c Currency) Currency {
		if c.IsEthFamily() {
			return ETH
		}
		return c
	})
}

func mergeBy(amounts []Amount, bucket func(Currency) Currency) []Amount {
	index := make(map[Currency]int)
	var merged []Amount

	for _, a := range amounts {
		key := bucket(a.Currency)
		i, ok := index[key]
		if !ok {
			index[key] = len(merged)
			merged = append(merged, Amount{Currency: key, Value: new(big.Int)})
			i = len(merged) - 1
		}
		if a.Value != nil {
			merged[i].Value.Add(merged[i].Value, a.Value)
		}
		if len(a.TokenIDs) > 0 {
			merged[i].TokenIDs = append(merged[i].TokenIDs, a.TokenIDs...)
		}
	}

	return merged
}
