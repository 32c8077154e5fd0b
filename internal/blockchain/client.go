// Package blockchain reads balances and oracle prices over JSON-RPC with
// endpoint failover, retries and client-side throttling.
package blockchain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/time/rate"
)

const (
	rpcTimeout    = 10 * time.Second
	maxRetries    = 3
	retryInterval = 500 * time.Millisecond
)

// Client wraps Ethereum RPC client functionality with failover support
type Client struct {
	failover  *FailoverClient
	limiter   *rate.Limiter
	erc20ABI  abi.ABI
	oracleABI abi.ABI
}

// NewClient creates a blockchain client. requestsPerSecond <= 0 disables
// throttling.
func NewClient(rpcURLs []string, requestsPerSecond float64) (*Client, error) {
	failover, err := NewFailoverClient(rpcURLs)
	if err != nil {
		return nil, err
	}

	erc20, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		failover.Close()
		return nil, fmt.Errorf("failed to parse ERC20 ABI: %w", err)
	}
	oracle, err := abi.JSON(strings.NewReader(priceFeedABI))
	if err != nil {
		failover.Close()
		return nil, fmt.Errorf("failed to parse price feed ABI: %w", err)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if requestsPerSecond > 0 {
		burst := int(requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}

	return &Client{
		failover:  failover,
		limiter:   limiter,
		erc20ABI:  erc20,
		oracleABI: oracle,
	}, nil
}

// Close closes all RPC client connections
func (c *Client) Close() {
	c.failover.Close()
}

// ChainID returns the chain the endpoints serve
func (c *Client) ChainID() *big.Int {
	return c.failover.ChainID()
}

// Probe checks that the endpoint currently in use answers, marking it
// unhealthy when it does not
func (c *Client) Probe(ctx context.Context) (string, error) {
	client, url, err := c.failover.GetClient()
	if err != nil {
		return "", err
	}
	if _, err := client.ChainID(ctx); err != nil {
		c.failover.MarkUnhealthy(url, err)
		return url, fmt.Errorf("endpoint %s not responding: %w", url, err)
	}
	return url, nil
}

// GetEndpointsHealth reports health per endpoint URL
func (c *Client) GetEndpointsHealth() map[string]bool {
	return c.failover.EndpointsHealth()
}

// call runs fn against a healthy endpoint, retrying with exponential
// backoff and failing over after every error
func (c *Client) call(ctx context.Context, fn func(ctx context.Context, client *ethclient.Client) error) error {
	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	var lastErr error
	for attempt := range maxRetries {
		if attempt > 0 {
			backoff := retryInterval * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		client, url, err := c.failover.GetClient()
		if err != nil {
			lastErr = err
			continue
		}

		if err := fn(ctx, client); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			c.failover.MarkUnhealthy(url, err)
			continue
		}
		return nil
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}
