package blockchain

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
)

const (
	unhealthyDuration  = 5 * time.Minute // Cooldown before retry
	healthCheckTimeout = 5 * time.Second
)

type endpointStatus struct {
	url           string
	client        *ethclient.Client
	healthy       bool
	lastError     error
	lastErrorTime time.Time
	mu            sync.RWMutex
}

// FailoverClient manages multiple RPC endpoints with automatic failover
type FailoverClient struct {
	endpoints    []*endpointStatus
	currentIndex int
	chainID      *big.Int
	mu           sync.RWMutex
}

// NewFailoverClient dials every endpoint and keeps those that answer
// eth_chainId. All healthy endpoints must report the same chain.
func NewFailoverClient(urls []string) (*FailoverClient, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("at least one RPC URL is required")
	}

	fc := &FailoverClient{
		endpoints: make([]*endpointStatus, 0, len(urls)),
	}

	healthyCount := 0
	for _, url := range urls {
		client, chainID, err := dial(url)
		if err == nil && fc.chainID != nil && fc.chainID.Cmp(chainID) != 0 {
			client.Close()
			client = nil
			err = fmt.Errorf("chain id mismatch: got %s, want %s", chainID, fc.chainID)
		}

		fc.endpoints = append(fc.endpoints, &endpointStatus{
			url:           url,
			client:        client,
			healthy:       err == nil,
			lastError:     err,
			lastErrorTime: time.Now(),
		})

		if err != nil {
			slog.Warn("Failed to connect to RPC endpoint, will retry later", "url", url, "error", err)
			continue
		}
		if fc.chainID == nil {
			fc.chainID = chainID
		}
		healthyCount++
		slog.Info("Connected to RPC endpoint", "url", url, "chain_id", chainID)
	}

	if healthyCount == 0 {
		return nil, fmt.Errorf("no healthy RPC endpoints available")
	}

	return fc, nil
}

func dial(url string) (*ethclient.Client, *big.Int, error) {
	client, err := ethclient.Dial(url)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return client, chainID, nil
}

// ChainID returns the chain id reported by the endpoints
func (fc *FailoverClient) ChainID() *big.Int {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return new(big.Int).Set(fc.chainID)
}

// GetClient returns a healthy client, automatically failing over if needed
func (fc *FailoverClient) GetClient() (*ethclient.Client, string, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	start := fc.currentIndex
	for i := 0; i < len(fc.endpoints); i++ {
		idx := (start + i) % len(fc.endpoints)
		ep := fc.endpoints[idx]

		ep.mu.RLock()
		healthy := ep.healthy
		client := ep.client
		canRetry := time.Since(ep.lastErrorTime) > unhealthyDuration
		ep.mu.RUnlock()

		if healthy && client != nil {
			fc.currentIndex = idx
			return client, ep.url, nil
		}

		if !healthy && canRetry {
			newClient, chainID, err := dial(ep.url)
			if err != nil {
				ep.mu.Lock()
				ep.lastError = err
				ep.lastErrorTime = time.Now()
				ep.mu.Unlock()
				continue
			}
			if fc.chainID != nil && chainID.Cmp(fc.chainID) != 0 {
				newClient.Close()
				continue
			}

			ep.mu.Lock()
			ep.client = newClient
			ep.healthy = true
			ep.lastError = nil
			ep.mu.Unlock()

			fc.currentIndex = idx
			slog.Info("Reconnected to RPC endpoint", "url", ep.url)
			return newClient, ep.url, nil
		}
	}

	return nil, "", fmt.Errorf("no healthy RPC endpoints available")
}

// MarkUnhealthy marks an endpoint as unhealthy and closes its connection
func (fc *FailoverClient) MarkUnhealthy(url string, err error) {
	fc.mu.RLock()
	defer fc.mu.RUnlock()

	for _, ep := range fc.endpoints {
		if ep.url != url {
			continue
		}
		ep.mu.Lock()
		ep.healthy = false
		ep.lastError = err
		ep.lastErrorTime = time.Now()
		if ep.client != nil {
			ep.client.Close()
			ep.client = nil
		}
		ep.mu.Unlock()

		slog.Warn("Marked RPC endpoint as unhealthy, will retry after cooldown",
			"url", url,
			"error", err,
			"retry_after", unhealthyDuration)
		return
	}
}

// EndpointsHealth reports the health flag of every endpoint by URL
func (fc *FailoverClient) EndpointsHealth() map[string]bool {
	fc.mu.RLock()
	defer fc.mu.RUnlock()

	health := make(map[string]bool, len(fc.endpoints))
	for _, ep := range fc.endpoints {
		ep.mu.RLock()
		health[ep.url] = ep.healthy
		ep.mu.RUnlock()
	}
	return health
}

// Close closes all endpoint connections
func (fc *FailoverClient) Close() {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	for _, ep := range fc.endpoints {
		ep.mu.Lock()
		if ep.client != nil {
			ep.client.Close()
			ep.client = nil
		}
		ep.mu.Unlock()
	}
}
