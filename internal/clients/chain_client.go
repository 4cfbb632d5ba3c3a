package clients

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
)

// ChainClient reads the latest block height from the first reachable RPC
// endpoint. The engine only consumes the height; no transactions are sent.
type ChainClient struct {
	endpoints []string
	client    *ethclient.Client
	active    string
}

// NewChainClient dials the first reachable endpoint.
func NewChainClient(endpoints []string) (*ChainClient, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("no RPC endpoints configured")
	}
	c := &ChainClient{endpoints: endpoints}
	if err := c.reconnect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *ChainClient) reconnect() error {
	var lastErr error
	for _, endpoint := range c.endpoints {
		client, err := ethclient.Dial(endpoint)
		if err != nil {
			lastErr = err
			logrus.WithError(err).WithField("endpoint", endpoint).Warn("RPC endpoint unreachable")
			continue
		}
		c.client = client
		c.active = endpoint
		return nil
	}
	return fmt.Errorf("all RPC endpoints unreachable: %w", lastErr)
}

// LatestHeight returns the current block number, failing over to the next
// endpoint once on error.
func (c *ChainClient) LatestHeight(ctx context.Context) (uint64, error) {
	height, err := c.client.BlockNumber(ctx)
	if err == nil {
		return height, nil
	}
	logrus.WithError(err).WithField("endpoint", c.active).Warn("height query failed, rotating endpoint")
	if rerr := c.reconnect(); rerr != nil {
		return 0, rerr
	}
	return c.client.BlockNumber(ctx)
}

// ActiveEndpoint returns the endpoint currently in use.
func (c *ChainClient) ActiveEndpoint() string { return c.active }

// Close releases the underlying connection.
func (c *ChainClient) Close() {
	if c.client != nil {
		c.client.Close()
	}
}
