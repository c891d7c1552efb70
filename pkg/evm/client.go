// Package evm reads blocks, logs and transactions from an EVM JSON-RPC node.
package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/poh-analytics/pohx/pkg/retry"
	"go.uber.org/zap"
)

// Client adapts ethclient to credits.ChainReader.
type Client struct {
	eth     *ethclient.Client
	chainID *big.Int
}

// Dial connects to url and probes the chain id, retrying per cfg. A node that
// answers the probe with a JSON-RPC error is not retried.
func Dial(ctx context.Context, logger *zap.Logger, url string, cfg retry.Config) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	eth, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	chainID, err := retry.Do(ctx, cfg, logger, "evm chain id", func(ctx context.Context) (*big.Int, error) {
		id, err := eth.ChainID(ctx)
		var rpcErr rpc.Error
		if errors.As(err, &rpcErr) {
			return nil, retry.Permanent(err)
		}
		return id, err
	})
	if err != nil {
		eth.Close()
		return nil, err
	}

	logger.Info("Connected to EVM node", zap.String("url", url), zap.String("chainId", chainID.String()))
	return &Client{eth: eth, chainID: chainID}, nil
}

// ChainID is the id reported by the node when dialed.
func (c *Client) ChainID() *big.Int { return new(big.Int).Set(c.chainID) }

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return c.eth.BlockNumber(ctx)
}

func (c *Client) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	return c.eth.FilterLogs(ctx, q)
}

// TransactionByHash returns nil without error when the node does not know hash.
func (c *Client) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, error) {
	tx, _, err := c.eth.TransactionByHash(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (c *Client) Close() {
	c.eth.Close()
}
