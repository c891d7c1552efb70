package evm

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/poh-analytics/pohx/pkg/retry"
	"go.uber.org/zap"
)

// Lazy is a Client dialed on first use. A failed dial is attempted again on the next call.
type Lazy struct {
	logger *zap.Logger
	url    string
	cfg    retry.Config

	mu     sync.Mutex
	client *Client
}

func NewLazy(logger *zap.Logger, url string, cfg retry.Config) *Lazy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lazy{logger: logger, url: url, cfg: cfg}
}

// Connect returns the dialed client, dialing it if needed.
func (l *Lazy) Connect(ctx context.Context) (*Client, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.client != nil {
		return l.client, nil
	}
	c, err := Dial(ctx, l.logger, l.url, l.cfg)
	if err != nil {
		return nil, err
	}
	l.client = c
	return c, nil
}

func (l *Lazy) BlockNumber(ctx context.Context) (uint64, error) {
	c, err := l.Connect(ctx)
	if err != nil {
		return 0, err
	}
	return c.BlockNumber(ctx)
}

func (l *Lazy) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	c, err := l.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return c.FilterLogs(ctx, q)
}

func (l *Lazy) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, error) {
	c, err := l.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return c.TransactionByHash(ctx, hash)
}

func (l *Lazy) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.client != nil {
		l.client.Close()
		l.client = nil
	}
}
