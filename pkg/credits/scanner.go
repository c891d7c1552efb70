package credits

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/poh-analytics/pohx/pkg/config"
	"github.com/poh-analytics/pohx/pkg/metrics"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"
)

// Scanner rebuilds Stats from the full burn log history.
type Scanner struct {
	logger     *zap.Logger
	reader     ChainReader
	identities ActiveSet

	token           common.Address
	manager         common.Address
	deploymentBlock uint64
	chunkSize       uint64
	txBatchSize     int
}

func NewScanner(logger *zap.Logger, cfg config.CreditsConfig, reader ChainReader, identities ActiveSet) (*Scanner, error) {
	if !common.IsHexAddress(cfg.TokenAddress) {
		return nil, fmt.Errorf("invalid credit token address %q", cfg.TokenAddress)
	}
	if !common.IsHexAddress(cfg.ManagerAddress) {
		return nil, fmt.Errorf("invalid credits manager address %q", cfg.ManagerAddress)
	}
	if cfg.ChunkSize == 0 || cfg.TxBatchSize <= 0 {
		return nil, errors.New("chunk size and tx batch size must be positive")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{
		logger:          logger,
		reader:          reader,
		identities:      identities,
		token:           common.HexToAddress(cfg.TokenAddress),
		manager:         common.HexToAddress(cfg.ManagerAddress),
		deploymentBlock: cfg.DeploymentBlock,
		chunkSize:       cfg.ChunkSize,
		txBatchSize:     cfg.TxBatchSize,
	}, nil
}

// burnQuery selects Transfer logs of the credit token whose recipient is the zero address.
func (s *Scanner) burnQuery(from, to uint64) ethereum.FilterQuery {
	return ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{s.token},
		Topics: [][]common.Hash{
			{TransferTopic},
			nil,
			{common.BytesToHash(common.Address{}.Bytes())},
		},
	}
}

// Scan walks every chunk from the deployment block to the current head, counts
// qualifying burns per wallet and keeps the wallets that are active right now.
func (s *Scanner) Scan(ctx context.Context) (Stats, error) {
	started := time.Now()

	head, err := s.reader.BlockNumber(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("latest block: %w", err)
	}

	pool := pond.NewPool(s.txBatchSize)
	defer pool.StopAndWait()

	trades := make(map[string]int)
	chunks := 0
	for from := s.deploymentBlock; from <= head; from += s.chunkSize {
		if err := ctx.Err(); err != nil {
			return Stats{}, err
		}
		to := min(from+s.chunkSize-1, head)
		chunks++

		logs, err := s.reader.FilterLogs(ctx, s.burnQuery(from, to))
		if err != nil {
			return Stats{}, fmt.Errorf("burn logs %d-%d: %w", from, to, err)
		}
		if len(logs) == 0 {
			continue
		}

		txs := s.lookupTransactions(ctx, pool, uniqueTxHashes(logs))
		qualified := 0
		for _, l := range logs {
			if l.Removed || len(l.Topics) < 2 {
				continue
			}
			tx, _ := txs.Load(l.TxHash)
			if !s.isExecute(tx) {
				continue
			}
			wallet := strings.ToLower(common.BytesToAddress(l.Topics[1].Bytes()).Hex())
			trades[wallet]++
			qualified++
		}

		s.logger.Debug("Scanned credit burn chunk",
			zap.Uint64("from", from),
			zap.Uint64("to", to),
			zap.Int("logs", len(logs)),
			zap.Int("qualified", qualified))
	}
	// lookups swallow their errors, so a cancellation during the last chunk shows up only here
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}

	wallets := make([]string, 0, len(trades))
	for w := range trades {
		wallets = append(wallets, w)
	}
	sort.Strings(wallets)

	active, err := s.identities.Active(ctx, wallets)
	if err != nil {
		return Stats{}, fmt.Errorf("active identities: %w", err)
	}

	var stats Stats
	for _, w := range wallets {
		if _, ok := active[w]; !ok {
			continue
		}
		stats.TotalTradesUsingCredits += trades[w]
		stats.UniqueWalletsUsingCredits++
	}

	metrics.RecordCreditsScan(started)
	s.logger.Info("Credit usage scan finished",
		zap.Uint64("head", head),
		zap.Int("chunks", chunks),
		zap.Int("wallets", len(wallets)),
		zap.Int("activeWallets", stats.UniqueWalletsUsingCredits),
		zap.Int("trades", stats.TotalTradesUsingCredits),
		zap.Duration("duration", time.Since(started)))
	return stats, nil
}

func uniqueTxHashes(logs []types.Log) []common.Hash {
	seen := make(map[common.Hash]struct{}, len(logs))
	out := make([]common.Hash, 0, len(logs))
	for _, l := range logs {
		if _, ok := seen[l.TxHash]; ok {
			continue
		}
		seen[l.TxHash] = struct{}{}
		out = append(out, l.TxHash)
	}
	return out
}

// lookupTransactions resolves hashes in batches of txBatchSize. A failed lookup
// leaves its hash unresolved, which makes the burn non-qualifying.
func (s *Scanner) lookupTransactions(ctx context.Context, pool pond.Pool, hashes []common.Hash) *xsync.Map[common.Hash, *types.Transaction] {
	txs := xsync.NewMap[common.Hash, *types.Transaction]()

	for start := 0; start < len(hashes); start += s.txBatchSize {
		batch := hashes[start:min(start+s.txBatchSize, len(hashes))]

		group := pool.NewGroupContext(ctx)
		groupCtx := group.Context()
		for _, hash := range batch {
			group.Submit(func() {
				if groupCtx.Err() != nil {
					return
				}
				tx, err := s.reader.TransactionByHash(groupCtx, hash)
				if err != nil {
					metrics.CreditsTxLookupFailures.Inc()
					s.logger.Debug("Transaction lookup failed", zap.String("hash", hash.Hex()), zap.Error(err))
					return
				}
				if tx != nil {
					txs.Store(hash, tx)
				}
			})
		}

		if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
			s.logger.Warn("Transaction lookup batch failed", zap.Error(err))
		}
	}
	return txs
}

// isExecute reports whether tx calls the credits manager's execute method.
func (s *Scanner) isExecute(tx *types.Transaction) bool {
	if tx == nil || tx.To() == nil {
		return false
	}
	if *tx.To() != s.manager {
		return false
	}
	data := tx.Data()
	return len(data) >= len(ExecuteSelector) && bytes.Equal(data[:len(ExecuteSelector)], ExecuteSelector)
}
