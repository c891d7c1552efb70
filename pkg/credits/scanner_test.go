package credits_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/poh-analytics/pohx/pkg/config"
	"github.com/poh-analytics/pohx/pkg/credits"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	token   = common.HexToAddress("0xEDd48e43EBd4E2b31238a5CBA8FD548fC051aCAF")
	manager = common.HexToAddress("0xB29D0C9875D93483891c0645fdC13D665a4d2D70")
)

type fakeReader struct {
	head    uint64
	logs    []types.Log
	txs     map[common.Hash]*types.Transaction
	failing map[common.Hash]bool
	logErr  error

	mu      sync.Mutex
	ranges  [][2]uint64
	lookups atomic.Int32
}

func (f *fakeReader) BlockNumber(context.Context) (uint64, error) { return f.head, nil }

func (f *fakeReader) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	from, to := q.FromBlock.Uint64(), q.ToBlock.Uint64()
	f.mu.Lock()
	f.ranges = append(f.ranges, [2]uint64{from, to})
	f.mu.Unlock()
	if f.logErr != nil {
		return nil, f.logErr
	}

	var out []types.Log
	for _, l := range f.logs {
		if l.BlockNumber < from || l.BlockNumber > to {
			continue
		}
		if len(q.Addresses) > 0 && l.Address != q.Addresses[0] {
			continue
		}
		if l.Topics[0] != q.Topics[0][0] || l.Topics[2] != q.Topics[2][0] {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (f *fakeReader) TransactionByHash(_ context.Context, hash common.Hash) (*types.Transaction, error) {
	f.lookups.Add(1)
	if f.failing[hash] {
		return nil, errors.New("rate limited")
	}
	return f.txs[hash], nil
}

type fakeActive struct {
	active map[string]struct{}
	asked  []string
}

func (f *fakeActive) Active(_ context.Context, wallets []string) (map[string]struct{}, error) {
	f.asked = append([]string(nil), wallets...)
	out := make(map[string]struct{})
	for _, w := range wallets {
		if _, ok := f.active[w]; ok {
			out[w] = struct{}{}
		}
	}
	return out, nil
}

func burn(block uint64, tx common.Hash, from common.Address) types.Log {
	return types.Log{
		Address:     token,
		Topics:      []common.Hash{credits.TransferTopic, common.BytesToHash(from.Bytes()), {}},
		TxHash:      tx,
		BlockNumber: block,
	}
}

func call(nonce uint64, to common.Address, selector []byte) *types.Transaction {
	data := append(append([]byte(nil), selector...), make([]byte, 32)...)
	return types.NewTx(&types.LegacyTx{Nonce: nonce, To: &to, Data: data})
}

func testConfig() config.CreditsConfig {
	return config.CreditsConfig{
		TokenAddress:    token.Hex(),
		ManagerAddress:  manager.Hex(),
		DeploymentBlock: 100,
		ChunkSize:       10,
		TxBatchSize:     2,
	}
}

func lower(a common.Address) string { return strings.ToLower(a.Hex()) }

func scenario() (*fakeReader, *fakeActive, map[string]common.Address) {
	w := map[string]common.Address{
		"a": common.HexToAddress("0x00000000000000000000000000000000000000Aa"),
		"b": common.HexToAddress("0xBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBbBb"),
		"c": common.HexToAddress("0x000000000000000000000000000000000000000c"),
		"d": common.HexToAddress("0x000000000000000000000000000000000000000d"),
		"e": common.HexToAddress("0x000000000000000000000000000000000000000e"),
		"f": common.HexToAddress("0x000000000000000000000000000000000000000f"),
		"g": common.HexToAddress("0x0000000000000000000000000000000000000011"),
	}
	other := common.HexToAddress("0x0000000000000000000000000000000000000bad")
	h := func(n int) common.Hash { return common.HexToHash(fmt.Sprintf("0x%02x", n)) }

	reader := &fakeReader{
		head: 135,
		logs: []types.Log{
			burn(101, h(1), w["a"]),
			burn(101, h(1), w["a"]),
			burn(125, h(2), w["b"]),
			burn(126, h(3), w["c"]),
			burn(127, h(4), w["d"]),
			burn(128, h(5), w["e"]),
			burn(129, h(6), w["f"]),
			burn(135, h(7), w["g"]),
			// before deployment: never requested
			burn(99, h(8), w["a"]),
		},
		txs: map[common.Hash]*types.Transaction{
			h(1): call(1, manager, credits.ExecuteSelector),
			h(2): call(2, manager, credits.ExecuteSelector),
			h(3): call(3, manager, []byte{0xde, 0xad, 0xbe, 0xef}),
			h(4): call(4, other, credits.ExecuteSelector),
			h(5): call(5, manager, credits.ExecuteSelector),
			h(7): call(7, manager, credits.ExecuteSelector),
			h(8): call(8, manager, credits.ExecuteSelector),
		},
		failing: map[common.Hash]bool{h(5): true},
	}
	active := &fakeActive{active: map[string]struct{}{lower(w["a"]): {}, lower(w["b"]): {}}}
	return reader, active, w
}

func TestExecuteSelector(t *testing.T) {
	assert.Len(t, credits.ExecuteSelector, 4)
	assert.Equal(t, "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef", credits.TransferTopic.Hex())
}

func TestScanCountsQualifyingBurnsOfActiveWallets(t *testing.T) {
	reader, active, w := scenario()
	scanner, err := credits.NewScanner(zaptest.NewLogger(t), testConfig(), reader, active)
	require.NoError(t, err)

	stats, err := scanner.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, credits.Stats{TotalTradesUsingCredits: 3, UniqueWalletsUsingCredits: 2}, stats)
	assert.Equal(t, [][2]uint64{{100, 109}, {110, 119}, {120, 129}, {130, 135}}, reader.ranges)
	// wallets with a qualifying burn, active or not
	assert.ElementsMatch(t, []string{lower(w["a"]), lower(w["b"]), lower(w["g"])}, active.asked)
	// one lookup per distinct transaction
	assert.EqualValues(t, 7, reader.lookups.Load())
}

func TestScanIsIdempotent(t *testing.T) {
	reader, active, _ := scenario()
	scanner, err := credits.NewScanner(zaptest.NewLogger(t), testConfig(), reader, active)
	require.NoError(t, err)

	first, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	second, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestScanHeadBeforeDeployment(t *testing.T) {
	reader := &fakeReader{head: 50}
	active := &fakeActive{}
	scanner, err := credits.NewScanner(zaptest.NewLogger(t), testConfig(), reader, active)
	require.NoError(t, err)

	stats, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats)
	assert.Empty(t, reader.ranges)
	assert.Empty(t, active.asked)
}

func TestScanFailsOnLogError(t *testing.T) {
	reader := &fakeReader{head: 120, logErr: errors.New("query returned more than 10000 results")}
	scanner, err := credits.NewScanner(zaptest.NewLogger(t), testConfig(), reader, &fakeActive{})
	require.NoError(t, err)

	_, err = scanner.Scan(context.Background())
	require.ErrorContains(t, err, "burn logs 100-109")
}

func TestNewScannerValidatesConfig(t *testing.T) {
	cfg := testConfig()
	cfg.ManagerAddress = "not-an-address"
	_, err := credits.NewScanner(nil, cfg, &fakeReader{}, &fakeActive{})
	require.Error(t, err)

	cfg = testConfig()
	cfg.ChunkSize = 0
	_, err = credits.NewScanner(nil, cfg, &fakeReader{}, &fakeActive{})
	require.Error(t, err)
}

// cancellingReader cancels the scan from inside its transaction lookups.
type cancellingReader struct {
	*fakeReader
	cancel context.CancelFunc
}

func (r cancellingReader) TransactionByHash(ctx context.Context, _ common.Hash) (*types.Transaction, error) {
	r.cancel()
	return nil, ctx.Err()
}

func TestScanFailsWhenCancelledDuringLastChunk(t *testing.T) {
	wallet := common.HexToAddress("0x00000000000000000000000000000000000000Aa")
	tx := common.HexToHash("0x01")
	inner := &fakeReader{
		head: 105,
		logs: []types.Log{burn(101, tx, wallet)},
		txs:  map[common.Hash]*types.Transaction{tx: call(1, manager, credits.ExecuteSelector)},
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	active := &fakeActive{}

	s, err := credits.NewScanner(zaptest.NewLogger(t), testConfig(), cancellingReader{fakeReader: inner, cancel: cancel}, active)
	require.NoError(t, err)

	stats, err := s.Scan(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stats)
	assert.Nil(t, active.asked, "identities are not consulted for a partial scan")
}
