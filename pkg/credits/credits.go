// Package credits derives how many trades were paid with seer credits by wallets
// holding an active proof-of-humanity registration.
//
// The metric cannot be read from the subgraphs: it is rebuilt from the credit
// token's burn logs, each burn resolved to its transaction and kept only when the
// transaction calls the credits manager's execute method.
package credits

import (
	"context"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// ExecuteSignature is the credits manager method a burn must come from.
const ExecuteSignature = "execute(address,bytes,uint256,address)"

var (
	// ExecuteSelector is the 4-byte selector of ExecuteSignature.
	ExecuteSelector = crypto.Keccak256([]byte(ExecuteSignature))[:4]
	// TransferTopic is the ERC-20 Transfer event signature hash.
	TransferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
)

// Stats is the credit usage restricted to wallets with an active registration.
type Stats struct {
	TotalTradesUsingCredits   int `json:"totalTradesUsingCredits"`
	UniqueWalletsUsingCredits int `json:"uniqueWalletsUsingCredits"`
}

// ChainReader is the slice of an EVM node the scan needs. TransactionByHash
// returns a nil transaction without error when the node does not know the hash.
type ChainReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, error)
}

// ActiveSet resolves which wallets currently hold an active registration.
type ActiveSet interface {
	Active(ctx context.Context, wallets []string) (map[string]struct{}, error)
}

// CacheStore persists JSON documents. GetJSON reports found=false for absent keys.
type CacheStore interface {
	GetJSON(ctx context.Context, key string, dst any) (found bool, err error)
	SetJSON(ctx context.Context, key string, v any) error
}
