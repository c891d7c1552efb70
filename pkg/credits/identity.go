package credits

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/poh-analytics/pohx/pkg/subgraph"
	"github.com/puzpuzpuz/xsync/v4"
	"golang.org/x/sync/errgroup"
)

// DefaultIdentityBatch is how many wallet ids go into one id_in filter.
const DefaultIdentityBatch = 1000

// IdentityChecker looks wallets up as registration ids on every given subgraph.
// A wallet is active when any chain has a registration for it expiring after now.
type IdentityChecker struct {
	clients []subgraph.Client
	batch   int
	now     func() time.Time
}

func NewIdentityChecker(batch int, clients ...subgraph.Client) *IdentityChecker {
	if batch <= 0 {
		batch = DefaultIdentityBatch
	}
	return &IdentityChecker{clients: clients, batch: batch, now: time.Now}
}

// Active returns the lower-cased subset of wallets with an active registration.
func (c *IdentityChecker) Active(ctx context.Context, wallets []string) (map[string]struct{}, error) {
	active := xsync.NewMap[string, struct{}]()
	if len(wallets) == 0 {
		return map[string]struct{}{}, nil
	}
	now := c.now().Unix()

	for start := 0; start < len(wallets); start += c.batch {
		ids := wallets[start:min(start+c.batch, len(wallets))]

		g, gctx := errgroup.WithContext(ctx)
		for _, client := range c.clients {
			g.Go(func() error {
				pager := subgraph.CursorPager(subgraph.PageSize, subgraph.HexCursorStart, subgraph.EntityID,
					func(ctx context.Context, cursor string) ([]subgraph.Entity, error) {
						return subgraph.QueryActiveRegistrations(ctx, client, ids, now, cursor)
					})
				err := pager.Walk(gctx, func(page []subgraph.Entity) error {
					for _, r := range page {
						active.Store(strings.ToLower(r.ID), struct{}{})
					}
					return nil
				})
				if err != nil {
					return fmt.Errorf("%s: %w", client.Chain().ID, err)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	out := make(map[string]struct{}, active.Size())
	active.Range(func(k string, _ struct{}) bool {
		out[k] = struct{}{}
		return true
	})
	return out, nil
}
