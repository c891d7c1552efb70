package subgraph

import (
	"context"
	"net/http"
	"reflect"
	"time"

	"github.com/poh-analytics/pohx/pkg/chains"
	"github.com/poh-analytics/pohx/pkg/metrics"
	"github.com/shurcooL/graphql"
)

// Client issues typed GraphQL documents against one chain's subgraph.
type Client interface {
	Query(ctx context.Context, q any, variables map[string]any) error
	Chain() chains.Chain
}

// Factory produces clients bound to a chain's endpoint.
type Factory interface {
	NewClient(chain chains.Chain) Client
}

type httpFactory struct {
	httpClient *http.Client
}

// NewHTTPFactory returns a factory whose clients share httpClient. A nil client gets a default with timeout.
func NewHTTPFactory(httpClient *http.Client, timeout time.Duration) Factory {
	if httpClient == nil {
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &httpFactory{httpClient: httpClient}
}

func (f *httpFactory) NewClient(chain chains.Chain) Client {
	return &graphqlClient{
		chain: chain,
		gql:   graphql.NewClient(chain.SubgraphURL, f.httpClient),
	}
}

type graphqlClient struct {
	chain chains.Chain
	gql   *graphql.Client
}

func (c *graphqlClient) Chain() chains.Chain { return c.chain }

func (c *graphqlClient) Query(ctx context.Context, q any, variables map[string]any) error {
	err := wrapQueryError(c.gql.Query(ctx, q, variables))
	metrics.RecordSubgraphRequest(string(c.chain.ID), queryName(q), err)
	return err
}

// queryName returns the Go type name of a query document, used as a metrics label and capability key.
func queryName(q any) string {
	t := reflect.TypeOf(q)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Name() == "" {
		return "anonymous"
	}
	return t.Name()
}
