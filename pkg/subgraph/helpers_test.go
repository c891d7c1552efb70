package subgraph_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/poh-analytics/pohx/pkg/chains"
	"github.com/poh-analytics/pohx/pkg/subgraph"
	"github.com/stretchr/testify/require"
)

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type fakeSubgraph struct {
	server   *httptest.Server
	requests atomic.Int32
}

// newFakeSubgraph serves GraphQL requests with answer, which returns the JSON body to write.
func newFakeSubgraph(t *testing.T, answer func(req gqlRequest) any) *fakeSubgraph {
	t.Helper()
	f := &fakeSubgraph{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		var req gqlRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(answer(req))
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeSubgraph) client(id chains.ChainID) subgraph.Client {
	factory := subgraph.NewHTTPFactory(f.server.Client(), 0)
	return factory.NewClient(chains.Chain{ID: id, SubgraphURL: f.server.URL})
}

func data(v any) map[string]any {
	return map[string]any{"data": v}
}

func gqlError(msg string) map[string]any {
	return map[string]any{
		"data":   nil,
		"errors": []map[string]any{{"message": msg}},
	}
}

// requested keeps only the fields named in query; the decoder rejects unknown fields.
func requested(query string, fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if strings.Contains(query, k) {
			out[k] = v
		}
	}
	return out
}
