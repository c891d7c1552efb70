package analytics_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/poh-analytics/pohx/pkg/analytics"
	"github.com/poh-analytics/pohx/pkg/chains"
	"github.com/poh-analytics/pohx/pkg/subgraph"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// statusCode makes the fake answer with a bare HTTP status.
type statusCode int

type fakeSubgraph struct {
	server   *httptest.Server
	requests atomic.Int32
}

func newFakeSubgraph(t *testing.T, answer func(req gqlRequest) any) *fakeSubgraph {
	t.Helper()
	f := &fakeSubgraph{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		var req gqlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		res := answer(req)
		if code, ok := res.(statusCode); ok {
			w.WriteHeader(int(code))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(res)
	}))
	t.Cleanup(f.server.Close)
	return f
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

func entities(ids ...string) []map[string]any {
	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, map[string]any{"id": id})
	}
	return out
}

// newService wires a service whose ethereum and gnosis chains point at the given fakes.
func newService(t *testing.T, eth, gno *fakeSubgraph) *analytics.Service {
	t.Helper()
	var entries []chains.Chain
	if eth != nil {
		entries = append(entries, chains.Chain{
			ID:          chains.Ethereum,
			Name:        "Ethereum",
			SubgraphURL: eth.server.URL,
			Features:    chains.Features{LegacyRequests: true, OutTransfers: true},
		})
	}
	if gno != nil {
		entries = append(entries, chains.Chain{
			ID:          chains.Gnosis,
			Name:        "Gnosis Chain",
			SubgraphURL: gno.server.URL,
			Features:    chains.Features{TracksCredits: true},
		})
	}
	require.NotEmpty(t, entries)

	logger := zaptest.NewLogger(t)
	return analytics.NewService(
		logger,
		chains.NewRegistryFrom(entries...),
		subgraph.NewHTTPFactory(nil, 0),
		subgraph.NewResolver(logger),
	)
}
