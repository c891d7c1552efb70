package subgraph

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/poh-analytics/pohx/pkg/metrics"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"
)

// ErrorClassifier decides whether a failed query failed because the deployed
// schema lacks a field. Swapping the implementation (e.g. for an introspection
// probe) does not touch any call site.
type ErrorClassifier interface {
	MissingField(err error) (field string, ok bool)
}

var missingFieldPattern = regexp.MustCompile("no field `([A-Za-z0-9_]+)`")

// MessageClassifier matches the graph-node validation message "Type `X` has no field `y`"
// against every message of the response.
type MessageClassifier struct{}

func (MessageClassifier) MissingField(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	msgs := []string{err.Error()}
	var qe *QueryError
	if errors.As(err, &qe) {
		msgs = qe.Messages
	}
	for _, msg := range msgs {
		if m := missingFieldPattern.FindStringSubmatch(msg); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// OptionalFields are the counters added after launch; a deployment missing any of
// them is still served with the legacy documents.
var OptionalFields = []string{
	"registrationsPending",
	"registrationsBridged",
	"registrationsTransferredOut",
	"registrationsWithdrawn",
	"renewalsSubmitted",
	"airdropClaims",
	"seerCreditsBuys",
	"seerCreditsUsers",
}

// DefaultRecheck is how long a key stays pinned to its fallback before the full document is tried again.
const DefaultRecheck = time.Hour

// Resolver retries a query once with a reduced document when the primary one hits
// a missing optional field, and remembers per key that the endpoint needs the
// reduced document.
type Resolver struct {
	logger     *zap.Logger
	classifier ErrorClassifier
	optional   map[string]struct{}
	recheck    time.Duration
	reduced    *xsync.Map[string, time.Time]
	now        func() time.Time
}

// ResolverOption customises a Resolver.
type ResolverOption func(*Resolver)

// WithClassifier replaces the default message classifier.
func WithClassifier(c ErrorClassifier) ResolverOption {
	return func(r *Resolver) { r.classifier = c }
}

// WithRecheck sets how long a key is pinned to the fallback. Zero disables pinning.
func WithRecheck(d time.Duration) ResolverOption {
	return func(r *Resolver) { r.recheck = d }
}

// WithOptionalFields replaces the set of fields whose absence triggers the fallback.
func WithOptionalFields(fields ...string) ResolverOption {
	return func(r *Resolver) {
		r.optional = make(map[string]struct{}, len(fields))
		for _, f := range fields {
			r.optional[f] = struct{}{}
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) { r.now = now }
}

// NewResolver returns a Resolver using MessageClassifier and OptionalFields.
func NewResolver(logger *zap.Logger, opts ...ResolverOption) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Resolver{
		logger:     logger,
		classifier: MessageClassifier{},
		recheck:    DefaultRecheck,
		reduced:    xsync.NewMap[string, time.Time](),
		now:        time.Now,
	}
	WithOptionalFields(OptionalFields...)(r)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Pinned reports whether key currently goes straight to its fallback.
func (r *Resolver) Pinned(key string) bool {
	if r.recheck <= 0 {
		return false
	}
	since, ok := r.reduced.Load(key)
	if !ok {
		return false
	}
	if r.now().Sub(since) >= r.recheck {
		r.reduced.Delete(key)
		return false
	}
	return true
}

// Forget drops the remembered fallback for key. Resolve calls it when a pinned
// fallback fails, so the next call tries the full document again.
func (r *Resolver) Forget(key string) {
	r.reduced.Delete(key)
}

// Key builds the capability key for a query against an endpoint.
func Key(c Client, query string) string {
	return c.Chain().SubgraphURL + "|" + query
}

// Resolve runs primary and, on a missing optional field, fallback exactly once.
// Every other error is returned unchanged.
func Resolve[T any](ctx context.Context, r *Resolver, key string, primary, fallback func(context.Context) (T, error)) (T, error) {
	if r.Pinned(key) {
		out, err := fallback(ctx)
		if err != nil {
			r.Forget(key)
		}
		return out, err
	}

	res, err := primary(ctx)
	if err == nil {
		return res, nil
	}

	field, ok := r.classifier.MissingField(err)
	if !ok {
		return res, err
	}
	if _, optional := r.optional[field]; !optional {
		return res, err
	}

	r.logger.Warn("Upstream schema is missing an optional field, retrying with reduced document",
		zap.String("key", key),
		zap.String("field", field),
		zap.Error(err))

	out, fbErr := fallback(ctx)
	if fbErr != nil {
		return out, fbErr
	}

	r.reduced.Store(key, r.now())
	metrics.SchemaFallbacks.WithLabelValues(key, field).Inc()
	return out, nil
}
