package subgraph

import (
	"reflect"
	"strings"
)

// QueryError carries every message of a GraphQL error response. The graphql
// client reports only the first one through Error.
type QueryError struct {
	Messages []string
	err      error
}

func (e *QueryError) Error() string { return strings.Join(e.Messages, "; ") }

func (e *QueryError) Unwrap() error { return e.err }

// wrapQueryError lifts the message list out of the graphql client's error
// slice. Transport and decoding errors are returned unchanged.
func wrapQueryError(err error) error {
	if err == nil {
		return nil
	}
	v := reflect.ValueOf(err)
	if v.Kind() != reflect.Slice || v.Len() == 0 {
		return err
	}
	msgs := make([]string, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		el := v.Index(i)
		if el.Kind() != reflect.Struct {
			return err
		}
		m := el.FieldByName("Message")
		if !m.IsValid() || m.Kind() != reflect.String {
			return err
		}
		msgs = append(msgs, m.String())
	}
	return &QueryError{Messages: msgs, err: err}
}
