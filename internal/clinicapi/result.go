package clinicapi

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Result is the outcome of a collection fetch.  Data is never nil; on
// failure it is empty and Err says why, so a view can tell "empty" from
// "failed to load" while still rendering the empty state.
type Result[T any] struct {
	Data T
	Err  error
}

// Failed reports whether the fetch failed.
func (r Result[T]) Failed() bool { return r.Err != nil }

func fetchList[T any](ctx context.Context, c *Client, op, path string, creds Credentials) Result[[]T] {
	_, env, err := c.do(ctx, op, http.MethodGet, path, creds, nil)
	if err != nil {
		return failed[T](c, op, err)
	}
	return decodeList[T](c, op, env.Data)
}

// cachedList is fetchList with the search cache in front.  Only successful
// envelopes are cached.
func cachedList[T any](ctx context.Context, c *Client, op, path string, creds Credentials) Result[[]T] {
	if data, ok := c.cache.Get(ctx, path); ok {
		return decodeList[T](c, op, data)
	}
	_, env, err := c.do(ctx, op, http.MethodGet, path, creds, nil)
	if err != nil {
		return failed[T](c, op, err)
	}
	res := decodeList[T](c, op, env.Data)
	if !res.Failed() {
		c.cache.Set(ctx, path, env.Data)
	}
	return res
}

func decodeList[T any](c *Client, op string, data json.RawMessage) Result[[]T] {
	items := []T{}
	if len(data) == 0 || string(data) == "null" {
		return Result[[]T]{Data: items}
	}
	if err := json.Unmarshal(data, &items); err != nil {
		return failed[T](c, op, &Error{Kind: ErrDecode, Op: op, Cause: err})
	}
	return Result[[]T]{Data: items}
}

func failed[T any](c *Client, op string, err error) Result[[]T] {
	c.log.Warn("clinic api fetch failed", zap.String("op", op), zap.Error(err))
	return Result[[]T]{Data: []T{}, Err: err}
}
