package pipeline

import (
	"context"
	"errors"
	"maps"

	"github.com/jonwraymond/toolpipe/auth"
	"github.com/jonwraymond/toolpipe/cache"
)

// uncachedResult carries an error-flagged result through the cache as an
// executor error so that it is returned but never stored.
type uncachedResult struct {
	res *Result
}

func (u *uncachedResult) Error() string {
	return "pipeline: error result not cached"
}

// CacheStage wraps next so that results are memoized in c, keyed by tool
// name and arguments. Credential arguments are not part of the key.
// Requests with non-object arguments and error-flagged results bypass the
// cache. Callers always receive their own copy of a cached result.
func CacheStage(c *cache.ResultCache[*Result], next Handler) Handler {
	return func(ctx context.Context, req *Request) (*Result, error) {
		args, ok := req.ArgumentsMap()
		if !ok {
			return next(ctx, req)
		}

		res, err := c.Execute(ctx, req.Name, cacheParams(args), func(ctx context.Context, _ map[string]any) (*Result, error) {
			res, err := next(ctx, req)
			if err != nil {
				return nil, err
			}
			if res == nil {
				res = &Result{}
			}
			if res.IsError {
				return nil, &uncachedResult{res: res}
			}
			return res, nil
		})
		if err != nil {
			var u *uncachedResult
			if errors.As(err, &u) {
				return u.res, nil
			}
			return nil, err
		}
		return res.Clone(), nil
	}
}

// cacheParams drops credential arguments from args.
func cacheParams(args map[string]any) map[string]any {
	_, hasKey := args[auth.ArgAPIKey]
	_, hasToken := args[auth.ArgJWTToken]
	if !hasKey && !hasToken {
		return args
	}
	params := maps.Clone(args)
	delete(params, auth.ArgAPIKey)
	delete(params, auth.ArgJWTToken)
	return params
}
