package s3vkit

import (
	"context"

	"github.com/hupe1980/s3vkit/model"
)

// RunScoped runs body and then deletes keys from the index, whatever body
// returned and even if it panicked.
//
// The delete runs on a context detached from ctx cancellation and bounded
// by the client's cleanup timeout, so it still happens when ctx is already
// done. A body error always wins: a cleanup failure after a body failure
// is logged and suppressed. A cleanup failure after a successful body is
// returned and matches ErrCleanup. An empty key list skips the delete.
func RunScoped[T any](ctx context.Context, c *Client, desc model.IndexDescriptor, keys []string, body func(context.Context) (T, error)) (T, error) {
	res, err, _ := runScoped(ctx, c, desc, keys, body)
	return res, err
}

// runScoped is RunScoped that also reports the cleanup error on its own.
func runScoped[T any](ctx context.Context, c *Client, desc model.IndexDescriptor, keys []string, body func(context.Context) (T, error)) (res T, err error, cleanupErr error) {
	defer func() {
		r := recover()
		cleanupErr = c.cleanup(ctx, desc, keys)
		if r != nil {
			if cleanupErr != nil {
				c.opts.logger.ErrorContext(ctx, "cleanup failed while recovering from panic", "error", cleanupErr)
			}
			panic(r)
		}
		if cleanupErr == nil {
			return
		}
		if err != nil {
			c.opts.logger.WarnContext(ctx, "cleanup error suppressed by earlier failure",
				"error", cleanupErr,
				"cause", err,
			)
			return
		}
		err = cleanupErr
	}()

	res, err = body(ctx)
	return res, err, nil
}

func (c *Client) cleanup(ctx context.Context, desc model.IndexDescriptor, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.cleanupTimeout)
	defer cancel()
	return c.Delete(cctx, desc, keys)
}
