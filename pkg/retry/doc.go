// Package retry runs an operation again after a backoff delay when it fails.
//
// bookmarkdl retries the few setup steps that can fail for transient reasons,
// such as launching the browser. Downloads are never retried.
//
//	err := retry.Do(ctx, func() error {
//		return launch()
//	}, &retry.Config{
//		MaxAttempts: 2,
//		Backoff:     &retry.ConstantBackoff{Delay: time.Second},
//	})
package retry
