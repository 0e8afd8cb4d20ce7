package recovery

import "context"

// Do runs op and, on failure, asks the controller whether to run it again,
// up to maxRetries retries. The last failure is returned unchanged without
// another prompt. A nil controller runs op exactly once.
//
// The label's counter is cleared once Do returns, whatever the outcome.
func Do[T any](ctx context.Context, c *Controller, label string, maxRetries int, op func(context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			if c != nil {
				c.ResetRetryCount(label)
			}
			return result, nil
		}

		if c == nil {
			return zero, err
		}
		if attempt >= maxRetries {
			c.ResetRetryCount(label)
			return zero, err
		}
		if ctx.Err() != nil {
			c.ResetRetryCount(label)
			return zero, err
		}
		if !c.Handle(ctx, err, label) {
			return zero, err
		}
	}
}

// Run is Do for operations without a result, using the controller's budget
func (c *Controller) Run(ctx context.Context, label string, op func(context.Context) error) error {
	_, err := Do(ctx, c, label, c.MaxRetries(), func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}
