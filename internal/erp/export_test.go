package erp

import (
	"context"
	"time"
)

// DisableBackoff makes Connect retry without waiting
func DisableBackoff(c *Client) {
	c.sleep = func(context.Context, time.Duration) error { return nil }
}
