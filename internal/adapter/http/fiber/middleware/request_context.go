package middleware

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RequestContext sets a user context that ends when the request times out
// or the server shuts down, so service calls made with c.UserContext() stop
// their outbound work with it. fasthttp does not report client disconnects,
// so an abandoned request runs until one of those two happens.
func RequestContext(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		parent := context.Context(c.Context())
		if user := c.UserContext(); user != context.Background() {
			parent = user
		}

		var ctx context.Context
		var cancel context.CancelFunc
		if timeout > 0 {
			ctx, cancel = context.WithTimeout(parent, timeout)
		} else {
			ctx, cancel = context.WithCancel(parent)
		}
		defer cancel()

		c.SetUserContext(ctx)
		return c.Next()
	}
}
