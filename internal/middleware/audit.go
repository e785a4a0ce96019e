package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Audit writes one structured log line per request. Besides the usual
// method/path/status triple it records who acted on which account or loan,
// which is the trail a bank actually audits.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", c.Response().StatusCode()),
			slog.Duration("duration", time.Since(start)),
		}
		if reqID, ok := c.Locals(requestIDKey).(string); ok && reqID != "" {
			attrs = append(attrs, slog.String("request_id", reqID))
		}
		if userID, ok := c.Locals("user_id").(string); ok && userID != "" {
			attrs = append(attrs, slog.String("user_id", userID))
		}
		if acctID := c.Params("accountId"); acctID != "" {
			attrs = append(attrs, slog.String("account_id", acctID))
		}
		if loanID := c.Params("loanId"); loanID != "" {
			attrs = append(attrs, slog.String("loan_id", loanID))
		}

		if err != nil {
			attrs = append(attrs, slog.Any("error", err))
			logger.Error("request", attrs...)
			return err
		}
		logger.Info("request", attrs...)
		return nil
	}
}
