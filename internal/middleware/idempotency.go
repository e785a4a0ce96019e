package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotency-Replayed"

	// pendingSentinel marks a key whose first request has not finished yet.
	pendingSentinel = "pending"

	storeTimeout = 2 * time.Second
)

// idempotencyKey scopes keys per authenticated user so two customers reusing
// the same client-generated key can never replay each other's responses.
func idempotencyKey(userID, key string) string {
	return fmt.Sprintf("umoja:idem:%s:%s", userID, key)
}

// committedResponse is what gets replayed for a repeated key. Only the
// status, content type and body are kept; per-request headers such as the
// request id belong to the original request alone.
type committedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Idempotency makes the money-movement POST endpoints safe to retry. The
// first request under a key reserves it, runs, and stores its committed
// response; a repeat returns that stored response with a marker header; a
// repeat racing the original is rejected as a conflict. Failed requests
// release the key so the caller can retry after fixing the problem.
func Idempotency(cache *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPost {
			return c.Next()
		}

		key := strings.TrimSpace(c.Get(idempotencyHeader))
		if key == "" {
			return fiber.NewError(http.StatusBadRequest, "Idempotency-Key header is required")
		}
		userID, _ := c.Locals("user_id").(string)
		cacheKey := idempotencyKey(userID, key)

		ctx, cancel := context.WithTimeout(c.UserContext(), storeTimeout)
		defer cancel()

		reserved, err := cache.SetNX(ctx, cacheKey, pendingSentinel, ttl).Result()
		if err != nil {
			logger.Error("idempotency reservation failed", slog.String("key", key), slog.Any("error", err))
			return fiber.NewError(http.StatusInternalServerError, "idempotency store unavailable")
		}
		if !reserved {
			return replayCommitted(ctx, c, cache, cacheKey)
		}

		if err := c.Next(); err != nil {
			releaseCtx, release := context.WithTimeout(context.Background(), storeTimeout)
			defer release()
			cache.Del(releaseCtx, cacheKey)
			return err
		}

		stored := committedResponse{
			Status:      c.Response().StatusCode(),
			ContentType: string(c.Response().Header.ContentType()),
			Body:        append([]byte(nil), c.Response().Body()...),
		}
		payload, err := json.Marshal(stored)
		if err == nil {
			err = cache.Set(ctx, cacheKey, payload, ttl).Err()
		}
		if err != nil {
			// The operation committed; losing the replay record only costs a
			// future duplicate its cached answer.
			logger.Warn("failed to store idempotent response", slog.String("key", key), slog.Any("error", err))
		}
		return nil
	}
}

func replayCommitted(ctx context.Context, c *fiber.Ctx, cache *redis.Client, cacheKey string) error {
	raw, err := cache.Get(ctx, cacheKey).Bytes()
	if err != nil {
		return fiber.NewError(http.StatusConflict, "duplicate request")
	}
	if string(raw) == pendingSentinel {
		return fiber.NewError(http.StatusConflict, "a request with this key is still processing")
	}

	var stored committedResponse
	if err := json.Unmarshal(raw, &stored); err != nil {
		return fiber.NewError(http.StatusConflict, "duplicate request")
	}

	c.Set(replayedHeader, "true")
	if stored.ContentType != "" {
		c.Set(fiber.HeaderContentType, stored.ContentType)
	}
	return c.Status(stored.Status).Send(stored.Body)
}
