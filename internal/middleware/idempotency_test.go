package middleware

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/umoja-bank/umoja/internal/logging"
)

func newTestApp(t *testing.T) (*fiber.App, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if uid := c.Get("X-Test-User"); uid != "" {
			c.Locals("user_id", uid)
		}
		return c.Next()
	})
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))

	calls := 0
	app.Post("/deposit", func(c *fiber.Ctx) error {
		calls++
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"call": calls})
	})
	app.Post("/reject", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusBadRequest, "amount below minimum")
	})
	app.Get("/balance", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	return app, cache
}

func postWithKey(t *testing.T, app *fiber.App, path, key, user string) (int, string, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, nil)
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body), resp.Header.Get(replayedHeader)
}

func TestIdempotencyRequiresKeyOnPost(t *testing.T) {
	app, _ := newTestApp(t)

	status, _, _ := postWithKey(t, app, "/deposit", "", "")
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected 400 without key, got %d", status)
	}

	// Reads pass through without a key.
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/balance", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("GET must bypass idempotency, got %d", resp.StatusCode)
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	app, _ := newTestApp(t)

	status1, body1, replayed1 := postWithKey(t, app, "/deposit", "abc-123", "user-a")
	status2, body2, replayed2 := postWithKey(t, app, "/deposit", "abc-123", "user-a")

	if status1 != status2 || body1 != body2 {
		t.Fatalf("replay mismatch: %d %q vs %d %q", status1, body1, status2, body2)
	}
	if replayed1 != "" {
		t.Fatal("first response must not carry the replay marker")
	}
	if replayed2 != "true" {
		t.Fatalf("replayed response must carry the marker, got %q", replayed2)
	}
}

func TestIdempotencyKeysAreScopedPerUser(t *testing.T) {
	app, _ := newTestApp(t)

	_, bodyA, _ := postWithKey(t, app, "/deposit", "shared-key", "user-a")
	_, bodyB, replayed := postWithKey(t, app, "/deposit", "shared-key", "user-b")

	if replayed == "true" || bodyA == bodyB {
		t.Fatalf("another user's key must not replay: %q vs %q", bodyA, bodyB)
	}
}

func TestIdempotencyReleasesKeyOnFailure(t *testing.T) {
	app, _ := newTestApp(t)

	status, _, _ := postWithKey(t, app, "/reject", "retry-me", "user-a")
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected 400 from handler, got %d", status)
	}

	// The key is free again, so a corrected retry reaches the handler.
	status, _, replayed := postWithKey(t, app, "/deposit", "retry-me", "user-a")
	if status != fiber.StatusCreated || replayed == "true" {
		t.Fatalf("retry after failure must execute fresh, got %d (replayed=%q)", status, replayed)
	}
}

func TestIdempotencyConflictWhileInProgress(t *testing.T) {
	app, cache := newTestApp(t)

	key := idempotencyKey("user-a", "busy")
	if err := cache.Set(context.Background(), key, pendingSentinel, time.Minute).Err(); err != nil {
		t.Fatalf("seed pending marker: %v", err)
	}

	status, _, _ := postWithKey(t, app, "/deposit", "busy", "user-a")
	if status != fiber.StatusConflict {
		t.Fatalf("expected 409 for in-flight key, got %d", status)
	}
}
