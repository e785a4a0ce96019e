package account

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func newHandlerApp(t *testing.T) (*fiber.App, *Service) {
	t.Helper()
	svc := newTestService()
	handler := NewHandler(svc)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if uid := c.Get("X-Test-User"); uid != "" {
			c.Locals("user_id", uid)
		}
		return c.Next()
	})
	app.Get("/accounts/:accountId", handler.Get)
	app.Get("/accounts/:accountId/balance", handler.Balance)

	return app, svc
}

func getAs(t *testing.T, app *fiber.App, path, user string) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodGet, path, nil)
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp.StatusCode
}

func TestAccountReadsAreOwnerOnly(t *testing.T) {
	app, svc := newHandlerApp(t)

	owner := uuid.NewString()
	acct, err := svc.Open(context.Background(), OpenInput{OwnerID: owner})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	for _, path := range []string{"/accounts/" + acct.ID, "/accounts/" + acct.ID + "/balance"} {
		if status := getAs(t, app, path, owner); status != fiber.StatusOK {
			t.Fatalf("%s as owner: expected 200, got %d", path, status)
		}
		if status := getAs(t, app, path, uuid.NewString()); status != fiber.StatusForbidden {
			t.Fatalf("%s as stranger: expected 403, got %d", path, status)
		}
	}
}

func TestAccountReadsUnknownAccount(t *testing.T) {
	app, _ := newHandlerApp(t)

	if status := getAs(t, app, "/accounts/"+uuid.NewString(), uuid.NewString()); status != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
}
