package account

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes account HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds an account HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type openRequest struct {
	Kind string `json:"kind"`
}

type accountResponse struct {
	ID        string `json:"id"`
	OwnerID   string `json:"owner_id"`
	Number    int64  `json:"number"`
	Kind      string `json:"kind"`
	CreatedAt string `json:"created_at"`
}

func toResponse(acct Account) accountResponse {
	return accountResponse{
		ID:        acct.ID,
		OwnerID:   acct.OwnerID,
		Number:    acct.Number,
		Kind:      acct.Kind,
		CreatedAt: acct.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// Open provisions an account for the authenticated owner.
func (h *Handler) Open(c *fiber.Ctx) error {
	var req openRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	ownerID, _ := c.Locals("user_id").(string)
	acct, err := h.service.Open(c.UserContext(), OpenInput{OwnerID: ownerID, Kind: req.Kind})
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(toResponse(acct))
}

// ownedAccount loads the account in the path and verifies the caller owns it.
func (h *Handler) ownedAccount(c *fiber.Ctx) (Account, error) {
	acct, err := h.service.Get(c.UserContext(), c.Params("accountId"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Account{}, fiber.NewError(http.StatusNotFound, err.Error())
		}
		return Account{}, fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	if uid, _ := c.Locals("user_id").(string); uid != "" && acct.OwnerID != uid {
		return Account{}, fiber.NewError(http.StatusForbidden, "not owner of account")
	}
	return acct, nil
}

// Get returns the account metadata to its owner.
func (h *Handler) Get(c *fiber.Ctx) error {
	acct, err := h.ownedAccount(c)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(toResponse(acct))
}

// Balance returns the account balance to its owner.
func (h *Handler) Balance(c *fiber.Ctx) error {
	acct, err := h.ownedAccount(c)
	if err != nil {
		return err
	}
	balance, err := h.service.Balance(c.UserContext(), acct.ID)
	if err != nil {
		return fiber.NewError(http.StatusNotFound, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"account_id": balance.AccountID,
		"balance":    balance.Amount,
		"timestamp":  balance.AsOf,
	})
}
