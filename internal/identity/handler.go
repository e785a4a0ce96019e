package identity

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/umoja-bank/umoja/internal/account"
)

// Handler exposes registration and profile endpoints.
type Handler struct {
	service  *Service
	accounts *account.Service
}

// NewHandler builds an identity HTTP handler.
func NewHandler(service *Service, accounts *account.Service) *Handler {
	return &Handler{service: service, accounts: accounts}
}

type profilePayload struct {
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Gender     string `json:"gender"`
	BirthDate  string `json:"birth_date"`
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

func (p profilePayload) toProfile() Profile {
	return Profile{
		Email:      p.Email,
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Gender:     p.Gender,
		BirthDate:  p.BirthDate,
		Street:     p.Street,
		City:       p.City,
		PostalCode: p.PostalCode,
		Country:    p.Country,
	}
}

type registerRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	AccountKind string `json:"account_kind"`
	profilePayload
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	profilePayload
}

func toUserResponse(u User) userResponse {
	return userResponse{
		ID:       u.ID,
		Username: u.Username,
		profilePayload: profilePayload{
			Email:      u.Email,
			FirstName:  u.FirstName,
			LastName:   u.LastName,
			Gender:     u.Gender,
			BirthDate:  u.BirthDate,
			Street:     u.Street,
			City:       u.City,
			PostalCode: u.PostalCode,
			Country:    u.Country,
		},
	}
}

// Register creates a user and opens their first bank account.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	user, err := h.service.Register(c.UserContext(), RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Profile:  req.toProfile(),
	})
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	acct, err := h.accounts.Open(c.UserContext(), account.OpenInput{OwnerID: user.ID, Kind: req.AccountKind})
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"user": toUserResponse(user),
		"account": fiber.Map{
			"id":     acct.ID,
			"number": acct.Number,
			"kind":   acct.Kind,
		},
	})
}

// Me returns the authenticated user's profile.
func (h *Handler) Me(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	user, err := h.service.Get(c.UserContext(), uid)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(toUserResponse(user))
}

// UpdateProfile replaces the authenticated user's editable fields.
func (h *Handler) UpdateProfile(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)

	var req profilePayload
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	user, err := h.service.UpdateProfile(c.UserContext(), uid, req.toProfile())
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusOK).JSON(toUserResponse(user))
}
