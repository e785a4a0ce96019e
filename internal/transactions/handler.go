package transactions

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/umoja-bank/umoja/internal/ledger"
)

const dateLayout = "2006-01-02"

// Handler exposes transaction HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a transaction handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// statusFromError maps domain errors onto HTTP statuses. Validation failures
// are the caller's to fix; lock timeouts surface as conflicts the caller may
// retry.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound), errors.Is(err, ledger.ErrLoanNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrLockTimeout),
		errors.Is(err, ledger.ErrLoanNotPending),
		errors.Is(err, ledger.ErrLoanNotApproved):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrBelowMinimum),
		errors.Is(err, ledger.ErrAboveMaximum),
		errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrLoanLimitExceeded),
		errors.Is(err, ledger.ErrSameAccountTransfer):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func fail(err error) error {
	return fiber.NewError(statusFromError(err), err.Error())
}

// Deposit credits the account in the path.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	var req AmountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)
	res, err := h.service.Deposit(c.UserContext(), DepositInput{
		AccountID:       c.Params("accountId"),
		Amount:          req.Amount,
		RequestorUserID: uid,
	})
	if err != nil {
		return fail(err)
	}
	return c.Status(http.StatusCreated).JSON(toOperationResponse(res))
}

// Withdraw debits the account in the path.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	var req AmountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)
	res, err := h.service.Withdraw(c.UserContext(), WithdrawInput{
		AccountID:       c.Params("accountId"),
		Amount:          req.Amount,
		RequestorUserID: uid,
	})
	if err != nil {
		return fail(err)
	}
	return c.Status(http.StatusCreated).JSON(toOperationResponse(res))
}

// Transfer moves funds to the account number in the body.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req TransferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)
	res, err := h.service.Transfer(c.UserContext(), TransferInput{
		FromAccountID:   c.Params("accountId"),
		ToAccountNumber: req.ToAccountNumber,
		Amount:          req.Amount,
		RequestorUserID: uid,
	})
	if err != nil {
		return fail(err)
	}
	return c.Status(http.StatusCreated).JSON(TransferResponse{
		TransferID:  res.TransferID,
		Amount:      res.Amount,
		FromBalance: res.FromBalance,
		ToBalance:   res.ToBalance,
		CompletedAt: res.CompletedAt,
	})
}

// RequestLoan files a loan application for the account in the path.
func (h *Handler) RequestLoan(c *fiber.Ctx) error {
	var req AmountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)
	rec, err := h.service.RequestLoan(c.UserContext(), LoanInput{
		AccountID:       c.Params("accountId"),
		Amount:          req.Amount,
		RequestorUserID: uid,
	})
	if err != nil {
		return fail(err)
	}
	return c.Status(http.StatusCreated).JSON(toRecordResponse(rec))
}

// Loans lists loan records for the account in the path.
func (h *Handler) Loans(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	loans, err := h.service.Loans(c.UserContext(), c.Params("accountId"), uid)
	if err != nil {
		return fail(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"loans": toRecordResponses(loans)})
}

// ApproveLoan transitions a requested loan to approved.
func (h *Handler) ApproveLoan(c *fiber.Ctx) error {
	rec, err := h.service.ApproveLoan(c.UserContext(), c.Params("loanId"))
	if err != nil {
		return fail(err)
	}
	return c.Status(http.StatusOK).JSON(toRecordResponse(rec))
}

// PayLoan settles an approved loan belonging to the caller.
func (h *Handler) PayLoan(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	res, err := h.service.PayLoan(c.UserContext(), PayLoanInput{
		LoanID:          c.Params("loanId"),
		RequestorUserID: uid,
	})
	if err != nil {
		return fail(err)
	}
	return c.Status(http.StatusOK).JSON(toOperationResponse(res))
}

// Statement returns the transaction report, optionally bounded by
// start_date/end_date query parameters (YYYY-MM-DD).
func (h *Handler) Statement(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	input := StatementInput{AccountID: c.Params("accountId"), RequestorUserID: uid}

	if v := c.Query("start_date"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid start_date")
		}
		input.From = t
	}
	if v := c.Query("end_date"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid end_date")
		}
		// Inclusive through the end of the day.
		input.To = t.Add(24*time.Hour - time.Nanosecond)
	}

	st, err := h.service.Statement(c.UserContext(), input)
	if err != nil {
		return fail(err)
	}
	return c.Status(http.StatusOK).JSON(StatementResponse{
		AccountID:     st.AccountID,
		AccountNumber: st.AccountNumber,
		Balance:       st.Balance,
		Records:       toRecordResponses(st.Records),
		GeneratedAt:   st.GeneratedAt,
	})
}
