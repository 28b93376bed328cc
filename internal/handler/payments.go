package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/hostel-residence/internal/ledger"
	"github.com/iliyamo/hostel-residence/internal/model"
	"github.com/iliyamo/hostel-residence/internal/policy"
	"github.com/iliyamo/hostel-residence/internal/repository"
)

// DefaultCurrency is recorded when a payment names none.
const DefaultCurrency = "INR"

// PaymentHandler records dues and their settlement.
type PaymentHandler struct {
	Base
	Payments    *repository.PaymentRepo
	Allocations *repository.AllocationRepo
}

func NewPaymentHandler(b Base, p *repository.PaymentRepo, a *repository.AllocationRepo) *PaymentHandler {
	return &PaymentHandler{Base: b, Payments: p, Allocations: a}
}

type paymentView struct {
	model.Payment
	DueDate  *string `json:"due_date"`
	PaidDate *string `json:"paid_date"`
}

func newPaymentView(p model.Payment) paymentView {
	return paymentView{Payment: p, DueDate: formatDay(p.DueDate), PaidDate: formatDay(p.PaidDate)}
}

func paymentViews(in []model.Payment) []paymentView {
	out := make([]paymentView, 0, len(in))
	for _, p := range in {
		out = append(out, newPaymentView(p))
	}
	return out
}

type createPaymentReq struct {
	UserID          uint64           `json:"user_id" validate:"required"`
	Amount          *decimal.Decimal `json:"amount"`
	Currency        string           `json:"currency" validate:"omitempty,len=3"`
	PaymentType     string           `json:"payment_type" validate:"required,oneof=rent security maintenance penalty other"`
	Provider        string           `json:"provider" validate:"max=50"`
	ProviderOrderID string           `json:"provider_order_id" validate:"max=100"`
	DueDate         *string          `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Description     string           `json:"description" validate:"max=1000"`
	// Billing period used to price rent when amount is omitted.
	StartDate *string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   *string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

type paymentStatusReq struct {
	Status            string `json:"status" validate:"required,oneof=pending success failed refunded"`
	ProviderPaymentID string `json:"provider_payment_id" validate:"max=100"`
	ProviderSignature string `json:"provider_signature" validate:"max=255"`
}

func optionalDay(field string, s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	d, err := parseDay(field, *s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// rentDue prices the user's active allocation over [start, end]. Without
// an end date the flat monthly rent is due.
func (h *PaymentHandler) rentDue(c echo.Context, userID uint64, start, end *time.Time) (decimal.Decimal, error) {
	from := ledger.Day(h.now())
	if start != nil {
		from = *start
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	alloc, err := h.Allocations.ActiveForUser(ctx, userID, from)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return decimal.Zero, ledger.NewValidationError("amount", "is required: user has no active allocation")
		}
		return decimal.Zero, err
	}
	amount, err := ledger.CalculateRent(alloc.MonthlyRent, from, end)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Round(2), nil
}

// Create records a pending payment for a user.
func (h *PaymentHandler) Create(c echo.Context) error {
	if _, err := manage(c, policy.Payments); err != nil {
		return h.fail(c, err)
	}
	var req createPaymentReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	due, err := optionalDay("due_date", req.DueDate)
	if err != nil {
		return h.fail(c, err)
	}
	var amount decimal.Decimal
	switch {
	case req.Amount != nil:
		if !req.Amount.IsPositive() {
			return h.fail(c, ledger.NewValidationError("amount", "must be greater than 0"))
		}
		amount = req.Amount.Round(2)
	case req.PaymentType == model.PaymentRent:
		start, err := optionalDay("start_date", req.StartDate)
		if err != nil {
			return h.fail(c, err)
		}
		end, err := optionalDay("end_date", req.EndDate)
		if err != nil {
			return h.fail(c, err)
		}
		if amount, err = h.rentDue(c, req.UserID, start, end); err != nil {
			return h.fail(c, err)
		}
	default:
		return h.fail(c, ledger.NewValidationError("amount", "is required"))
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	p := model.Payment{
		UserID:          req.UserID,
		Amount:          amount,
		Currency:        currency,
		PaymentType:     req.PaymentType,
		Provider:        req.Provider,
		ProviderOrderID: req.ProviderOrderID,
		DueDate:         due,
		Description:     req.Description,
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Payments.Create(ctx, &p); err != nil {
		return h.fail(c, err)
	}
	h.audit(c, "create", "payment", p.ID, req.PaymentType+" "+amount.StringFixed(2)+" "+currency)
	h.notify(c, p.UserID, "Payment due", "A "+p.PaymentType+" payment of "+amount.StringFixed(2)+" "+currency+" is due.")
	return c.JSON(http.StatusCreated, newPaymentView(p))
}

// List returns payments under the caller's scope.
func (h *PaymentHandler) List(c echo.Context) error {
	return h.list(c, c.QueryParam("status"))
}

// Pending lists pending payments under the caller's scope.
func (h *PaymentHandler) Pending(c echo.Context) error {
	return h.list(c, model.PaymentPending)
}

func (h *PaymentHandler) list(c echo.Context, status string) error {
	_, scope, err := scope(c, policy.Payments)
	if err != nil {
		return h.fail(c, err)
	}
	p, err := page(c)
	if err != nil {
		return h.fail(c, err)
	}
	f := repository.PaymentFilter{Status: status, PaymentType: c.QueryParam("payment_type")}
	if f.UserID, err = queryUint(c, "user_id"); err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	items, err := h.Payments.List(ctx, scope, f, p)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, list(paymentViews(items), p))
}

// Get returns one payment under the caller's scope.
func (h *PaymentHandler) Get(c echo.Context) error {
	_, scope, err := scope(c, policy.Payments)
	if err != nil {
		return h.fail(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	p, err := h.Payments.Get(ctx, scope, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, newPaymentView(p))
}

// Stats returns counts and sums by status under the caller's scope.
func (h *PaymentHandler) Stats(c echo.Context) error {
	_, scope, err := scope(c, policy.Payments)
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	st, err := h.Payments.Stats(ctx, scope, h.now())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// SetStatus settles, fails or refunds a payment.
func (h *PaymentHandler) SetStatus(c echo.Context) error {
	if _, err := manage(c, policy.Payments); err != nil {
		return h.fail(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	var req paymentStatusReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	p, err := h.Payments.SetStatus(ctx, id, repository.StatusUpdate{
		Status:            req.Status,
		ProviderPaymentID: req.ProviderPaymentID,
		ProviderSignature: req.ProviderSignature,
	}, h.now())
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "only a successful payment can be refunded"})
		}
		return h.fail(c, err)
	}
	h.audit(c, "update", "payment", id, "status set to "+req.Status)
	h.notify(c, p.UserID, "Payment "+req.Status, "Your "+p.PaymentType+" payment of "+p.Amount.StringFixed(2)+" "+p.Currency+" is now "+req.Status+".")
	return c.JSON(http.StatusOK, newPaymentView(p))
}
