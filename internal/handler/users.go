package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hostel-residence/internal/config"
	"github.com/iliyamo/hostel-residence/internal/model"
	"github.com/iliyamo/hostel-residence/internal/policy"
	"github.com/iliyamo/hostel-residence/internal/repository"
)

// userView is the wire form of a user; date_of_birth is a calendar date.
type userView struct {
	ID               uint64    `json:"id"`
	Email            string    `json:"email"`
	Role             string    `json:"role"`
	FullName         string    `json:"full_name"`
	Phone            string    `json:"phone"`
	DateOfBirth      *string   `json:"date_of_birth"`
	Address          string    `json:"address"`
	EmergencyContact string    `json:"emergency_contact"`
	IsActive         bool      `json:"is_active"`
	EmailVerified    bool      `json:"email_verified"`
	PhoneVerified    bool      `json:"phone_verified"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func newUserView(u model.User) userView {
	return userView{
		ID:               u.ID,
		Email:            u.Email,
		Role:             u.Role,
		FullName:         u.FullName,
		Phone:            u.Phone,
		DateOfBirth:      formatDay(u.DateOfBirth),
		Address:          u.Address,
		EmergencyContact: u.EmergencyContact,
		IsActive:         u.IsActive,
		EmailVerified:    u.EmailVerified,
		PhoneVerified:    u.PhoneVerified,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

// UserHandler serves account administration.
type UserHandler struct {
	Base
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
}

func NewUserHandler(b Base, cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo) *UserHandler {
	return &UserHandler{Base: b, Cfg: cfg, Users: u, Tokens: t}
}

type createUserReq struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	FullName string `json:"full_name" validate:"required,max=150"`
	Phone    string `json:"phone" validate:"max=20"`
	Role     string `json:"role" validate:"required,oneof=student admin warden"`
}

type updateUserReq struct {
	Role     *string `json:"role" validate:"omitempty,oneof=student admin warden"`
	IsActive *bool   `json:"is_active"`
}

// List returns users visible to the caller, filtered by role and is_active.
func (h *UserHandler) List(c echo.Context) error {
	_, scope, err := scope(c, policy.Users)
	if err != nil {
		return h.fail(c, err)
	}
	p, err := page(c)
	if err != nil {
		return h.fail(c, err)
	}
	active, err := queryBool(c, "is_active")
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	users, err := h.Users.List(ctx, scope, repository.UserFilter{Role: c.QueryParam("role"), IsActive: active}, p)
	if err != nil {
		return h.fail(c, err)
	}
	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, newUserView(u))
	}
	return c.JSON(http.StatusOK, list(views, p))
}

// Get returns one user under the caller's scope.
func (h *UserHandler) Get(c echo.Context) error {
	_, scope, err := scope(c, policy.Users)
	if err != nil {
		return h.fail(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	u, err := h.Users.Get(ctx, scope, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, newUserView(u))
}

// Create lets an admin open an account with any role.
func (h *UserHandler) Create(c echo.Context) error {
	if _, err := manage(c, policy.Users); err != nil {
		return h.fail(c, err)
	}
	var req createUserReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	id, err := h.Users.Create(ctx, repository.NewUser{
		Email: req.Email, Password: req.Password, Role: req.Role,
		FullName: req.FullName, Phone: req.Phone,
	}, h.Cfg.BcryptCost)
	if err != nil {
		return h.fail(c, err)
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	h.audit(c, "create", "user", id, "account created with role "+req.Role)
	return c.JSON(http.StatusCreated, newUserView(u))
}

// Update changes role and/or is_active. Deactivation revokes sessions.
func (h *UserHandler) Update(c echo.Context) error {
	if _, err := manage(c, policy.Users); err != nil {
		return h.fail(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	var req updateUserReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Users.SetRoleAndActive(ctx, id, req.Role, req.IsActive); err != nil {
		return h.fail(c, err)
	}
	if req.IsActive != nil && !*req.IsActive {
		if err := h.Tokens.RevokeAll(ctx, id); err != nil {
			return h.fail(c, err)
		}
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	h.audit(c, "update", "user", id, "role/active updated")
	return c.JSON(http.StatusOK, newUserView(u))
}

// Deactivate disables the account; the row is kept for history.
func (h *UserHandler) Deactivate(c echo.Context) error {
	a, err := manage(c, policy.Users)
	if err != nil {
		return h.fail(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	if id == a.ID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot deactivate yourself"})
	}
	inactive := false
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Users.SetRoleAndActive(ctx, id, nil, &inactive); err != nil {
		return h.fail(c, err)
	}
	if err := h.Tokens.RevokeAll(ctx, id); err != nil {
		return h.fail(c, err)
	}
	h.audit(c, "deactivate", "user", id, "account deactivated")
	return c.NoContent(http.StatusNoContent)
}

// Stats counts accounts by role and verification. Staff only.
func (h *UserHandler) Stats(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return h.fail(c, err)
	}
	if !a.IsStaff() {
		return h.fail(c, policy.ErrDenied)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	s, err := h.Users.Stats(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

// VerifyEmail marks a user's email as confirmed and tells them so.
func (h *UserHandler) VerifyEmail(c echo.Context) error {
	if _, err := manage(c, policy.Users); err != nil {
		return h.fail(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Users.VerifyEmail(ctx, id); err != nil {
		return h.fail(c, err)
	}
	h.audit(c, "verify", "user", id, "email verified")
	h.notify(c, id, "Email Verified", "Your email address has been verified.")
	return c.JSON(http.StatusOK, echo.Map{"message": "Email verified successfully"})
}

// VerifyPhone marks a user's phone number as confirmed.
func (h *UserHandler) VerifyPhone(c echo.Context) error {
	if _, err := manage(c, policy.Users); err != nil {
		return h.fail(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Users.VerifyPhone(ctx, id); err != nil {
		return h.fail(c, err)
	}
	h.audit(c, "verify", "user", id, "phone verified")
	return c.JSON(http.StatusOK, echo.Map{"message": "Phone verified successfully"})
}
