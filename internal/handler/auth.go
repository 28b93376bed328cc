package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/hostel-residence/internal/config"
	"github.com/iliyamo/hostel-residence/internal/model"
	"github.com/iliyamo/hostel-residence/internal/repository"
	"github.com/iliyamo/hostel-residence/internal/utils"
)

// AuthHandler bundles dependencies for auth and profile endpoints.
type AuthHandler struct {
	Base
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
}

func NewAuthHandler(b Base, cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo) *AuthHandler {
	return &AuthHandler{Base: b, Cfg: cfg, Users: u, Tokens: t}
}

type registerReq struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	FullName string `json:"full_name" validate:"required,max=150"`
	Phone    string `json:"phone" validate:"max=20"`
}
type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}
type profileReq struct {
	FullName         *string `json:"full_name" validate:"omitempty,min=1,max=150"`
	Phone            *string `json:"phone" validate:"omitempty,max=20"`
	Address          *string `json:"address" validate:"omitempty,max=500"`
	EmergencyContact *string `json:"emergency_contact" validate:"omitempty,max=20"`
	DateOfBirth      *string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID       uint64 `json:"id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	FullName string `json:"full_name"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

// mint creates an access/refresh pair for u. The raw refresh token goes to
// the client; the returned hash is what gets stored.
func (h *AuthHandler) mint(u model.User) (authResp, string, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, "", err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, "", err
	}
	return authResp{
		User:    userPart{ID: u.ID, Email: u.Email, Role: u.Role, FullName: u.FullName},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	}, utils.HashRefreshRaw(refresh.Raw), nil
}

// issue mints a pair for u and stores the refresh hash.
func (h *AuthHandler) issue(c echo.Context, u model.User) (authResp, error) {
	resp, hash, err := h.mint(u)
	if err != nil {
		return authResp{}, err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Tokens.Store(ctx, u.ID, hash, resp.Refresh.Expires); err != nil {
		return authResp{}, err
	}
	return resp, nil
}

// Register: create a student account and return tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	uid, err := h.Users.Create(ctx, repository.NewUser{
		Email:    req.Email,
		Password: req.Password,
		Role:     model.RoleStudent,
		FullName: req.FullName,
		Phone:    req.Phone,
	}, h.Cfg.BcryptCost)
	if err != nil {
		return h.fail(c, err)
	}
	u := model.User{ID: uid, Email: strings.ToLower(strings.TrimSpace(req.Email)), Role: model.RoleStudent, FullName: strings.TrimSpace(req.FullName)}
	resp, err := h.issue(c, u)
	if err != nil {
		return h.fail(c, err)
	}
	h.audit(c, "register", "user", uid, "self registration")
	return c.JSON(http.StatusCreated, resp)
}

// Login: verify and return new pair. Deactivated accounts are rejected.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return h.fail(c, err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if !u.IsActive {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account is deactivated"})
	}
	if utils.NeedsRehash(u.PasswordHash, h.Cfg.BcryptCost) {
		h.rehash(ctx, u.ID, req.Password)
	}
	resp, err := h.issue(c, u)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// rehash upgrades a stored hash to the configured cost. Failures only
// cost a retry on the next login.
func (h *AuthHandler) rehash(ctx context.Context, id uint64, plain string) {
	hash, err := utils.HashPassword(plain, h.Cfg.BcryptCost)
	if err == nil {
		err = h.Users.SetPasswordHash(ctx, id, hash)
	}
	if err != nil {
		h.logger().Warn("password rehash failed", zap.Uint64("user_id", id), zap.Error(err))
	}
}

// activeOwner resolves the active user behind a refresh token. ok is
// false when the token is not live.
func (h *AuthHandler) activeOwner(c echo.Context, hash string) (u model.User, ok bool, err error) {
	ctx, cancel := dbCtx(c)
	defer cancel()
	userID, err := h.Tokens.Owner(ctx, hash)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, false, nil
	}
	if err != nil {
		return model.User{}, false, err
	}
	u, err = h.Users.GetByID(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, false, nil
	}
	if err != nil {
		return model.User{}, false, err
	}
	return u, u.IsActive, nil
}

func refreshToken(c echo.Context) (string, bool) {
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		return "", false
	}
	raw := strings.TrimSpace(req.RefreshToken)
	return raw, raw != ""
}

// Refresh exchanges a live refresh token for a new pair. The old token is
// revoked in the same transaction that stores the new one.
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw, ok := refreshToken(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	hash := utils.HashRefreshRaw(raw)
	u, ok, err := h.activeOwner(c, hash)
	if err != nil {
		return h.fail(c, err)
	}
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	resp, next, err := h.mint(u)
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if _, err := h.Tokens.Rotate(ctx, hash, next, resp.Refresh.Expires); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
		}
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// RefreshAccess returns a new access token WITHOUT rotating the refresh token.
func (h *AuthHandler) RefreshAccess(c echo.Context) error {
	raw, ok := refreshToken(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	u, ok, err := h.activeOwner(c, utils.HashRefreshRaw(raw))
	if err != nil {
		return h.fail(c, err)
	}
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access": tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// Logout revokes the refresh token in the body, or every session of the
// bearer when no refresh token is given. It runs outside the JWT group so
// that a client holding only a refresh token can still log out.
func (h *AuthHandler) Logout(c echo.Context) error {
	var uid uint64
	if raw, ok := strings.CutPrefix(c.Request().Header.Get("Authorization"), "Bearer "); ok {
		if claims, err := utils.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimSpace(raw)); err == nil {
			uid, _ = claims.UserID()
		}
	}
	raw, hasRefresh := refreshToken(c)

	ctx, cancel := dbCtx(c)
	defer cancel()

	switch {
	case hasRefresh:
		revoked, err := h.Tokens.Revoke(ctx, utils.HashRefreshRaw(raw))
		if err != nil {
			return h.fail(c, err)
		}
		if !revoked {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		}
		return c.NoContent(http.StatusNoContent)
	case uid != 0:
		if err := h.Tokens.RevokeAll(ctx, uid); err != nil {
			return h.fail(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "provide Authorization header or refresh_token"})
}

// Me returns the caller's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, a.ID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, newUserView(u))
}

// UpdateMe edits the caller's own profile fields.
func (h *AuthHandler) UpdateMe(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req profileReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	up := repository.ProfileUpdate{
		FullName:         req.FullName,
		Phone:            req.Phone,
		Address:          req.Address,
		EmergencyContact: req.EmergencyContact,
	}
	if req.DateOfBirth != nil {
		d, err := parseDay("date_of_birth", *req.DateOfBirth)
		if err != nil {
			return h.fail(c, err)
		}
		up.DateOfBirth = &d
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Users.UpdateProfile(ctx, a.ID, up); err != nil {
		return h.fail(c, err)
	}
	u, err := h.Users.GetByID(ctx, a.ID)
	if err != nil {
		return h.fail(c, err)
	}
	h.audit(c, "update", "user", a.ID, "profile updated")
	return c.JSON(http.StatusOK, newUserView(u))
}
