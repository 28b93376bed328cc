package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/hostel-residence/internal/middleware"
	"github.com/iliyamo/hostel-residence/internal/model"
	"github.com/iliyamo/hostel-residence/internal/policy"
	"github.com/iliyamo/hostel-residence/internal/repository"
)

// NoticeHandler serves the notice board. Writes purge the response cache
// that fronts the listing.
type NoticeHandler struct {
	Base
	Notices     *repository.NoticeRepo
	Redis       *redis.Client
	CachePrefix string
}

func NewNoticeHandler(b Base, n *repository.NoticeRepo, rdb *redis.Client, cachePrefix string) *NoticeHandler {
	return &NoticeHandler{Base: b, Notices: n, Redis: rdb, CachePrefix: cachePrefix}
}

type noticeReq struct {
	Title          string `json:"title" validate:"required,max=200"`
	Content        string `json:"content" validate:"required"`
	Priority       string `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	TargetAudience string `json:"target_audience" validate:"omitempty,oneof=all student warden admin"`
	IsActive       *bool  `json:"is_active"`
}

func (req noticeReq) toModel(id, author uint64) model.Notice {
	n := model.Notice{
		ID:             id,
		Title:          req.Title,
		Content:        req.Content,
		Priority:       req.Priority,
		TargetAudience: req.TargetAudience,
		IsActive:       true,
		CreatedBy:      author,
	}
	if n.Priority == "" {
		n.Priority = model.PriorityMedium
	}
	if n.TargetAudience == "" {
		n.TargetAudience = model.AudienceAll
	}
	if req.IsActive != nil {
		n.IsActive = *req.IsActive
	}
	return n
}

func (h *NoticeHandler) purge(c echo.Context) {
	if h.Redis == nil {
		return
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := middleware.PurgeCache(ctx, h.Redis, h.CachePrefix); err != nil {
		h.logger().Warn("cache purge failed", zap.Error(err))
	}
}

// List returns notices the caller may read.
func (h *NoticeHandler) List(c echo.Context) error {
	_, scope, err := scope(c, policy.Notices)
	if err != nil {
		return h.fail(c, err)
	}
	p, err := page(c)
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	items, err := h.Notices.List(ctx, scope, p)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, list(items, p))
}

// Get returns one notice the caller may read.
func (h *NoticeHandler) Get(c echo.Context) error {
	_, scope, err := scope(c, policy.Notices)
	if err != nil {
		return h.fail(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	n, err := h.Notices.Get(ctx, scope, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, n)
}

// Create publishes a notice.
func (h *NoticeHandler) Create(c echo.Context) error {
	a, err := manage(c, policy.Notices)
	if err != nil {
		return h.fail(c, err)
	}
	var req noticeReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	n := req.toModel(0, a.ID)
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Notices.Create(ctx, &n); err != nil {
		return h.fail(c, err)
	}
	h.purge(c)
	h.audit(c, "create", "notice", n.ID, n.Title)
	return c.JSON(http.StatusCreated, n)
}

// Update rewrites a notice.
func (h *NoticeHandler) Update(c echo.Context) error {
	a, err := manage(c, policy.Notices)
	if err != nil {
		return h.fail(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	var req noticeReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	n := req.toModel(id, a.ID)
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Notices.Update(ctx, &n); err != nil {
		return h.fail(c, err)
	}
	h.purge(c)
	h.audit(c, "update", "notice", id, n.Title)
	return c.JSON(http.StatusOK, n)
}

// Delete removes a notice.
func (h *NoticeHandler) Delete(c echo.Context) error {
	if _, err := manage(c, policy.Notices); err != nil {
		return h.fail(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Notices.Delete(ctx, id); err != nil {
		return h.fail(c, err)
	}
	h.purge(c)
	h.audit(c, "delete", "notice", id, "notice deleted")
	return c.NoContent(http.StatusNoContent)
}
