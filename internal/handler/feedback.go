package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hostel-residence/internal/model"
	"github.com/iliyamo/hostel-residence/internal/policy"
	"github.com/iliyamo/hostel-residence/internal/repository"
)

// FeedbackHandler collects ratings.
type FeedbackHandler struct {
	Base
	Feedback *repository.FeedbackRepo
}

func NewFeedbackHandler(b Base, r *repository.FeedbackRepo) *FeedbackHandler {
	return &FeedbackHandler{Base: b, Feedback: r}
}

type feedbackReq struct {
	Rating   int    `json:"rating" validate:"required,min=1,max=5"`
	Comments string `json:"comments" validate:"max=2000"`
}

func (h *FeedbackHandler) Create(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return h.fail(c, err)
	}
	if !policy.CanCreateOwn(a, policy.Feedback) {
		return h.fail(c, policy.ErrDenied)
	}
	var req feedbackReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	f := model.Feedback{UserID: a.ID, Rating: req.Rating, Comments: req.Comments}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Feedback.Create(ctx, &f); err != nil {
		return h.fail(c, err)
	}
	h.audit(c, "create", "feedback", f.ID, "")
	return c.JSON(http.StatusCreated, f)
}

func (h *FeedbackHandler) List(c echo.Context) error {
	_, scope, err := scope(c, policy.Feedback)
	if err != nil {
		return h.fail(c, err)
	}
	p, err := page(c)
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	items, err := h.Feedback.List(ctx, scope, p)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, list(items, p))
}

// Stats summarizes the ratings the caller may read.
func (h *FeedbackHandler) Stats(c echo.Context) error {
	_, scope, err := scope(c, policy.Feedback)
	if err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	s, err := h.Feedback.Stats(ctx, scope)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, s)
}
