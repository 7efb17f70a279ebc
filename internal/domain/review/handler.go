package review

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carefinder/carefinder/internal/apperr"
	"github.com/carefinder/carefinder/internal/platform/auth"
	"github.com/carefinder/carefinder/pkg/pagination"
	"github.com/carefinder/carefinder/pkg/respond"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts public review listing and authenticated review
// management.
func (h *Handler) RegisterRoutes(public, api *echo.Group) {
	public.GET("/facilities/:id/reviews", h.ListForFacility)

	api.POST("/reviews", h.Create)
	api.GET("/reviews/mine", h.ListMine)
	api.PUT("/reviews/:id", h.Update)
	api.DELETE("/reviews/:id", h.Delete)
	api.POST("/reviews/:id/helpful", h.ToggleHelpful)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.PATCH("/reviews/:id/approve", h.SetApproved)
	admin.PUT("/reviews/:id/response", h.Respond)
}

func (h *Handler) ListForFacility(c echo.Context) error {
	facilityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid facility id")
	}
	p := pagination.FromContext(c)
	reviews, total, err := h.svc.ListForFacility(c.Request().Context(), facilityID, p.Limit, p.Offset)
	if err != nil {
		return err
	}
	return respond.List(c, reviews, total, p.Limit, p.Offset)
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	userID := auth.UserIDFromContext(c.Request().Context())
	rev, err := h.svc.Create(c.Request().Context(), userID, in)
	if err != nil {
		return err
	}
	return respond.Created(c, rev)
}

func (h *Handler) ListMine(c echo.Context) error {
	p := pagination.FromContext(c)
	reviews, total, err := h.svc.ListMine(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return err
	}
	return respond.List(c, reviews, total, p.Limit, p.Offset)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid review id")
	}
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	rev, err := h.svc.Update(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return respond.OK(c, rev)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid review id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return respond.Message(c, "review deleted")
}

func (h *Handler) ToggleHelpful(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid review id")
	}
	userID := auth.UserIDFromContext(c.Request().Context())
	result, err := h.svc.ToggleHelpful(c.Request().Context(), id, userID)
	if err != nil {
		return err
	}
	return respond.OK(c, result)
}

func (h *Handler) Respond(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid review id")
	}
	var body struct {
		Response string `json:"response"`
	}
	if err := c.Bind(&body); err != nil {
		return apperr.Validation("invalid request body")
	}
	rev, err := h.svc.Respond(c.Request().Context(), id, body.Response)
	if err != nil {
		return err
	}
	return respond.OK(c, rev)
}

func (h *Handler) SetApproved(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid review id")
	}
	var body struct {
		Approved *bool `json:"approved"`
	}
	if err := c.Bind(&body); err != nil || body.Approved == nil {
		return apperr.Validation("approved is required")
	}
	rev, err := h.svc.SetApproved(c.Request().Context(), id, *body.Approved)
	if err != nil {
		return err
	}
	return respond.OK(c, rev)
}
