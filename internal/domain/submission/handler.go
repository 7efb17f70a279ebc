package submission

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

// RegisterRoutes mounts submission endpoints on the authenticated group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/submissions", h.Submit)
	api.GET("/submissions/mine", h.ListMine)
	api.GET("/submissions/:id", h.Get)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/admin/submissions", h.List)
	admin.POST("/admin/submissions/:id/approve", h.Approve)
	admin.POST("/admin/submissions/:id/reject", h.Reject)
}

func (h *Handler) Submit(c echo.Context) error {
	var in Input
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	userID := auth.UserIDFromContext(c.Request().Context())
	sub, err := h.svc.Submit(c.Request().Context(), userID, in)
	if err != nil {
		return err
	}
	return respond.Created(c, sub)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid submission id")
	}
	ctx := c.Request().Context()
	sub, err := h.svc.Get(ctx, id)
	if err != nil {
		return err
	}
	if !auth.IsAdmin(ctx) && sub.SubmittedBy != auth.UserIDFromContext(ctx) {
		return apperr.NotFound("submission")
	}
	return respond.OK(c, sub)
}

func (h *Handler) ListMine(c echo.Context) error {
	p := pagination.FromContext(c)
	userID := auth.UserIDFromContext(c.Request().Context())
	subs, total, err := h.svc.ListMine(c.Request().Context(), userID, p.Limit, p.Offset)
	if err != nil {
		return err
	}
	return respond.List(c, subs, total, p.Limit, p.Offset)
}

func (h *Handler) List(c echo.Context) error {
	var status Status
	if s := c.QueryParam("status"); s != "" {
		var err error
		status, err = ParseStatus(s)
		if err != nil {
			return apperr.Validation("%v", err)
		}
	}
	p := pagination.FromContext(c)
	subs, total, err := h.svc.List(c.Request().Context(), status, p.Limit, p.Offset)
	if err != nil {
		return err
	}
	return respond.List(c, subs, total, p.Limit, p.Offset)
}

func (h *Handler) Approve(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid submission id")
	}
	sub, err := h.svc.Approve(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond.OK(c, sub)
}

func (h *Handler) Reject(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid submission id")
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&body); err != nil {
		return apperr.Validation("invalid request body")
	}
	sub, err := h.svc.Reject(c.Request().Context(), id, body.Reason)
	if err != nil {
		return err
	}
	return respond.OK(c, sub)
}
