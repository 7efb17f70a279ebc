package appointment

import (
	"context"

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

// RegisterRoutes mounts booking and status endpoints on the authenticated
// group. Fine-grained authorization happens in the service, which knows who
// owns the appointment and the facility.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/appointments", h.Create)
	api.GET("/appointments", h.ListMine)
	api.GET("/appointments/:id", h.Get)
	api.POST("/appointments/:id/confirm", h.Confirm)
	api.POST("/appointments/:id/cancel", h.Cancel)
	api.POST("/appointments/:id/complete", h.Complete)
	api.GET("/facilities/:id/appointments", h.ListForFacility)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/admin/appointments", h.ListAll)
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	userID := auth.UserIDFromContext(c.Request().Context())
	a, err := h.svc.Create(c.Request().Context(), userID, in)
	if err != nil {
		return err
	}
	return respond.Created(c, a)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid appointment id")
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond.OK(c, a)
}

func (h *Handler) Confirm(c echo.Context) error {
	return h.applyTransition(c, h.svc.Confirm)
}

func (h *Handler) Cancel(c echo.Context) error {
	return h.applyTransition(c, h.svc.Cancel)
}

func (h *Handler) Complete(c echo.Context) error {
	return h.applyTransition(c, h.svc.Complete)
}

func (h *Handler) applyTransition(c echo.Context, fn func(context.Context, uuid.UUID, string) (*Appointment, error)) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid appointment id")
	}
	var body struct {
		Notes  string `json:"notes"`
		Reason string `json:"reason"`
	}
	_ = c.Bind(&body) // body is optional

	msg := body.Notes
	if body.Reason != "" {
		msg = body.Reason
	}
	a, err := fn(c.Request().Context(), id, msg)
	if err != nil {
		return err
	}
	return respond.OK(c, a)
}

func (h *Handler) ListMine(c echo.Context) error {
	p := pagination.FromContext(c)
	appts, total, err := h.svc.ListMine(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return err
	}
	return respond.List(c, appts, total, p.Limit, p.Offset)
}

func (h *Handler) ListForFacility(c echo.Context) error {
	facilityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid facility id")
	}
	status, err := statusFromQuery(c)
	if err != nil {
		return err
	}
	p := pagination.FromContext(c)
	appts, total, err := h.svc.ListForFacility(c.Request().Context(), facilityID, status, p.Limit, p.Offset)
	if err != nil {
		return err
	}
	return respond.List(c, appts, total, p.Limit, p.Offset)
}

func (h *Handler) ListAll(c echo.Context) error {
	status, err := statusFromQuery(c)
	if err != nil {
		return err
	}
	p := pagination.FromContext(c)
	appts, total, err := h.svc.ListAll(c.Request().Context(), status, p.Limit, p.Offset)
	if err != nil {
		return err
	}
	return respond.List(c, appts, total, p.Limit, p.Offset)
}

func statusFromQuery(c echo.Context) (Status, error) {
	s := c.QueryParam("status")
	if s == "" {
		return "", nil
	}
	status, err := ParseStatus(s)
	if err != nil {
		return "", apperr.Validation("%v", err)
	}
	return status, nil
}
