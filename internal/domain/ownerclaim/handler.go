package ownerclaim

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

// RegisterRoutes mounts claim submission for users and claim decisions for
// admins.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/owner/claims", h.Request)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/admin/claims", h.ListPending)
	admin.POST("/admin/claims/:user_id/approve", h.Approve)
	admin.POST("/admin/claims/:user_id/reject", h.Reject)
	admin.PUT("/admin/facilities/:id/owner", h.Reassign)
	admin.DELETE("/admin/facilities/:id/owner", h.Remove)
}

func (h *Handler) Request(c echo.Context) error {
	var in RequestInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	userID := auth.UserIDFromContext(c.Request().Context())
	user, err := h.svc.Request(c.Request().Context(), userID, in)
	if err != nil {
		return err
	}
	return respond.Created(c, user)
}

func (h *Handler) ListPending(c echo.Context) error {
	p := pagination.FromContext(c)
	users, total, err := h.svc.ListPending(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return err
	}
	return respond.List(c, users, total, p.Limit, p.Offset)
}

func (h *Handler) Approve(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		return apperr.Validation("invalid user id")
	}
	user, err := h.svc.Approve(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return respond.OK(c, user)
}

func (h *Handler) Reject(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		return apperr.Validation("invalid user id")
	}
	if err := h.svc.Reject(c.Request().Context(), userID); err != nil {
		return err
	}
	return respond.Message(c, "ownership claim rejected")
}

func (h *Handler) Reassign(c echo.Context) error {
	facilityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid facility id")
	}
	var body struct {
		NewOwnerEmail string `json:"new_owner_email"`
	}
	if err := c.Bind(&body); err != nil {
		return apperr.Validation("invalid request body")
	}
	user, err := h.svc.Reassign(c.Request().Context(), facilityID, body.NewOwnerEmail)
	if err != nil {
		return err
	}
	return respond.OK(c, user)
}

func (h *Handler) Remove(c echo.Context) error {
	facilityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid facility id")
	}
	if err := h.svc.Remove(c.Request().Context(), facilityID); err != nil {
		return err
	}
	return respond.Message(c, "facility ownership removed")
}
