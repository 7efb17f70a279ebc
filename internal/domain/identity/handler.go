package identity

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

// RegisterRoutes mounts auth endpoints on the public group and account
// management on the authenticated group.
func (h *Handler) RegisterRoutes(public, api *echo.Group) {
	public.POST("/auth/register", h.Register)
	public.POST("/auth/login", h.Login)

	api.GET("/auth/me", h.Me)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/users", h.ListUsers)
	admin.GET("/users/:id", h.GetUser)
	admin.PATCH("/users/:id/status", h.SetUserStatus)
}

func (h *Handler) Register(c echo.Context) error {
	var in RegisterInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	result, err := h.svc.Register(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return respond.Created(c, result)
}

func (h *Handler) Login(c echo.Context) error {
	var creds Credentials
	if err := c.Bind(&creds); err != nil {
		return apperr.Validation("invalid request body")
	}
	result, err := h.svc.Login(c.Request().Context(), creds)
	if err != nil {
		return err
	}
	return respond.OK(c, result)
}

func (h *Handler) Me(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	user, err := h.svc.Get(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return respond.OK(c, user)
}

func (h *Handler) ListUsers(c echo.Context) error {
	p := pagination.FromContext(c)
	users, total, err := h.svc.List(c.Request().Context(), c.QueryParam("role"), p.Limit, p.Offset)
	if err != nil {
		return err
	}
	return respond.List(c, users, total, p.Limit, p.Offset)
}

func (h *Handler) GetUser(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid user id")
	}
	user, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond.OK(c, user)
}

func (h *Handler) SetUserStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid user id")
	}
	var body struct {
		IsActive *bool `json:"is_active"`
	}
	if err := c.Bind(&body); err != nil || body.IsActive == nil {
		return apperr.Validation("is_active is required")
	}
	if err := h.svc.SetActive(c.Request().Context(), id, *body.IsActive); err != nil {
		return err
	}
	return respond.Message(c, "user status updated")
}
