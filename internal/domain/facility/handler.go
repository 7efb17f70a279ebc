package facility

import (
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carefinder/carefinder/internal/apperr"
	"github.com/carefinder/carefinder/internal/domain/geo"
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

// RegisterRoutes mounts read endpoints on the public group and management
// endpoints on the authenticated group.
func (h *Handler) RegisterRoutes(public, api *echo.Group) {
	public.GET("/facilities", h.List)
	public.GET("/facilities/nearby", h.Nearby)
	public.GET("/facilities/:id", h.Get)

	api.PUT("/facilities/:id", h.Update)
	api.PATCH("/facilities/:id/appointments", h.SetAppointments)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/facilities", h.Create)
	admin.DELETE("/facilities/:id", h.Delete)
	admin.PATCH("/facilities/:id/approve", h.Approve)
	admin.GET("/admin/facilities", h.AdminList)
}

func filterFromQuery(c echo.Context) (ListFilter, error) {
	filter := ListFilter{
		City:       c.QueryParam("city"),
		State:      c.QueryParam("state"),
		PostalCode: c.QueryParam("pincode"),
		Service:    c.QueryParam("service"),
		Query:      c.QueryParam("q"),
	}
	if k := c.QueryParam("kind"); k != "" {
		kind, err := ParseKind(k)
		if err != nil {
			return filter, apperr.Validation("kind must be hospital or laboratory")
		}
		filter.Kind = kind
	}
	return filter, nil
}

func originFromQuery(c echo.Context) (*geo.Point, error) {
	latStr, lngStr := c.QueryParam("lat"), c.QueryParam("lng")
	if latStr == "" && lngStr == "" {
		return nil, nil
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, apperr.Validation("invalid lat")
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return nil, apperr.Validation("invalid lng")
	}
	return &geo.Point{Lat: lat, Lng: lng}, nil
}

func (h *Handler) List(c echo.Context) error {
	filter, err := filterFromQuery(c)
	if err != nil {
		return err
	}
	origin, err := originFromQuery(c)
	if err != nil {
		return err
	}
	p := pagination.FromContext(c)

	if origin != nil {
		ranked, total, err := h.svc.ListRanked(c.Request().Context(), filter, *origin, p.Limit, p.Offset)
		if err != nil {
			return err
		}
		return respond.List(c, ranked, total, p.Limit, p.Offset)
	}

	facilities, total, err := h.svc.ListPublic(c.Request().Context(), filter, p.Limit, p.Offset)
	if err != nil {
		return err
	}
	return respond.List(c, facilities, total, p.Limit, p.Offset)
}

func (h *Handler) Nearby(c echo.Context) error {
	origin, err := originFromQuery(c)
	if err != nil {
		return err
	}
	if origin == nil {
		return apperr.Validation("lat and lng are required")
	}

	var kind Kind
	if k := c.QueryParam("kind"); k != "" {
		kind, err = ParseKind(k)
		if err != nil {
			return apperr.Validation("kind must be hospital or laboratory")
		}
	}

	var radiusKm float64
	if r := c.QueryParam("radius_km"); r != "" {
		radiusKm, err = strconv.ParseFloat(r, 64)
		if err != nil {
			return apperr.Validation("invalid radius_km")
		}
	}

	ranked, err := h.svc.Nearby(c.Request().Context(), kind, *origin, radiusKm)
	if err != nil {
		return err
	}
	return respond.OK(c, ranked)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid facility id")
	}
	f, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond.OK(c, f)
}

func (h *Handler) Create(c echo.Context) error {
	var in Input
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	f, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return respond.Created(c, f)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid facility id")
	}
	var in Input
	if err := c.Bind(&in); err != nil {
		return apperr.Validation("invalid request body")
	}
	f, err := h.svc.Update(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return respond.OK(c, f)
}

func (h *Handler) Approve(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid facility id")
	}
	var body struct {
		Approved *bool `json:"approved"`
	}
	if err := c.Bind(&body); err != nil {
		return apperr.Validation("invalid request body")
	}
	approved := true
	if body.Approved != nil {
		approved = *body.Approved
	}
	if err := h.svc.Approve(c.Request().Context(), id, approved); err != nil {
		return err
	}
	return respond.Message(c, "facility approval updated")
}

func (h *Handler) SetAppointments(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid facility id")
	}
	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if err := c.Bind(&body); err != nil || body.Enabled == nil {
		return apperr.Validation("enabled is required")
	}
	if err := h.svc.SetAppointmentsEnabled(c.Request().Context(), id, *body.Enabled); err != nil {
		return err
	}
	return respond.Message(c, "appointment availability updated")
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid facility id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return respond.Message(c, "facility deleted")
}

func (h *Handler) AdminList(c echo.Context) error {
	filter, err := filterFromQuery(c)
	if err != nil {
		return err
	}
	p := pagination.FromContext(c)
	facilities, total, err := h.svc.AdminList(c.Request().Context(), filter, p.Limit, p.Offset)
	if err != nil {
		return err
	}
	return respond.List(c, facilities, total, p.Limit, p.Offset)
}
