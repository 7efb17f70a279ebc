package facility

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carefinder/carefinder/internal/apperr"
)

func newTestHandler() (*Handler, *mockRepo, *echo.Echo) {
	repo := newMockRepo()
	return NewHandler(NewService(repo)), repo, echo.New()
}

func TestHandlerList(t *testing.T) {
	h, repo, e := newTestHandler()
	seedPublic(t, repo, "Alpha", 28.70, 77.10)
	seedPublic(t, repo, "Beta", 28.71, 77.11)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/facilities", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Total   int             `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || body.Total != 2 {
		t.Fatalf("envelope = success:%v total:%d, want success with 2", body.Success, body.Total)
	}
}

func TestHandlerListRegionParams(t *testing.T) {
	h, repo, e := newTestHandler()
	delhi := seedPublic(t, repo, "Delhi General", 28.6, 77.2)
	delhi.Address = Address{City: "Delhi", State: "Delhi", PostalCode: "110001"}
	mumbai := seedPublic(t, repo, "Mumbai Central", 19.0, 72.8)
	mumbai.Address = Address{City: "Mumbai", State: "Maharashtra", PostalCode: "400001"}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/facilities?state=maharashtra&pincode=400001", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var body struct {
		Data []struct {
			ID uuid.UUID `json:"id"`
		} `json:"data"`
		Total int `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Total != 1 || len(body.Data) != 1 || body.Data[0].ID != mumbai.ID {
		t.Fatalf("region params returned %d results, want only Mumbai Central", body.Total)
	}
}

func TestHandlerListRanked(t *testing.T) {
	h, repo, e := newTestHandler()
	far := seedPublic(t, repo, "Far", 28.80, 77.10)
	near := seedPublic(t, repo, "Near", 28.71, 77.10)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/facilities?lat=28.70&lng=77.10", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var body struct {
		Data []struct {
			ID         uuid.UUID `json:"id"`
			DistanceKm float64   `json:"distance_km"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data) != 2 {
		t.Fatalf("got %d results, want 2", len(body.Data))
	}
	if body.Data[0].ID != near.ID || body.Data[1].ID != far.ID {
		t.Fatal("results not ordered by distance")
	}
	if body.Data[0].DistanceKm <= 0 {
		t.Fatal("distance_km missing from ranked results")
	}
}

func TestHandlerListBadCoords(t *testing.T) {
	h, _, e := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/facilities?lat=abc&lng=77.10", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.List(c); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestHandlerNearbyRequiresCoords(t *testing.T) {
	h, _, e := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/facilities/nearby", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Nearby(c); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestHandlerGet(t *testing.T) {
	h, repo, e := newTestHandler()
	f := seedPublic(t, repo, "Alpha", 28.70, 77.10)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(f.ID.String())

	if err := h.Get(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHandlerGetInvalidID(t *testing.T) {
	h, _, e := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	if err := h.Get(c); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestHandlerGetNotFound(t *testing.T) {
	h, _, e := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	if err := h.Get(c); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestHandlerCreate(t *testing.T) {
	h, _, e := newTestHandler()

	body := `{"kind":"hospital","name":"City Hospital","location":{"lat":28.6,"lng":77.2}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/facilities", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(adminCtx())
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Create(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
}

func TestHandlerSetAppointmentsRequiresEnabled(t *testing.T) {
	h, repo, e := newTestHandler()
	f := seedPublic(t, repo, "Alpha", 28.70, 77.10)

	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(adminCtx())
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(f.ID.String())

	if err := h.SetAppointments(c); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}
