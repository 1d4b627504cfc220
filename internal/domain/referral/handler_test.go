package referral

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/daveynmdz/wbhsms-cho-proj-sub001/internal/platform/auth"
)

func newTestServer(f *fixture, actor auth.Actor) *echo.Echo {
	e := echo.New()
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := auth.WithActor(c.Request().Context(), actor)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})
	NewHandler(f.svc, zerolog.Nop()).RegisterRoutes(e.Group("/api/v1"))
	return e
}

func postJSON(e *echo.Echo, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCreateReferralEndpoint(t *testing.T) {
	f := newFixture()
	e := newTestServer(f, f.actor)

	body := `{
		"patient_id": "` + f.patient.ID.String() + `",
		"destination_type": "barangay_center",
		"referral_reason": "fever for three days",
		"vitals": {"weight_kg": 70, "height_cm": 170}
	}`
	rec := postJSON(e, "/api/v1/referrals", body)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var ref Referral
	if err := json.Unmarshal(rec.Body.Bytes(), &ref); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.HasPrefix(ref.ReferralNumber, "REF-20260829-") {
		t.Errorf("referral number = %s", ref.ReferralNumber)
	}
	if ref.Status != StatusActive {
		t.Errorf("status = %s, want active", ref.Status)
	}
	if ref.VitalsID == nil {
		t.Error("vitals snapshot not linked")
	}
}

func TestCreateReferralEndpointValidationErrors(t *testing.T) {
	f := newFixture()
	e := newTestServer(f, f.actor)

	body := `{
		"patient_id": "` + f.patient.ID.String() + `",
		"destination_type": "external",
		"external_facility_type": "other",
		"other_facility_name": "XY",
		"referral_reason": ""
	}`
	rec := postJSON(e, "/api/v1/referrals", body)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Errors map[string][]string `json:"errors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Errors["external_facility"]) == 0 || len(resp.Errors["referral_reason"]) == 0 {
		t.Errorf("expected both violations in one response, got %v", resp.Errors)
	}
}

func TestCreateReferralEndpointExternalHospital(t *testing.T) {
	f := newFixture()
	e := newTestServer(f, f.actor)

	body := `{
		"patient_id": "` + f.patient.ID.String() + `",
		"destination_type": "external",
		"external_facility_type": "hospital",
		"hospital_name": "City General Hospital",
		"referral_reason": "requires surgical evaluation"
	}`
	rec := postJSON(e, "/api/v1/referrals", body)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var ref Referral
	if err := json.Unmarshal(rec.Body.Bytes(), &ref); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if ref.ExternalFacilityName == nil || *ref.ExternalFacilityName != "City General Hospital" {
		t.Errorf("external facility = %v", ref.ExternalFacilityName)
	}
	if ref.ReferredToFacilityID != nil {
		t.Error("internal facility set on an external referral")
	}
}

func TestCreateReferralEndpointUnknownPatient(t *testing.T) {
	f := newFixture()
	e := newTestServer(f, f.actor)

	body := `{
		"patient_id": "` + uuid.NewString() + `",
		"destination_type": "city_office",
		"referral_reason": "checkup"
	}`
	rec := postJSON(e, "/api/v1/referrals", body)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestTransitionEndpoint(t *testing.T) {
	f := newFixture()
	e := newTestServer(f, f.actor)
	ref, err := f.svc.Create(httptest.NewRequest("GET", "/", nil).Context(), f.actor, baseSubmission(f))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	rec := postJSON(e, "/api/v1/referrals/"+ref.ID.String()+"/transitions",
		`{"action": "void", "void_reason": "wrong patient selected"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("void: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"voided"`) {
		t.Errorf("body = %s", rec.Body.String())
	}

	rec = postJSON(e, "/api/v1/referrals/"+ref.ID.String()+"/transitions",
		`{"action": "reactivate"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("reactivate: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"active"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestTransitionEndpointConflictAndRepeat(t *testing.T) {
	f := newFixture()
	e := newTestServer(f, f.actor)
	ref, err := f.svc.Create(httptest.NewRequest("GET", "/", nil).Context(), f.actor, baseSubmission(f))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	rec := postJSON(e, "/api/v1/referrals/"+ref.ID.String()+"/transitions", `{"action": "complete"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete: status = %d", rec.Code)
	}

	// Double submission reports the current state without conflict.
	rec = postJSON(e, "/api/v1/referrals/"+ref.ID.String()+"/transitions", `{"action": "complete"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("repeat complete: status = %d, want 200", rec.Code)
	}

	// Completed referrals cannot be voided.
	rec = postJSON(e, "/api/v1/referrals/"+ref.ID.String()+"/transitions",
		`{"action": "void", "void_reason": "too late"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("void completed: status = %d, want 409", rec.Code)
	}

	rec = postJSON(e, "/api/v1/referrals/"+ref.ID.String()+"/transitions", `{"action": "shred"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown action: status = %d, want 400", rec.Code)
	}
}

func TestTransitionEndpointVoidWithoutReason(t *testing.T) {
	f := newFixture()
	e := newTestServer(f, f.actor)
	ref, err := f.svc.Create(httptest.NewRequest("GET", "/", nil).Context(), f.actor, baseSubmission(f))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	rec := postJSON(e, "/api/v1/referrals/"+ref.ID.String()+"/transitions", `{"action": "void"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "void_reason") {
		t.Errorf("body should name the missing field: %s", rec.Body.String())
	}
}

func TestSearchEndpoint(t *testing.T) {
	f := newFixture()
	e := newTestServer(f, f.actor)
	if _, err := f.svc.Create(httptest.NewRequest("GET", "/", nil).Context(), f.actor, baseSubmission(f)); err != nil {
		t.Fatalf("create: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/referrals?status=active", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Total int             `json:"total"`
		Data  json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 1 {
		t.Errorf("total = %d, want 1", resp.Total)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/referrals?status=bogus", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid status filter: status = %d, want 400", rec.Code)
	}
}

func TestDetailEndpoint(t *testing.T) {
	f := newFixture()
	e := newTestServer(f, f.actor)
	ref, err := f.svc.Create(httptest.NewRequest("GET", "/", nil).Context(), f.actor, baseSubmission(f))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/referrals/"+ref.ID.String(), nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), ref.ReferralNumber) {
		t.Errorf("body missing referral number")
	}
	if !strings.Contains(rec.Body.String(), f.patient.PatientNumber) {
		t.Errorf("body missing joined patient")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/referrals/"+uuid.NewString(), nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown id: status = %d, want 404", rec.Code)
	}
}

func TestResolveEndpoint(t *testing.T) {
	f := newFixture()
	e := newTestServer(f, f.actor)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/referrals/resolve?patient_id="+f.patient.ID.String(), nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resolved ResolvedFacilities
	if err := json.Unmarshal(rec.Body.Bytes(), &resolved); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resolved.BarangayCenter == nil || resolved.CityOffice == nil {
		t.Error("resolved facilities missing from payload")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/referrals/resolve", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing patient_id: status = %d, want 400", rec.Code)
	}
}

func TestReferralRoutesForbiddenRole(t *testing.T) {
	f := newFixture()
	e := newTestServer(f, auth.Actor{EmployeeID: uuid.New(), Role: "front_desk"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/referrals", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}
