package referral

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/daveynmdz/wbhsms-cho-proj-sub001/internal/platform/auth"
	"github.com/daveynmdz/wbhsms-cho-proj-sub001/pkg/category"
	"github.com/daveynmdz/wbhsms-cho-proj-sub001/pkg/pagination"
)

type Handler struct {
	svc *Service
	log zerolog.Logger
}

func NewHandler(svc *Service, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	role := auth.RequireRole(transitionRoles...)

	g := api.Group("", role)
	g.POST("/referrals", h.CreateReferral)
	g.POST("/referrals/:id/transitions", h.TransitionReferral)
	g.GET("/referrals", h.SearchReferrals)
	g.GET("/referrals/resolve", h.ResolveDestinations)
	g.GET("/referrals/:id", h.GetReferralDetail)
}

// createRequest mirrors the referral form: the external destination
// arrives as separate hospital / other fields and is folded into a
// single category value.
type createRequest struct {
	PatientID            uuid.UUID       `json:"patient_id"`
	DestinationType      DestinationType `json:"destination_type"`
	Reason               string          `json:"referral_reason"`
	ChiefComplaint       string          `json:"chief_complaint"`
	Symptoms             string          `json:"symptoms"`
	Assessment           string          `json:"assessment"`
	ServiceID            *uuid.UUID      `json:"service_id"`
	ExternalFacilityType string          `json:"external_facility_type"`
	HospitalName         string          `json:"hospital_name"`
	OtherFacilityName    string          `json:"other_facility_name"`
	Vitals               *VitalsInput    `json:"vitals"`
}

func (r *createRequest) toSubmission() *Submission {
	sub := &Submission{
		PatientID:       r.PatientID,
		DestinationType: r.DestinationType,
		Reason:          r.Reason,
		ChiefComplaint:  r.ChiefComplaint,
		Symptoms:        r.Symptoms,
		Assessment:      r.Assessment,
		ServiceID:       r.ServiceID,
		Vitals:          r.Vitals,
	}
	switch strings.ToLower(strings.TrimSpace(r.ExternalFacilityType)) {
	case "hospital":
		sub.ExternalFacility = category.Known(r.HospitalName)
	case "other":
		sub.ExternalFacility = category.Other(r.OtherFacilityName)
	}
	return sub
}

func (h *Handler) CreateReferral(c echo.Context) error {
	actor, ok := auth.ActorFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	ref, err := h.svc.Create(c.Request().Context(), actor, req.toSubmission())
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusCreated, ref)
}

type transitionRequest struct {
	Action     string `json:"action"`
	VoidReason string `json:"void_reason"`
}

func (h *Handler) TransitionReferral(c echo.Context) error {
	actor, ok := auth.ActorFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req transitionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	var ref *Referral
	ctx := c.Request().Context()
	switch req.Action {
	case "complete":
		ref, err = h.svc.Complete(ctx, actor, id)
	case "void":
		ref, err = h.svc.Void(ctx, actor, id, req.VoidReason)
	case "reactivate":
		ref, err = h.svc.Reactivate(ctx, actor, id)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "action must be complete, void or reactivate")
	}
	if errors.Is(err, ErrAlreadyInState) {
		// Benign repeat: report the current state without re-applying.
		return c.JSON(http.StatusOK, ref)
	}
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, ref)
}

func (h *Handler) SearchReferrals(c echo.Context) error {
	actor, ok := auth.ActorFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	filter := SearchFilter{
		PatientNumber: c.QueryParam("patient_number"),
		FirstName:     c.QueryParam("first_name"),
		LastName:      c.QueryParam("last_name"),
	}
	if s := c.QueryParam("status"); s != "" {
		st := Status(s)
		if !st.Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid status filter")
		}
		filter.Status = st
	}
	if b := c.QueryParam("barangay_id"); b != "" {
		id, err := uuid.Parse(b)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid barangay_id")
		}
		filter.BarangayID = &id
	}
	pg := pagination.FromContext(c)
	rows, total, err := h.svc.Search(c.Request().Context(), actor, filter, pg.Limit, pg.Offset)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(rows, total, pg.Limit, pg.Offset))
}

func (h *Handler) ResolveDestinations(c echo.Context) error {
	actor, ok := auth.ActorFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	patientID, err := uuid.Parse(c.QueryParam("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id query parameter is required")
	}
	resolved, err := h.svc.Resolve(c.Request().Context(), actor, patientID)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, resolved)
}

func (h *Handler) GetReferralDetail(c echo.Context) error {
	actor, ok := auth.ActorFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	detail, err := h.svc.Detail(c.Request().Context(), actor, id)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, detail)
}

// mapError translates domain errors into HTTP responses. Validation
// errors carry every field violation; storage and configuration faults
// are logged in full and surfaced as a generic message.
func (h *Handler) mapError(c echo.Context, err error) error {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"message": "validation failed",
			"errors":  verr.Fields,
		})
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "referral not found")
	case errors.Is(err, ErrPatientNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	case errors.Is(err, ErrLocationDataIncomplete):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "patient has no barangay on record")
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "not authorized for this action")
	case errors.Is(err, ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		h.log.Error().Err(err).Str("path", c.Path()).Msg("referral operation failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "something went wrong, please try again")
	}
}
