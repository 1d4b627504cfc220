package directory

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/daveynmdz/wbhsms-cho-proj-sub001/internal/platform/auth"
)

type Handler struct {
	svc *Service
	log zerolog.Logger
}

func NewHandler(svc *Service, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// internalError hides the underlying failure from the client; the full
// error is logged with the route for diagnosis.
func (h *Handler) internalError(c echo.Context, err error) error {
	h.log.Error().Err(err).Str("path", c.Path()).Msg("directory lookup failed")
	return echo.NewHTTPError(http.StatusInternalServerError, "something went wrong, please try again")
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	role := auth.RequireRole(
		auth.RoleDoctor,
		auth.RoleCommunityHealthWorker,
		auth.RoleDistrictHealthOfficer,
		auth.RoleRecordsOfficer,
	)

	read := api.Group("", role)
	read.GET("/facilities", h.ListFacilities)
	read.GET("/facilities/:id", h.GetFacility)
	read.GET("/barangays", h.ListBarangays)
	read.GET("/services", h.ListCatalogServices)
	read.GET("/patients/:id", h.GetPatient)
}

func (h *Handler) ListFacilities(c echo.Context) error {
	filter := FacilityFilter{
		District:   c.QueryParam("district"),
		ActiveOnly: c.QueryParam("include_inactive") != "true",
	}
	if t := c.QueryParam("type"); t != "" {
		ft := FacilityType(t)
		if !ft.Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid facility type")
		}
		filter.Type = ft
	}
	if b := c.QueryParam("barangay_id"); b != "" {
		id, err := uuid.Parse(b)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid barangay_id")
		}
		filter.BarangayID = &id
	}
	facilities, err := h.svc.ListFacilities(c.Request().Context(), filter)
	if err != nil {
		return h.internalError(c, err)
	}
	return c.JSON(http.StatusOK, facilities)
}

func (h *Handler) GetFacility(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	facility, err := h.svc.GetFacility(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "facility not found")
		}
		return h.internalError(c, err)
	}
	return c.JSON(http.StatusOK, facility)
}

func (h *Handler) ListBarangays(c echo.Context) error {
	barangays, err := h.svc.ListBarangays(c.Request().Context())
	if err != nil {
		return h.internalError(c, err)
	}
	return c.JSON(http.StatusOK, barangays)
}

func (h *Handler) ListCatalogServices(c echo.Context) error {
	services, err := h.svc.ListCatalogServices(c.Request().Context())
	if err != nil {
		return h.internalError(c, err)
	}
	return c.JSON(http.StatusOK, services)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	patient, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		}
		return h.internalError(c, err)
	}
	return c.JSON(http.StatusOK, patient)
}
