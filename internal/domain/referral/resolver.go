package referral

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/daveynmdz/wbhsms-cho-proj-sub001/internal/domain/directory"
)

// ResolvedFacilities holds the concrete destination candidates for a
// patient's administrative location. BarangayCenter and DistrictOffice
// may be nil when the location has no mapped facility; CityOffice is
// always present for a healthy deployment.
type ResolvedFacilities struct {
	BarangayCenter *directory.Facility `json:"barangay_center,omitempty"`
	DistrictOffice *directory.Facility `json:"district_office,omitempty"`
	CityOffice     *directory.Facility `json:"city_office"`
}

// Resolver maps a patient to the facility that would receive them for
// each internal destination category. Read-only.
type Resolver struct {
	patients   directory.PatientRepository
	facilities directory.FacilityRepository
}

func NewResolver(patients directory.PatientRepository, facilities directory.FacilityRepository) *Resolver {
	return &Resolver{patients: patients, facilities: facilities}
}

// Resolve looks up the patient's barangay and returns the matching
// barangay health center, the district office serving that barangay's
// district, and the main city office. A missing patient yields
// ErrPatientNotFound; a patient with no barangay on record yields
// ErrLocationDataIncomplete; a missing main city office yields
// ErrMissingCityOffice.
func (r *Resolver) Resolve(ctx context.Context, patientID uuid.UUID) (*ResolvedFacilities, error) {
	patient, err := r.patients.GetByID(ctx, patientID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}
	if patient.BarangayID == nil {
		return nil, ErrLocationDataIncomplete
	}

	resolved := &ResolvedFacilities{}

	center, err := r.facilities.FindBarangayCenter(ctx, *patient.BarangayID)
	switch {
	case err == nil:
		resolved.BarangayCenter = center
	case !errors.Is(err, directory.ErrNotFound):
		return nil, fmt.Errorf("find barangay center: %w", err)
	}

	district, err := r.facilities.DistrictOfBarangay(ctx, *patient.BarangayID)
	if err != nil && !errors.Is(err, directory.ErrNotFound) {
		return nil, fmt.Errorf("resolve district: %w", err)
	}
	if err == nil && district != "" {
		office, err := r.facilities.FindDistrictOffice(ctx, district)
		switch {
		case err == nil:
			resolved.DistrictOffice = office
		case !errors.Is(err, directory.ErrNotFound):
			return nil, fmt.Errorf("find district office: %w", err)
		}
	}

	city, err := r.facilities.GetMainCityOffice(ctx)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, ErrMissingCityOffice
		}
		return nil, fmt.Errorf("find city office: %w", err)
	}
	resolved.CityOffice = city

	return resolved, nil
}
