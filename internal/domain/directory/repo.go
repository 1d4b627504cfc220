package directory

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a directory record does not exist.
var ErrNotFound = errors.New("directory: record not found")

// FacilityFilter narrows facility listings. Zero fields are ignored.
type FacilityFilter struct {
	Type       FacilityType
	District   string
	BarangayID *uuid.UUID
	ActiveOnly bool
}

// PatientRepository reads the patient registry.
type PatientRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByNumber(ctx context.Context, patientNumber string) (*Patient, error)
}

// FacilityRepository reads facility and location data. The directory is
// maintained by the admin modules; this subsystem only reads it.
type FacilityRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Facility, error)
	List(ctx context.Context, filter FacilityFilter) ([]*Facility, error)
	// FindBarangayCenter returns the active barangay health center located
	// in the given barangay, or ErrNotFound. When the data layer holds
	// more than one, the first by name is returned.
	FindBarangayCenter(ctx context.Context, barangayID uuid.UUID) (*Facility, error)
	// DistrictOfBarangay resolves the district a barangay belongs to via
	// any facility row located in that barangay. Returns ErrNotFound when
	// no facility row links the barangay to a district.
	DistrictOfBarangay(ctx context.Context, barangayID uuid.UUID) (string, error)
	// FindDistrictOffice returns the active district office for a district,
	// or ErrNotFound.
	FindDistrictOffice(ctx context.Context, district string) (*Facility, error)
	// GetMainCityOffice returns the single facility flagged as the main
	// city health office. Its absence is a configuration fault.
	GetMainCityOffice(ctx context.Context) (*Facility, error)
}

// BarangayRepository reads the barangay list.
type BarangayRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Barangay, error)
	List(ctx context.Context) ([]*Barangay, error)
}

// EmployeeRepository reads the employee roster.
type EmployeeRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Employee, error)
}

// ServiceRepository reads the service catalog.
type ServiceRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*CatalogService, error)
	List(ctx context.Context) ([]*CatalogService, error)
}
