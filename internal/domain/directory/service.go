package directory

import (
	"context"

	"github.com/google/uuid"
)

// Service exposes read access to the administrative directory: patients,
// facilities, barangays, employees and the service catalog.
type Service struct {
	patients   PatientRepository
	facilities FacilityRepository
	barangays  BarangayRepository
	employees  EmployeeRepository
	services   ServiceRepository
}

func NewService(
	patients PatientRepository,
	facilities FacilityRepository,
	barangays BarangayRepository,
	employees EmployeeRepository,
	services ServiceRepository,
) *Service {
	return &Service{
		patients:   patients,
		facilities: facilities,
		barangays:  barangays,
		employees:  employees,
		services:   services,
	}
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) GetPatientByNumber(ctx context.Context, patientNumber string) (*Patient, error) {
	return s.patients.GetByNumber(ctx, patientNumber)
}

func (s *Service) GetFacility(ctx context.Context, id uuid.UUID) (*Facility, error) {
	return s.facilities.GetByID(ctx, id)
}

func (s *Service) ListFacilities(ctx context.Context, filter FacilityFilter) ([]*Facility, error) {
	return s.facilities.List(ctx, filter)
}

func (s *Service) GetBarangay(ctx context.Context, id uuid.UUID) (*Barangay, error) {
	return s.barangays.GetByID(ctx, id)
}

func (s *Service) ListBarangays(ctx context.Context) ([]*Barangay, error) {
	return s.barangays.List(ctx)
}

func (s *Service) GetEmployee(ctx context.Context, id uuid.UUID) (*Employee, error) {
	return s.employees.GetByID(ctx, id)
}

func (s *Service) GetCatalogService(ctx context.Context, id uuid.UUID) (*CatalogService, error) {
	return s.services.GetByID(ctx, id)
}

func (s *Service) ListCatalogServices(ctx context.Context) ([]*CatalogService, error) {
	return s.services.List(ctx)
}
