package directory

import (
	"time"

	"github.com/google/uuid"
)

// FacilityType classifies a healthcare facility within the city network.
type FacilityType string

const (
	FacilityBarangayCenter FacilityType = "barangay_health_center"
	FacilityDistrictOffice FacilityType = "district_office"
	FacilityCityOffice     FacilityType = "city_office"
	FacilityOther          FacilityType = "other"
)

func (t FacilityType) Valid() bool {
	switch t {
	case FacilityBarangayCenter, FacilityDistrictOffice, FacilityCityOffice, FacilityOther:
		return true
	}
	return false
}

// Facility maps to the facility table. BarangayID is null for district and
// city-level facilities. Exactly one city office row is flagged as the
// main office.
type Facility struct {
	ID           uuid.UUID    `db:"id" json:"id"`
	Name         string       `db:"name" json:"name"`
	Type         FacilityType `db:"type" json:"type"`
	District     *string      `db:"district" json:"district,omitempty"`
	BarangayID   *uuid.UUID   `db:"barangay_id" json:"barangay_id,omitempty"`
	IsMainOffice bool         `db:"is_main_office" json:"is_main_office"`
	Active       bool         `db:"active" json:"active"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
}

// Barangay maps to the barangay table.
type Barangay struct {
	ID       uuid.UUID `db:"id" json:"id"`
	Name     string    `db:"name" json:"name"`
	District *string   `db:"district" json:"district,omitempty"`
}

// Patient holds the identity and administrative location fields this
// service reads. Patients are registered elsewhere and never mutated here.
type Patient struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	PatientNumber string     `db:"patient_number" json:"patient_number"`
	FirstName     string     `db:"first_name" json:"first_name"`
	LastName      string     `db:"last_name" json:"last_name"`
	BirthDate     *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	BarangayID    *uuid.UUID `db:"barangay_id" json:"barangay_id,omitempty"`
	Status        string     `db:"status" json:"status"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// IsActive reports whether the patient record is active in the registry.
func (p *Patient) IsActive() bool { return p.Status == "active" }

// AgeAt returns the patient's age in whole years at the given time, or -1
// when the birth date is unknown.
func (p *Patient) AgeAt(at time.Time) int {
	if p.BirthDate == nil {
		return -1
	}
	dob := *p.BirthDate
	years := at.Year() - dob.Year()
	if at.Month() < dob.Month() || (at.Month() == dob.Month() && at.Day() < dob.Day()) {
		years--
	}
	if years < 0 {
		return -1
	}
	return years
}

// Employee maps to the employee table.
type Employee struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	FirstName  string     `db:"first_name" json:"first_name"`
	LastName   string     `db:"last_name" json:"last_name"`
	Role       string     `db:"role" json:"role"`
	FacilityID *uuid.UUID `db:"facility_id" json:"facility_id,omitempty"`
	Active     bool       `db:"active" json:"active"`
}

// CatalogService maps to the service catalog table (immunization, maternal
// care, laboratory, and so on) used for optional referral tagging.
type CatalogService struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	Active      bool      `db:"active" json:"active"`
}
