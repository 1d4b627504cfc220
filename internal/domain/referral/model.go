package referral

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/daveynmdz/wbhsms-cho-proj-sub001/pkg/category"
)

// Status is the lifecycle state of a referral.
type Status string

const (
	StatusActive    Status = "active"
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusVoided    Status = "voided"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPending, StatusCompleted, StatusVoided:
		return true
	}
	return false
}

// DestinationType categorizes where a patient is being referred.
type DestinationType string

const (
	DestBarangayCenter DestinationType = "barangay_center"
	DestDistrictOffice DestinationType = "district_office"
	DestCityOffice     DestinationType = "city_office"
	DestExternal       DestinationType = "external"
)

func (d DestinationType) Valid() bool {
	switch d {
	case DestBarangayCenter, DestDistrictOffice, DestCityOffice, DestExternal:
		return true
	}
	return false
}

// Referral is a formal hand-off of a patient from the issuing facility to
// a destination facility. Exactly one of ReferredToFacilityID and
// ExternalFacilityName is set, according to DestinationType. The referral
// number is assigned once and never changes.
type Referral struct {
	ID                   uuid.UUID       `db:"id" json:"id"`
	ReferralNumber       string          `db:"referral_number" json:"referral_number"`
	PatientID            uuid.UUID       `db:"patient_id" json:"patient_id"`
	ReferringFacilityID  uuid.UUID       `db:"referring_facility_id" json:"referring_facility_id"`
	ReferredToFacilityID *uuid.UUID      `db:"referred_to_facility_id" json:"referred_to_facility_id,omitempty"`
	ExternalFacilityName *string         `db:"external_facility_name" json:"external_facility_name,omitempty"`
	DestinationType      DestinationType `db:"destination_type" json:"destination_type"`
	Reason               string          `db:"referral_reason" json:"referral_reason"`
	ChiefComplaint       *string         `db:"chief_complaint" json:"chief_complaint,omitempty"`
	Symptoms             *string         `db:"symptoms" json:"symptoms,omitempty"`
	Assessment           *string         `db:"assessment" json:"assessment,omitempty"`
	ServiceID            *uuid.UUID      `db:"service_id" json:"service_id,omitempty"`
	VitalsID             *uuid.UUID      `db:"vitals_id" json:"vitals_id,omitempty"`
	Status               Status          `db:"status" json:"status"`
	VoidReason           *string         `db:"void_reason" json:"void_reason,omitempty"`
	IssuedBy             uuid.UUID       `db:"issued_by" json:"issued_by"`
	CreatedAt            time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time       `db:"updated_at" json:"updated_at"`
}

// VitalsSnapshot is a point-in-time capture of basic measurements taken
// when a referral is submitted. Rows are inserted once and never updated.
type VitalsSnapshot struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	PatientID       uuid.UUID  `db:"patient_id" json:"patient_id"`
	SystolicBP      *float64   `db:"systolic_bp" json:"systolic_bp,omitempty"`
	DiastolicBP     *float64   `db:"diastolic_bp" json:"diastolic_bp,omitempty"`
	HeartRate       *float64   `db:"heart_rate" json:"heart_rate,omitempty"`
	RespiratoryRate *float64   `db:"respiratory_rate" json:"respiratory_rate,omitempty"`
	TemperatureC    *float64   `db:"temperature_c" json:"temperature_c,omitempty"`
	WeightKG        *float64   `db:"weight_kg" json:"weight_kg,omitempty"`
	HeightCM        *float64   `db:"height_cm" json:"height_cm,omitempty"`
	BMI             *float64   `db:"bmi" json:"bmi,omitempty"`
	TakenAt         time.Time  `db:"taken_at" json:"taken_at"`
}

// StatusChange is one audit row in a referral's transition history.
type StatusChange struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ReferralID uuid.UUID `db:"referral_id" json:"referral_id"`
	FromStatus Status    `db:"from_status" json:"from_status"`
	ToStatus   Status    `db:"to_status" json:"to_status"`
	ChangedBy  uuid.UUID `db:"changed_by" json:"changed_by"`
	Reason     *string   `db:"reason" json:"reason,omitempty"`
	ChangedAt  time.Time `db:"changed_at" json:"changed_at"`
}

// VitalsInput carries optional measurements on a submission. All fields
// are optional; present values are range-checked by the validator. BMI is
// always derived, never submitted.
type VitalsInput struct {
	SystolicBP      *float64 `json:"systolic_bp,omitempty"`
	DiastolicBP     *float64 `json:"diastolic_bp,omitempty"`
	HeartRate       *float64 `json:"heart_rate,omitempty"`
	RespiratoryRate *float64 `json:"respiratory_rate,omitempty"`
	TemperatureC    *float64 `json:"temperature_c,omitempty"`
	WeightKG        *float64 `json:"weight_kg,omitempty"`
	HeightCM        *float64 `json:"height_cm,omitempty"`
}

// Empty reports whether no measurement is present at all.
func (v *VitalsInput) Empty() bool {
	if v == nil {
		return true
	}
	return v.SystolicBP == nil && v.DiastolicBP == nil && v.HeartRate == nil &&
		v.RespiratoryRate == nil && v.TemperatureC == nil && v.WeightKG == nil && v.HeightCM == nil
}

// Submission is the input to referral creation. ExternalFacility holds
// either a hospital chosen from the allowed list (Known) or a free-text
// facility name (Other); it is read only when DestinationType is external.
type Submission struct {
	PatientID        uuid.UUID         `json:"patient_id"`
	DestinationType  DestinationType   `json:"destination_type"`
	Reason           string            `json:"referral_reason"`
	ChiefComplaint   string            `json:"chief_complaint,omitempty"`
	Symptoms         string            `json:"symptoms,omitempty"`
	Assessment       string            `json:"assessment,omitempty"`
	ServiceID        *uuid.UUID        `json:"service_id,omitempty"`
	ExternalFacility category.Category `json:"external_facility,omitempty"`
	Vitals           *VitalsInput      `json:"vitals,omitempty"`
}

// ComputeBMI derives body mass index from weight in kilograms and height
// in centimeters, rounded to two decimal places. Returns 0 when either
// input is non-positive.
func ComputeBMI(weightKG, heightCM float64) float64 {
	if weightKG <= 0 || heightCM <= 0 {
		return 0
	}
	m := heightCM / 100
	return math.Round(weightKG/(m*m)*100) / 100
}
